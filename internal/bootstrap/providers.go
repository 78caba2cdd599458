package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/connectivity"
	"gitlab.com/simigo/client/datacore/internal/adapters/httpclient"
	"gitlab.com/simigo/client/datacore/internal/adapters/launcher"
	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
	"gitlab.com/simigo/client/datacore/internal/adapters/memory"
	"gitlab.com/simigo/client/datacore/internal/adapters/middleware"
	appnats "gitlab.com/simigo/client/datacore/internal/adapters/nats"
	appredis "gitlab.com/simigo/client/datacore/internal/adapters/redis"
	"gitlab.com/simigo/client/datacore/internal/adapters/secrets"
	"gitlab.com/simigo/client/datacore/internal/adapters/sqlite"
	"gitlab.com/simigo/client/datacore/internal/application"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

// Distinct types so Wire can tell them apart from other bindings of the same shape.
type (
	// EventForwarder receives a copy of every bus event. Nil when events stay in process.
	EventForwarder interface{ domain.EventPublisher }

	AdminMiddleware func(http.Handler) http.Handler
)

// InitialZapLoggerProvider provides a basic *zap.Logger instance, used while
// the configuration is loaded.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewExample()
		fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example logger: %v\n", err)
	}
	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// App holds the wired data core and the debug HTTP surface around it.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	adminAuth      AdminMiddleware

	cache    *application.SWRCache
	monitor  *connectivity.Monitor
	coord    *application.Coordinator
	client   *httpclient.Client
	ttl      *application.TTLPolicy
	session  *application.SessionManager
	catalog  *application.CatalogService
	payments *application.PaymentService
	checkout *application.Checkout
	opener   *launcher.LogOpener
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	adminAuth AdminMiddleware,
	cache *application.SWRCache,
	monitor *connectivity.Monitor,
	coord *application.Coordinator,
	client *httpclient.Client,
	ttl *application.TTLPolicy,
	session *application.SessionManager,
	catalog *application.CatalogService,
	payments *application.PaymentService,
	checkout *application.Checkout,
	opener *launcher.LogOpener,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServeMux:   mux,
		httpServer:     server,
		adminAuth:      adminAuth,
		cache:          cache,
		monitor:        monitor,
		coord:          coord,
		client:         client,
		ttl:            ttl,
		session:        session,
		catalog:        catalog,
		payments:       payments,
		checkout:       checkout,
		opener:         opener,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		app.coord.CancelAll()
		app.monitor.Wait()
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration. appCtx bounds the
// config watcher goroutines.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider, cfgProvider.Get().App.ServiceName)
}

func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides the debug HTTP server.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfgProvider.Get().Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func AdminMiddlewareProvider(cfgProvider config.Provider, logger domain.Logger) AdminMiddleware {
	return middleware.AdminTokenMiddleware(cfgProvider, logger)
}

func usesRedis(cfg *config.Config) bool {
	return strings.EqualFold(cfg.Cache.Driver, "redis") || strings.EqualFold(cfg.Events.Driver, "redis")
}

// RedisClientProvider connects to Redis when the cache or the event forwarder
// is configured to use it. A nil client means Redis is not in play, either
// because nothing asked for it or because it could not be reached.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	if !usesRedis(appCfg) {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis, continuing without it", "error", err.Error(), "address", appCfg.Redis.Address)
		_ = client.Close()
		return nil, func() {}, nil
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// BlobStoreProvider opens the configured cache backend. Any failure degrades
// to the in-memory store so the data core keeps working without persistence.
func BlobStoreProvider(cfgProvider config.Provider, redisClient *redis.Client, logger domain.Logger) (domain.BlobStore, func(), error) {
	ctx := context.Background()
	cacheCfg := cfgProvider.Get().Cache

	var store domain.BlobStore
	switch strings.ToLower(cacheCfg.Driver) {
	case "memory":
		store = memory.NewBlobStore()
	case "redis":
		if redisClient == nil {
			logger.Warn(ctx, "Redis cache requested but unavailable, using in-memory cache")
			store = memory.NewBlobStore()
			break
		}
		store = appredis.NewBlobStoreAdapter(redisClient, cacheCfg.RedisNamespace, logger)
	default:
		s, err := sqlite.Open(cacheCfg.Path)
		if err != nil {
			logger.Error(ctx, "Failed to open sqlite cache, using in-memory cache", "error", err.Error(), "path", cacheCfg.Path)
			store = memory.NewBlobStore()
			break
		}
		store = s
	}

	logger.Info(ctx, "Blob store ready", "driver", fmt.Sprintf("%T", store))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error(context.Background(), "Failed to close blob store", "error", err.Error())
		}
	}
	return store, cleanup, nil
}

func CredentialStoreProvider(cfgProvider config.Provider, logger domain.Logger) (domain.CredentialStore, error) {
	sc := cfgProvider.Get().Secrets
	if strings.EqualFold(sc.Driver, "file") {
		store, err := secrets.NewFileStore(sc.Path, sc.AESKeyHex, logger)
		if err != nil {
			return nil, fmt.Errorf("open credential store: %w", err)
		}
		return store, nil
	}
	return secrets.NewMemoryStore(), nil
}

func ConnectivityMonitorProvider(cfgProvider config.Provider, logger domain.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(cfgProvider, logger)
}

// EventForwarderProvider picks where bus events are mirrored. NATS failures
// are fatal because the driver was asked for explicitly.
func EventForwarderProvider(ctx context.Context, cfgProvider config.Provider, redisClient *redis.Client, logger domain.Logger) (EventForwarder, func(), error) {
	ec := cfgProvider.Get().Events
	switch strings.ToLower(ec.Driver) {
	case "nats":
		pub, cleanup, err := appnats.NewEventPublisherAdapter(ctx, cfgProvider, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("nats event forwarder: %w", err)
		}
		return pub, cleanup, nil
	case "redis":
		if redisClient == nil {
			logger.Warn(ctx, "Redis event forwarding requested but Redis is unavailable, events stay in process")
			return nil, func() {}, nil
		}
		pub := appredis.NewEventPublisherAdapter(redisClient, ec.Channel, logger)
		return pub, func() { _ = pub.Close() }, nil
	}
	return nil, func() {}, nil
}

func EventBusProvider(logger domain.Logger, forwarder EventForwarder) *application.EventBus {
	var fwd domain.EventPublisher
	if forwarder != nil {
		fwd = forwarder
	}
	return application.NewEventBus(logger, fwd)
}

func SWRCacheProvider(store domain.BlobStore, scope application.ScopeSource, logger domain.Logger) *application.SWRCache {
	return application.NewSWRCache(store, scope, logger)
}

func HTTPClientProvider(
	cfgProvider config.Provider,
	creds domain.CredentialStore,
	conn domain.Connectivity,
	events domain.EventPublisher,
	lang httpclient.LanguageSource,
	logger domain.Logger,
) *httpclient.Client {
	return httpclient.NewClient(cfgProvider, creds, conn, events, lang, logger)
}

func PollerProvider(querier application.PaymentQuerier, cfgProvider config.Provider, logger domain.Logger) *application.Poller {
	return application.NewPoller(querier, cfgProvider, logger)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,
	AdminMiddlewareProvider,

	// Infrastructure adapters
	RedisClientProvider,
	BlobStoreProvider,
	CredentialStoreProvider,
	ConnectivityMonitorProvider,
	wire.Bind(new(domain.Connectivity), new(*connectivity.Monitor)),
	EventForwarderProvider,
	launcher.NewLogOpener,
	wire.Bind(new(domain.URLOpener), new(*launcher.LogOpener)),

	// Data core
	EventBusProvider,
	wire.Bind(new(domain.EventPublisher), new(*application.EventBus)),
	application.NewSessionState,
	wire.Bind(new(application.ScopeSource), new(*application.SessionState)),
	application.NewPreferences,
	wire.Bind(new(httpclient.LanguageSource), new(*application.Preferences)),
	SWRCacheProvider,
	application.NewCoordinator,
	HTTPClientProvider,
	application.NewTTLPolicy,
	application.NewSessionManager,
	application.NewCatalogService,

	// Payments
	application.NewPaymentService,
	wire.Bind(new(application.Gateway), new(*application.PaymentService)),
	wire.Bind(new(application.PaymentQuerier), new(*application.PaymentService)),
	PollerProvider,
	application.NewProcessors,
	application.NewCheckout,

	NewApp,
)
