package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/connectivity"
	"gitlab.com/simigo/client/datacore/internal/adapters/launcher"
	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
	"gitlab.com/simigo/client/datacore/internal/adapters/memory"
	"gitlab.com/simigo/client/datacore/internal/adapters/secrets"
	"gitlab.com/simigo/client/datacore/internal/adapters/sqlite"
	"gitlab.com/simigo/client/datacore/internal/application"
)

func TestRedisClientProviderSkipsWhenUnused(t *testing.T) {
	cfg := config.NewStaticProvider(config.Config{Cache: config.CacheConfig{Driver: "memory"}})
	client, cleanup, err := RedisClientProvider(cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, client)
}

func TestBlobStoreProviderDrivers(t *testing.T) {
	tests := []struct {
		name   string
		cache  config.CacheConfig
		assert func(t *testing.T, store any)
	}{
		{
			name:  "memory",
			cache: config.CacheConfig{Driver: "memory"},
			assert: func(t *testing.T, store any) {
				assert.IsType(t, &memory.BlobStore{}, store)
			},
		},
		{
			name:  "redis without a client degrades to memory",
			cache: config.CacheConfig{Driver: "redis"},
			assert: func(t *testing.T, store any) {
				assert.IsType(t, &memory.BlobStore{}, store)
			},
		},
		{
			name:  "sqlite",
			cache: config.CacheConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "cache.sqlite")},
			assert: func(t *testing.T, store any) {
				assert.IsType(t, &sqlite.BlobStore{}, store)
			},
		},
		{
			name:  "sqlite failure degrades to memory",
			cache: config.CacheConfig{Driver: "sqlite", Path: "   "},
			assert: func(t *testing.T, store any) {
				assert.IsType(t, &memory.BlobStore{}, store)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewStaticProvider(config.Config{Cache: tc.cache})
			store, cleanup, err := BlobStoreProvider(cfg, nil, logger.NewNop())
			require.NoError(t, err)
			defer cleanup()
			require.NoError(t, store.Ping(context.Background()))
			tc.assert(t, store)
		})
	}
}

func TestEventForwarderProvider(t *testing.T) {
	for _, driver := range []string{"local", "redis"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.NewStaticProvider(config.Config{Events: config.EventsConfig{Driver: driver}})
			fwd, cleanup, err := EventForwarderProvider(context.Background(), cfg, nil, logger.NewNop())
			require.NoError(t, err)
			defer cleanup()
			assert.Nil(t, fwd)

			bus := EventBusProvider(logger.NewNop(), fwd)
			assert.NotNil(t, bus)
		})
	}
}

func TestCredentialStoreProvider(t *testing.T) {
	store, err := CredentialStoreProvider(config.NewStaticProvider(config.Config{}), logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &secrets.MemoryStore{}, store)

	_, err = CredentialStoreProvider(config.NewStaticProvider(config.Config{
		Secrets: config.SecretsConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "creds"), AESKeyHex: "not-hex"},
	}), logger.NewNop())
	assert.Error(t, err)
}

// newTestApp wires the app by hand against an in-memory store.
func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	provider := config.NewStaticProvider(cfg)
	log := logger.NewNop()

	store := memory.NewBlobStore()
	state := application.NewSessionState(provider)
	cache := SWRCacheProvider(store, state, log)
	monitor := connectivity.NewMonitor(provider, log)
	coord := application.NewCoordinator(monitor, log)
	creds := secrets.NewMemoryStore()
	bus := EventBusProvider(log, nil)
	prefs := application.NewPreferences(provider)
	client := HTTPClientProvider(provider, creds, monitor, bus, prefs, log)
	ttl := application.NewTTLPolicy(provider, log)
	session := application.NewSessionManager(state, cache, client, creds, bus, log)
	catalog := application.NewCatalogService(client, cache, coord, ttl, state, prefs, log)
	payments := application.NewPaymentService(client, provider, log)
	poller := PollerProvider(payments, provider, log)
	opener := launcher.NewLogOpener(log)
	processors := application.NewProcessors(payments, poller, opener, prefs, provider, log)
	checkout := application.NewCheckout(processors, cache, bus, log)

	mux := HTTPServeMuxProvider()
	app, cleanup, err := NewApp(provider, log, mux, HTTPGracefulServerProvider(provider, mux),
		AdminMiddlewareProvider(provider, log), cache, monitor, coord, client, ttl, session,
		catalog, payments, checkout, opener)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return app
}

func TestAppRoutes(t *testing.T) {
	app := newTestApp(t, config.Config{Server: config.ServerConfig{AdminToken: "s3cret"}})
	app.RegisterRoutes()

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		code   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"clear without key", http.MethodPost, "/cache/clear", "", http.StatusUnauthorized},
		{"clear with wrong key", http.MethodPost, "/cache/clear", "nope", http.StatusUnauthorized},
		{"clear with key", http.MethodPost, "/cache/clear", "s3cret", http.StatusNoContent},
		{"clear is POST only", http.MethodGet, "/cache/clear", "s3cret", http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.key != "" {
				req.Header.Set("X-API-Key", tc.key)
			}
			rec := httptest.NewRecorder()
			app.httpServeMux.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			if tc.code != http.StatusMethodNotAllowed {
				assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			}
		})
	}
}

func TestAppAccessors(t *testing.T) {
	app := newTestApp(t, config.Config{})
	assert.NotNil(t, app.Catalog())
	assert.NotNil(t, app.Session())
	assert.NotNil(t, app.Checkout())
	assert.NotNil(t, app.Payments())
}
