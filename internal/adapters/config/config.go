package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "DATACORE"

// ServerConfig holds the debug HTTP listener settings.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort   int    `mapstructure:"http_port"`
	AdminToken string `mapstructure:"admin_token"` // guards mutating debug routes when set
}

// APIConfig describes the backend the resilient client talks to.
type APIConfig struct {
	BaseURL               string `mapstructure:"base_url"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	RetryDelayMs          int    `mapstructure:"retry_delay_ms"`
	RefreshPath           string `mapstructure:"refresh_path"`
	DefaultLanguage       string `mapstructure:"default_language"`
}

// CacheTTLConfig holds the per-resource freshness windows in seconds.
type CacheTTLConfig struct {
	Catalog           int `mapstructure:"catalog"`
	Orders            int `mapstructure:"orders"`
	OrderDetail       int `mapstructure:"order_detail"`
	OrderUsage        int `mapstructure:"order_usage"` // 0 means 15s in mock, 60s otherwise
	AgentAccount      int `mapstructure:"agent_account"`
	AgentBills        int `mapstructure:"agent_bills"`
	BundleNetworks    int `mapstructure:"bundle_networks"`
	Settings          int `mapstructure:"settings"`
	SearchSuggestions int `mapstructure:"search_suggestions"`
}

// CacheConfig selects the blob store driver.
type CacheConfig struct {
	Driver         string         `mapstructure:"driver"` // sqlite, redis or memory
	Path           string         `mapstructure:"path"`
	RedisNamespace string         `mapstructure:"redis_namespace"`
	RemoteTTL      bool           `mapstructure:"remote_ttl"` // pull overrides from GET /config on start
	TTL            CacheTTLConfig `mapstructure:"ttl"`
}

// NATSConfig holds NATS-related configurations.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// EventsConfig chooses where broadcast events are forwarded besides in-process listeners.
type EventsConfig struct {
	Driver  string `mapstructure:"driver"` // local, nats or redis
	Channel string `mapstructure:"channel"`
}

// ConnectivityConfig tunes the reachability probes.
type ConnectivityConfig struct {
	ProbeURL             string `mapstructure:"probe_url"`
	ProbeTimeoutMs       int    `mapstructure:"probe_timeout_ms"`
	ProbeThrottleMs      int    `mapstructure:"probe_throttle_ms"`
	CheckIntervalSeconds int    `mapstructure:"check_interval_seconds"`
}

// PaymentConfig tunes the confirmation poller.
type PaymentConfig struct {
	PollIntervalSeconds int      `mapstructure:"poll_interval_seconds"`
	PollTimeoutSeconds  int      `mapstructure:"poll_timeout_seconds"`
	AllowedCurrencies   []string `mapstructure:"allowed_currencies"`
}

// SecretsConfig selects the credential store.
type SecretsConfig struct {
	Driver    string `mapstructure:"driver"` // file or memory
	Path      string `mapstructure:"path"`
	AESKeyHex string `mapstructure:"aes_key_hex"` // Should primarily come from ENV
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	Environment            string `mapstructure:"environment"` // mock or prod
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// Config holds all configuration for the application.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	API          APIConfig          `mapstructure:"api"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Redis        RedisConfig        `mapstructure:"redis"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Events       EventsConfig       `mapstructure:"events"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Log          LogConfig          `mapstructure:"log"`
}

// IsMock reports whether the mock backend environment is selected.
func (c *Config) IsMock() bool {
	return strings.EqualFold(c.App.Environment, "mock")
}

// RetryDelay is the pause before the single GET retry.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.API.RetryDelayMs) * time.Millisecond
}

// RequestTimeout bounds a single HTTP attempt.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// setDefaults mirrors the values the client shipped with.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.service_name", "datacore")
	v.SetDefault("app.environment", "prod")
	v.SetDefault("app.shutdown_timeout_seconds", 10)
	v.SetDefault("server.http_port", 9090)

	v.SetDefault("api.base_url", "http://127.0.0.1:3001")
	v.SetDefault("api.request_timeout_seconds", 30)
	v.SetDefault("api.retry_delay_ms", 400)
	v.SetDefault("api.refresh_path", "/auth/refresh")
	v.SetDefault("api.default_language", "en")

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "datacore-cache.sqlite")
	v.SetDefault("cache.redis_namespace", "datacore:blob")
	v.SetDefault("cache.ttl.catalog", 3600)
	v.SetDefault("cache.ttl.orders", 900)
	v.SetDefault("cache.ttl.order_detail", 900)
	v.SetDefault("cache.ttl.agent_account", 600)
	v.SetDefault("cache.ttl.agent_bills", 600)
	v.SetDefault("cache.ttl.bundle_networks", 86400)
	v.SetDefault("cache.ttl.settings", 86400)
	v.SetDefault("cache.ttl.search_suggestions", 300)

	v.SetDefault("events.driver", "local")
	v.SetDefault("events.channel", "datacore.events")
	v.SetDefault("nats.subject_prefix", "datacore.events")

	v.SetDefault("connectivity.probe_url", "https://www.gstatic.com/generate_204")
	v.SetDefault("connectivity.probe_timeout_ms", 3000)
	v.SetDefault("connectivity.probe_throttle_ms", 1000)
	v.SetDefault("connectivity.check_interval_seconds", 30)

	v.SetDefault("payment.poll_interval_seconds", 2)
	v.SetDefault("payment.poll_timeout_seconds", 180)
	v.SetDefault("payment.allowed_currencies", []string{
		"USD", "EUR", "GBP", "CHF", "CNY", "HKD", "JPY", "SGD",
		"KRW", "THB", "IDR", "MYR", "VND", "BRL", "MXN", "TWD",
		"AED", "SAR", "AUD", "CAD",
	})

	v.SetDefault("secrets.driver", "memory")
	v.SetDefault("log.level", "info")
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config atomic.Pointer[Config]
	logger *zap.Logger // zap directly, domain.Logger depends on config
}

// NewViperProvider loads configuration from file, environment and defaults
// and keeps it current on SIGHUP and on config file changes.
// appCtx bounds the lifetime of the reload goroutine.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "datacore"))
	v.SetConfigType("yaml")
	v.AddConfigPath(os.Getenv("VIPER_CONFIG_PATH"))
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // api.base_url -> DATACORE_API_BASE_URL

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	p := &viperProvider{logger: logger}
	p.config.Store(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		defer signal.Stop(sigChan)
		for {
			select {
			case <-sigChan:
				p.logger.Info("SIGHUP received, reloading configuration")
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				p.reload(v, "sighup")
			case <-appCtx.Done():
				return
			}
		}
	}()

	v.OnConfigChange(func(e fsnotify.Event) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in OnConfigChange callback",
					zap.String("event_name", e.Name),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
		p.reload(v, "file_change")
	})
	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
	}

	p.logger.Info("Configuration loaded", zap.String("config_file_used", v.ConfigFileUsed()))
	return p, nil
}

func (p *viperProvider) reload(v *viper.Viper, source string) {
	newCfg := &Config{}
	if err := v.Unmarshal(newCfg); err != nil {
		p.logger.Error("Failed to unmarshal reloaded config", zap.String("source", source), zap.Error(err))
		return
	}
	p.config.Store(newCfg)
	p.logger.Info("Configuration reloaded", zap.String("source", source))
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}

// staticProvider serves a fixed Config. Used by tests and embedding callers.
type staticProvider struct {
	config *Config
}

// NewStaticProvider wraps cfg, filling unset fields with the same defaults
// the viper provider uses.
func NewStaticProvider(cfg Config) Provider {
	v := viper.New()
	setDefaults(v)
	base := &Config{}
	_ = v.Unmarshal(base)
	mergeDefaults(&cfg, base)
	return &staticProvider{config: &cfg}
}

func (p *staticProvider) Get() *Config {
	return p.config
}

// mergeDefaults copies zero-valued scalar settings from def into cfg.
func mergeDefaults(cfg, def *Config) {
	setIfZero(&cfg.App.ServiceName, def.App.ServiceName)
	setIfZero(&cfg.App.Environment, def.App.Environment)
	setIfZero(&cfg.App.ShutdownTimeoutSeconds, def.App.ShutdownTimeoutSeconds)
	setIfZero(&cfg.Server.HTTPPort, def.Server.HTTPPort)
	setIfZero(&cfg.API.BaseURL, def.API.BaseURL)
	setIfZero(&cfg.API.RequestTimeoutSeconds, def.API.RequestTimeoutSeconds)
	setIfZero(&cfg.API.RetryDelayMs, def.API.RetryDelayMs)
	setIfZero(&cfg.API.RefreshPath, def.API.RefreshPath)
	setIfZero(&cfg.API.DefaultLanguage, def.API.DefaultLanguage)
	setIfZero(&cfg.Cache.Driver, def.Cache.Driver)
	setIfZero(&cfg.Cache.Path, def.Cache.Path)
	setIfZero(&cfg.Cache.RedisNamespace, def.Cache.RedisNamespace)
	setIfZero(&cfg.Cache.TTL.Catalog, def.Cache.TTL.Catalog)
	setIfZero(&cfg.Cache.TTL.Orders, def.Cache.TTL.Orders)
	setIfZero(&cfg.Cache.TTL.OrderDetail, def.Cache.TTL.OrderDetail)
	setIfZero(&cfg.Cache.TTL.AgentAccount, def.Cache.TTL.AgentAccount)
	setIfZero(&cfg.Cache.TTL.AgentBills, def.Cache.TTL.AgentBills)
	setIfZero(&cfg.Cache.TTL.BundleNetworks, def.Cache.TTL.BundleNetworks)
	setIfZero(&cfg.Cache.TTL.Settings, def.Cache.TTL.Settings)
	setIfZero(&cfg.Cache.TTL.SearchSuggestions, def.Cache.TTL.SearchSuggestions)
	setIfZero(&cfg.Events.Driver, def.Events.Driver)
	setIfZero(&cfg.Events.Channel, def.Events.Channel)
	setIfZero(&cfg.NATS.SubjectPrefix, def.NATS.SubjectPrefix)
	setIfZero(&cfg.Connectivity.ProbeURL, def.Connectivity.ProbeURL)
	setIfZero(&cfg.Connectivity.ProbeTimeoutMs, def.Connectivity.ProbeTimeoutMs)
	setIfZero(&cfg.Connectivity.ProbeThrottleMs, def.Connectivity.ProbeThrottleMs)
	setIfZero(&cfg.Connectivity.CheckIntervalSeconds, def.Connectivity.CheckIntervalSeconds)
	setIfZero(&cfg.Payment.PollIntervalSeconds, def.Payment.PollIntervalSeconds)
	setIfZero(&cfg.Payment.PollTimeoutSeconds, def.Payment.PollTimeoutSeconds)
	if len(cfg.Payment.AllowedCurrencies) == 0 {
		cfg.Payment.AllowedCurrencies = def.Payment.AllowedCurrencies
	}
	setIfZero(&cfg.Secrets.Driver, def.Secrets.Driver)
	setIfZero(&cfg.Log.Level, def.Log.Level)
}

func setIfZero[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
