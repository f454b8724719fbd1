package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Gateway  GatewayConfig
	Checkout CheckoutConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Callback CallbackConfig
	Tracing  TracingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Tracing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FOODRESCUE_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"FOODRESCUE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FOODRESCUE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type GatewayConfig struct {
	BaseURL   string        `envconfig:"FOODRESCUE_API_BASE_URL" required:"true"`
	Token     string        `envconfig:"FOODRESCUE_API_TOKEN"`
	Timeout   time.Duration `envconfig:"FOODRESCUE_API_TIMEOUT" default:"15s"`
	UserAgent string        `envconfig:"FOODRESCUE_API_USER_AGENT" default:"foodrescue-client"`
}

func (g GatewayConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(g.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvAPIBaseURL)
	}
	return nil
}

type CheckoutConfig struct {
	PickupOffset    time.Duration `envconfig:"FOODRESCUE_CHECKOUT_PICKUP_OFFSET" default:"1h"`
	AutoPay         bool          `envconfig:"FOODRESCUE_CHECKOUT_AUTO_PAY" default:"true"`
	DefaultProvider string        `envconfig:"FOODRESCUE_CHECKOUT_PROVIDER"`
}

type StorageConfig struct {
	Driver      string `envconfig:"FOODRESCUE_STORAGE_DRIVER" default:"sqlite"`
	DSN         string `envconfig:"FOODRESCUE_STORAGE_DSN" default:"file:foodrescue.db"`
	Namespace   string `envconfig:"FOODRESCUE_STORAGE_NAMESPACE" default:"foodrescue"`
	AutoMigrate bool   `envconfig:"FOODRESCUE_STORAGE_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"FOODRESCUE_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"FOODRESCUE_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"FOODRESCUE_DB_CONN_MAX_LIFETIME" default:"1h"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverMemory, StorageDriverRedis:
		return nil
	case StorageDriverSQLite, StorageDriverPostgres:
		if strings.TrimSpace(s.DSN) == "" {
			return fmt.Errorf("%s is required for driver %q", EnvStorageDSN, s.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, s.Driver)
	}
}

// NormalizedDriver returns the lowercased storage driver name.
func (s StorageConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

type RedisConfig struct {
	URL          string        `envconfig:"FOODRESCUE_REDIS_URL"`
	Address      string        `envconfig:"FOODRESCUE_REDIS_ADDR"`
	Password     string        `envconfig:"FOODRESCUE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOODRESCUE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOODRESCUE_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"FOODRESCUE_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"FOODRESCUE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOODRESCUE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOODRESCUE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CallbackConfig struct {
	Port     string        `envconfig:"FOODRESCUE_CALLBACK_PORT" default:"8085"`
	DedupTTL time.Duration `envconfig:"FOODRESCUE_CALLBACK_DEDUP_TTL" default:"24h"`
}

type TracingConfig struct {
	Exporter string `envconfig:"FOODRESCUE_TRACE_EXPORTER" default:"none"`
}

func (t TracingConfig) validate() error {
	switch t.NormalizedExporter() {
	case TraceExporterNone, TraceExporterStdout:
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvTraceExporter, t.Exporter)
	}
}

// NormalizedExporter returns the lowercased exporter name.
func (t TracingConfig) NormalizedExporter() string {
	return strings.ToLower(strings.TrimSpace(t.Exporter))
}
