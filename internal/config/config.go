package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/motoforge/storefront/pkg/config"
)

// Wishlist backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`

	// Wishlist persistence
	WishlistBackend         string `env:"WISHLIST_BACKEND" envDefault:"file"`
	WishlistFileDir         string `env:"WISHLIST_FILE_DIR" envDefault:"./data/wishlists"`
	WishlistDebounceMs      int    `env:"WISHLIST_DEBOUNCE_MS" envDefault:"250"`
	WishlistMaxWaitMs       int    `env:"WISHLIST_MAX_WAIT_MS" envDefault:"2000"`
	WishlistPersistTimeout  int    `env:"WISHLIST_PERSIST_TIMEOUT_MS" envDefault:"5000"`
	WishlistHistoryLimit    int    `env:"WISHLIST_HISTORY_LIMIT" envDefault:"100"`
	WishlistSessionIdleMins int    `env:"WISHLIST_SESSION_IDLE_MINUTES" envDefault:"30"`
	WishlistTTLHours        int    `env:"WISHLIST_TTL_HOURS" envDefault:"720"`

	// Mock orders
	OrderProcessingDelayMs int `env:"ORDER_PROCESSING_DELAY_MS" envDefault:"3000"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	SlowQueryThresholdMs int `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Rate limiting
	RateLimitRPM   int `env:"RATE_LIMIT_RPM" envDefault:"300"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"30"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(nil)
}

// LoadFrom reads configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return load(environ)
}

func load(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	var err error
	if environ == nil {
		err = pkgconfig.Load(cfg)
	} else {
		err = pkgconfig.LoadFrom(cfg, environ)
	}
	if err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.WishlistBackend {
	case BackendMemory, BackendRedis, BackendPostgres:
	case BackendFile:
		if c.WishlistFileDir == "" {
			return fmt.Errorf("WISHLIST_FILE_DIR is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown WISHLIST_BACKEND %q: must be one of memory, file, redis, postgres", c.WishlistBackend)
	}
	if c.WishlistDebounceMs < 0 {
		return fmt.Errorf("WISHLIST_DEBOUNCE_MS must not be negative")
	}
	if c.WishlistMaxWaitMs < 0 {
		return fmt.Errorf("WISHLIST_MAX_WAIT_MS must not be negative")
	}
	if c.WishlistMaxWaitMs > 0 && c.WishlistMaxWaitMs < c.WishlistDebounceMs {
		return fmt.Errorf("WISHLIST_MAX_WAIT_MS must be at least WISHLIST_DEBOUNCE_MS")
	}
	if c.WishlistPersistTimeout <= 0 {
		return fmt.Errorf("WISHLIST_PERSIST_TIMEOUT_MS must be positive")
	}
	if c.WishlistSessionIdleMins <= 0 {
		return fmt.Errorf("WISHLIST_SESSION_IDLE_MINUTES must be positive")
	}
	if c.OrderProcessingDelayMs < 0 {
		return fmt.Errorf("ORDER_PROCESSING_DELAY_MS must not be negative")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// DebounceInterval returns the persister debounce as a duration.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.WishlistDebounceMs) * time.Millisecond
}

// MaxWait returns the persister max wait as a duration.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.WishlistMaxWaitMs) * time.Millisecond
}

// PersistTimeout returns the per-write timeout as a duration.
func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(c.WishlistPersistTimeout) * time.Millisecond
}

// SessionIdle returns how long a session may stay unused before eviction.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.WishlistSessionIdleMins) * time.Minute
}

// WishlistTTL returns the Redis snapshot TTL.
func (c *Config) WishlistTTL() time.Duration {
	return time.Duration(c.WishlistTTLHours) * time.Hour
}

// OrderProcessingDelay returns the simulated payment delay.
func (c *Config) OrderProcessingDelay() time.Duration {
	return time.Duration(c.OrderProcessingDelayMs) * time.Millisecond
}
