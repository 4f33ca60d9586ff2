package config

import (
	"fmt"
	"time"

	"github.com/devops-golf-s17/wishlists/pkg/database"
	pkgconfig "github.com/devops-golf-s17/wishlists/pkg/config"
)

// Storage backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the wishlist service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"WISHLIST_HTTP_PORT" envDefault:"5000"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"redis"`

	// Redis
	RedisAddr          string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass          string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	RedisDialTimeoutMs int    `env:"REDIS_DIAL_TIMEOUT_MS" envDefault:"2000"`
	RedisIOTimeoutMs   int    `env:"REDIS_IO_TIMEOUT_MS" envDefault:"1000"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBName           string `env:"WISHLIST_DB_NAME" envDefault:"wishlists"`
	DBMaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns       int32  `env:"DB_MIN_CONNS" envDefault:"1"`
	SlowQueryMs      int    `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Storage circuit breaker
	BreakerTimeoutSeconds int     `env:"STORAGE_BREAKER_TIMEOUT_SECONDS" envDefault:"10"`
	BreakerMinRequests    uint32  `env:"STORAGE_BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerFailureRatio   float64 `env:"STORAGE_BREAKER_FAILURE_RATIO" envDefault:"0.5"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load wishlist config: %w", err)
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
	if c.StorageBackend != BackendRedis && c.StorageBackend != BackendPostgres {
		return fmt.Errorf("invalid STORAGE_BACKEND %q: must be %q or %q", c.StorageBackend, BackendRedis, BackendPostgres)
	}
	if c.RedisDialTimeoutMs <= 0 || c.RedisIOTimeoutMs <= 0 {
		return fmt.Errorf("redis timeouts must be positive")
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool size: min %d, max %d", c.DBMinConns, c.DBMaxConns)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v (must be between 0 and 1)", c.OTELSampleRate)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if c.BreakerTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid STORAGE_BREAKER_TIMEOUT_SECONDS: %d", c.BreakerTimeoutSeconds)
	}
	if c.BreakerMinRequests == 0 {
		return fmt.Errorf("STORAGE_BREAKER_MIN_REQUESTS must be at least 1")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("invalid STORAGE_BREAKER_FAILURE_RATIO: %v", c.BreakerFailureRatio)
	}
	return nil
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Addr = c.RedisAddr
	rc.Password = c.RedisPass
	rc.DB = c.RedisDB
	rc.DialTimeout = time.Duration(c.RedisDialTimeoutMs) * time.Millisecond
	rc.ReadTimeout = time.Duration(c.RedisIOTimeoutMs) * time.Millisecond
	rc.WriteTimeout = rc.ReadTimeout
	return rc
}

// Postgres returns the PostgreSQL connection settings.
func (c *Config) Postgres() database.PostgresConfig {
	pc := database.DefaultPostgresConfig()
	pc.Host = c.PostgresHost
	pc.Port = c.PostgresPort
	pc.User = c.PostgresUser
	pc.Password = c.PostgresPassword
	pc.DBName = c.DBName
	pc.SSLMode = c.PostgresSSLMode
	pc.MaxConns = c.DBMaxConns
	pc.MinConns = c.DBMinConns
	return pc
}

// Breaker returns the storage circuit breaker settings.
func (c *Config) Breaker() database.BreakerConfig {
	bc := database.DefaultBreakerConfig("wishlist-" + c.StorageBackend)
	bc.Timeout = time.Duration(c.BreakerTimeoutSeconds) * time.Second
	bc.MinRequests = c.BreakerMinRequests
	bc.FailureRatio = c.BreakerFailureRatio
	return bc
}

// SlowQueryThreshold returns the duration above which statements are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMs) * time.Millisecond
}
