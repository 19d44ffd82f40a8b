package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment        string   `env:"ENVIRONMENT"          envDefault:"development"`
	ServerPort         int      `env:"SERVER_PORT"          envDefault:"8080"`
	LogLevel           string   `env:"LOG_LEVEL"            envDefault:"info"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173,http://localhost:3000"`

	Database DatabaseConfig `envPrefix:"DATABASE_"`
	RedisURL string         `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"okrboard"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"  envDefault:"15m"`

	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"600"`
	QueryCacheTTL      time.Duration `env:"QUERY_CACHE_TTL"       envDefault:"30s"`
	QueryMaxAttempts   int           `env:"QUERY_MAX_ATTEMPTS"    envDefault:"3"`
	ProfileCacheTTL    time.Duration `env:"PROFILE_CACHE_TTL"     envDefault:"1m"`
	SelectionTTL       time.Duration `env:"SELECTION_TTL"         envDefault:"24h"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// DatabaseConfig holds Postgres settings. URL wins over the individual fields when set.
type DatabaseConfig struct {
	URL             string        `env:"URL"`
	Host            string        `env:"HOST"              envDefault:"localhost"`
	Port            int           `env:"PORT"              envDefault:"5432"`
	User            string        `env:"USER"              envDefault:"okrboard"`
	Password        string        `env:"PASSWORD"          envDefault:"dev"`
	Name            string        `env:"NAME"              envDefault:"okrboard"`
	SSLMode         string        `env:"SSL_MODE"          envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START"  envDefault:"true"`
}

// devSecret is only accepted when ENVIRONMENT=development.
const devSecret = "dev-secret-change-me"

// Load reads configuration from the environment, after loading a .env file if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	return Parse(env.Options{})
}

// Parse reads configuration using opts; tests pass Environment to avoid touching the process env.
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) sanitize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
	if c.JWTSecret == "" && c.IsDevelopment() {
		c.JWTSecret = devSecret
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required outside development")
	}
	if !c.IsDevelopment() && c.JWTSecret == devSecret {
		return errors.New("JWT_SECRET must be changed outside development")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL: %s", c.TokenTTL)
	}
	if c.QueryMaxAttempts < 1 {
		return fmt.Errorf("invalid QUERY_MAX_ATTEMPTS: %d", c.QueryMaxAttempts)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %d", c.RateLimitPerMinute)
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}
