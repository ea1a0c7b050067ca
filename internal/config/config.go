package config

import (
	"fmt"
	"strings"
	"time"

	"chat-core/internal/utils"

	env "github.com/Netflix/go-env"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port     string `env:"PORT,default=3001"`
	Env      string `env:"ENV,default=development"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	StoreDriver   string        `env:"STORE_DRIVER,default=postgres"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	SQLitePath    string        `env:"SQLITE_PATH,default=chat.db"`
	RedisURL      string        `env:"REDIS_URL"`
	BriefCacheTTL time.Duration `env:"BRIEF_CACHE_TTL,default=5m"`

	JWTSecret   string        `env:"JWT_SECRET,default=secret"`
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT,default=10s"`

	TypingTTL        time.Duration `env:"TYPING_TTL,default=2s"`
	SendBuffer       int           `env:"SEND_BUFFER,default=256"`
	MaxMessageLength int           `env:"MAX_MESSAGE_LENGTH,default=5000"`
	RateLimitBurst   int           `env:"RATE_LIMIT_BURST,default=20"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW,default=2s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads .env (if present) and the process environment.
func Load(files ...string) (*Config, error) {
	if err := utils.LoadEnv(files...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StoreDriver == DriverPostgres && cfg.DatabaseURL == "" {
		// Fallback to individual vars
		cfg.DatabaseURL = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "chatdb") + "?sslmode=disable"
	}
	return &cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config error: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SendBuffer <= 0 || c.MaxMessageLength <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("config error: SEND_BUFFER, MAX_MESSAGE_LENGTH and RATE_LIMIT_BURST must be positive")
	}
	if c.AuthTimeout <= 0 || c.TypingTTL <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("config error: AUTH_TIMEOUT, TYPING_TTL and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}
