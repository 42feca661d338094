package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"seamless"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"seamless"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"seamless"`
	PGMaxConns  int32  `env:"PG_MAX_CONNS" envDefault:"16"`

	// Redis (distributed per-user settlement lock)
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	UserLockTTL   time.Duration `env:"USER_LOCK_TTL" envDefault:"10s"`

	// Webhook authentication
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	// House wallet holder id (the admin account all stakes flow to)
	HouseHolderID int64 `env:"HOUSE_HOLDER_ID" envDefault:"1"`

	// Server
	ServerPort int `env:"SERVER_PORT" envDefault:"4100"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"seamless.wallet.events"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is empty; set a shared provider secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if c.UserLockTTL < time.Second || c.UserLockTTL > time.Minute {
		return fmt.Errorf("USER_LOCK_TTL %s out of range; must be between 1s and 1m", c.UserLockTTL)
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
