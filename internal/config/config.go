package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL   string `env:"DATABASE_URL,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET,required"`
	Port          int    `env:"PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv        string `env:"APP_ENV" envDefault:"production"`

	// Webhook pipeline guards. Tolerance bounds the replay window; the
	// handler timeout keeps the gateway's own retry policy as the recovery
	// path when the store is slow.
	WebhookMaxBodyBytes     int64 `env:"WEBHOOK_MAX_BODY_BYTES" envDefault:"32768"`
	WebhookToleranceS       int   `env:"WEBHOOK_TOLERANCE_S" envDefault:"300"`
	WebhookHandlerTimeoutMS int   `env:"WEBHOOK_HANDLER_TIMEOUT_MS" envDefault:"2000"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) WebhookTolerance() time.Duration {
	return time.Duration(c.WebhookToleranceS) * time.Second
}

func (c *Config) WebhookHandlerTimeout() time.Duration {
	return time.Duration(c.WebhookHandlerTimeoutMS) * time.Millisecond
}
