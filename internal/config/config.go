// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"example.com/timed_chess_server/internal/store"
)

type Config struct {
	Port            int      `env:"PORT" envDefault:"8080"`
	OriginAllowlist []string `env:"ORIGIN_ALLOWLIST" envSeparator:","`

	StoreDriver         string `env:"STORE_DRIVER" envDefault:"sqlite"`
	StoreDSN            string `env:"STORE_DSN" envDefault:"chess.db"`
	RedisAddr           string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword       string `env:"REDIS_PASSWORD"`
	RedisDB             int    `env:"REDIS_DB" envDefault:"0"`
	StoreConnectRetries uint64 `env:"STORE_CONNECT_RETRIES" envDefault:"5"`

	CommitTimeout      time.Duration `env:"COMMIT_TIMEOUT" envDefault:"2s"`
	CommitRetryDelay   time.Duration `env:"COMMIT_RETRY_DELAY" envDefault:"1s"`
	DefaultTimeControl time.Duration `env:"DEFAULT_TIME_CONTROL" envDefault:"10m"`
	SubscriberBuffer   int           `env:"SUBSCRIBER_BUFFER" envDefault:"64"`
}

// Load parses the environment and fills derived defaults. The result is
// not validated, so flags can still override it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Origins returns the websocket/CORS allowlist, defaulting to the local
// dev origins for the configured port.
func (c Config) Origins() []string {
	if len(c.OriginAllowlist) > 0 {
		return c.OriginAllowlist
	}
	return []string{
		fmt.Sprintf("http://localhost:%d", c.Port),
		fmt.Sprintf("http://127.0.0.1:%d", c.Port),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch c.StoreDriver {
	case "memory", "sqlite", "postgres":
		if c.StoreDriver != "memory" && c.StoreDSN == "" {
			errs = append(errs, fmt.Errorf("STORE_DSN is required for %s", c.StoreDriver))
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis"))
		}
	case "":
		errs = append(errs, errors.New("STORE_DRIVER is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	for name, d := range map[string]time.Duration{
		"COMMIT_TIMEOUT":       c.CommitTimeout,
		"COMMIT_RETRY_DELAY":   c.CommitRetryDelay,
		"DEFAULT_TIME_CONTROL": c.DefaultTimeControl,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.SubscriberBuffer <= 0 {
		errs = append(errs, fmt.Errorf("SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuffer))
	}
	return errors.Join(errs...)
}

// StoreOptions maps the store settings onto store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:         c.StoreDriver,
		DSN:            c.StoreDSN,
		RedisAddr:      c.RedisAddr,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
		ConnectRetries: c.StoreConnectRetries,
	}
}
