package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
)

const (
	connectInitialBackoff = 200 * time.Millisecond
	connectMaxBackoff     = 5 * time.Second
)

// Options selects and configures a Store implementation.
type Options struct {
	Driver         string // memory | sqlite | postgres | redis
	DSN            string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ConnectRetries uint64
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the configured store and waits for it to answer a ping,
// retrying with exponential backoff.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "postgres":
		s, err = OpenSQL(ctx, opts.Driver, opts.DSN)
	case "redis":
		s = NewRedis(redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}))
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	p, ok := s.(pinger)
	if !ok {
		return s, nil
	}
	strategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(connectInitialBackoff),
				backoff.WithMaxInterval(connectMaxBackoff),
			),
			opts.ConnectRetries,
		),
		ctx,
	)
	err = backoff.RetryNotify(func() error { return p.Ping(ctx) }, strategy, func(err error, d time.Duration) {
		log.Printf("store %s not reachable: %v (next attempt in %s)", opts.Driver, err, d)
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect %s store: %w", opts.Driver, err)
	}
	return s, nil
}
