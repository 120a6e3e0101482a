package storage

import (
	"context"
	"crypto/tls"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// RedisConfig holds connection parameters for the shared Redis client.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// NewRedis connects and pings. The client backs the progress store, the
// price cache and the pair lock.
func NewRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}

	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to reach redis at %s", cfg.Addr)
	}

	return rdb, nil
}
