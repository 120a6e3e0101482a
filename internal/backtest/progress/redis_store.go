package progress

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

const redisKeyPrefix = "autotrader:progress:"

// RedisStore keeps each record as one JSON string value. A single SET
// replaces the value atomically.
type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(symbol string, strategy string) string {
	return redisKeyPrefix + key(symbol, strategy)
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, symbol string, strategy string) (optional.Option[Record], error) {
	data, err := r.rdb.Get(ctx, redisKey(symbol, strategy)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return optional.None[Record](), nil
		}

		return optional.None[Record](), errors.Wrapf(errors.ErrCodeProgressLoadFailed, err, "failed to read progress for %s/%s", symbol, strategy)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return optional.None[Record](), errors.Wrapf(errors.ErrCodeProgressCorrupted, err, "corrupted progress for %s/%s", symbol, strategy)
	}

	return optional.Some(record), nil
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to encode progress", err)
	}

	if err := r.rdb.Set(ctx, redisKey(record.Symbol, record.Strategy), data, 0).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeProgressWriteFailed, err, "failed to write progress for %s/%s", record.Symbol, record.Strategy)
	}

	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, symbol string, strategy string) error {
	if err := r.rdb.Del(ctx, redisKey(symbol, strategy)).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeProgressWriteFailed, err, "failed to delete progress for %s/%s", symbol, strategy)
	}

	return nil
}
