package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

const redisLockPrefix = "autotrader:lock:"

// releaseLua deletes the key only while it still holds the caller's token.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Redis is a Locker shared by every process using the same Redis.
type Redis struct {
	rdb     redis.UniversalClient
	release *redis.Script
}

func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{
		rdb:     rdb,
		release: redis.NewScript(releaseLua),
	}
}

// Acquire implements Locker with SET NX PX.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := redisLockPrefix + key

	ok, err := r.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodePairLocked, err, "failed to acquire lock %s", key)
	}

	if !ok {
		return nil, errors.Newf(errors.ErrCodePairLocked, "lock %s is held", key)
	}

	released := false

	return func() {
		if released {
			return
		}

		released = true

		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = r.release.Run(releaseCtx, r.rdb, []string{lk}, token).Err()
	}, nil
}
