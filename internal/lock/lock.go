package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Locker grants exclusive ownership of a key for at most ttl. The returned
// release func may be called more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// PairKey is the lock key of one (symbol, strategy) backtest pair.
func PairKey(symbol string, strategy string) string {
	return "pair:" + symbol + ":" + strategy
}

type holder struct {
	token   string
	expires time.Time
}

// Local is a Locker for a single process. Expired holders are replaced.
type Local struct {
	held map[string]holder
	now  func() time.Time
	mu   sync.Mutex
}

func NewLocal() *Local {
	return &Local{
		held: make(map[string]holder),
		now:  time.Now,
		mu:   sync.Mutex{},
	}
}

// Acquire implements Locker.
func (l *Local) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodePairLocked, err, "lock %s not acquired", key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return nil, errors.Newf(errors.ErrCodePairLocked, "lock %s is held", key)
	}

	token := uuid.New().String()
	l.held[key] = holder{token: token, expires: now.Add(ttl)}

	var once sync.Once

	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			if h, ok := l.held[key]; ok && h.token == token {
				delete(l.held, key)
			}
		})
	}, nil
}
