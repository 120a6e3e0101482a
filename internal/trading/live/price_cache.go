package live

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// PriceCache holds the last traded price of each tracked symbol. Prices
// only change through Set, so a failed refresh leaves the previous price.
type PriceCache interface {
	Set(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error
	// Prices returns the cached prices of symbols. Unknown symbols are
	// omitted.
	Prices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

type quote struct {
	price decimal.Decimal
	at    time.Time
}

// MemoryCache is the in-process PriceCache.
type MemoryCache struct {
	quotes map[string]quote
	mu     sync.RWMutex
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		quotes: make(map[string]quote),
		mu:     sync.RWMutex{},
	}
}

// Set implements PriceCache.
func (m *MemoryCache) Set(_ context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quotes[symbol] = quote{price: price, at: at}

	return nil
}

// Prices implements PriceCache.
func (m *MemoryCache) Prices(_ context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(symbols))

	for _, symbol := range symbols {
		if q, ok := m.quotes[symbol]; ok {
			out[symbol] = q.price
		}
	}

	return out, nil
}

const ltpKeyPrefix = "autotrader:ltp:"

// RedisCache stores each price as a hash with fields "price" and "ts"
// (Unix nanoseconds), so other processes can read the live prices.
type RedisCache struct {
	rdb redis.UniversalClient
}

func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Set implements PriceCache.
func (r *RedisCache) Set(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	fields := map[string]any{
		"price": price.String(),
		"ts":    strconv.FormatInt(at.UnixNano(), 10),
	}

	if err := r.rdb.HSet(ctx, ltpKeyPrefix+symbol, fields).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to cache price of %s", symbol)
	}

	return nil
}

// Prices implements PriceCache with one pipelined round trip.
func (r *RedisCache) Prices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(symbols))

	for _, symbol := range symbols {
		cmds[symbol] = pipe.HGetAll(ctx, ltpKeyPrefix+symbol)
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to read cached prices", err)
	}

	for symbol, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}

		price, err := decimal.NewFromString(vals["price"])
		if err != nil {
			continue
		}

		out[symbol] = price
	}

	return out, nil
}
