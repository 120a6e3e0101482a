package live

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PriceCacheTestSuite struct {
	suite.Suite
	server *miniredis.Miniredis
	rdb    *redis.Client
}

func TestPriceCacheSuite(t *testing.T) {
	suite.Run(t, new(PriceCacheTestSuite))
}

func (s *PriceCacheTestSuite) SetupTest() {
	s.server = miniredis.RunT(s.T())
	s.rdb = redis.NewClient(&redis.Options{Addr: s.server.Addr(), MaxRetries: -1})
}

func (s *PriceCacheTestSuite) TearDownTest() {
	s.Require().NoError(s.rdb.Close())
}

func (s *PriceCacheTestSuite) caches() map[string]PriceCache {
	return map[string]PriceCache{
		"memory": NewMemoryCache(),
		"redis":  NewRedisCache(s.rdb),
	}
}

func (s *PriceCacheTestSuite) TestSetAndRead() {
	for name, cache := range s.caches() {
		s.Run(name, func() {
			ctx := context.Background()
			at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

			s.Require().NoError(cache.Set(ctx, "NIFTY", decimal.RequireFromString("21500.55"), at))
			s.Require().NoError(cache.Set(ctx, "NIFTY", decimal.RequireFromString("21510.10"), at.Add(time.Minute)))

			prices, err := cache.Prices(ctx, []string{"NIFTY", "UNKNOWN"})
			s.Require().NoError(err)
			s.Len(prices, 1)
			s.True(decimal.RequireFromString("21510.10").Equal(prices["NIFTY"]))
		})
	}
}

func (s *PriceCacheTestSuite) TestEmptyRequest() {
	for name, cache := range s.caches() {
		s.Run(name, func() {
			prices, err := cache.Prices(context.Background(), nil)
			s.Require().NoError(err)
			s.Empty(prices)
		})
	}
}

func (s *PriceCacheTestSuite) TestRedisLayout() {
	cache := NewRedisCache(s.rdb)
	at := time.Unix(1700000000, 0)

	s.Require().NoError(cache.Set(context.Background(), "NIFTY", decimal.NewFromInt(100), at))

	s.Equal("100", s.server.HGet("autotrader:ltp:NIFTY", "price"))
	s.Equal("1700000000000000000", s.server.HGet("autotrader:ltp:NIFTY", "ts"))
}

func (s *PriceCacheTestSuite) TestRedisUnavailable() {
	cache := NewRedisCache(s.rdb)
	s.server.Close()

	err := cache.Set(context.Background(), "NIFTY", decimal.NewFromInt(100), time.Now())
	s.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))

	_, err = cache.Prices(context.Background(), []string{"NIFTY"})
	s.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}
