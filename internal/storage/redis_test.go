package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RedisTestSuite struct {
	suite.Suite
}

func TestRedisSuite(t *testing.T) {
	suite.Run(t, new(RedisTestSuite))
}

func (s *RedisTestSuite) TestConnect() {
	server := miniredis.RunT(s.T())

	rdb, err := NewRedis(context.Background(), RedisConfig{Addr: server.Addr()})
	s.Require().NoError(err)
	defer rdb.Close()

	s.NoError(rdb.Set(context.Background(), "k", "v", 0).Err())

	got, err := server.Get("k")
	s.Require().NoError(err)
	s.Equal("v", got)
}

func (s *RedisTestSuite) TestUnreachable() {
	_, err := NewRedis(context.Background(), RedisConfig{Addr: "127.0.0.1:1", MaxRetries: -1})
	s.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}
