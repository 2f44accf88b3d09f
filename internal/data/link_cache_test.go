package data

import (
	"context"
	"testing"
	"time"

	"clickpipe/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type LinkCacheTestSuite struct {
	suite.Suite
	ctx context.Context
	mr  *miniredis.Miniredis
	rdb *redis.Client
	sut *RedisLinkCache
}

func TestLinkCacheTestSuite(t *testing.T) {
	suite.Run(t, new(LinkCacheTestSuite))
}

func (s *LinkCacheTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.mr = miniredis.RunT(s.T())
	s.rdb = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.T().Cleanup(func() { _ = s.rdb.Close() })
	s.sut = NewRedisLinkCache(s.rdb, 24*time.Hour)
}

func (s *LinkCacheTestSuite) TestGet_Miss() {
	// Act
	destination, err := s.sut.Get(s.ctx, "abc123")

	// Assert
	s.NoError(err)
	s.Empty(destination)
}

func (s *LinkCacheTestSuite) TestSet_UsesRemainingLifetime() {
	// Act
	err := s.sut.Set(s.ctx, "abc123", "https://example.com", 90*time.Minute)

	// Assert
	s.Require().NoError(err)
	s.Equal(90*time.Minute, s.mr.TTL("link:abc123"))
	got, err := s.mr.Get("link:abc123")
	s.Require().NoError(err)
	s.Equal("https://example.com", got)
}

func (s *LinkCacheTestSuite) TestSet_CapsAtMaxTTL() {
	// Act
	s.Require().NoError(s.sut.Set(s.ctx, "long00", "https://example.com", 30*24*time.Hour))
	s.Require().NoError(s.sut.Set(s.ctx, "never0", "https://example.com", 0))

	// Assert
	s.Equal(24*time.Hour, s.mr.TTL("link:long00"))
	s.Equal(24*time.Hour, s.mr.TTL("link:never0"))
}

func (s *LinkCacheTestSuite) TestSet_NoCapLeavesNeverExpiringLinksPersistent() {
	// Arrange
	sut := NewRedisLinkCache(s.rdb, 0)

	// Act
	s.Require().NoError(sut.Set(s.ctx, "never0", "https://example.com", 0))

	// Assert
	s.True(s.mr.Exists("link:never0"))
	s.Zero(s.mr.TTL("link:never0"))
}

func (s *LinkCacheTestSuite) TestEntryDisappearsWhenLinkExpires() {
	// Arrange
	s.Require().NoError(s.sut.Set(s.ctx, "abc123", "https://example.com", time.Minute))

	// Act
	s.mr.FastForward(time.Minute + time.Second)
	destination, err := s.sut.Get(s.ctx, "abc123")

	// Assert
	s.NoError(err)
	s.Empty(destination)
}

func (s *LinkCacheTestSuite) TestInvalidate() {
	// Arrange
	s.Require().NoError(s.sut.Set(s.ctx, "abc123", "https://example.com", time.Hour))

	// Act
	err := s.sut.Invalidate(s.ctx, "abc123")

	// Assert
	s.NoError(err)
	s.False(s.mr.Exists("link:abc123"))
}

func (s *LinkCacheTestSuite) TestGet_ServerDownIsAnError() {
	// Arrange
	s.mr.Close()

	// Act
	_, err := s.sut.Get(s.ctx, "abc123")

	// Assert
	s.Error(err)
}

func (s *LinkCacheTestSuite) TestNewLinkCache_NoRedisIsNoop() {
	// Arrange
	d := NewDataFromDB(nil, DialectSQLite, nil)

	// Act
	cache := NewLinkCache(d, &conf.Data{})
	setErr := cache.Set(s.ctx, "abc123", "https://example.com", time.Hour)
	destination, getErr := cache.Get(s.ctx, "abc123")

	// Assert
	s.NoError(setErr)
	s.NoError(getErr)
	s.Empty(destination)
}
