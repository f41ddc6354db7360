package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type LeaderboardCacheSuite struct {
	suite.Suite
	ctx   context.Context
	mr    *miniredis.Miniredis
	cache *LeaderboardCache
}

func TestLeaderboardCacheSuite(t *testing.T) {
	suite.Run(t, new(LeaderboardCacheSuite))
}

func (s *LeaderboardCacheSuite) SetupTest() {
	s.ctx = context.Background()

	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cache = NewLeaderboardCacheFromClient(client, logger)
}

func (s *LeaderboardCacheSuite) TearDownTest() {
	s.cache.Close()
	s.mr.Close()
}

func (s *LeaderboardCacheSuite) TestSetScoreAndTopN() {
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "alice", 100))
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "bob", 80))
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "carol", 120))

	top, err := s.cache.TopN(s.ctx, "sess-1", 2)
	s.Require().NoError(err)

	s.Require().Len(top, 2)
	s.Equal("carol", top[0].PlayerID)
	s.Equal(120, top[0].Points)
	s.Equal("alice", top[1].PlayerID)
	s.Equal(100, top[1].Points)
}

func (s *LeaderboardCacheSuite) TestSetScoreOverwrites() {
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "alice", 10))
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "alice", 30))

	top, err := s.cache.TopN(s.ctx, "sess-1", 10)
	s.Require().NoError(err)

	s.Require().Len(top, 1)
	s.Equal(30, top[0].Points)
}

func (s *LeaderboardCacheSuite) TestSessionsAreIsolated() {
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "alice", 10))
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-2", "bob", 20))

	top, err := s.cache.TopN(s.ctx, "sess-1", 10)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal("alice", top[0].PlayerID)

	top, err = s.cache.TopN(s.ctx, "sess-2", 10)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal("bob", top[0].PlayerID)
}

func (s *LeaderboardCacheSuite) TestReplaceAllDropsStaleMembers() {
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "stale", 999))

	err := s.cache.ReplaceAll(s.ctx, "sess-1", map[string]int{
		"alice": 50,
		"bob":   40,
	})
	s.Require().NoError(err)

	top, err := s.cache.TopN(s.ctx, "sess-1", 10)
	s.Require().NoError(err)

	s.Require().Len(top, 2)
	s.Equal("alice", top[0].PlayerID)
	s.Equal("bob", top[1].PlayerID)
}

func (s *LeaderboardCacheSuite) TestReplaceAllEmptyClears() {
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "alice", 10))
	s.Require().NoError(s.cache.ReplaceAll(s.ctx, "sess-1", nil))

	top, err := s.cache.TopN(s.ctx, "sess-1", 10)
	s.Require().NoError(err)
	s.Empty(top)
}

func (s *LeaderboardCacheSuite) TestClearDropsSession() {
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-1", "alice", 10))
	s.Require().NoError(s.cache.SetScore(s.ctx, "sess-2", "bob", 20))
	s.Require().NoError(s.cache.Clear(s.ctx, "sess-1"))

	top, err := s.cache.TopN(s.ctx, "sess-1", 10)
	s.Require().NoError(err)
	s.Empty(top)

	top, err = s.cache.TopN(s.ctx, "sess-2", 10)
	s.Require().NoError(err)
	s.Len(top, 1)
}
