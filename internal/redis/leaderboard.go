package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/domain"
)

// LeaderboardCache mirrors session scores in a Redis sorted set for
// cheap top-N reads. PostgreSQL stays authoritative; the sync worker
// reconciles the cache from the database.
type LeaderboardCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewLeaderboardCache creates a new Redis leaderboard cache
func NewLeaderboardCache(cfg *config.RedisConfig, logger *slog.Logger) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &LeaderboardCache{
		client: client,
		logger: logger,
	}, nil
}

// NewLeaderboardCacheFromClient wraps an existing client (used in tests)
func NewLeaderboardCacheFromClient(client *redis.Client, logger *slog.Logger) *LeaderboardCache {
	return &LeaderboardCache{client: client, logger: logger}
}

// Close closes the Redis connection
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}

// sessionKey returns the Redis key for a session's score sorted set
func (c *LeaderboardCache) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:scores", sessionID)
}

// SetScore writes a player's current points into the cache
func (c *LeaderboardCache) SetScore(ctx context.Context, sessionID, playerID string, points int) error {
	err := c.client.ZAdd(ctx, c.sessionKey(sessionID), redis.Z{
		Score:  float64(points),
		Member: playerID,
	}).Err()
	if err != nil {
		return fmt.Errorf("setting cached score: %w", err)
	}
	return nil
}

// TopN returns the N highest-scoring cached standings for a session
func (c *LeaderboardCache) TopN(ctx context.Context, sessionID string, n int) ([]domain.Standing, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.sessionKey(sessionID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting cached top n: %w", err)
	}

	standings := make([]domain.Standing, len(results))
	for i, result := range results {
		standings[i] = domain.Standing{
			PlayerID: result.Member.(string),
			Points:   int(result.Score),
		}
	}
	return standings, nil
}

// ReplaceAll rebuilds a session's cached scores from an authoritative
// snapshot in a single pipeline
func (c *LeaderboardCache) ReplaceAll(ctx context.Context, sessionID string, points map[string]int) error {
	key := c.sessionKey(sessionID)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(points) > 0 {
		members := make([]redis.Z, 0, len(points))
		for playerID, p := range points {
			members = append(members, redis.Z{Score: float64(p), Member: playerID})
		}
		pipe.ZAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing cached scores: %w", err)
	}
	return nil
}

// Clear drops a session's entire cached score set. Called when the
// session deactivates.
func (c *LeaderboardCache) Clear(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clearing cached scores: %w", err)
	}
	return nil
}
