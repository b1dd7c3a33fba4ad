package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

const redisKeyPrefix = "phishgard:analysis:"

// RedisCache is a Redis implementation of the AnalysisCache interface.
// Entries expire through the Redis TTL.
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr, password string, db int, logger *zap.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{rdb: rdb, logger: logger}, nil
}

// redisKey length-prefixes the user so no user and email pair can produce
// the key of another
func redisKey(userID, emailID string) string {
	return fmt.Sprintf("%s%d:%s:%s", redisKeyPrefix, len(userID), userID, emailID)
}

// Get retrieves the analysis of an email for a user
func (c *RedisCache) Get(ctx context.Context, userID, emailID string) (*core.StoredAnalysis, error) {
	data, err := c.rdb.Get(ctx, redisKey(userID, emailID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var entry core.StoredAnalysis
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

// Set stores an analysis until its expiry time
func (c *RedisCache) Set(ctx context.Context, entry *core.StoredAnalysis) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		c.logger.Debug("Skipping already expired cache entry",
			zap.String("user_id", entry.UserID),
			zap.String("email_id", entry.EmailID))
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, redisKey(entry.UserID, entry.EmailID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes an analysis
func (c *RedisCache) Delete(ctx context.Context, userID, emailID string) error {
	if err := c.rdb.Del(ctx, redisKey(userID, emailID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op, Redis expires keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
