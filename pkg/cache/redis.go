package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"marketplace-indexer/pkg/config"
)

var (
	RedisClient *redis.Client
	ctx         = context.Background()
)

// Initialize Redis connection
func Initialize(cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisURL(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Test connection
	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.Info("Redis connected successfully")
	return nil
}

// Cache keys constants
const (
	KeyBlockTimestamp = "indexer:blocktime:%s:%d" // indexer:blocktime:polygon:38760423
	KeyChainStatus    = "indexer:status:%s"       // indexer:status:polygon
)

// Cache expiration times
const (
	ExpireBlockTimestamp = 24 * time.Hour // block timestamps are immutable, bounded only for space
	ExpireChainStatus    = 60 * time.Second
)

// Ready reports whether a Redis connection has been established. The engine
// degrades to uncached RPC lookups when it has not.
func Ready() bool {
	return RedisClient != nil
}

// Set stores a value in Redis with expiration
func Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	err = RedisClient.Set(ctx, key, jsonValue, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	return nil
}

// Get retrieves a value from Redis
func Get(key string, dest interface{}) error {
	val, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("key %s not found", key)
		}
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}

	err = json.Unmarshal([]byte(val), dest)
	if err != nil {
		return fmt.Errorf("failed to unmarshal value for key %s: %w", key, err)
	}

	return nil
}

// Delete removes a key from Redis
func Delete(key string) error {
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Exists checks if a key exists in Redis
func Exists(key string) bool {
	result, err := RedisClient.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return result > 0
}

// Close closes the Redis connection
func Close() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// HealthCheck checks if Redis is healthy
func HealthCheck() error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}

	return nil
}

// Helper functions for common cache operations

// CacheBlockTimestamp memoizes a block's timestamp. Timestamps never change,
// so the cache is shared by every pipeline on the chain.
func CacheBlockTimestamp(chain string, block uint64, timestamp int64) error {
	key := fmt.Sprintf(KeyBlockTimestamp, chain, block)
	return Set(key, timestamp, ExpireBlockTimestamp)
}

// GetBlockTimestamp retrieves a memoized block timestamp
func GetBlockTimestamp(chain string, block uint64) (int64, error) {
	key := fmt.Sprintf(KeyBlockTimestamp, chain, block)
	var timestamp int64
	if err := Get(key, &timestamp); err != nil {
		return 0, err
	}
	return timestamp, nil
}

// ChainStatus is published by each pipeline for the status endpoint.
type ChainStatus struct {
	LastBlock  uint64 `json:"last_block"`
	HeadBlock  uint64 `json:"head_block"`
	CatchingUp bool   `json:"catching_up"`
	UpdatedAt  int64  `json:"updated_at"`
}

// CacheChainStatus publishes a pipeline's indexing position
func CacheChainStatus(chain string, status ChainStatus) error {
	key := fmt.Sprintf(KeyChainStatus, chain)
	return Set(key, status, ExpireChainStatus)
}

// GetChainStatus retrieves a pipeline's last published position
func GetChainStatus(chain string) (ChainStatus, error) {
	key := fmt.Sprintf(KeyChainStatus, chain)
	var status ChainStatus
	if err := Get(key, &status); err != nil {
		return ChainStatus{}, err
	}
	return status, nil
}
