package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/macchain/backend/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned when a key is absent
var ErrMiss = redis.Nil

// RedisClient wraps redis.Client with the operations the service uses
type RedisClient struct {
	client *redis.Client
}

var globalRedis *RedisClient

// NewRedisClient connects to host:port, pings, and installs the client as
// the global instance
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	return Connect(fmt.Sprintf("%s:%s", host, port), password)
}

// Connect dials addr directly
func Connect(addr, password string) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		_ = client.Close()
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc

	logger.Log.Info("Redis client connected", zap.String("address", addr))
	return rc, nil
}

// GetRedisClient returns the global Redis client, or nil when Redis is not configured
func GetRedisClient() *RedisClient {
	return globalRedis
}

// SetRedisClient replaces the global client; tests pass nil to reset
func SetRedisClient(rc *RedisClient) {
	globalRedis = rc
}

// IsMiss reports whether err means the key does not exist
func IsMiss(err error) bool {
	return stderrors.Is(err, redis.Nil)
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Get retrieves a value from Redis
func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return rc.client.Get(ctx, key).Result()
}

// SetEx stores a value in Redis with expiration
func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// SetNX stores value only when key is absent and reports whether it did
func (rc *RedisClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	return rc.client.SetNX(ctx, key, value, ttl).Result()
}

// Del deletes one or more keys from Redis
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// IncrBy increments a key by a value
func (rc *RedisClient) IncrBy(ctx context.Context, key string, increment int64) (int64, error) {
	return rc.client.IncrBy(ctx, key, increment).Result()
}

// Expire sets an expiration timeout on a key
func (rc *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rc.client.Expire(ctx, key, ttl).Err()
}

// TTL returns the time-to-live for a key
func (rc *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rc.client.TTL(ctx, key).Result()
}

// LPush pushes values to the head of a list
func (rc *RedisClient) LPush(ctx context.Context, key string, values ...interface{}) error {
	return rc.client.LPush(ctx, key, values...).Err()
}

// BRPop blocks up to timeout for a value at the tail of a list.
// It returns ErrMiss when the timeout elapses.
func (rc *RedisClient) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	res, err := rc.client.BRPop(ctx, timeout, key).Result()
	if err != nil {
		return "", err
	}
	// [key, value]
	return res[1], nil
}

// LLen returns the length of a list
func (rc *RedisClient) LLen(ctx context.Context, key string) (int64, error) {
	return rc.client.LLen(ctx, key).Result()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// DeletePattern removes every key matching a glob pattern using SCAN
func (rc *RedisClient) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
