package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/macchain/backend/internal/cache"
)

// ErrFull is returned when the in-memory backend has no room
var ErrFull = errors.New("queue is full")

// Backend stores queued notification ids
type Backend interface {
	Push(ctx context.Context, id string) error
	// Pop waits up to timeout for an id; ok is false when none arrived
	Pop(ctx context.Context, timeout time.Duration) (id string, ok bool, err error)
	Len(ctx context.Context) (int64, error)
	Name() string
}

// MemoryBackend is a buffered channel
type MemoryBackend struct {
	ch chan string
}

// NewMemoryBackend creates an in-process backend holding up to size ids
func NewMemoryBackend(size int) *MemoryBackend {
	if size <= 0 {
		size = 1000
	}
	return &MemoryBackend{ch: make(chan string, size)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Push(_ context.Context, id string) error {
	select {
	case m.ch <- id:
		return nil
	default:
		return ErrFull
	}
}

func (m *MemoryBackend) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case id := <-m.ch:
		return id, true, nil
	case <-timer.C:
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (m *MemoryBackend) Len(context.Context) (int64, error) {
	return int64(len(m.ch)), nil
}

// RedisBackend is a Redis list; producers LPUSH and workers BRPOP, so ids
// survive restarts and are shared between instances.
type RedisBackend struct {
	rc  *cache.RedisClient
	key string
}

// NewRedisBackend creates a backend on the list at key
func NewRedisBackend(rc *cache.RedisClient, key string) *RedisBackend {
	if key == "" {
		key = "queue:notifications"
	}
	return &RedisBackend{rc: rc, key: key}
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Push(ctx context.Context, id string) error {
	if err := r.rc.LPush(ctx, r.key, id); err != nil {
		return fmt.Errorf("failed to push %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	id, err := r.rc.BRPop(ctx, timeout, r.key)
	if cache.IsMiss(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (r *RedisBackend) Len(ctx context.Context) (int64, error) {
	return r.rc.LLen(ctx, r.key)
}
