package syncer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/logger"
)

// ErrQueued is returned when a mutation could not reach the server and was
// parked in the offline queue. Its optimistic state stays in the cache.
var ErrQueued = errors.New("mutation queued for offline sync")

// ConflictStrategy decides how a server result meets local cache state
type ConflictStrategy string

const (
	ServerWins ConflictStrategy = "server-wins"
	ClientWins ConflictStrategy = "client-wins"
	Merge      ConflictStrategy = "merge"
)

// ParseConflictStrategy falls back to ServerWins for unknown names
func ParseConflictStrategy(s string) ConflictStrategy {
	switch ConflictStrategy(s) {
	case ClientWins, Merge:
		return ConflictStrategy(s)
	default:
		return ServerWins
	}
}

// MergeFunc combines the local and server values of one key
type MergeFunc func(key string, local, server interface{}) interface{}

// Mutation is one optimistic write
type Mutation struct {
	Name string
	// Keys are snapshotted before Optimistic runs and restored on failure
	Keys       []string
	Optimistic func(c *QueryCache)
	Execute    func(ctx context.Context) (interface{}, error)
	// ServerValues maps the Execute result onto cache keys
	ServerValues func(result interface{}) map[string]interface{}
	Merge        MergeFunc
	Invalidate   []string
	// Idempotent mutations retry on any retryable error. Others retry only
	// when the request never left the client.
	Idempotent bool
	// Offline makes the mutation queueable when the server is unreachable
	Offline *OfflineEntry
}

// MutationOptions configure a MutationManager
type MutationOptions struct {
	Strategy  ConflictStrategy
	Merge     MergeFunc
	Retry     RetryPolicy
	Retryable func(error) bool
	// PreSend reports failures that cannot have reached the server
	PreSend   func(error) bool
	IsOffline func(error) bool
}

// MutationManager runs mutations against a cache
type MutationManager struct {
	cache   *QueryCache
	offline *OfflineQueue
	opts    MutationOptions

	rngMu sync.Mutex
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMutationManager builds a manager. offline may be nil.
func NewMutationManager(cache *QueryCache, offline *OfflineQueue, opts MutationOptions) *MutationManager {
	if opts.Strategy == "" {
		opts.Strategy = ServerWins
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Retryable == nil {
		opts.Retryable = api.IsRetryable
	}
	if opts.PreSend == nil {
		opts.PreSend = api.IsPreSendError
	}
	if opts.IsOffline == nil {
		opts.IsOffline = api.IsNetworkError
	}
	return &MutationManager{
		cache:   cache,
		offline: offline,
		opts:    opts,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepContext,
	}
}

// Strategy returns the configured conflict strategy
func (m *MutationManager) Strategy() ConflictStrategy {
	return m.opts.Strategy
}

// Mutate applies the optimistic update, executes the mutation with retry
// and then either resolves the result into the cache or rolls back.
func (m *MutationManager) Mutate(ctx context.Context, mut Mutation) (interface{}, error) {
	snap := m.cache.snapshot(mut.Keys)
	if mut.Optimistic != nil {
		mut.Optimistic(m.cache)
	}

	result, err := m.execute(ctx, mut)
	if err != nil {
		if mut.Offline != nil && m.offline != nil && m.opts.IsOffline(err) {
			qerr := m.offline.Add(*mut.Offline)
			if qerr == nil {
				logger.Info("Mutation queued offline", "mutation", mut.Name)
				return nil, fmt.Errorf("%s: %w", mut.Name, ErrQueued)
			}
			logger.Warn("Offline queue rejected mutation", "mutation", mut.Name, "error", qerr)
		}
		m.cache.restore(snap)
		if !mut.Idempotent && m.opts.IsOffline(err) && !m.opts.PreSend(err) && len(mut.Keys) > 0 {
			// the server may have applied it; refetch instead of trusting the snapshot
			m.cache.Invalidate(mut.Keys...)
		}
		logger.Debug("Mutation rolled back", "mutation", mut.Name, "error", err)
		return nil, err
	}

	if mut.ServerValues != nil {
		m.resolve(mut, mut.ServerValues(result))
	}
	if len(mut.Invalidate) > 0 {
		m.cache.Invalidate(mut.Invalidate...)
	}
	return result, nil
}

func (m *MutationManager) execute(ctx context.Context, mut Mutation) (interface{}, error) {
	retryable := m.opts.PreSend
	if mut.Idempotent {
		retryable = m.opts.Retryable
	}
	var lastErr error
	for attempt := 1; attempt <= m.opts.Retry.MaxAttempts; attempt++ {
		result, err := mut.Execute(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == m.opts.Retry.MaxAttempts {
			break
		}

		m.rngMu.Lock()
		delay := m.opts.Retry.Delay(attempt, m.rng)
		m.rngMu.Unlock()
		logger.Debug("Retrying mutation", "mutation", mut.Name, "attempt", attempt, "delay", delay, "error", err)
		if err := m.sleep(ctx, delay); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (m *MutationManager) resolve(mut Mutation, server map[string]interface{}) {
	merge := mut.Merge
	if merge == nil {
		merge = m.opts.Merge
	}
	for key, value := range server {
		local, present := m.cache.Get(key)
		switch {
		case !present:
			m.cache.Set(key, value)
		case m.opts.Strategy == ClientWins:
			// keep the optimistic value
		case m.opts.Strategy == Merge && merge != nil:
			m.cache.Set(key, merge(key, local, value))
		default:
			m.cache.Set(key, value)
		}
	}
}
