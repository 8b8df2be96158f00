package syncer

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errOffline = errors.New("connection refused")
	errTimeout = errors.New("client timeout")
	errServer  = errors.New("503")
	errInvalid = errors.New("400")
)

func newTestManager(t *testing.T, strategy ConflictStrategy, offline *OfflineQueue) *MutationManager {
	t.Helper()
	m := NewMutationManager(NewQueryCache(), offline, MutationOptions{
		Strategy:  strategy,
		Retryable: func(err error) bool { return err == errServer || err == errOffline || err == errTimeout },
		PreSend:   func(err error) bool { return err == errOffline },
		IsOffline: func(err error) bool { return err == errOffline || err == errTimeout },
		Merge: func(key string, local, server interface{}) interface{} {
			return local.(int) + server.(int)
		},
	})
	m.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return m
}

func counterMutation(result int, errs ...error) (Mutation, *int) {
	calls := 0
	return Mutation{
		Name:       "incr",
		Keys:       []string{"n"},
		Idempotent: true,
		Optimistic: func(c *QueryCache) { c.Update("n", func(old interface{}) interface{} { return old.(int) + 1 }) },
		Execute: func(ctx context.Context) (interface{}, error) {
			calls++
			if calls <= len(errs) {
				return nil, errs[calls-1]
			}
			return result, nil
		},
		ServerValues: func(r interface{}) map[string]interface{} {
			return map[string]interface{}{"n": r}
		},
	}, &calls
}

func TestMutateServerWins(t *testing.T) {
	m := newTestManager(t, ServerWins, nil)
	m.cache.Set("n", 1)

	mut, _ := counterMutation(10)
	res, err := m.Mutate(context.Background(), mut)
	require.NoError(t, err)
	assert.Equal(t, 10, res)

	v, _ := m.cache.Get("n")
	assert.Equal(t, 10, v)
}

func TestMutateClientWinsKeepsOptimisticValue(t *testing.T) {
	m := newTestManager(t, ClientWins, nil)
	m.cache.Set("n", 1)

	mut, _ := counterMutation(10)
	_, err := m.Mutate(context.Background(), mut)
	require.NoError(t, err)

	v, _ := m.cache.Get("n")
	assert.Equal(t, 2, v)
}

func TestMutateMerge(t *testing.T) {
	m := newTestManager(t, Merge, nil)
	m.cache.Set("n", 1)

	mut, _ := counterMutation(10)
	_, err := m.Mutate(context.Background(), mut)
	require.NoError(t, err)

	v, _ := m.cache.Get("n")
	assert.Equal(t, 12, v)
}

func TestMutateRetriesTransientErrors(t *testing.T) {
	m := newTestManager(t, ServerWins, nil)
	m.cache.Set("n", 1)

	mut, calls := counterMutation(7, errServer, errServer)
	_, err := m.Mutate(context.Background(), mut)
	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
}

func TestMutateRollsBackOnFailure(t *testing.T) {
	m := newTestManager(t, ServerWins, nil)
	m.cache.Set("n", 1)

	mut, calls := counterMutation(7, errInvalid)
	_, err := m.Mutate(context.Background(), mut)
	assert.ErrorIs(t, err, errInvalid)
	assert.Equal(t, 1, *calls, "non-retryable errors are not retried")

	v, _ := m.cache.Get("n")
	assert.Equal(t, 1, v)
}

func TestMutateRollbackRestoresOnlyOwnKeys(t *testing.T) {
	m := newTestManager(t, ServerWins, nil)
	m.cache.Set("n", 1)
	m.cache.Set("other", 1)

	mut := Mutation{
		Name: "touch",
		Keys: []string{"n", "fresh"},
		Optimistic: func(c *QueryCache) {
			c.Set("n", 2)
			c.Set("fresh", "optimistic")
		},
		Execute: func(ctx context.Context) (interface{}, error) {
			// concurrent writers keep going while the request is in flight
			m.cache.Set("other", 5)
			m.cache.Set("late", true)
			return nil, errInvalid
		},
	}
	_, err := m.Mutate(context.Background(), mut)
	require.ErrorIs(t, err, errInvalid)

	v, _ := m.cache.Get("n")
	assert.Equal(t, 1, v)
	_, present := m.cache.Get("fresh")
	assert.False(t, present, "keys absent before the mutation are removed")
	v, _ = m.cache.Get("other")
	assert.Equal(t, 5, v)
	v, _ = m.cache.Get("late")
	assert.Equal(t, true, v)
}

func TestNonIdempotentMutationSkipsAmbiguousRetries(t *testing.T) {
	for name, failure := range map[string]error{"timeout": errTimeout, "server error": errServer} {
		t.Run(name, func(t *testing.T) {
			m := newTestManager(t, ServerWins, nil)
			m.cache.Set("n", 1)

			mut, calls := counterMutation(7, failure, failure)
			mut.Idempotent = false
			_, err := m.Mutate(context.Background(), mut)
			assert.ErrorIs(t, err, failure)
			assert.Equal(t, 1, *calls)

			v, _ := m.cache.Get("n")
			assert.Equal(t, 1, v)
		})
	}
}

func TestNonIdempotentMutationRetriesPreSendFailures(t *testing.T) {
	m := newTestManager(t, ServerWins, nil)
	m.cache.Set("n", 1)

	mut, calls := counterMutation(7, errOffline)
	mut.Idempotent = false
	res, err := m.Mutate(context.Background(), mut)
	require.NoError(t, err)
	assert.Equal(t, 7, res)
	assert.Equal(t, 2, *calls)
}

func TestNonIdempotentTimeoutMarksKeysStale(t *testing.T) {
	m := newTestManager(t, ServerWins, nil)
	m.cache.Set("n", 1)

	mut, _ := counterMutation(7, errTimeout)
	mut.Idempotent = false
	_, err := m.Mutate(context.Background(), mut)
	require.ErrorIs(t, err, errTimeout)
	assert.True(t, m.cache.IsStale("n"))
}

func TestMutateQueuesOfflineWrites(t *testing.T) {
	q, err := NewOfflineQueue("")
	require.NoError(t, err)
	m := newTestManager(t, ServerWins, q)
	m.cache.Set("n", 1)

	mut, calls := counterMutation(7, errOffline, errOffline, errOffline)
	mut.Offline, err = NewOfflineEntry(KindSetProgress, progressPayload{Date: "2025-03-01", ReadingID: 1, Completed: true})
	require.NoError(t, err)

	_, err = m.Mutate(context.Background(), mut)
	assert.ErrorIs(t, err, ErrQueued)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 1, q.Len())

	// the optimistic value survives until the queue is replayed
	v, _ := m.cache.Get("n")
	assert.Equal(t, 2, v)
}

func TestMutateWithoutOfflineEntryRollsBack(t *testing.T) {
	q, err := NewOfflineQueue("")
	require.NoError(t, err)
	m := newTestManager(t, ServerWins, q)
	m.cache.Set("n", 1)

	mut, _ := counterMutation(7, errOffline, errOffline, errOffline)
	_, err = m.Mutate(context.Background(), mut)
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, 0, q.Len())

	v, _ := m.cache.Get("n")
	assert.Equal(t, 1, v)
}

func TestMutateInvalidates(t *testing.T) {
	m := newTestManager(t, ServerWins, nil)
	m.cache.Set("n", 1)
	m.cache.Set("stats:overview:30", 1)

	mut, _ := counterMutation(2)
	mut.Invalidate = []string{PrefixStats}
	_, err := m.Mutate(context.Background(), mut)
	require.NoError(t, err)
	assert.True(t, m.cache.IsStale("stats:overview:30"))
}

func TestParseConflictStrategy(t *testing.T) {
	assert.Equal(t, ClientWins, ParseConflictStrategy("client-wins"))
	assert.Equal(t, Merge, ParseConflictStrategy("merge"))
	assert.Equal(t, ServerWins, ParseConflictStrategy("bogus"))
}

func TestRetryDelayBounds(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	rng := rand.New(rand.NewSource(1))
	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 400 * time.Millisecond, 6: time.Second} {
		for i := 0; i < 20; i++ {
			d := p.Delay(attempt, rng)
			assert.GreaterOrEqual(t, d, want/2)
			assert.LessOrEqual(t, d, want)
		}
	}
}
