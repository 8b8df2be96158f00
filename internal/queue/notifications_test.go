package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/macchain/backend/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeliverer struct {
	mu       sync.Mutex
	failN    map[string]int // attempts that fail before success
	attempts map[string]int
	failed   map[string]error
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{failN: map[string]int{}, attempts: map[string]int{}, failed: map[string]error{}}
}

func (f *fakeDeliverer) Deliver(_ context.Context, id string, attempt int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[id] = attempt
	if attempt <= f.failN[id] {
		return fmt.Errorf("attempt %d failed", attempt)
	}
	return nil
}

func (f *fakeDeliverer) Fail(_ context.Context, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = err
}

func (f *fakeDeliverer) snapshot(id string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	err, failed := f.failed[id]
	return f.attempts[id], failed, err
}

func fastOptions() Options {
	return Options{Workers: 2, MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestDeliversOnFirstAttempt(t *testing.T) {
	d := newFakeDeliverer()
	q := NewNotificationQueue(NewMemoryBackend(10), d, fastOptions())
	q.Start()
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), "n1"))
	require.NoError(t, q.WaitFor("n1", 2*time.Second))

	attempts, failed, _ := d.snapshot("n1")
	assert.Equal(t, 1, attempts)
	assert.False(t, failed)
}

func TestRetriesThenSucceeds(t *testing.T) {
	d := newFakeDeliverer()
	d.failN["n1"] = 2
	q := NewNotificationQueue(NewMemoryBackend(10), d, fastOptions())
	q.Start()
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), "n1"))
	require.NoError(t, q.WaitFor("n1", 2*time.Second))

	attempts, failed, _ := d.snapshot("n1")
	assert.Equal(t, 3, attempts)
	assert.False(t, failed)
}

func TestMarksFailedAfterMaxAttempts(t *testing.T) {
	d := newFakeDeliverer()
	d.failN["n1"] = 10
	q := NewNotificationQueue(NewMemoryBackend(10), d, fastOptions())
	q.Start()
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), "n1"))
	require.NoError(t, q.WaitFor("n1", 2*time.Second))

	attempts, failed, err := d.snapshot("n1")
	assert.Equal(t, 3, attempts)
	assert.True(t, failed)
	assert.EqualError(t, err, "attempt 3 failed")
}

func TestMemoryBackendFull(t *testing.T) {
	q := NewNotificationQueue(NewMemoryBackend(1), newFakeDeliverer(), fastOptions())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a"))
	err := q.Enqueue(ctx, "b")
	assert.True(t, errors.Is(err, ErrFull))
	assert.Equal(t, int64(1), q.Depth())
}

func TestEnqueueAfterStop(t *testing.T) {
	q := NewNotificationQueue(NewMemoryBackend(1), newFakeDeliverer(), fastOptions())
	q.Start()
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(context.Background(), "a"), ErrStopped)
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.Connect(mr.Addr(), "")
	require.NoError(t, err)
	defer rc.Close()

	backend := NewRedisBackend(rc, "")
	ctx := context.Background()

	require.NoError(t, backend.Push(ctx, "first"))
	require.NoError(t, backend.Push(ctx, "second"))
	n, err := backend.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	id, ok, err := backend.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first", id)

	d := newFakeDeliverer()
	q := NewNotificationQueue(backend, d, fastOptions())
	q.Start()
	defer q.Stop()
	require.NoError(t, q.WaitFor("second", 3*time.Second))
	attempts, _, _ := d.snapshot("second")
	assert.Equal(t, 1, attempts)
}

func TestConcurrentEnqueue(t *testing.T) {
	d := newFakeDeliverer()
	q := NewNotificationQueue(NewMemoryBackend(100), d, Options{Workers: 4, Backoff: time.Millisecond})

	const numJobs = 20
	var wg sync.WaitGroup
	for i := 0; i < numJobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, q.Enqueue(context.Background(), fmt.Sprintf("n%d", i)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(numJobs), q.Depth())

	q.Start()
	defer q.Stop()
	assert.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.attempts) == numJobs
	}, 3*time.Second, 10*time.Millisecond)
}
