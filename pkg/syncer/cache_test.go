package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(calls *int32, value interface{}) Fetcher {
	return func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestFetchServesFreshValue(t *testing.T) {
	c := NewQueryCache()
	var calls int32

	v, err := c.Fetch(context.Background(), "k", time.Minute, counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = c.Fetch(context.Background(), "k", time.Minute, counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.EqualValues(t, 1, calls)
}

func TestFetchReloadsAfterStaleTime(t *testing.T) {
	c := NewQueryCache()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	var calls int32

	_, err := c.Fetch(context.Background(), "k", time.Minute, counter(&calls, "a"))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	v, err := c.Fetch(context.Background(), "k", time.Minute, counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.EqualValues(t, 2, calls)
}

func TestInvalidateMarksPrefixStale(t *testing.T) {
	c := NewQueryCache()
	c.Set("stats:overview:30", 1)
	c.Set("stats:growth:30", 2)
	c.Set("plan:date:2025-03-01", 3)

	assert.Equal(t, 2, c.Invalidate(PrefixStats))
	assert.True(t, c.IsStale("stats:overview:30"))
	assert.False(t, c.IsStale("plan:date:2025-03-01"))

	// already stale keys are not counted twice
	assert.Equal(t, 1, c.Invalidate())

	v, ok := c.Get("stats:growth:30")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestFetchErrorKeepsOldValue(t *testing.T) {
	c := NewQueryCache()
	c.Set("k", "old")
	c.Invalidate()

	_, err := c.Fetch(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("offline")
	})
	require.Error(t, err)

	v, _ := c.Get("k")
	assert.Equal(t, "old", v)
	assert.True(t, c.IsStale("k"))
}

func TestFetchSharesConcurrentLoads(t *testing.T) {
	c := NewQueryCache()
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "v", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls)
}

func TestUpdateSkipsMissingKeys(t *testing.T) {
	c := NewQueryCache()
	assert.False(t, c.Update("missing", func(old interface{}) interface{} { return 1 }))
	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("n", 1)
	assert.True(t, c.Update("n", func(old interface{}) interface{} { return old.(int) + 1 }))
	v, _ := c.Get("n")
	assert.Equal(t, 2, v)
}

func TestSubscribe(t *testing.T) {
	c := NewQueryCache()
	var got []string
	unsubscribe := c.Subscribe(PrefixComments, func(key string, value interface{}) {
		got = append(got, key)
	})

	c.Set(CommentsKey("d1"), 1)
	c.Set(DiscussionKey("d1"), 1)
	c.Remove(CommentsKey("d1"))
	unsubscribe()
	c.Set(CommentsKey("d2"), 1)

	assert.Equal(t, []string{"comments:d1", "comments:d1"}, got)
}

func TestSnapshotRestore(t *testing.T) {
	c := NewQueryCache()
	c.Set("a", 1)
	snap := c.snapshot([]string{"a", "b"})

	c.Set("a", 2)
	c.Set("b", 3)
	c.restore(snap)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestKeysSorted(t *testing.T) {
	c := NewQueryCache()
	c.Set("stats:b", 1)
	c.Set("stats:a", 1)
	c.Set("other", 1)
	assert.Equal(t, []string{"stats:a", "stats:b"}, c.Keys(PrefixStats))
}
