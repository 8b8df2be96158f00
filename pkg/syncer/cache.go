// Package syncer keeps client-side API state: a query cache, optimistic
// mutations, a bounded task queue, an offline queue and realtime
// reconciliation.
package syncer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher loads a fresh value for a cache key
type Fetcher func(ctx context.Context) (interface{}, error)

// Listener is told about every change under its prefix. value is nil when
// the key was removed.
type Listener func(key string, value interface{})

type entry struct {
	value     interface{}
	updatedAt time.Time
	stale     bool
}

type subscription struct {
	prefix string
	fn     Listener
}

// QueryCache stores API results by key. Values are treated as immutable:
// writers replace them, never modify them in place.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	subs    map[int]subscription
	nextSub int
	group   singleflight.Group
	now     func() time.Time
}

func NewQueryCache() *QueryCache {
	return &QueryCache{
		entries: make(map[string]*entry),
		subs:    make(map[int]subscription),
		now:     time.Now,
	}
}

// Get returns the cached value, stale or not
func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// IsStale reports whether key is missing or was invalidated
func (c *QueryCache) IsStale(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return !ok || e.stale
}

// Set stores a fresh value
func (c *QueryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = &entry{value: value, updatedAt: c.now()}
	c.mu.Unlock()
	c.emit(key, value)
}

// Update replaces an existing value with fn(old). Missing keys are left
// alone and Update returns false.
func (c *QueryCache) Update(key string, fn func(old interface{}) interface{}) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	next := fn(e.value)
	c.entries[key] = &entry{value: next, updatedAt: e.updatedAt, stale: e.stale}
	c.mu.Unlock()
	c.emit(key, next)
	return true
}

// Remove drops a key
func (c *QueryCache) Remove(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.emit(key, nil)
	}
}

// Invalidate marks every key under the prefixes stale so the next Fetch
// reloads it. No prefixes invalidates everything. It returns the number of
// keys marked.
func (c *QueryCache) Invalidate(prefixes ...string) int {
	c.mu.Lock()
	var marked []string
	for key, e := range c.entries {
		if matchesAny(key, prefixes) && !e.stale {
			e.stale = true
			marked = append(marked, key)
		}
	}
	values := make([]interface{}, len(marked))
	for i, key := range marked {
		values[i] = c.entries[key].value
	}
	c.mu.Unlock()

	for i, key := range marked {
		c.emit(key, values[i])
	}
	return len(marked)
}

// Keys lists the cached keys under prefix, sorted
func (c *QueryCache) Keys(prefix string) []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Fetch returns the cached value when it is fresh and younger than
// staleTime, and otherwise loads it. Concurrent fetches of one key share a
// single load.
func (c *QueryCache) Fetch(ctx context.Context, key string, staleTime time.Duration, fetch Fetcher) (interface{}, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if ok && !e.stale && c.now().Sub(e.updatedAt) < staleTime {
		v := e.value
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value)
		return value, nil
	})
	return v, err
}

// FetchAs is Fetch with a typed result
func FetchAs[T any](ctx context.Context, c *QueryCache, key string, staleTime time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, staleTime, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Subscribe registers fn for changes under prefix and returns the
// function that removes it
func (c *QueryCache) Subscribe(prefix string, fn Listener) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = subscription{prefix: prefix, fn: fn}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *QueryCache) emit(key string, value interface{}) {
	c.mu.RLock()
	var fns []Listener
	for _, s := range c.subs {
		if strings.HasPrefix(key, s.prefix) {
			fns = append(fns, s.fn)
		}
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(key, value)
	}
}

type snapshotEntry struct {
	present bool
	entry   entry
}

// snapshot copies the current entries for keys so they can be restored
func (c *QueryCache) snapshot(keys []string) map[string]snapshotEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]snapshotEntry, len(keys))
	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			snap[key] = snapshotEntry{present: true, entry: *e}
		} else {
			snap[key] = snapshotEntry{}
		}
	}
	return snap
}

func (c *QueryCache) restore(snap map[string]snapshotEntry) {
	for key, s := range snap {
		if !s.present {
			c.Remove(key)
			continue
		}
		e := s.entry
		c.mu.Lock()
		c.entries[key] = &e
		c.mu.Unlock()
		c.emit(key, e.value)
	}
}

func matchesAny(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
