package syncer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultOfflineLimit caps the number of parked mutations
	DefaultOfflineLimit = 100
	// DefaultOfflineMaxAge is how long a parked mutation stays replayable
	DefaultOfflineMaxAge = 24 * time.Hour
)

// OfflineEntry is a mutation waiting for the server to come back
type OfflineEntry struct {
	ID        string              `json:"id"`
	Kind      string              `json:"kind"`
	Payload   jsoniter.RawMessage `json:"payload"`
	CreatedAt time.Time           `json:"created_at"`
	Attempts  int                 `json:"attempts"`
	LastError string              `json:"last_error,omitempty"`
}

// NewOfflineEntry encodes payload for kind. The ID doubles as the request's
// idempotency key, so it is fixed before the first attempt.
func NewOfflineEntry(kind string, payload interface{}) (*OfflineEntry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OfflineEntry{ID: uuid.NewString(), Kind: kind, Payload: data}, nil
}

// Decode unmarshals the payload
func (e OfflineEntry) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Executor replays one entry against the server
type Executor func(ctx context.Context, entry OfflineEntry) error

// ReplayResult counts what a replay did
type ReplayResult struct {
	Succeeded int
	Failed    int
	Expired   int
}

// OfflineQueue is a bounded FIFO of parked mutations persisted to a JSON
// file. An empty path keeps it in memory.
type OfflineQueue struct {
	mu      sync.Mutex
	path    string
	entries []OfflineEntry
	limit   int
	maxAge  time.Duration
	now     func() time.Time
}

// NewOfflineQueue loads path, dropping expired entries
func NewOfflineQueue(path string) (*OfflineQueue, error) {
	q := &OfflineQueue{
		path:   path,
		limit:  DefaultOfflineLimit,
		maxAge: DefaultOfflineMaxAge,
		now:    time.Now,
	}
	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *OfflineQueue) load() error {
	if q.path == "" {
		return nil
	}
	data, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q.entries); err != nil {
			return err
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := q.pruneLocked()
	if over := len(q.entries) - q.limit; over > 0 {
		q.entries = q.entries[over:]
		dropped += over
	}
	if dropped > 0 {
		return q.persistLocked()
	}
	return nil
}

// Add appends an entry, evicting the oldest when the queue is full
func (q *OfflineQueue) Add(entry OfflineEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = q.now()
	}
	q.pruneLocked()
	for len(q.entries) >= q.limit {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
	return q.persistLocked()
}

// Len returns the number of parked entries
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy, oldest first
func (q *OfflineQueue) Entries() []OfflineEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]OfflineEntry(nil), q.entries...)
}

// Clear empties the queue
func (q *OfflineQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	return q.persistLocked()
}

// Replay executes entries in order. Successes are removed; failures stay
// with their attempt count raised. Entries added during the replay are kept.
func (q *OfflineQueue) Replay(ctx context.Context, exec Executor) (ReplayResult, error) {
	q.mu.Lock()
	result := ReplayResult{Expired: q.pruneLocked()}
	pending := append([]OfflineEntry(nil), q.entries...)
	q.mu.Unlock()

	done := make(map[string]bool, len(pending))
	failed := make(map[string]string)
	for _, entry := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := exec(ctx, entry); err != nil {
			failed[entry.ID] = err.Error()
			result.Failed++
			continue
		}
		done[entry.ID] = true
		result.Succeeded++
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if done[e.ID] {
			continue
		}
		if msg, ok := failed[e.ID]; ok {
			e.Attempts++
			e.LastError = msg
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return result, q.persistLocked()
}

// pruneLocked drops expired entries and returns how many went
func (q *OfflineQueue) pruneLocked() int {
	cutoff := q.now().Add(-q.maxAge)
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.CreatedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	dropped := len(q.entries) - len(kept)
	q.entries = kept
	return dropped
}

func (q *OfflineQueue) persistLocked() error {
	if q.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(q.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0700); err != nil {
		return err
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}
