package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/util"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	IdempotencyReplayed  = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
	idempotencyPending   = time.Minute
	idempotencyTTL       = 24 * time.Hour
)

// idempotentResponse is a stored reply. Status 0 marks a request still running.
type idempotentResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type idempotencyStore interface {
	get(ctx context.Context, key string) (*idempotentResponse, bool)
	claim(ctx context.Context, key string) bool
	put(ctx context.Context, key string, resp idempotentResponse)
	release(ctx context.Context, key string)
}

// IdempotencyMiddleware replays the first successful response for a repeated
// POST carrying the same Idempotency-Key from the same user. Keys are scoped
// to user and path. Requests without the header pass through untouched.
// Redis backs the store when configured, otherwise an in-process map does.
func IdempotencyMiddleware() gin.HandlerFunc {
	fallback := newMemoryIdempotencyStore()
	return func(c *gin.Context) {
		store := idempotencyStore(fallback)
		if rc := cache.GetRedisClient(); rc != nil {
			store = redisIdempotencyStore{rc: rc}
		}
		handleIdempotent(c, store)
	}
}

func handleIdempotent(c *gin.Context, store idempotencyStore) {
	key := c.GetHeader(IdempotencyHeader)
	if c.Request.Method != http.MethodPost || key == "" {
		c.Next()
		return
	}
	if len(key) > maxIdempotencyKeyLen {
		util.RespondWithAPIError(c, errors.ValidationError(IdempotencyHeader, "key is too long"))
		return
	}

	storeKey := cache.Key("idempotency", c.GetString("user_id"), c.Request.URL.Path, key)
	ctx := c.Request.Context()

	if prev, ok := store.get(ctx, storeKey); ok {
		if prev.Status == 0 {
			util.RespondWithAPIError(c, errors.Conflict("request").WithDetails("a request with this Idempotency-Key is in progress"))
			return
		}
		c.Header(IdempotencyReplayed, "true")
		c.Data(prev.Status, prev.ContentType, prev.Body)
		c.Abort()
		return
	}
	if !store.claim(ctx, storeKey) {
		util.RespondWithAPIError(c, errors.Conflict("request").WithDetails("a request with this Idempotency-Key is in progress"))
		return
	}

	writer := &cachedResponseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
	c.Writer = writer
	c.Next()

	status := writer.Status()
	if status < 200 || status >= 300 {
		store.release(ctx, storeKey)
		return
	}
	store.put(ctx, storeKey, idempotentResponse{
		Status:      status,
		ContentType: writer.Header().Get("Content-Type"),
		Body:        writer.body.Bytes(),
	})
}

type redisIdempotencyStore struct {
	rc *cache.RedisClient
}

func (s redisIdempotencyStore) get(ctx context.Context, key string) (*idempotentResponse, bool) {
	raw, err := s.rc.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var resp idempotentResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (s redisIdempotencyStore) claim(ctx context.Context, key string) bool {
	data, _ := json.Marshal(idempotentResponse{})
	ok, err := s.rc.SetNX(ctx, key, data, idempotencyPending)
	if err != nil {
		// an unreachable Redis must not block writes
		logger.Log.Warn("Idempotency claim failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

func (s redisIdempotencyStore) put(ctx context.Context, key string, resp idempotentResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.rc.SetEx(ctx, key, data, idempotencyTTL); err != nil {
		logger.Log.Warn("Idempotency store failed", zap.String("key", key), zap.Error(err))
	}
}

func (s redisIdempotencyStore) release(ctx context.Context, key string) {
	_ = s.rc.Del(ctx, key)
}

type memoryIdempotencyEntry struct {
	resp    idempotentResponse
	expires time.Time
}

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryIdempotencyEntry
	now     func() time.Time
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{entries: make(map[string]memoryIdempotencyEntry), now: time.Now}
}

func (s *memoryIdempotencyStore) lookupLocked(key string) (memoryIdempotencyEntry, bool) {
	e, ok := s.entries[key]
	if ok && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return e, false
	}
	return e, ok
}

func (s *memoryIdempotencyStore) get(_ context.Context, key string) (*idempotentResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(key)
	if !ok {
		return nil, false
	}
	resp := e.resp
	return &resp, true
}

func (s *memoryIdempotencyStore) claim(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookupLocked(key); ok {
		return false
	}
	if len(s.entries) > 10000 {
		for k, e := range s.entries {
			if !s.now().Before(e.expires) {
				delete(s.entries, k)
			}
		}
	}
	s.entries[key] = memoryIdempotencyEntry{expires: s.now().Add(idempotencyPending)}
	return true
}

func (s *memoryIdempotencyStore) put(_ context.Context, key string, resp idempotentResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryIdempotencyEntry{resp: resp, expires: s.now().Add(idempotencyTTL)}
}

func (s *memoryIdempotencyStore) release(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
