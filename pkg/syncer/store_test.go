package syncer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/client"
)

type fakeServer struct {
	down     atomic.Bool
	requests atomic.Int32
	status   int
	body     string
}

func newTestStore(t *testing.T, fs *fakeServer) *Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		if fs.down.Load() {
			panic(http.ErrAbortHandler)
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fs.status)
		_, _ = io.WriteString(w, fs.body)
	}))
	t.Cleanup(srv.Close)
	return openStore(t, srv.URL, 1, 5*time.Second)
}

// openStore builds a store against url. maxRetries 0 keeps the default policy.
func openStore(t *testing.T, url string, maxRetries int, timeout time.Duration) *Store {
	t.Helper()
	rc := client.New(client.Options{BaseURL: url, Timeout: timeout, ClientID: "cid", Token: "tok"})
	s, err := NewStore(api.New(rc), StoreOptions{
		ClientID:    "cid",
		UserID:      "u1",
		MaxRetries:  maxRetries,
		OfflinePath: filepath.Join(t.TempDir(), "offline.json"),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// stallingServer holds its first response until the test ends, so the
// client times out after the server has already handled the request
type stallingServer struct {
	mu      sync.Mutex
	liked   bool
	keys    []string
	release chan struct{}
}

func newStallingServer(t *testing.T, body func(ss *stallingServer) string) (*stallingServer, string) {
	t.Helper()
	ss := &stallingServer{release: make(chan struct{})}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		ss.mu.Lock()
		ss.keys = append(ss.keys, r.Header.Get(api.IdempotencyHeader))
		first := len(ss.keys) == 1
		ss.liked = !ss.liked
		out := body(ss)
		ss.mu.Unlock()
		if first {
			<-ss.release
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, out)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(ss.release) })
	return ss, srv.URL
}

func (ss *stallingServer) snapshot() (bool, []string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.liked, append([]string(nil), ss.keys...)
}

func seedFeed(s *Store) string {
	key := DiscussionListKey(api.ListParams{})
	s.Cache().Set(key, &api.DiscussionList{Discussions: []api.Discussion{{ID: "d1", LikeCount: 3}}})
	s.Cache().Set(DiscussionKey("d1"), &api.Discussion{ID: "d1", LikeCount: 3})
	return key
}

func TestStoreToggleLikeTakesServerCount(t *testing.T) {
	s := newTestStore(t, &fakeServer{status: http.StatusOK, body: `{"liked":true,"count":7}`})
	key := seedFeed(s)

	res, err := s.ToggleLike(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, res.Liked)

	v, _ := s.Cache().Get(key)
	d := v.(*api.DiscussionList).Discussions[0]
	assert.True(t, d.IsLiked)
	assert.Equal(t, 7, d.LikeCount)

	v, _ = s.Cache().Get(DiscussionKey("d1"))
	assert.Equal(t, 7, v.(*api.Discussion).LikeCount)
}

func TestStoreToggleLikeRollsBack(t *testing.T) {
	s := newTestStore(t, &fakeServer{status: http.StatusNotFound, body: `{"code":"NOT_FOUND","message":"discussion not found"}`})
	key := seedFeed(s)

	_, err := s.ToggleLike(context.Background(), "d1")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))

	v, _ := s.Cache().Get(key)
	d := v.(*api.DiscussionList).Discussions[0]
	assert.False(t, d.IsLiked)
	assert.Equal(t, 3, d.LikeCount)
}

func TestStoreProgressQueuesOfflineAndSyncs(t *testing.T) {
	fs := &fakeServer{status: http.StatusOK, body: `{"progress":{"plan_date":"2025-03-01","reading_id":1,"is_completed":true}}`}
	fs.down.Store(true)
	s := newTestStore(t, fs)
	s.Cache().Set(PlanDateKey("2025-03-01"), &api.DailyReadings{
		Date:       "2025-03-01",
		Readings:   []api.ReadingStatus{{Reading: api.Reading{ID: 1}}},
		TotalCount: 1,
	})

	_, err := s.SetReadingProgress(context.Background(), "2025-03-01", 1, true)
	assert.ErrorIs(t, err, ErrQueued)
	assert.Equal(t, 1, s.Offline().Len())

	v, _ := s.Cache().Get(PlanDateKey("2025-03-01"))
	assert.Equal(t, 1, v.(*api.DailyReadings).CompletedCount)

	fs.down.Store(false)
	before := fs.requests.Load()
	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReplayResult{Succeeded: 1}, res)
	assert.Equal(t, 0, s.Offline().Len())
	assert.Equal(t, before+1, fs.requests.Load())
	assert.True(t, s.Cache().IsStale(PlanDateKey("2025-03-01")))
}

func TestStoreCreateCommentUpdatesTree(t *testing.T) {
	s := newTestStore(t, &fakeServer{status: http.StatusCreated,
		body: `{"comment":{"id":"c9","discussion_id":"d1","content":"Amen","replies":[]}}`})
	seedFeed(s)
	s.Cache().Set(CommentsKey("d1"), []*api.Comment{})

	c, err := s.CreateComment(context.Background(), "d1", "Amen", nil)
	require.NoError(t, err)
	assert.Equal(t, "c9", c.ID)

	v, _ := s.Cache().Get(CommentsKey("d1"))
	require.Len(t, v.([]*api.Comment), 1)
	v, _ = s.Cache().Get(DiscussionKey("d1"))
	assert.Equal(t, 1, v.(*api.Discussion).CommentCount)
}

func TestStoreFeedIsCached(t *testing.T) {
	fs := &fakeServer{status: http.StatusOK, body: `{"discussions":[{"id":"d1"}],"pagination":{"page":1,"limit":20,"total":1,"total_pages":1}}`}
	s := newTestStore(t, fs)

	for i := 0; i < 3; i++ {
		list, err := s.Feed(context.Background(), api.ListParams{})
		require.NoError(t, err)
		require.Len(t, list.Discussions, 1)
	}
	assert.EqualValues(t, 1, fs.requests.Load())
}

func TestStoreToggleLikeIsNotResentAfterTimeout(t *testing.T) {
	ss, url := newStallingServer(t, func(ss *stallingServer) string {
		return fmt.Sprintf(`{"liked":%t,"count":1}`, ss.liked)
	})
	s := openStore(t, url, 0, 150*time.Millisecond)
	key := seedFeed(s)

	_, err := s.ToggleLike(context.Background(), "d1")
	require.Error(t, err)
	assert.True(t, api.IsNetworkError(err))

	liked, keys := ss.snapshot()
	assert.Len(t, keys, 1, "one press sends one request")
	assert.True(t, liked)
	assert.True(t, s.Cache().IsStale(key))
	assert.True(t, s.Cache().IsStale(DiscussionKey("d1")))
}

func TestStoreCreateDiscussionRetriesWithSameKey(t *testing.T) {
	ss, url := newStallingServer(t, func(*stallingServer) string {
		return `{"discussion":{"id":"d9","title":"Psalm 23"}}`
	})
	s := openStore(t, url, 0, 150*time.Millisecond)

	d, err := s.CreateDiscussion(context.Background(), api.DiscussionInput{Title: "Psalm 23", Content: "The Lord is my shepherd"})
	require.NoError(t, err)
	assert.Equal(t, "d9", d.ID)

	_, keys := ss.snapshot()
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
}

func TestStoreReplaySendsEntryIDAsKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	fs := &fakeServer{status: http.StatusCreated, body: `{"comment":{"id":"c1","discussion_id":"d1","content":"Amen"}}`}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fs.down.Load() {
			panic(http.ErrAbortHandler)
		}
		mu.Lock()
		keys = append(keys, r.Header.Get(api.IdempotencyHeader))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fs.status)
		_, _ = io.WriteString(w, fs.body)
	}))
	t.Cleanup(srv.Close)
	fs.down.Store(true)
	s := openStore(t, srv.URL, 1, 5*time.Second)

	_, err := s.CreateComment(context.Background(), "d1", "Amen", nil)
	require.ErrorIs(t, err, ErrQueued)
	entries := s.Offline().Entries()
	require.Len(t, entries, 1)

	fs.down.Store(false)
	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{entries[0].ID}, keys)
}
