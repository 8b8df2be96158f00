package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/macchain/backend/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
	header http.Header
}

func newTestClient(t *testing.T, status int, response string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.method = r.Method
		rec.path = r.URL.EscapedPath()
		rec.query = r.URL.RawQuery
		rec.body = string(body)
		rec.header = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	rc := client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, ClientID: "cid", Token: "tok"})
	return New(rc), rec
}

func TestLogin(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK,
		`{"token":"jwt","expires_at":"2025-03-02T09:00:00Z","user":{"id":"u1","username":"alice"}}`)

	resp, err := c.Login(context.Background(), "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/v1/auth/login", rec.path)
	assert.JSONEq(t, `{"email":"alice@example.com","password":"password123"}`, rec.body)
	assert.Equal(t, "cid", rec.header.Get("X-Client-ID"))
}

func TestErrorBodyIsParsed(t *testing.T) {
	c, _ := newTestClient(t, http.StatusForbidden,
		`{"code":"LOCKED","message":"discussion is locked","field":"discussion"}`)

	_, err := c.CreateComment(context.Background(), "d1", "hello", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "LOCKED", apiErr.Code)
	assert.Equal(t, "discussion", apiErr.Field)
	assert.True(t, IsForbidden(err))
	assert.False(t, IsRetryable(err))
}

func TestNonJSONErrorBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadGateway, ``)
	_, err := c.Today(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNKNOWN_ERROR", apiErr.Code)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.True(t, IsRetryable(err))
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(client.New(client.Options{BaseURL: url, Timeout: time.Second}))
	_, err := c.Today(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, IsPreSendError(err))
	assert.False(t, IsNotFound(err))
}

func TestTimeoutIsNotPreSend(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := New(client.New(client.Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}))
	_, err := c.ToggleDiscussionLike(context.Background(), "d1")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.False(t, IsPreSendError(err))
	assert.False(t, IsPreSendError(&APIError{StatusCode: http.StatusBadGateway}))
}

func TestIdempotencyKeyHeader(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{"discussion":{"id":"d1"}}`)

	ctx := WithIdempotencyKey(context.Background(), "entry-1")
	_, err := c.CreateDiscussion(ctx, DiscussionInput{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "entry-1", rec.header.Get(IdempotencyHeader))

	_, err = c.CreateDiscussion(context.Background(), DiscussionInput{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Empty(t, rec.header.Get(IdempotencyHeader))
}

func TestSetReadingProgress(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK,
		`{"progress":{"plan_date":"2025-03-01","reading_id":2,"is_completed":false}}`)

	p, err := c.SetReadingProgress(context.Background(), "2025-03-01", 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ReadingID)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/v1/progress/2025-03-01/readings/2", rec.path)
	assert.JSONEq(t, `{"completed":false}`, rec.body)
}

func TestListDiscussionsQuery(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK,
		`{"discussions":[{"id":"d1","title":"t","like_count":2,"author":{"username":"bob"}}],"pagination":{"page":2,"limit":5,"total":6,"total_pages":2}}`)

	list, err := c.ListDiscussions(context.Background(), ListParams{Page: 2, Limit: 5, Sort: "popular", CategoryID: "c1"})
	require.NoError(t, err)
	require.Len(t, list.Discussions, 1)
	assert.Equal(t, "bob", list.Discussions[0].Author.Username)
	assert.Equal(t, 2, list.Pagination.TotalPages)
	assert.Equal(t, "category_id=c1&limit=5&page=2&sort=popular", rec.query)
}

func TestAnalyzeVerseEscapesBook(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"book":"창세기","chapter":1,"verse":1,"key_words":["태초"]}`)

	v, err := c.AnalyzeVerse(context.Background(), "창세기", 1, 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"태초"}, v.KeyWords)
	assert.Equal(t, "/api/v1/analysis/verse/%EC%B0%BD%EC%84%B8%EA%B8%B0/1/1", rec.path)
	assert.Empty(t, rec.body)
}

func TestSetTokenClears(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"categories":[]}`)
	c.SetToken("")

	_, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.header.Get("Authorization"))

	c.SetToken("next")
	_, err = c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer next", rec.header.Get("Authorization"))
}
