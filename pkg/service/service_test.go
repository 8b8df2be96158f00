package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/client"
	"github.com/macchain/backend/pkg/config"
	"github.com/macchain/backend/pkg/credentials"
	"github.com/macchain/backend/pkg/output"
	"github.com/macchain/backend/pkg/prompter"
	"github.com/macchain/backend/pkg/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	path   string
	body   string
}

// apiStub answers by "METHOD /path" and records every request
type apiStub struct {
	mu     sync.Mutex
	routes map[string]string
	calls  []call
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, call{method: r.Method, path: r.URL.Path, body: string(body)})
	resp, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"NOT_FOUND","message":"not found"}`)
		return
	}
	_, _ = io.WriteString(w, resp)
}

func (s *apiStub) requests() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

type env struct {
	session *Session
	stub    *apiStub
	out     *bytes.Buffer
}

func newEnv(t *testing.T, format, input string, routes map[string]string) *env {
	t.Helper()
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
	config.Set("output.format", format)
	config.Set("sync.max_retries", 1)

	color.NoColor = true
	var out bytes.Buffer
	output.SetWriter(&out)
	t.Cleanup(func() { output.SetWriter(nil) })

	stub := &apiStub{routes: routes}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	rc := client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, ClientID: "test-client", Token: "tok"})
	creds := &credentials.Credentials{AccessToken: "tok", UserID: "u1", Username: "reader", ExpiresAt: time.Now().Add(time.Hour)}
	s := NewSessionWith(api.New(rc), creds, prompter.NewWithIO(strings.NewReader(input), io.Discard))
	t.Cleanup(s.Close)
	return &env{session: s, stub: stub, out: &out}
}

func TestRequireAuth(t *testing.T) {
	e := newEnv(t, "text", "", nil)
	e.session.Creds = nil

	err := NewPlanService(e.session).Today(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Empty(t, e.stub.requests())
}

func TestLoginSavesCredentials(t *testing.T) {
	e := newEnv(t, "text", "password123\n", map[string]string{
		"POST /api/v1/auth/login": `{"token":"jwt","expires_at":"2099-01-01T00:00:00Z","user":{"id":"u9","username":"grace","email":"grace@example.com"}}`,
	})
	e.session.Creds = nil

	require.NoError(t, NewAuthService(e.session).Login(context.Background(), "Grace@Example.com"))

	reqs := e.stub.requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"email":"grace@example.com","password":"password123"}`, reqs[0].body)

	saved, err := credentials.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "jwt", saved.AccessToken)
	assert.Equal(t, "u9", saved.UserID)
	assert.Contains(t, e.out.String(), "Signed in as grace")
}

func TestSetDoneRejectsBadDate(t *testing.T) {
	e := newEnv(t, "text", "", nil)
	err := NewPlanService(e.session).SetDone(context.Background(), "2025/03/01", 1, true)
	assert.Error(t, err)
	assert.Empty(t, e.stub.requests())
}

func TestSetDoneReportsReading(t *testing.T) {
	e := newEnv(t, "text", "", map[string]string{
		"PUT /api/v1/progress/2025-03-01/readings/12": `{"progress":{"id":"p1","plan_date":"2025-03-01","reading_id":12,"book":"Genesis","chapter":3,"is_completed":true}}`,
	})
	require.NoError(t, NewPlanService(e.session).SetDone(context.Background(), "2025-03-01", 12, true))
	assert.Contains(t, e.out.String(), "Genesis 3 marked as read")
}

func TestDeleteDiscussionDeclined(t *testing.T) {
	e := newEnv(t, "text", "n\n", nil)
	require.NoError(t, NewCommunityService(e.session).Delete(context.Background(), "d1", false))
	assert.Empty(t, e.stub.requests())
}

func TestDeleteDiscussionForced(t *testing.T) {
	e := newEnv(t, "text", "", map[string]string{
		"DELETE /api/v1/community/discussions/d1": `{"message":"deleted"}`,
	})
	require.NoError(t, NewCommunityService(e.session).Delete(context.Background(), "d1", true))
	reqs := e.stub.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodDelete, reqs[0].method)
	assert.Contains(t, e.out.String(), "Deleted d1")
}

func TestShowPrintsDiscussionAndComments(t *testing.T) {
	e := newEnv(t, "text", "", map[string]string{
		"GET /api/v1/community/discussions/d1": `{"discussion":{"id":"d1","title":"Grace","content":"Body text","like_count":2,"author":{"username":"alice"}}}`,
		"GET /api/v1/community/discussions/d1/comments": `{"comments":[
			{"id":"c1","discussion_id":"d1","content":"First","author":{"username":"bob"},
			 "replies":[{"id":"c2","discussion_id":"d1","content":"Reply","author":{"username":"carol"}}]}]}`,
	})
	require.NoError(t, NewCommunityService(e.session).Show(context.Background(), "d1"))

	text := e.out.String()
	assert.Contains(t, text, "Body text")
	assert.Contains(t, text, "@bob")
	assert.Contains(t, text, "\n    Reply\n")
}

func TestSettingUpdate(t *testing.T) {
	u, err := settingUpdate("reminder-enabled", "false")
	require.NoError(t, err)
	assert.Equal(t, api.SettingsUpdate{"reminder_enabled": false}, u)

	u, err = settingUpdate("theme", "dark")
	require.NoError(t, err)
	assert.Equal(t, api.SettingsUpdate{"theme": "dark"}, u)

	_, err = settingUpdate("email_enabled", "sometimes")
	assert.Error(t, err)

	_, err = settingUpdate("password", "x")
	assert.ErrorContains(t, err, "unknown setting")
}

func TestSettingsSetSendsTypedValue(t *testing.T) {
	e := newEnv(t, "json", "", map[string]string{
		"PUT /api/v1/settings": `{"settings":{"notifications_enabled":false,"theme":"light"}}`,
	})
	require.NoError(t, NewSettingsService(e.session).Set(context.Background(), "notifications_enabled", "no"))
	reqs := e.stub.requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"notifications_enabled":false}`, reqs[0].body)
}

func TestAcceptNeedsSomething(t *testing.T) {
	e := newEnv(t, "text", "", nil)
	err := NewSettingsService(e.session).Accept(context.Background(), false, false, nil)
	assert.Error(t, err)
	assert.Empty(t, e.stub.requests())
}

func TestSyncWithEmptyQueue(t *testing.T) {
	e := newEnv(t, "text", "", nil)
	require.NoError(t, NewSyncService(e.session).Sync(context.Background()))
	assert.Contains(t, e.out.String(), "Nothing to sync")
	assert.Empty(t, e.stub.requests())
}

func TestWatchResyncReplaysAndRefreshesFeed(t *testing.T) {
	e := newEnv(t, "text", "", map[string]string{
		"POST /api/v1/community/discussions/d1/comments": `{"comment":{"id":"c1","discussion_id":"d1","content":"Amen"}}`,
		"GET /api/v1/community/discussions":              `{"discussions":[{"id":"d1","title":"Psalm 23"}],"pagination":{"page":1,"limit":20,"total":1,"total_pages":1}}`,
	})
	st, err := e.session.Store()
	require.NoError(t, err)
	entry, err := syncer.NewOfflineEntry(syncer.KindCreateComment, map[string]string{"discussion_id": "d1", "content": "Amen"})
	require.NoError(t, err)
	require.NoError(t, st.Offline().Add(*entry))
	key := syncer.DiscussionListKey(api.ListParams{Page: 1})
	st.Cache().Set(key, &api.DiscussionList{})

	NewWatchService(e.session).resync(context.Background(), st, true)

	assert.Equal(t, 0, st.Offline().Len())
	assert.Contains(t, e.out.String(), "Synced 1 offline change")
	v, _ := st.Cache().Get(key)
	require.Len(t, v.(*api.DiscussionList).Discussions, 1)
	assert.False(t, st.Cache().IsStale(key))

	var paths []string
	for _, r := range e.stub.requests() {
		paths = append(paths, r.method+" "+r.path)
	}
	assert.Equal(t, []string{
		"POST /api/v1/community/discussions/d1/comments",
		"GET /api/v1/community/discussions",
	}, paths)
}

func TestNotificationsReadAll(t *testing.T) {
	e := newEnv(t, "text", "", map[string]string{
		"PUT /api/v1/notifications/read-all": `{"updated":3}`,
	})
	require.NoError(t, NewNotificationService(e.session).ReadAll(context.Background()))
	assert.Contains(t, e.out.String(), "Marked 3 notifications as read")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "태초에 하나...", truncate("태초에 하나님이", 6))
	assert.Equal(t, "a b", truncate("a\nb", 10))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "-", ago(time.Time{}))
	assert.Equal(t, "just now", ago(time.Now()))
	assert.Equal(t, "5m ago", ago(time.Now().Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "3d ago", ago(time.Now().Add(-73*time.Hour)))
}
