package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idempotentRouter(status int, created *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/discussions",
		func(c *gin.Context) { c.Set("user_id", c.GetHeader("X-User")); c.Next() },
		IdempotencyMiddleware(),
		func(c *gin.Context) {
			*created++
			c.JSON(status, gin.H{"n": *created})
		})
	return router
}

func postWithKey(router *gin.Engine, user, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/discussions", nil)
	req.Header.Set("X-User", user)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	cache.SetRedisClient(nil)
	created := 0
	router := idempotentRouter(http.StatusCreated, &created)

	first := postWithKey(router, "u1", "entry-1")
	second := postWithKey(router, "u1", "entry-1")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(IdempotencyReplayed))
	assert.Equal(t, 1, created)

	// other users and missing keys are not deduplicated
	postWithKey(router, "u2", "entry-1")
	postWithKey(router, "u1", "")
	postWithKey(router, "u1", "")
	assert.Equal(t, 4, created)
}

func TestIdempotencyReleasesFailedRequests(t *testing.T) {
	cache.SetRedisClient(nil)
	created := 0
	router := idempotentRouter(http.StatusInternalServerError, &created)

	postWithKey(router, "u1", "entry-1")
	postWithKey(router, "u1", "entry-1")
	assert.Equal(t, 2, created)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newMemoryIdempotencyStore()
	require.True(t, store.claim(t.Context(), "k"))
	assert.False(t, store.claim(t.Context(), "k"))

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/discussions", nil)
	c.Request.Header.Set(IdempotencyHeader, "k")
	require.True(t, store.claim(t.Context(), cache.Key("idempotency", "", "/discussions", "k")))
	handleIdempotent(c, store)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotencyWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := cache.Connect(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { cache.SetRedisClient(nil) })

	created := 0
	router := idempotentRouter(http.StatusCreated, &created)
	postWithKey(router, "u1", "entry-9")
	second := postWithKey(router, "u1", "entry-9")

	assert.Equal(t, 1, created)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.True(t, mr.Exists("idempotency:u1:/discussions:entry-9"))
}
