package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doGet(router http.Handler, clientID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  3,
		Window: time.Second,
	}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(router, "").Code, "Request %d should succeed", i+1)
	}

	w := doGet(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	time.Sleep(time.Second + 100*time.Millisecond)
	assert.Equal(t, http.StatusOK, doGet(router, "").Code, "Request after window should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  2,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client-ID")
		},
	}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doGet(router, "client-a").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doGet(router, "client-a").Code, "Client A should be rate limited")
	assert.Equal(t, http.StatusOK, doGet(router, "client-b").Code, "Client B should not be rate limited")
}

func TestDefaultConfigs(t *testing.T) {
	defaultConfig := DefaultRateLimitConfig()
	assert.Equal(t, 100, defaultConfig.Limit)
	assert.Equal(t, time.Minute, defaultConfig.Window)
	assert.NotNil(t, defaultConfig.KeyFunc)

	authConfig := AuthRateLimitConfig()
	assert.Equal(t, 10, authConfig.Limit)
	assert.Equal(t, "auth", authConfig.Name)

	uploadConfig := UploadRateLimitConfig()
	assert.Equal(t, 20, uploadConfig.Limit)
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := cache.Connect(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { cache.SetRedisClient(nil) })

	router := newLimitedRouter(RedisRateLimitMiddleware(RateLimitConfig{
		Name:   "auth",
		Limit:  2,
		Window: time.Minute,
	}))

	assert.Equal(t, http.StatusOK, doGet(router, "").Code)
	w := doGet(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = doGet(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "rate_limit:auth:")
	assert.True(t, mr.TTL(keys[0]) > 0)
}

func TestRedisRateLimitFallsBackToMemory(t *testing.T) {
	cache.SetRedisClient(nil)
	router := newLimitedRouter(RedisRateLimitMiddleware(RateLimitConfig{
		Name:   "auth",
		Limit:  1,
		Window: time.Minute,
	}))

	assert.Equal(t, http.StatusOK, doGet(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(router, "").Code)
}
