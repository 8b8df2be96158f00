package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	users map[string]*models.User
}

func (s stubValidator) ValidateToken(token string) (*models.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

func newValidator() stubValidator {
	return stubValidator{users: map[string]*models.User{
		"reader-token": {ID: "u1", Username: "reader"},
		"admin-token":  {ID: "u2", Username: "admin", IsAdmin: true},
	}}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"abc":         "abc",
		"":            "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(c), header)
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(newValidator()), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	router.GET("/admin", AuthMiddleware(newValidator()), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"bad token", "/me", "nope", http.StatusUnauthorized},
		{"valid token", "/me", "reader-token", http.StatusOK},
		{"non admin", "/admin", "reader-token", http.StatusForbidden},
		{"admin", "/admin", "admin-token", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OptionalAuthMiddleware(newValidator()))
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "viewer=%s", c.GetString("user_id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "viewer=", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer reader-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "viewer=u1", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("client_id"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Client-ID", "tab-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "tab-1", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "given", w.Header().Get("X-Request-ID"))
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := metrics.Initialize()
	m.HTTPRequestsTotal.Reset()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/plan/day/:day", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/plan/day/1", "/plan/day/2", "/boom"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/plan/day/:day", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/boom", "500")))
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestResponseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := cache.Connect(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { cache.SetRedisClient(nil) })

	calls := 0
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/categories", ResponseCacheMiddleware(time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	router.POST("/discussions", CacheInvalidationMiddleware("response:/categories*"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories", nil))
		return w
	}

	first := get()
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get()
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/discussions", nil))
	third := get()
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}
