package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/util"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Name string
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket for a request; defaults to the client IP
	KeyFunc func(c *gin.Context) string
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// DefaultRateLimitConfig returns the global per-IP limit
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:    "global",
		Limit:   100,
		Window:  time.Minute,
		KeyFunc: clientIPKey,
	}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:    "auth",
		Limit:   10,
		Window:  time.Minute,
		KeyFunc: clientIPKey,
	}
}

// UploadRateLimitConfig returns limits for avatar uploads
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:    "upload",
		Limit:   20,
		Window:  time.Minute,
		KeyFunc: clientIPKey,
	}
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Full reports whether the bucket has refilled completely
func (tb *TokenBucket) Full() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	return tb.tokens >= tb.maxTokens
}

// GetRetryAfter returns seconds to wait before next request
func (tb *TokenBucket) GetRetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		timeToToken := (1 - tb.tokens) / tb.refillRate
		return int(timeToToken) + 1
	}
	return 0
}

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitConfig
	mu      sync.Mutex
}

func newRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = clientIPKey
	}
	if config.Name == "" {
		config.Name = "custom"
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}
}

// NewRateLimiter creates a new in-memory rate limiting middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	rl := newRateLimiter(config)
	return rl.handle
}

func (rl *RateLimiter) handle(c *gin.Context) {
	key := rl.config.KeyFunc(c)
	if !rl.Allow(key) {
		retryAfter := rl.GetRetryAfter(key)
		RecordRateLimitExceeded(rl.config.Name, c.FullPath())
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", "0")
		util.RespondWithAPIError(c, errors.RateLimited("").WithDetails("retry after "+strconv.Itoa(retryAfter)+"s"))
		return
	}
	c.Next()
}

// Allow checks if a key is allowed to make a request
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		if len(rl.buckets) > 10000 {
			rl.pruneLocked()
		}
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		bucket = NewTokenBucket(float64(rl.config.Limit), refillRate)
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	return bucket.Allow()
}

// pruneLocked drops buckets that have fully refilled; they behave exactly
// like fresh ones.
func (rl *RateLimiter) pruneLocked() {
	for key, bucket := range rl.buckets {
		if bucket.Full() {
			delete(rl.buckets, key)
		}
	}
}

// GetRetryAfter gets retry-after seconds for a key
func (rl *RateLimiter) GetRetryAfter(key string) int {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	rl.mu.Unlock()
	if !exists {
		return 1
	}
	return bucket.GetRetryAfter()
}

// RateLimit returns the global limiter with a per-minute budget
func RateLimit(perMinute int) gin.HandlerFunc {
	cfg := DefaultRateLimitConfig()
	if perMinute > 0 {
		cfg.Limit = perMinute
	}
	return NewRateLimiter(cfg)
}

// RateLimitAuth limits auth endpoints through Redis when it is connected
func RateLimitAuth() gin.HandlerFunc {
	return RedisRateLimitMiddleware(AuthRateLimitConfig())
}

// RateLimitUpload limits avatar uploads
func RateLimitUpload() gin.HandlerFunc {
	return RedisRateLimitMiddleware(UploadRateLimitConfig())
}
