package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowCounter struct {
	start time.Time
	count int64
}

type memoryStore struct {
	mu      sync.Mutex
	windows map[string]*windowCounter
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{windows: make(map[string]*windowCounter)}
}

func (s *memoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	w, ok := s.windows[key]
	if !ok || !w.start.After(now.Add(-window)) {
		s.windows[key] = &windowCounter{start: now, count: 1}
		return 1, nil
	}
	w.count++
	return w.count, nil
}

func TestLimiterAllowsWithinLimit(t *testing.T) {
	store := newMemoryStore()
	limiter := NewLimiter(store, Config{MaxRequests: 3, Window: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		decision := limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com")
		assert.True(t, decision.Allowed, "request %d should be allowed", i+1)
	}
}

func TestLimiterRejectsWithFullWindowRetryAfter(t *testing.T) {
	store := newMemoryStore()
	limiter := NewLimiter(store, Config{MaxRequests: 5, Window: 10 * time.Minute}, nil)
	limiter.now = func() time.Time { return time.Date(2026, 3, 1, 12, 3, 30, 0, time.UTC) }

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Allow(context.Background(), "oauth:10.0.0.1").Allowed)
	}
	decision := limiter.Allow(context.Background(), "oauth:10.0.0.1")

	require.False(t, decision.Allowed)
	assert.Equal(t, int64(6), decision.Count)
	assert.Equal(t, int64(5), decision.Limit)
	assert.Equal(t, 10*time.Minute, decision.RetryAfter)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	store := newMemoryStore()
	limiter := NewLimiter(store, Config{MaxRequests: 1, Window: time.Minute}, nil)

	first := limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com")
	second := limiter.Allow(context.Background(), "webhook:shop-b.myshopify.com")

	assert.True(t, first.Allowed)
	assert.True(t, second.Allowed)
}

func TestLimiterWindowAnchorsAtFirstRequest(t *testing.T) {
	store := newMemoryStore()
	limiter := NewLimiter(store, Config{MaxRequests: 2, Window: time.Minute}, nil)

	// A burst straddling a wall-clock minute boundary still counts against a
	// single window
	now := time.Date(2026, 3, 1, 12, 0, 59, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com").Allowed)
	now = now.Add(2 * time.Second)
	assert.True(t, limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com").Allowed)
	now = now.Add(2 * time.Second)
	assert.False(t, limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com").Allowed)
}

func TestLimiterExpiredWindowResetsCount(t *testing.T) {
	store := newMemoryStore()
	limiter := NewLimiter(store, Config{MaxRequests: 1, Window: time.Minute}, nil)

	now := time.Date(2026, 3, 1, 12, 0, 59, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com").Allowed)
	assert.False(t, limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com").Allowed)

	// A full window after the first request, the counter starts over
	now = now.Add(time.Minute + time.Second)
	decision := limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com")
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(1), decision.Count)
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("connection refused")
	limiter := NewLimiter(store, Config{MaxRequests: 1, Window: time.Minute}, nil)

	for i := 0; i < 5; i++ {
		decision := limiter.Allow(context.Background(), "webhook:shop-a.myshopify.com")
		assert.True(t, decision.Allowed)
	}
}

func TestLimiterDefaultsApplied(t *testing.T) {
	limiter := NewLimiter(newMemoryStore(), Config{}, nil)

	assert.Equal(t, int64(120), limiter.config.MaxRequests)
	assert.Equal(t, time.Minute, limiter.config.Window)
}

func TestMiddlewareScopesKeysByCallerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemoryStore()
	limiter := NewLimiter(store, Config{MaxRequests: 1, Window: 10 * time.Minute}, nil)

	router := gin.New()
	router.GET("/oauth/install", Middleware(limiter, FixedKey("oauth"), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(ip string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/oauth/install", nil)
		req.RemoteAddr = ip + ":443"
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)

	// Same logical key, different caller: its own budget
	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)

	denied := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "600", denied.Header().Get("Retry-After"))
}

func TestKeyByShopDomainSkipsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemoryStore()
	limiter := NewLimiter(store, Config{MaxRequests: 1, Window: time.Minute}, nil)

	router := gin.New()
	router.POST("/webhooks/orders", Middleware(limiter, KeyByShopDomain, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/orders", nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, store.windows)
}
