package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func do(h http.Handler, method, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 5, CleanupMinutes: 1})
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 5; i++ {
		rr := do(handler, "GET", "/api/v1/projects", "192.168.1.100:12345")
		assert.Equal(t, http.StatusOK, rr.Code, "request %d should succeed", i+1)
	}
}

func TestRateLimiter_BlocksExcessRequests(t *testing.T) {
	rl := New(Config{Enabled: true, RequestsPerMin: 30, BurstSize: 2, CleanupMinutes: 1})
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 2; i++ {
		do(handler, "GET", "/api/v1/projects", "192.168.1.100:12345")
	}
	rr := do(handler, "GET", "/api/v1/projects", "192.168.1.100:12345")

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body["detail"])
}

func TestRateLimiter_SeparateLimitsPerIP(t *testing.T) {
	rl := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 2, CleanupMinutes: 1})
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 3; i++ {
		do(handler, "GET", "/api/v1/projects", "192.168.1.100:12345")
	}
	assert.Equal(t, http.StatusTooManyRequests, do(handler, "GET", "/api/v1/projects", "192.168.1.100:12345").Code)
	assert.Equal(t, http.StatusOK, do(handler, "GET", "/api/v1/projects", "192.168.1.101:12345").Code)
}

func TestRateLimiter_ExemptRequests(t *testing.T) {
	rl := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 1, CleanupMinutes: 1})
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		for i := 0; i < 10; i++ {
			rr := do(handler, "GET", path, "192.168.1.100:12345")
			assert.Equal(t, http.StatusOK, rr.Code, "probe %s request %d should not be limited", path, i+1)
		}
	}
	for i := 0; i < 10; i++ {
		rr := do(handler, "OPTIONS", "/api/v1/projects", "192.168.1.100:12345")
		assert.Equal(t, http.StatusOK, rr.Code, "preflight %d should not be limited", i+1)
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	handler := Middleware(Config{Enabled: false, RequestsPerMin: 1, BurstSize: 1})(okHandler())

	for i := 0; i < 100; i++ {
		assert.Equal(t, http.StatusOK, do(handler, "GET", "/api/v1/projects", "192.168.1.100:12345").Code)
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := New(Config{Enabled: true, RequestsPerMin: 6000, BurstSize: 100, CleanupMinutes: 1})
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				do(handler, "GET", "/api/v1/projects", "192.168.1.100:12345")
			}
		}()
	}
	wg.Wait()
}

func TestRateLimiter_PruneIdle(t *testing.T) {
	rl := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 5, CleanupMinutes: 1})
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.allow("203.0.113.1")
	now = now.Add(30 * time.Second)
	rl.allow("203.0.113.2")

	now = now.Add(45 * time.Second)
	rl.pruneIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "203.0.113.1")
	assert.Contains(t, rl.clients, "203.0.113.2")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 1})
	rl.Stop()
	rl.Stop()
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(1))
	assert.Equal(t, "2", retryAfterSeconds(0.5))
	assert.Equal(t, "1", retryAfterSeconds(100))
	assert.Equal(t, "60", retryAfterSeconds(0))
}
