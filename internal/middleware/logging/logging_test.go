package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/codefund/internal/middleware/realip"
)

// testHandler returns a handler that writes a response with the given status and body
func testHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestMiddleware_LogsRequests(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newTestLogger(&logBuf))(testHandler(http.StatusOK, "hello"))

	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())

	entry := decodeEntry(t, &logBuf)
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/v1/projects", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, float64(5), entry["bytes"])
	assert.Contains(t, entry, "duration")
	assert.Equal(t, "192.168.1.100", entry["client_ip"])
}

func TestMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
	}{
		{name: "ok", path: "/api/v1/projects", status: http.StatusOK, wantLevel: "INFO"},
		{name: "not found", path: "/api/v1/projects/0x1", status: http.StatusNotFound, wantLevel: "WARN"},
		{name: "upstream failure", path: "/api/v1/projects", status: http.StatusInternalServerError, wantLevel: "ERROR"},
		{name: "probe", path: "/healthz", status: http.StatusOK, wantLevel: "DEBUG"},
		{name: "failing probe", path: "/readyz", status: http.StatusServiceUnavailable, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			handler := Middleware(newTestLogger(&logBuf))(testHandler(tt.status, ""))

			req := httptest.NewRequest("GET", tt.path, nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantLevel, decodeEntry(t, &logBuf)["level"])
		})
	}
}

func TestMiddleware_LogsRoutePattern(t *testing.T) {
	var logBuf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Middleware(newTestLogger(&logBuf)))
	r.Get("/api/v1/projects/{address}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/projects/0xabc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeEntry(t, &logBuf)
	assert.Equal(t, "/api/v1/projects/{address}", entry["route"])
	assert.Equal(t, "/api/v1/projects/0xabc", entry["path"])
}

func TestMiddleware_IncludesRequestID(t *testing.T) {
	var logBuf bytes.Buffer
	handler := middleware.RequestID(Middleware(newTestLogger(&logBuf))(testHandler(http.StatusOK, "")))

	req := httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeEntry(t, &logBuf)
	assert.NotEmpty(t, entry["request_id"])
}

func TestMiddleware_HandlesContextWithRequestID(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newTestLogger(&logBuf))(testHandler(http.StatusOK, ""))

	req := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id-123")
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	assert.Equal(t, "test-request-id-123", decodeEntry(t, &logBuf)["request_id"])
}

func TestMiddleware_UsesRealIPFromContext(t *testing.T) {
	var logBuf bytes.Buffer
	realipMiddleware := realip.Middleware(realip.Config{
		TrustProxy:     true,
		TrustedProxies: []string{"10.0.0.0/8"},
	})
	handler := realipMiddleware(Middleware(newTestLogger(&logBuf))(testHandler(http.StatusOK, "")))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.50", decodeEntry(t, &logBuf)["client_ip"])
}

func TestMiddleware_DefaultStatus200(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newTestLogger(&logBuf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no explicit status"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, float64(http.StatusOK), decodeEntry(t, &logBuf)["status"])
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, status: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusNotFound, rw.status, "second WriteHeader is ignored")

	n, err := rw.Write([]byte("test"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, _ = rw.Write([]byte("more"))
	assert.Equal(t, 8, rw.bytes)
	assert.Equal(t, rr, rw.Unwrap())
}
