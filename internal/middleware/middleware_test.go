package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notes/internal/metrics"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(Logger(logger))
	r.Get("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	line := buf.String()
	assert.Contains(t, line, `msg="request completed"`)
	assert.Contains(t, line, "method=GET")
	assert.Contains(t, line, "path=/teapot")
	assert.Contains(t, line, "status=418")
	assert.Contains(t, line, "bytes=15")
	assert.Contains(t, line, "requestID=")
	assert.NotContains(t, line, `requestID=""`)
}

func TestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), "status=200")
	assert.Contains(t, buf.String(), "level=INFO")
}

func newLimitedHandler(l *RateLimiter) http.Handler {
	return l.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/add", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	limiter := NewRateLimiter(0.001, 2, logger)
	h := newLimitedHandler(limiter)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, requestFrom("203.0.113.7:51000"))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// Same IP on a different port shares the bucket.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestFrom("203.0.113.7:51001"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Another client has its own bucket.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestFrom("198.51.100.1:4000"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRateLimiter_SweepDropsIdleClients(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	limiter := NewRateLimiter(1, 1, logger)

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	limiter.allow("203.0.113.7")
	clock = clock.Add(30 * time.Minute)
	limiter.allow("198.51.100.1")

	clock = clock.Add(45 * time.Minute)
	assert.Equal(t, 1, limiter.sweep())

	_, stale := limiter.limiters.Load("203.0.113.7")
	_, fresh := limiter.limiters.Load("198.51.100.1")
	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.7:51000": "203.0.113.7",
		"[2001:db8::1]:443": "2001:db8::1",
		"203.0.113.7":       "203.0.113.7", // already stripped by RealIP
	}
	for addr, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		assert.Equal(t, want, clientIP(req), addr)
	}
}

func counterValue(t *testing.T, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.HTTPRequests.WithLabelValues(labels...).Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Delete("/delete/{note_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	before := counterValue(t, "/delete/{note_id}", http.MethodDelete, "403")

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/delete/"+id, nil))
	}

	assert.Equal(t, before+2, counterValue(t, "/delete/{note_id}", http.MethodDelete, "403"))
}
