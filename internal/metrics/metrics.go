// Package metrics declares the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry at init via promauto,
// so promhttp.Handler() serves them without further wiring.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notes_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notes_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notes_http_rate_limited_total",
		Help: "Requests rejected with 429 by the per-IP rate limiter.",
	})

	NotesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notes_created_total",
		Help: "Notes written, through the web or the CLI.",
	})

	NotesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notes_deleted_total",
		Help: "Notes deleted by their author.",
	})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notes_logins_total",
		Help: "Login attempts by outcome (existing, created, failed).",
	}, []string{"outcome"})
)

// sessionCount is read by SessionsActive at scrape time.
var sessionCount atomic.Value // func() int

// SessionsActive reports the size of the session registry passed to
// TrackSessions, or 0 before that.
var SessionsActive = promauto.NewGaugeFunc(prometheus.GaugeOpts{
	Name: "notes_sessions_active",
	Help: "Sessions currently held in memory.",
}, func() float64 {
	if fn, ok := sessionCount.Load().(func() int); ok && fn != nil {
		return float64(fn())
	}
	return 0
})

// TrackSessions makes SessionsActive report fn. The last call wins; nil
// resets the gauge to 0.
func TrackSessions(fn func() int) {
	sessionCount.Store(fn)
}
