package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/notes/internal/metrics"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = time.Hour
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimiter is a per-client token bucket, keyed by IP address.
//
// Buckets live in a sync.Map; a background loop drops the ones idle for
// more than an hour. Run that loop with Cleanup.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	limiters sync.Map // ip → *limiterEntry
	logger   *slog.Logger
	now      func() time.Time
}

// NewRateLimiter allows each client rps requests per second on average,
// with bursts of up to burst requests.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		rps:    rate.Limit(rps),
		burst:  burst,
		logger: logger,
		now:    time.Now,
	}
}

// Handler rejects requests over the limit with 429 Too Many Requests.
//
// The client is identified by r.RemoteAddr. Behind a proxy, put chi's
// RealIP middleware in front so RemoteAddr carries X-Forwarded-For.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !l.allow(ip) {
			metrics.RateLimited.Inc()
			l.logger.Warn("too many requests",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(ip string) bool {
	value, ok := l.limiters.Load(ip)
	if !ok {
		value, _ = l.limiters.LoadOrStore(ip, &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)})
	}
	entry := value.(*limiterEntry)
	entry.lastSeen.Store(l.now().UnixNano())
	return entry.limiter.Allow()
}

// Cleanup drops idle buckets every few minutes until ctx is cancelled.
func (l *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep removes buckets not used within limiterIdleTTL and returns how many
// it removed.
func (l *RateLimiter) sweep() int {
	cutoff := l.now().Add(-limiterIdleTTL).UnixNano()
	removed := 0

	l.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		l.logger.Debug("rate limiter: dropped idle clients", slog.Int("count", removed))
	}
	return removed
}

// clientIP strips the port from r.RemoteAddr. chi's RealIP may already
// have replaced it with a bare address, which is returned as-is.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
