package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"pillscare/internal/utils"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per acting user, falling back to the
// client address for anonymous requests.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	idle     time.Duration
	metrics  *utils.MetricsCollector
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int, metrics *utils.MetricsCollector) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		metrics:  metrics,
	}
}

func (l *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
		// Prune on growth so abandoned keys go away without a janitor goroutine.
		if len(l.limiters)%1024 == 0 {
			for k, other := range l.limiters {
				if now.Sub(other.lastSeen) > l.idle {
					delete(l.limiters, k)
				}
			}
		}
	}
	e.lastSeen = now
	return e.limiter
}

// Allow reports whether key may make another request now.
func (l *RateLimiter) Allow(key string) bool {
	return l.get(key, time.Now()).Allow()
}

func requestKey(r *http.Request) string {
	if id, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

// Middleware rejects requests over the limit with 429. Install it after
// authentication so buckets are per user.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(requestKey(r)) {
			if l.metrics != nil {
				l.metrics.IncrementErrors()
			}
			w.Header().Set("Retry-After", "1")
			WriteError(w, utils.NewAppError(utils.ErrTooManyRequests, "Too many requests, slow down", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
