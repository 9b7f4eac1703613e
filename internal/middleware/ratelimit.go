package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/darkden-lab/tableside/internal/httputil"
	"github.com/darkden-lab/tableside/internal/metrics"
)

const (
	limiterSweepInterval = time.Minute
	limiterIdleTimeout   = 3 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (l *ipLimiter) touch(now time.Time) {
	l.mu.Lock()
	l.lastSeen = now
	l.mu.Unlock()
}

func (l *ipLimiter) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.lastSeen)
}

// rateLimiterStore keeps one token bucket per client address until the
// address goes quiet.
type rateLimiterStore struct {
	limiters sync.Map
	rps      float64
	burst    int
}

func newRateLimiterStore(ctx context.Context, rps float64, burst int) *rateLimiterStore {
	s := &rateLimiterStore{rps: rps, burst: burst}
	go s.sweep(ctx)
	return s
}

func (s *rateLimiterStore) limiterFor(ip string) *rate.Limiter {
	now := time.Now()

	if v, ok := s.limiters.Load(ip); ok {
		entry := v.(*ipLimiter)
		entry.touch(now)
		return entry.limiter
	}

	entry := &ipLimiter{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst), lastSeen: now}
	actual, loaded := s.limiters.LoadOrStore(ip, entry)
	if loaded {
		existing := actual.(*ipLimiter)
		existing.touch(now)
		return existing.limiter
	}
	return entry.limiter
}

func (s *rateLimiterStore) sweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

func (s *rateLimiterStore) evictIdle(now time.Time) {
	s.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiter).idleSince(now) > limiterIdleTimeout {
			s.limiters.Delete(key)
		}
		return true
	})
}

// clientIP extracts the client IP address from the request, checking
// X-Forwarded-For first, then falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RateLimitMiddleware enforces a per-IP token bucket of rps sustained
// requests and the given burst. A waiter socket upgrade counts once. The
// idle sweeper stops with ctx.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int) mux.MiddlewareFunc {
	store := newRateLimiterStore(ctx, rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.limiterFor(clientIP(r)).Allow() {
				metrics.RateLimitedTotal.Inc()
				httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
