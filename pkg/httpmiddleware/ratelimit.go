package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client fixed window rate limiter.
type RateLimitConfig struct {
	// Max requests allowed per window.
	Max int
	// Window duration. Counters reset at window boundaries.
	Window time.Duration
	// KeyFunc derives the limiter key from a request. Defaults to client IP.
	KeyFunc func(*http.Request) string
}

type window struct {
	start time.Time
	count int
}

type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*window
}

// allow increments the counter for key and reports whether the request fits
// in the current window.
func (l *limiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.cfg.Window {
		w = &window{start: now}
		l.windows[key] = w
	}
	resetAt = w.start.Add(l.cfg.Window)

	if w.count >= l.cfg.Max {
		return 0, resetAt, false
	}
	w.count++
	return l.cfg.Max - w.count, resetAt, true
}

func (l *limiter) evictStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.windows, key)
		}
	}
}

// RateLimit enforces a per-client request ceiling. Rejected requests get a
// 429 with Retry-After. A background goroutine evicts idle clients until ctx
// is cancelled.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	l := &limiter{cfg: cfg, windows: make(map[string]*window)}

	go func() {
		ticker := time.NewTicker(cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evictStale(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := l.allow(cfg.KeyFunc(r), time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retry := int(time.Until(resetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
