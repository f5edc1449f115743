package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures a sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero disables limiting.
	Max    int
	Window time.Duration
	// Key extracts the client key. Defaults to the client IP.
	Key func(*http.Request) string
}

// window counts requests of one key in the current and previous windows.
type window struct {
	prev, curr float64
	start      time.Time
}

// Limiter is a per-key sliding window rate limiter.
type Limiter struct {
	cfg RateLimitConfig

	mu   sync.Mutex
	keys map[string]*window
}

// NewLimiter creates a Limiter.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.Key == nil {
		cfg.Key = ClientIP
	}
	return &Limiter{cfg: cfg, keys: make(map[string]*window)}
}

// Allow records a request of key at now. It returns the requests left in the
// window, when the window resets, and whether the request is allowed.
func (l *Limiter) Allow(key string, now time.Time) (left int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.cfg.Window
	w, found := l.keys[key]
	if !found {
		w = &window{start: now.Truncate(size)}
		l.keys[key] = w
	}
	if elapsed := now.Sub(w.start); elapsed >= size {
		w.prev = w.curr
		if elapsed >= 2*size {
			w.prev = 0
		}
		w.curr = 0
		w.start = now.Truncate(size)
	}

	// The previous window counts in proportion to its overlap with the
	// sliding window ending at now.
	overlap := max(0, 1-now.Sub(w.start).Seconds()/size.Seconds())
	count := w.prev*overlap + w.curr
	reset = w.start.Add(size)

	if count >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	w.curr++
	return max(0, int(float64(l.cfg.Max)-count-1)), reset, true
}

// AllowRequest records r under the limiter key and reports whether it is
// within the limit. It is meant for messages that arrive outside the HTTP
// request cycle, such as frames on an upgraded connection; r is the request
// that opened the connection. A disabled limiter allows everything.
func (l *Limiter) AllowRequest(r *http.Request, now time.Time) bool {
	if l == nil || l.cfg.Max <= 0 {
		return true
	}
	_, _, ok := l.Allow(l.cfg.Key(r), now)
	return ok
}

// Evict drops keys idle for two windows.
func (l *Limiter) Evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.keys {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.keys, key)
		}
	}
}

// Run evicts idle keys every two windows until ctx is done. A disabled
// limiter just waits for ctx.
func (l *Limiter) Run(ctx context.Context) error {
	if l.cfg.Max <= 0 || l.cfg.Window <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.Evict(now)
		}
	}
}

// Middleware rejects requests over the limit with 429 and sets the
// X-RateLimit-* headers on every response.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if l.cfg.Max <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			left, reset, ok := l.Allow(l.cfg.Key(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				retry := max(0, time.Until(reset))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
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
