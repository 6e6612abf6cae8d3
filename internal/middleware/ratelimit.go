package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client address and route with a token
// bucket of the given size refilled evenly over window. It keeps one bucket per
// key in memory; Sweep drops buckets that have been idle for a full window,
// which by then are full again and carry no state worth keeping.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter allows requests per key in every window.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
		window:  window,
		now:     time.Now,
	}
}

// Allow consumes one token for key and reports whether the request may go on.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// Sweep removes every key not seen for at least one window and returns how
// many were removed.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for k, c := range l.clients {
		if now.Sub(c.seen) >= l.window {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// Run sweeps once per window until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	t := time.NewTicker(l.window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}

// Handler is the middleware. Rejected requests get 429 and never reach next.
//
// Requests are keyed by client address plus the matched chi route pattern, so
// every token tried against the same route draws from one bucket. Wire it
// with chi's With so the pattern is known; outside a chi route the key is the
// client address alone. The address is r.RemoteAddr, so wire
// chimiddleware.RealIP first when running behind a proxy.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if p := routePattern(r, ""); p != "" {
			key += " " + r.Method + " " + p
		}
		if !l.Allow(key) {
			w.Header().Set("Retry-After", retryAfter(l.window, l.burst))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfter is the refill time of a single token, rounded up to whole seconds.
func retryAfter(window time.Duration, burst int) string {
	secs := int((window/time.Duration(burst) + time.Second - 1) / time.Second)
	return strconv.Itoa(max(secs, 1))
}
