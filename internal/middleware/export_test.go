package middleware

import "time"

// SetClock replaces the limiter's clock in tests.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Len reports how many keys the limiter is tracking.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
