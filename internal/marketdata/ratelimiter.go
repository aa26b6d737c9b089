package marketdata

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a per-minute request budget against a vendor API.
// Scans fan out across tickers concurrently, so without this a single
// group scan can burn through a free-tier quota in seconds.
type RateLimiter struct {
	mu       sync.Mutex
	requests []time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
	}
}

// Allow reports whether a request may proceed right now, and if not,
// how long to wait for the oldest in-window request to age out.
func (r *RateLimiter) Allow() (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	recent := r.requests[:0]
	for _, t := range r.requests {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}
	r.requests = recent

	if len(r.requests) >= r.limit {
		return false, r.requests[0].Sub(windowStart)
	}

	r.requests = append(r.requests, now)
	return true, 0
}

// Acquire blocks until a request slot is available or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		ok, wait := r.Allow()
		if ok {
			return nil
		}
		if wait < 50*time.Millisecond {
			wait = 50 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
