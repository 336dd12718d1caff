package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

var _ io.Closer = (*SlidingWindowLimiter)(nil)

// SlidingWindowLimiter tracks request timestamps within a rolling
// window, avoiding the burst-at-boundary artifact of fixed windows.
// State is in-process only; use the fixed window algorithm when a
// shared store is required.
type SlidingWindowLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*slidingState

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// slidingState is the per-key rolling window.
type slidingState struct {
	mu       sync.Mutex
	requests []time.Time
}

// NewSlidingWindowLimiter creates a sliding window limiter. Call
// Close to stop the stale-window cleanup goroutine.
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		limit:       limit,
		window:      window,
		windows:     make(map[string]*slidingState),
		stopCleanup: make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow implements Limiter.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *SlidingWindowLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	now := time.Now()
	ws := l.state(key)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	// Drop requests that have slid out of the window.
	cutoff := now.Add(-l.window)
	kept := ws.requests[:0]
	for _, t := range ws.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	ws.requests = kept

	allowed := len(ws.requests)+n <= l.limit
	if allowed {
		for i := 0; i < n; i++ {
			ws.requests = append(ws.requests, now)
		}
	}

	remaining := l.limit - len(ws.requests)
	if remaining < 0 {
		remaining = 0
	}

	var resetAfter, retryAfter time.Duration
	if len(ws.requests) > 0 {
		resetAfter = ws.requests[0].Add(l.window).Sub(now)
		if resetAfter < 0 {
			resetAfter = 0
		}
	}
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

// state returns the per-key window state, creating it if needed.
func (l *SlidingWindowLimiter) state(key string) *slidingState {
	l.mu.Lock()
	defer l.mu.Unlock()

	ws, ok := l.windows[key]
	if !ok {
		ws = &slidingState{}
		l.windows[key] = ws
	}
	return ws
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *SlidingWindowLimiter) Close() error {
	l.cleanupOnce.Do(func() {
		close(l.stopCleanup)
	})
	return nil
}

// cleanupLoop evicts idle keys until Close.
func (l *SlidingWindowLimiter) cleanupLoop() {
	interval := l.window
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stopCleanup:
			return
		}
	}
}

// evictStale removes keys whose every request has slid out of the
// window.
func (l *SlidingWindowLimiter) evictStale() {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, ws := range l.windows {
		ws.mu.Lock()
		stale := len(ws.requests) == 0 || !ws.requests[len(ws.requests)-1].After(cutoff)
		ws.mu.Unlock()
		if stale {
			delete(l.windows, key)
		}
	}
}

// GetLimit implements Limiter.
func (l *SlidingWindowLimiter) GetLimit(key string) *Limit {
	return &Limit{Requests: l.limit, Window: l.window}
}

// Reset implements Limiter.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	return nil
}
