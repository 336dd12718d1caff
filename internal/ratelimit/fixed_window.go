package ratelimit

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/ratelimit/store"
)

// minCleanupInterval floors the stale-counter sweep period so tiny
// windows do not spin the janitor.
const minCleanupInterval = 10 * time.Second

var _ io.Closer = (*FixedWindowLimiter)(nil)

// FixedWindowLimiter divides time into fixed windows and counts
// requests per key within each. Counter updates are serialized per
// key, never globally, so concurrent bursts on one key cannot
// undercount while unrelated keys proceed without contention.
type FixedWindowLimiter struct {
	store  store.Store
	limit  int
	window time.Duration
	logger observability.Logger

	mu       sync.Mutex
	counters map[string]*windowCounter

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// windowCounter is the per-key window state.
type windowCounter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// NewFixedWindowLimiter creates a fixed window limiter. A nil store
// keeps counters in-process; a non-nil store shares them (e.g. redis)
// across instances. Call Close to stop the stale-counter cleanup
// goroutine.
func NewFixedWindowLimiter(s store.Store, limit int, window time.Duration, logger observability.Logger) *FixedWindowLimiter {
	if logger == nil {
		logger = observability.NopLogger()
	}

	l := &FixedWindowLimiter{
		store:       s,
		limit:       limit,
		window:      window,
		logger:      logger,
		counters:    make(map[string]*windowCounter),
		stopCleanup: make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow implements Limiter.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *FixedWindowLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if l.store == nil {
		return l.allowLocal(key, n)
	}
	return l.allowShared(ctx, key, n)
}

// windowStart truncates t to the start of its window.
func (l *FixedWindowLimiter) windowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}

// counter returns the per-key counter, creating it if needed.
func (l *FixedWindowLimiter) counter(key string, windowStart time.Time) *windowCounter {
	l.mu.Lock()
	defer l.mu.Unlock()

	wc, ok := l.counters[key]
	if !ok {
		wc = &windowCounter{windowStart: windowStart}
		l.counters[key] = wc
	}
	return wc
}

// allowLocal applies the limit against in-process counters.
func (l *FixedWindowLimiter) allowLocal(key string, n int) (*Result, error) {
	now := time.Now()
	windowStart := l.windowStart(now)
	wc := l.counter(key, windowStart)

	wc.mu.Lock()
	defer wc.mu.Unlock()

	if !wc.windowStart.Equal(windowStart) {
		wc.count = 0
		wc.windowStart = windowStart
	}

	allowed := wc.count+n <= l.limit
	if allowed {
		wc.count += n
	}

	return l.result(allowed, wc.count, windowStart, now), nil
}

// allowShared applies the limit against the shared store.
func (l *FixedWindowLimiter) allowShared(ctx context.Context, key string, n int) (*Result, error) {
	now := time.Now()
	windowStart := l.windowStart(now)

	windowKey := fmt.Sprintf("%s:fw:%d", key, windowStart.UnixNano())

	// Increment first and decide from the returned count. A read
	// followed by a separate increment lets concurrent requests at
	// the boundary observe the same pre-increment value and all be
	// admitted past the limit. Expiry gets a one-second buffer for
	// clock skew across instances.
	newCount, err := l.store.IncrementWithExpiry(ctx, windowKey, int64(n), l.window+time.Second)
	if err != nil {
		return nil, err
	}

	allowed := int(newCount) <= l.limit

	return l.result(allowed, int(newCount), windowStart, now), nil
}

// result assembles a Result from window state.
func (l *FixedWindowLimiter) result(allowed bool, count int, windowStart, now time.Time) *Result {
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *FixedWindowLimiter) Close() error {
	l.cleanupOnce.Do(func() {
		close(l.stopCleanup)
	})
	return nil
}

// cleanupLoop evicts counters from elapsed windows until Close.
func (l *FixedWindowLimiter) cleanupLoop() {
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

// evictStale removes counters whose window has elapsed.
func (l *FixedWindowLimiter) evictStale() {
	windowStart := l.windowStart(time.Now())

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, wc := range l.counters {
		wc.mu.Lock()
		stale := wc.windowStart.Before(windowStart)
		wc.mu.Unlock()
		if stale {
			delete(l.counters, key)
		}
	}
}

// GetLimit implements Limiter.
func (l *FixedWindowLimiter) GetLimit(key string) *Limit {
	return &Limit{Requests: l.limit, Window: l.window}
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.counters, key)
	l.mu.Unlock()

	if l.store != nil {
		windowKey := fmt.Sprintf("%s:fw:%d", key, l.windowStart(time.Now()).UnixNano())
		return l.store.Delete(ctx, windowKey)
	}
	return nil
}
