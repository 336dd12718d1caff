package ratelimit

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Bucket housekeeping defaults.
const (
	bucketCleanupInterval = 5 * time.Minute
	bucketTTL             = 10 * time.Minute
)

var _ io.Closer = (*TokenBucketLimiter)(nil)

// TokenBucketLimiter refills each key's bucket at limit/window tokens
// per second with a burst of the full budget. State is in-process
// only. Call Close to stop the stale-bucket cleanup goroutine.
type TokenBucketLimiter struct {
	limit  int
	window time.Duration
	rate   rate.Limit

	mu      sync.Mutex
	buckets map[string]*bucketEntry

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// bucketEntry pairs a limiter with its last access for TTL eviction.
type bucketEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewTokenBucketLimiter creates a token bucket limiter spreading the
// per-window budget evenly over the window.
func NewTokenBucketLimiter(limit int, window time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		limit:       limit,
		window:      window,
		rate:        rate.Limit(float64(limit) / window.Seconds()),
		buckets:     make(map[string]*bucketEntry),
		stopCleanup: make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow implements Limiter.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *TokenBucketLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	entry := l.bucket(key)

	// AllowN is thread-safe on the limiter itself.
	allowed := entry.limiter.AllowN(time.Now(), n)

	tokens := entry.limiter.Tokens()
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	var resetAfter, retryAfter time.Duration
	if deficit := float64(l.limit) - tokens; deficit > 0 {
		resetAfter = time.Duration(deficit / float64(l.rate) * float64(time.Second))
	}
	if !allowed {
		retryAfter = time.Duration(float64(n) / float64(l.rate) * float64(time.Second))
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

// bucket returns the per-key bucket, creating it if needed, and
// refreshes its last access inside the same critical section.
func (l *TokenBucketLimiter) bucket(key string) *bucketEntry {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.buckets[key]
	if !ok {
		entry = &bucketEntry{
			limiter: rate.NewLimiter(l.rate, l.limit),
		}
		l.buckets[key] = entry
	}
	entry.lastAccess = now
	return entry
}

// GetLimit implements Limiter.
func (l *TokenBucketLimiter) GetLimit(key string) *Limit {
	return &Limit{Requests: l.limit, Window: l.window}
}

// Reset implements Limiter.
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *TokenBucketLimiter) Close() error {
	l.cleanupOnce.Do(func() {
		close(l.stopCleanup)
	})
	return nil
}

// cleanupLoop evicts stale buckets until Close.
func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(bucketCleanupInterval)
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

// evictStale removes buckets idle past the TTL.
func (l *TokenBucketLimiter) evictStale() {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, entry := range l.buckets {
		if now.Sub(entry.lastAccess) > bucketTTL {
			delete(l.buckets, key)
		}
	}
}
