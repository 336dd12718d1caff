// Package ratelimit bounds per-client request rates. The default
// algorithm is a fixed counting window; sliding window and token
// bucket variants are selectable through the factory.
package ratelimit

import (
	"context"
	"time"
)

// Limiter is the interface for rate limiting.
type Limiter interface {
	// Allow checks whether a single request is allowed for the key.
	Allow(ctx context.Context, key string) (*Result, error)

	// AllowN checks whether n requests are allowed for the key.
	AllowN(ctx context.Context, key string, n int) (*Result, error)

	// GetLimit returns the limit configuration for the key.
	GetLimit(key string) *Limit

	// Reset clears the rate limit state for the key.
	Reset(ctx context.Context, key string) error
}

// Limit is a rate limit configuration.
type Limit struct {
	// Requests is the budget within one window.
	Requests int

	// Window is the counting window.
	Window time.Duration
}

// Result is the outcome of a rate limit check. The header values the
// middleware emits are all derived from it.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Limit is the per-window budget.
	Limit int

	// Remaining is the unused budget in the current window.
	Remaining int

	// ResetAfter is the time until the window resets.
	ResetAfter time.Duration

	// RetryAfter is the wait before retrying; zero when allowed.
	RetryAfter time.Duration
}

// Algorithm selects the rate limiting algorithm.
type Algorithm string

const (
	// AlgorithmFixedWindow counts requests in fixed windows.
	AlgorithmFixedWindow Algorithm = "fixed_window"

	// AlgorithmSlidingWindow tracks request timestamps within a
	// rolling window.
	AlgorithmSlidingWindow Algorithm = "sliding_window"

	// AlgorithmTokenBucket refills tokens at a steady rate.
	AlgorithmTokenBucket Algorithm = "token_bucket"
)
