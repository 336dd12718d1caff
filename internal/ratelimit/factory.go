package ratelimit

import (
	"fmt"
	"time"

	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/ratelimit/store"
)

// Config holds configuration for creating a rate limiter.
type Config struct {
	// Algorithm selects the limiter algorithm.
	Algorithm Algorithm

	// Requests is the per-key budget within one window.
	Requests int

	// Window is the counting window.
	Window time.Duration

	// Store optionally backs the fixed window algorithm with a
	// shared counter store. The sliding window and token bucket
	// algorithms keep state in-process.
	Store store.Store

	// Logger for the limiter.
	Logger observability.Logger
}

// DefaultConfig returns a Config with the default fixed window of 15
// minutes and 100 requests.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: AlgorithmFixedWindow,
		Requests:  100,
		Window:    15 * time.Minute,
	}
}

// New creates a rate limiter from the configuration.
func New(cfg *Config) (Limiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Requests <= 0 {
		return nil, fmt.Errorf("rate limit requests must be positive, got %d", cfg.Requests)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", cfg.Window)
	}

	switch cfg.Algorithm {
	case AlgorithmFixedWindow, "":
		return NewFixedWindowLimiter(cfg.Store, cfg.Requests, cfg.Window, cfg.Logger), nil
	case AlgorithmSlidingWindow:
		return NewSlidingWindowLimiter(cfg.Requests, cfg.Window), nil
	case AlgorithmTokenBucket:
		return NewTokenBucketLimiter(cfg.Requests, cfg.Window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit algorithm: %s", cfg.Algorithm)
	}
}
