// Package config defines the pipeline configuration and its loading
// from a YAML file with environment variable overrides.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Operating modes. Development widens client-visible error detail;
// production masks it.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Rate limit defaults.
const (
	DefaultRateLimitWindow = 15 * time.Minute
	DefaultRateLimitMax    = 100
)

// Config is the root configuration for the gateway.
type Config struct {
	// Mode is either "development" or "production".
	Mode string `yaml:"mode"`

	Listener  ListenerConfig  `yaml:"listener"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
}

// ListenerConfig configures the HTTP listener.
type ListenerConfig struct {
	// Address is the listen address, e.g. ":8080".
	Address string `yaml:"address"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// AuthConfig configures credential issuance and verification.
type AuthConfig struct {
	// Secret is the shared HMAC signing secret. Its absence is a
	// fatal misconfiguration surfaced per-request as a 500, never a
	// silent bypass.
	Secret string `yaml:"secret"`

	// TokenTTL is the credential lifetime in "Nh" or "Nd" form.
	// Defaults to 24h when empty or unparsable.
	TokenTTL string `yaml:"tokenTTL"`
}

// RateLimitConfig configures the rate limiter. The configuration is
// immutable after startup; per-call merging is deliberately not
// supported.
type RateLimitConfig struct {
	// Window is the counting window. Defaults to 15 minutes.
	Window Duration `yaml:"window"`

	// MaxRequests is the per-key budget within a window. Defaults
	// to 100.
	MaxRequests int `yaml:"maxRequests"`

	// Algorithm selects the limiter algorithm: fixed_window
	// (default), sliding_window, or token_bucket.
	Algorithm string `yaml:"algorithm"`

	// Store selects the counter store backing: "memory" (default)
	// or "redis" for multi-instance deployments.
	Store string `yaml:"store"`

	// RedisAddress is the redis address when Store is "redis".
	RedisAddress string `yaml:"redisAddress"`

	// RedisPassword is the redis password when Store is "redis".
	RedisPassword string `yaml:"redisPassword"`

	// RedisDB is the redis database number when Store is "redis".
	RedisDB int `yaml:"redisDB"`
}

// CORSConfig configures the cross-origin policy.
type CORSConfig struct {
	// AllowedOrigins is the origin whitelist, loaded once at process
	// start and immutable thereafter.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Mode: ModeProduction,
		Listener: ListenerConfig{
			Address:         ":8080",
			ShutdownTimeout: Duration(30 * time.Second),
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
		RateLimit: RateLimitConfig{
			Window:      Duration(DefaultRateLimitWindow),
			MaxRequests: DefaultRateLimitMax,
			Algorithm:   "fixed_window",
			Store:       "memory",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// IsDevelopment reports whether the gateway runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Mode == ModeDevelopment
}

// Validate checks the configuration, collecting all problems. A missing
// secret is not a validation error: it is surfaced per request as a
// SERVER_CONFIG_ERROR so that protected routes fail loudly instead of
// the process refusing to start a partially useful service.
func (c *Config) Validate() error {
	var problems []string

	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		problems = append(problems, fmt.Sprintf("mode must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode))
	}
	if c.Listener.Address == "" {
		problems = append(problems, "listener address is required")
	}
	if c.RateLimit.MaxRequests <= 0 {
		problems = append(problems, "rateLimit.maxRequests must be positive")
	}
	if c.RateLimit.Window.Duration() <= 0 {
		problems = append(problems, "rateLimit.window must be positive")
	}
	switch c.RateLimit.Algorithm {
	case "fixed_window", "sliding_window", "token_bucket":
	default:
		problems = append(problems, fmt.Sprintf("unknown rate limit algorithm %q", c.RateLimit.Algorithm))
	}
	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddress == "" {
			problems = append(problems, "rateLimit.redisAddress is required for the redis store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown rate limit store %q", c.RateLimit.Store))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidOrigin reports whether an origin whitelist entry is a
// well-formed http or https URL. Malformed entries stay in the
// whitelist but can never match a request origin.
func ValidOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ParseOrigins splits a comma-separated origin list, trimming
// whitespace and dropping empty entries.
func ParseOrigins(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
