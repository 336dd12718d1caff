package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names. Environment values override the file, so
// a file is optional when everything is supplied through the
// environment.
const (
	EnvMode            = "WALLETGATE_MODE"
	EnvListenAddress   = "WALLETGATE_LISTEN_ADDRESS"
	EnvJWTSecret       = "WALLETGATE_JWT_SECRET"
	EnvTokenTTL        = "WALLETGATE_TOKEN_TTL"
	EnvAllowedOrigins  = "WALLETGATE_ALLOWED_ORIGINS"
	EnvRateLimitWindow = "WALLETGATE_RATE_LIMIT_WINDOW"
	EnvRateLimitMax    = "WALLETGATE_RATE_LIMIT_MAX"
	EnvRateLimitStore  = "WALLETGATE_RATE_LIMIT_STORE"
	EnvRedisAddress    = "WALLETGATE_REDIS_ADDRESS"
	EnvLogLevel        = "WALLETGATE_LOG_LEVEL"
	EnvLogFormat       = "WALLETGATE_LOG_FORMAT"
)

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides, then
// validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader builds the configuration from YAML in r, then applies
// environment overrides and validates.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg fields from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvMode); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv(EnvListenAddress); v != "" {
		cfg.Listener.Address = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv(EnvTokenTTL); v != "" {
		cfg.Auth.TokenTTL = v
	}
	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		cfg.CORS.AllowedOrigins = ParseOrigins(v)
	}
	if v := os.Getenv(EnvRateLimitWindow); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = Duration(d)
		}
	}
	if v := os.Getenv(EnvRateLimitMax); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.MaxRequests = n
		}
	}
	if v := os.Getenv(EnvRateLimitStore); v != "" {
		cfg.RateLimit.Store = v
	}
	if v := os.Getenv(EnvRedisAddress); v != "" {
		cfg.RateLimit.RedisAddress = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
}
