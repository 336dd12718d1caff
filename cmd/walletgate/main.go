// Package main is the entry point for the walletgate API gateway.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/auth"
	"github.com/walletgate/walletgate/internal/config"
	"github.com/walletgate/walletgate/internal/gateway"
	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/token"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags.configPath, logger)

	gw, err := gateway.New(cfg,
		gateway.WithLogger(logger),
		gateway.WithVersion(version),
	)
	if err != nil {
		logger.Fatal("failed to create gateway", observability.Error(err))
	}

	registerRoutes(gw, cfg)

	run(gw, logger)
}

// parseFlags parses command line flags; environment variables provide
// the defaults.
func parseFlags() cliFlags {
	configPath := flag.String("config", os.Getenv("WALLETGATE_CONFIG_PATH"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault(config.EnvLogLevel, "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault(config.EnvLogFormat, "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("walletgate version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadConfig loads and validates the configuration.
func loadConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting walletgate",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if cfg.Auth.Secret == "" {
		// Not fatal: each authenticated request answers 500 until
		// the secret is configured, which is louder than refusing
		// to boot in a fleet restart.
		logger.Error("no signing secret configured, authenticated requests will fail")
	}

	logger.Info("configuration loaded",
		observability.String("mode", cfg.Mode),
		observability.String("address", cfg.Listener.Address),
		observability.Int("allowed_origins", len(cfg.CORS.AllowedOrigins)),
		observability.String("rate_limit_store", cfg.RateLimit.Store),
	)

	return cfg
}

// registerRoutes attaches the application routes to the pipeline.
func registerRoutes(gw *gateway.Gateway, cfg *config.Config) {
	errors := gw.ErrorHandler()

	// Identity echo for the authenticated caller.
	gw.HandleFunc(http.MethodGet, "/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    identity,
		})
	}, gateway.RouteOptions{Auth: gateway.AuthRequired})

	// Public route that personalizes when a credential is present.
	gw.HandleFunc(http.MethodGet, "/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		_, authenticated := auth.IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"authenticated": authenticated},
		})
	}, gateway.RouteOptions{Auth: gateway.AuthOptional})

	// Credential issuance is a development convenience only. In
	// production tokens come from the identity service.
	if cfg.IsDevelopment() {
		ttl := token.ParseTTL(cfg.Auth.TokenTTL)

		gw.HandleFunc(http.MethodPost, "/api/v1/dev/token", func(w http.ResponseWriter, r *http.Request) {
			var claims token.Claims
			if err := json.NewDecoder(r.Body).Decode(&claims); err != nil {
				errors.WriteError(w, r, apierror.BadRequest("invalid claims body"))
				return
			}

			tok, err := token.Issue(claims, cfg.Auth.Secret, ttl)
			if err != nil {
				errors.WriteError(w, r, err)
				return
			}

			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]string{"token": tok},
			})
		}, gateway.RouteOptions{})
	}
}

// run starts the gateway and blocks until a shutdown signal.
func run(gw *gateway.Gateway, logger observability.Logger) {
	ctx := context.Background()

	if err := gw.Start(ctx); err != nil {
		logger.Fatal("failed to start gateway", observability.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("shutdown signal received",
		observability.String("signal", sig.String()),
	)

	if err := gw.Stop(ctx); err != nil {
		logger.Error("graceful shutdown failed", observability.Error(err))
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
