// Package gateway composes the request security pipeline and serves
// the API.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/auth"
	"github.com/walletgate/walletgate/internal/authz"
	"github.com/walletgate/walletgate/internal/config"
	"github.com/walletgate/walletgate/internal/health"
	"github.com/walletgate/walletgate/internal/middleware"
	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/ratelimit"
	"github.com/walletgate/walletgate/internal/ratelimit/store"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway owns the security pipeline. All requests pass through the
// fixed outer chain; authentication and role checks are attached per
// route.
type Gateway struct {
	config  *config.Config
	logger  observability.Logger
	version string

	engine        *gin.Engine
	errors        *apierror.Handler
	authenticator *auth.Authenticator
	guard         *authz.Guard
	limiter       ratelimit.Limiter
	originPolicy  *middleware.OriginPolicy
	checker       *health.Checker
	counterStore  store.Store

	server *http.Server
	state  atomic.Int32
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(g *Gateway) {
		g.version = version
	}
}

// New creates a gateway from the configuration. Routes may be
// registered with Handle before Start.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	g := &Gateway{
		config: cfg,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.errors = apierror.NewHandler(cfg.IsDevelopment(),
		apierror.WithHandlerLogger(g.logger))

	g.authenticator = auth.NewAuthenticator(cfg.Auth.Secret, g.errors,
		auth.WithLogger(g.logger))

	g.guard = authz.NewGuard(g.errors, authz.WithLogger(g.logger))

	g.originPolicy = middleware.NewOriginPolicy(cfg.CORS.AllowedOrigins,
		g.errors, cfg.IsDevelopment(),
		middleware.WithOriginPolicyLogger(g.logger))

	if err := g.buildLimiter(); err != nil {
		return nil, err
	}

	g.checker = health.NewChecker(g.version)

	gin.SetMode(gin.ReleaseMode)
	g.engine = gin.New()
	g.setupRoutes()

	g.state.Store(int32(StateStopped))

	return g, nil
}

// buildLimiter constructs the rate limiter, resolving the counter
// store backend first.
func (g *Gateway) buildLimiter() error {
	var counterStore store.Store
	if g.config.RateLimit.Store == "redis" {
		redisStore, err := store.NewRedisStore(context.Background(), store.RedisConfig{
			Address:  g.config.RateLimit.RedisAddress,
			Password: g.config.RateLimit.RedisPassword,
			DB:       g.config.RateLimit.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect rate limit store: %w", err)
		}
		counterStore = redisStore
	}

	limiter, err := ratelimit.New(&ratelimit.Config{
		Algorithm: ratelimit.Algorithm(g.config.RateLimit.Algorithm),
		Requests:  g.config.RateLimit.MaxRequests,
		Window:    g.config.RateLimit.Window.Duration(),
		Store:     counterStore,
		Logger:    g.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	g.limiter = limiter
	g.counterStore = counterStore
	return nil
}

// setupRoutes registers the operational endpoints.
func (g *Gateway) setupRoutes() {
	g.engine.GET("/healthz", gin.WrapF(g.checker.HealthHandler()))
	g.engine.GET("/readyz", gin.WrapF(g.checker.ReadinessHandler()))
	g.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g.engine.NoRoute(func(c *gin.Context) {
		g.errors.WriteError(c.Writer, c.Request,
			apierror.NotFound(fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path)))
	})
}

// Checker exposes the health checker so callers can register
// readiness checks.
func (g *Gateway) Checker() *health.Checker {
	return g.checker
}

// ErrorHandler exposes the error dispatcher for route handlers.
func (g *Gateway) ErrorHandler() *apierror.Handler {
	return g.errors
}

// Handler returns the fully composed pipeline. The outer chain runs
// for every request in a fixed order; route-level concerns are bound
// in Handle.
func (g *Gateway) Handler() http.Handler {
	var h http.Handler = g.engine

	h = middleware.RateLimit(middleware.RateLimitConfig{
		Limiter: g.limiter,
		Logger:  g.logger,
	}, g.errors)(h)
	h = g.originPolicy.Middleware()(h)
	h = middleware.SecurityHeaders()(h)
	// Recovery sits inside AccessLog so the writer it hands the
	// error dispatcher is the state-tracking wrapper: a panic after
	// a partial write must not append a second response.
	h = middleware.Recovery(g.logger, g.errors)(h)
	h = middleware.AccessLog(g.logger)(h)
	h = middleware.RequestID()(h)

	return h
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// Start begins serving. It returns once the listener is accepting.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("gateway is not in stopped state")
	}

	g.logger.Info("starting gateway",
		observability.String("address", g.config.Listener.Address),
		observability.String("mode", g.config.Mode),
	)

	g.server = &http.Server{
		Addr:              g.config.Listener.Address,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Give an immediately failing listener a chance to report.
	select {
	case err := <-errCh:
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to start listener: %w", err)
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		g.state.Store(int32(StateStopped))
		return ctx.Err()
	}

	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("address", g.config.Listener.Address),
	)

	return nil
}

// Stop shuts the gateway down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return fmt.Errorf("gateway is not running")
	}

	g.logger.Info("stopping gateway")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Listener.ShutdownTimeout.Duration())
		defer cancel()
	}

	err := g.server.Shutdown(ctx)

	if closer, ok := g.limiter.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil {
			g.logger.Warn("failed to close rate limiter",
				observability.Error(closeErr),
			)
		}
	}

	if g.counterStore != nil {
		if closeErr := g.counterStore.Close(); closeErr != nil {
			g.logger.Warn("failed to close rate limit store",
				observability.Error(closeErr),
			)
		}
	}

	g.state.Store(int32(StateStopped))
	g.logger.Info("gateway stopped")

	return err
}
