package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/auth"
	"github.com/walletgate/walletgate/internal/config"
	"github.com/walletgate/walletgate/internal/token"
)

const testSecret = "gateway-test-secret"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Mode = config.ModeDevelopment
	cfg.Auth.Secret = testSecret
	cfg.CORS.AllowedOrigins = []string{"http://a.test"}
	return cfg
}

func newGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()

	g, err := New(cfg)
	require.NoError(t, err)
	return g
}

func issueToken(t *testing.T, roles []string) string {
	t.Helper()

	tok, err := token.Issue(token.Claims{
		Subject: "user-1",
		Roles:   roles,
	}, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Code, body.Error.RequestID
}

func TestProtectedRouteRequiresCredential(t *testing.T) {
	g := newGateway(t, testConfig())
	g.HandleFunc(http.MethodGet, "/api/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, RouteOptions{Auth: AuthRequired})

	handler := g.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	code, requestID := decodeError(t, rec)
	assert.Equal(t, apierror.CodeMissingAuthHeader, code)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get("X-Request-ID"))
}

func TestProtectedRouteWithValidCredential(t *testing.T) {
	g := newGateway(t, testConfig())

	var subject string
	g.HandleFunc(http.MethodGet, "/api/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := auth.IdentityFromContext(r.Context()); ok {
			subject = identity.Subject
		}
		w.WriteHeader(http.StatusOK)
	}, RouteOptions{Auth: AuthRequired})

	handler := g.Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	r.Header.Set("Authorization", "Bearer "+issueToken(t, []string{"user"}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", subject)
}

func TestOptionalRouteProceedsAnonymously(t *testing.T) {
	g := newGateway(t, testConfig())

	sawIdentity := true
	g.HandleFunc(http.MethodGet, "/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}, RouteOptions{Auth: AuthOptional})

	handler := g.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, sawIdentity)
}

func TestRoleGuardedRoute(t *testing.T) {
	g := newGateway(t, testConfig())
	g.HandleFunc(http.MethodGet, "/api/v1/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, RouteOptions{Auth: AuthRequired, Roles: []string{"admin", "ops"}})

	handler := g.Handler()

	// Holder of an allowed role passes.
	r := httptest.NewRequest(http.MethodGet, "/api/v1/admin", nil)
	r.Header.Set("Authorization", "Bearer "+issueToken(t, []string{"admin"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Holder of no allowed role is rejected.
	r = httptest.NewRequest(http.MethodGet, "/api/v1/admin", nil)
	r.Header.Set("Authorization", "Bearer "+issueToken(t, []string{"user"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, apierror.CodeForbidden, code)
}

func TestOriginRejection(t *testing.T) {
	g := newGateway(t, testConfig())
	g.HandleFunc(http.MethodGet, "/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, RouteOptions{})

	handler := g.Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	r.Header.Set("Origin", "http://b.test")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, apierror.CodeCORSError, code)
}

func TestAllowedOriginGetsCORSHeaders(t *testing.T) {
	g := newGateway(t, testConfig())
	g.HandleFunc(http.MethodGet, "/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, RouteOptions{})

	handler := g.Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	r.Header.Set("Origin", "http://a.test")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://a.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitAcrossPipeline(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 2
	cfg.RateLimit.Window = config.Duration(time.Minute)

	g := newGateway(t, cfg)
	g.HandleFunc(http.MethodGet, "/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, RouteOptions{})

	handler := g.Handler()

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, apierror.CodeRateLimitExceeded, code)
}

func TestUnknownRouteEnvelope(t *testing.T) {
	g := newGateway(t, testConfig())
	handler := g.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, apierror.CodeNotFound, code)
}

func TestPanicInHandlerIsContained(t *testing.T) {
	g := newGateway(t, testConfig())
	g.HandleFunc(http.MethodGet, "/api/v1/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	}, RouteOptions{})

	handler := g.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, apierror.CodeInternalError, code)
}

func TestPanicAfterPartialWriteKeepsSingleResponse(t *testing.T) {
	g := newGateway(t, testConfig())
	g.HandleFunc(http.MethodGet, "/api/v1/stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"data":"partial"`))
		panic("mid-stream")
	}, RouteOptions{})

	handler := g.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil))

	// The started response stands; no error envelope is appended.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"success":true,"data":"partial"`, rec.Body.String())
}

func TestHealthEndpointsBypassRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 1
	cfg.RateLimit.Window = config.Duration(time.Minute)

	g := newGateway(t, cfg)
	handler := g.Handler()

	for i := 0; i < 5; i++ {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestGatewayStateTransitions(t *testing.T) {
	g := newGateway(t, testConfig())
	assert.Equal(t, StateStopped, g.State())
	assert.Equal(t, "stopped", g.State().String())
}
