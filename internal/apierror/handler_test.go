package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/token"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/things", nil)
	ctx := observability.ContextWithRequestID(r.Context(), "req-42")
	return r.WithContext(ctx)
}

func TestWriteErrorOperational(t *testing.T) {
	t.Parallel()

	for _, development := range []bool{false, true} {
		h := NewHandler(development)
		rec := httptest.NewRecorder()

		h.WriteError(rec, newRequest(), NotFound("thing not found"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, CodeNotFound, env.Error.Code)
		assert.Equal(t, "thing not found", env.Error.Message)
		assert.Equal(t, "req-42", env.Error.RequestID)
	}
}

func TestWriteErrorMasksUnexpected(t *testing.T) {
	t.Parallel()

	h := NewHandler(false)
	rec := httptest.NewRecorder()

	h.WriteError(rec, newRequest(), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, CodeInternalError, env.Error.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.Empty(t, env.Error.Stack)
}

func TestWriteErrorDevelopmentDetail(t *testing.T) {
	t.Parallel()

	h := NewHandler(true)
	rec := httptest.NewRecorder()

	h.WriteError(rec, newRequest(), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "pq: connection refused", env.Error.Message)
	assert.NotEmpty(t, env.Error.Stack)
}

func TestWriteErrorMapsTokenFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "malformed", err: token.ErrMalformedToken},
		{name: "bad signature", err: token.ErrInvalidSignature},
		{name: "expired", err: token.ErrTokenExpired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler(false)
			rec := httptest.NewRecorder()

			h.WriteError(rec, newRequest(), tt.err)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decodeEnvelope(t, rec)
			// A single outcome regardless of which check failed.
			assert.Equal(t, CodeInvalidToken, env.Error.Code)
		})
	}
}

func TestWriteErrorMapsMissingSecret(t *testing.T) {
	t.Parallel()

	h := NewHandler(false)
	rec := httptest.NewRecorder()

	h.WriteError(rec, newRequest(), token.ErrNoSecret)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, CodeServerConfigError, env.Error.Code)
}

// writtenRecorder reports that a response has already been sent.
type writtenRecorder struct {
	*httptest.ResponseRecorder
}

func (w *writtenRecorder) Written() bool { return true }

func TestWriteErrorNeverDoubleSends(t *testing.T) {
	t.Parallel()

	h := NewHandler(true)
	rec := &writtenRecorder{ResponseRecorder: httptest.NewRecorder()}

	h.WriteError(rec, newRequest(), NotFound("thing not found"))

	assert.Empty(t, rec.Body.String())
	// httptest defaults Code to 200; nothing must have overwritten it.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteErrorDetailsForOperational(t *testing.T) {
	t.Parallel()

	h := NewHandler(false)
	rec := httptest.NewRecorder()

	retryErr := TooManyRequests("rate limit exceeded").
		WithDetails(map[string]any{"retryAfter": int64(time.Minute.Seconds())})
	h.WriteError(rec, newRequest(), retryErr)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, CodeRateLimitExceeded, env.Error.Code)

	details, ok := env.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 60, details["retryAfter"])
}

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	plain := New(http.StatusBadRequest, CodeValidationError, "bad input")
	assert.Equal(t, "VALIDATION_ERROR: bad input", plain.Error())

	cause := errors.New("boom")
	wrapped := Internal("handler blew up").WithCause(cause)
	assert.Equal(t, "INTERNAL_ERROR: handler blew up: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}
