package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/observability"
)

func TestResponseWriterTracksState(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	assert.False(t, rw.Written())

	rw.WriteHeader(http.StatusTeapot)
	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusTeapot, rw.status)

	n, err := rw.Write([]byte("body"))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, rw.size)
}

func TestResponseWriterImplicitWrite(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	// Writing without an explicit WriteHeader still marks the
	// response as started.
	_, err := rw.Write([]byte("ok"))
	assert.NoError(t, err)
	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusOK, rw.status)
}

func TestAccessLogPassesThrough(t *testing.T) {
	t.Parallel()

	handler := AccessLog(observability.NopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true}`))
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/things", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"success":true}`, rec.Body.String())
}

// The wrapper is what lets the error dispatcher detect a started
// response, so verify the two cooperate.
func TestAccessLogEnablesDoubleSendGuard(t *testing.T) {
	t.Parallel()

	errors := apierror.NewHandler(false)

	handler := AccessLog(observability.NopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("partial"))

			// A late failure must not produce a second response.
			errors.WriteError(w, r, apierror.NotFound("missing"))
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}
