package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/auth"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()

	metrics := NewMetricsWithRegisterer("test", prometheus.NewRegistry())
	return NewGuard(apierror.NewHandler(false), WithMetrics(metrics))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithRoles(roles ...string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	identity := &auth.Identity{
		Subject: "user-1",
		Roles:   roles,
	}
	return r.WithContext(auth.ContextWithIdentity(r.Context(), identity))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		required   []string
		held       []string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "exact role",
			required:   []string{"admin"},
			held:       []string{"admin"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "one of several",
			required:   []string{"admin", "ops"},
			held:       []string{"ops"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "extra roles held",
			required:   []string{"admin"},
			held:       []string{"user", "admin"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing role",
			required:   []string{"admin"},
			held:       []string{"user"},
			wantStatus: http.StatusForbidden,
			wantCode:   apierror.CodeForbidden,
		},
		{
			name:       "no roles held",
			required:   []string{"admin"},
			held:       nil,
			wantStatus: http.StatusForbidden,
			wantCode:   apierror.CodeForbidden,
		},
		{
			name:       "case sensitive",
			required:   []string{"admin"},
			held:       []string{"Admin"},
			wantStatus: http.StatusForbidden,
			wantCode:   apierror.CodeForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newGuard(t)
			handler := g.RequireRoles(tt.required...)(okHandler())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, requestWithRoles(tt.held...))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec))
			}
		})
	}
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	t.Parallel()

	g := newGuard(t)
	handler := g.RequireRoles("admin")(okHandler())

	// No authentication middleware ran, so no identity in context.
	r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CodeUnauthorized, errorCode(t, rec))
}
