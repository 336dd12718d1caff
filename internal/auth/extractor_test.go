package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{
			name:   "well formed",
			header: "Bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:    "missing header",
			header:  "",
			wantErr: ErrNoAuthHeader,
		},
		{
			name:    "wrong scheme",
			header:  "Basic dXNlcjpwYXNz",
			wantErr: ErrMalformedAuthHeader,
		},
		{
			name:    "lowercase scheme",
			header:  "bearer abc.def.ghi",
			wantErr: ErrMalformedAuthHeader,
		},
		{
			name:    "scheme only",
			header:  "Bearer ",
			wantErr: ErrMalformedAuthHeader,
		},
		{
			name:    "bare token",
			header:  "abc.def.ghi",
			wantErr: ErrMalformedAuthHeader,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractBearer(r)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
