package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apachehub/deudacero/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := manager.Generate(42, "ana@example.com")
	require.NoError(t, err)

	var gotMemberID int64
	handler := RequireAuth(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMemberID = GetMemberID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMemberID = 0
			req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, int64(42), gotMemberID)
			}
		})
	}
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	other := auth.NewJWTManager("other-secret", time.Hour)
	token, err := other.Generate(42, "")
	require.NoError(t, err)

	manager := auth.NewJWTManager("test-secret", time.Hour)
	handler := RequireAuth(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
