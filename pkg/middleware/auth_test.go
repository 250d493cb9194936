package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtutil "github.com/expirycare/expirycare/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func protectedEcho(t *testing.T, gotClaims **jwtutil.Claims) http.Handler {
	t.Helper()
	return AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotClaims = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	token, err := jwtutil.GenerateToken("user-1", "u@example.com", "user", testSecret, time.Hour)
	require.NoError(t, err)

	var claims *jwtutil.Claims
	handler := protectedEcho(t, &claims)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	expired, err := jwtutil.GenerateToken("user-1", "u@example.com", "user", testSecret, -time.Hour)
	require.NoError(t, err)

	wrongSecret, err := jwtutil.GenerateToken("user-1", "u@example.com", "user", "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var claims *jwtutil.Claims
			handler := protectedEcho(t, &claims)

			req := httptest.NewRequest(http.MethodGet, "/items", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, claims)
		})
	}
}

func TestRequireRole(t *testing.T) {
	adminToken, err := jwtutil.GenerateToken("admin-1", "a@example.com", "admin", testSecret, time.Hour)
	require.NoError(t, err)
	userToken, err := jwtutil.GenerateToken("user-1", "u@example.com", "user", testSecret, time.Hour)
	require.NoError(t, err)

	handler := AuthMiddleware(testSecret)(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/reminders/run", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/reminders/run", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
