package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authProbe(auth *JWTAuth) (*httptest.ResponseRecorder, func(req *http.Request) (string, bool)) {
	rr := httptest.NewRecorder()
	var gotID string
	var gotOK bool
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return rr, func(req *http.Request) (string, bool) {
		handler.ServeHTTP(rr, req)
		return gotID, gotOK
	}
}

func TestAuthMissingHeaderRejected(t *testing.T) {
	auth := NewJWTAuth("secret")
	rr, run := authProbe(auth)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	_, ok := run(req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, ok)
}

func TestAuthValidTokenSetsUserID(t *testing.T) {
	auth := NewJWTAuth("secret")
	rr, run := authProbe(auth)

	token := signToken(t, "secret", jwt.MapClaims{
		"user_id": "user-42",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	id, ok := run(req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, ok)
	assert.Equal(t, "user-42", id)
}

func TestAuthInvalidTokenRejected(t *testing.T) {
	auth := NewJWTAuth("secret")
	rr, run := authProbe(auth)

	token := signToken(t, "other-secret", jwt.MapClaims{"user_id": "user-42"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	run(req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthExpiredToken(t *testing.T) {
	auth := NewJWTAuth("secret")
	rr, run := authProbe(auth)

	token := signToken(t, "secret", jwt.MapClaims{
		"user_id": "user-42",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	run(req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "TOKEN_EXPIRED")
}

func TestAuthMalformedHeader(t *testing.T) {
	auth := NewJWTAuth("secret")
	rr, run := authProbe(auth)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	run(req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
