package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedEchoHandler(t *testing.T, wantSubject string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r)
		require.NotNil(t, claims, "claims must be attached to the request context")
		assert.Equal(t, wantSubject, claims.Subject)
		w.WriteHeader(http.StatusOK)
	})
}

func TestHTTPMiddleware_ValidBearerToken(t *testing.T) {
	validator, privateKey, issuer, audience := setupTestValidator(t)
	tokenString := createTestJWT(t, privateKey, issuer, audience, "user-123", nil)

	handler := validator.HTTPMiddleware(authedEchoHandler(t, "user-123"))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/task-1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPMiddleware_TokenQueryParameter(t *testing.T) {
	validator, privateKey, issuer, audience := setupTestValidator(t)
	tokenString := createTestJWT(t, privateKey, issuer, audience, "user-456", nil)

	handler := validator.HTTPMiddleware(authedEchoHandler(t, "user-456"))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/task-1:subscribe?token="+tokenString, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPMiddleware_MissingToken(t *testing.T) {
	validator, _, _, _ := setupTestValidator(t)

	handler := validator.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/task-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	validator, _, _, _ := setupTestValidator(t)

	handler := validator.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/task-1", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPMiddleware_InvalidToken(t *testing.T) {
	validator, _, _, _ := setupTestValidator(t)

	handler := validator.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/task-1", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
