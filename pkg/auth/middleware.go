package auth

import (
	"net/http"
	"strings"
)

// HTTPMiddleware enforces bearer authentication on every request. Streaming
// endpoints used from browsers (SSE, WebSocket) cannot set headers, so a
// token query parameter is accepted as an alternative carrier.
func (v *JWTValidator) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := extractToken(r)
		if !ok {
			http.Error(w, `{"error":"Missing Authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := v.ValidateToken(r.Context(), tokenString)
		if err != nil {
			http.Error(w, `{"error":"Unauthorized: `+err.Error()+`"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func extractToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return "", false
		}
		return tokenString, true
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}

	return "", false
}

// GetClaims returns the validated claims attached to the request, or nil.
func GetClaims(r *http.Request) *Claims {
	return ClaimsFromContext(r.Context())
}
