package auth

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const claimsContextKey contextKey = "claims"

// Claims represents the validated claims from a JWT token.
type Claims struct {
	// Subject is the unique identifier for the caller (sub claim).
	Subject string `json:"sub"`

	// Email is the caller's email address (if provided).
	Email string `json:"email,omitempty"`

	// Role is the caller's role for authorization decisions.
	Role string `json:"role,omitempty"`

	// Custom contains any additional claims not mapped to struct fields.
	Custom map[string]any `json:"-"`
}

// HasRole checks if the caller has a specific role.
func (c *Claims) HasRole(role string) bool {
	return c.Role == role
}

// ClaimsFromContext extracts claims from a context. Returns nil if no claims
// are present.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}

// ContextWithClaims returns a new context carrying the given claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
