// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// How a request was authenticated
const (
	MethodSession = "session"
	MethodToken   = "token"
)

// AuthContext holds the authenticated identity extracted from a request.
// The Gate populates it; handlers read it with FromContext.
type AuthContext struct {
	Username string
	Method   string // MethodSession or MethodToken
	Session  *Session
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}

// Actor returns the username for audit entries, or "anonymous".
func Actor(ctx context.Context) string {
	if a := FromContext(ctx); a != nil && a.Username != "" {
		return a.Username
	}
	return "anonymous"
}
