// Package auth resolves the caller identity set by the upstream auth proxy.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// DefaultHeader carries the authenticated user id.
const DefaultHeader = "X-User-ID"

const maxUserIDLength = 128

type contextKey struct{}

// Middleware copies the identity header into the request context. Requests
// without a usable identity are passed to onUnauthorized.
type Middleware struct {
	header         string
	onUnauthorized func(http.ResponseWriter, *http.Request)
}

func NewMiddleware(header string, onUnauthorized func(http.ResponseWriter, *http.Request)) *Middleware {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	if onUnauthorized == nil {
		onUnauthorized = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}
	return &Middleware{header: header, onUnauthorized: onUnauthorized}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(m.header))
		if userID == "" || len(userID) > maxUserIDLength {
			m.onUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}

// WithUser stores userID in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the caller identity, or "" when the request was not authenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
