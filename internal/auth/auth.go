// Package auth resolves the caller of an HTTP request.
//
// Users are authenticated by the identity provider in front of the service,
// which forwards the verified user id in the X-User-ID header. Admin
// operations require the shared admin key in X-Admin-Key.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// Request headers.
const (
	UserIDHeader   = "X-User-ID"
	AdminKeyHeader = "X-Admin-Key"
)

var (
	// ErrUnauthenticated is reported when no caller identity is present.
	ErrUnauthenticated = errors.New("only authenticated users can access this resource")

	// ErrPermissionDenied is reported when the admin key is missing or wrong.
	ErrPermissionDenied = errors.New("not authorized to access this resource")
)

// DenyFunc writes the response for a rejected request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

type ctxKey struct{}

// WithUserID returns a context carrying the user id.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

// UserID returns the authenticated user id from ctx.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxKey{}).(string)
	return uid, ok && uid != ""
}

// RequireUser rejects requests without a user id header and stores the id
// in the request context.
func RequireUser(deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if uid == "" || strings.Contains(uid, "/") {
				deny(w, r, ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

// AdminKey verifies the shared admin key.
type AdminKey struct {
	key []byte
}

// NewAdminKey creates an AdminKey. An empty key rejects every request.
func NewAdminKey(key string) *AdminKey {
	return &AdminKey{key: []byte(key)}
}

// Verify reports whether presented matches the admin key.
func (a *AdminKey) Verify(presented string) bool {
	if len(a.key) == 0 || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare(a.key, []byte(presented)) == 1
}

// Require rejects requests without the correct admin key.
func (a *AdminKey) Require(deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Verify(r.Header.Get(AdminKeyHeader)) {
				deny(w, r, ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
