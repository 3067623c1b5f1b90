package authz

import (
	"context"
	"net/http"
	"strings"
)

// identityCtxKey is an unexported type used as the context key for Identity.
type identityCtxKey struct{}

// Identity represents the authenticated actor making a request.
type Identity struct {
	User  string
	Roles RoleSet
}

// WithIdentity returns a new context with the given Identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context.
// Returns the zero value and false if no identity is set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// Extractor resolves an Identity from an HTTP request.
type Extractor func(r *http.Request) Identity

// HeaderExtractor reads identity from X-Remote-User and X-Remote-Group
// headers. X-Remote-Group is comma-separated; unrecognized role values are
// dropped. Missing user defaults to "anonymous" with no roles.
// Suitable behind a trusted authenticating proxy.
func HeaderExtractor(r *http.Request) Identity {
	user := strings.TrimSpace(r.Header.Get("X-Remote-User"))
	if user == "" {
		user = "anonymous"
	}

	var roles RoleSet
	roleHeader := strings.TrimSpace(r.Header.Get("X-Remote-Group"))
	if roleHeader != "" {
		for _, raw := range strings.Split(roleHeader, ",") {
			if role := ParseRole(strings.ToUpper(strings.TrimSpace(raw))); role != "" {
				roles = append(roles, role)
			}
		}
	}

	return Identity{User: user, Roles: roles}
}

// Middleware returns HTTP middleware that resolves the actor with the given
// extractor and stores the Identity in the request context.
func Middleware(extract Extractor) func(http.Handler) http.Handler {
	if extract == nil {
		extract = HeaderExtractor
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithIdentity(r.Context(), extract(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
