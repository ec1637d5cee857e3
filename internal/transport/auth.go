package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type appKey struct{}

// AppResolver resolves the app a bearer token belongs to.
type AppResolver interface {
	ResolveApp(ctx context.Context, token string) (string, error)
}

// AppFromContext returns the app ID from context, if present.
func AppFromContext(ctx context.Context) (string, bool) {
	appID, ok := ctx.Value(appKey{}).(string)
	return appID, ok && appID != ""
}

// WithApp returns a copy of ctx carrying appID.
func WithApp(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, appKey{}, appID)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver AppResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				writeProblem(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			appID, err := resolver.ResolveApp(r.Context(), token)
			if err != nil || appID == "" {
				writeProblem(w, r, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithApp(r.Context(), appID)))
		})
	}
}

// StaticAppMiddleware scopes every request to one app. Used when
// authentication is disabled.
func StaticAppMiddleware(appID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithApp(r.Context(), appID)))
		})
	}
}
