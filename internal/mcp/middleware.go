package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrUnauthorized is returned for calls without a valid bearer token.
var ErrUnauthorized = errors.New("unauthorized")

type contextKey int

const (
	appIDKey contextKey = iota
	sessionIDKey
)

func getAppID(ctx context.Context) string {
	v, _ := ctx.Value(appIDKey).(string)
	return v
}

func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// AppResolver resolves the app a bearer token belongs to.
type AppResolver interface {
	ResolveApp(ctx context.Context, token string) (string, error)
}

// unauthenticated lists the protocol methods allowed before a token is checked.
func unauthenticated(method string) bool {
	return method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/")
}

func bearerToken(header http.Header) string {
	if header == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header.Get("Authorization"), "Bearer "))
}

// authMiddleware scopes each call to the app owning the bearer token.
func authMiddleware(resolver AppResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if unauthenticated(method) {
				return next(ctx, method, req)
			}

			var token string
			if extra := req.GetExtra(); extra != nil {
				token = bearerToken(extra.Header)
			}
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
			}

			appID, err := resolver.ResolveApp(ctx, token)
			if err != nil || appID == "" {
				return nil, fmt.Errorf("%w: invalid bearer token", ErrUnauthorized)
			}
			return next(context.WithValue(ctx, appIDKey, appID), method, req)
		}
	}
}

// staticAppMiddleware scopes every call to one app. Used when auth is off.
func staticAppMiddleware(appID string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(context.WithValue(ctx, appIDKey, appID), method, req)
		}
	}
}

// sessionMiddleware records the session ID from the Mcp-Session-Id header
// (HTTP) or from _meta.session_id (stdio).
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			sessionID := ""
			if extra := req.GetExtra(); extra != nil && extra.Header != nil {
				sessionID = extra.Header.Get("Mcp-Session-Id")
			}
			if sessionID == "" {
				sessionID = metaSessionID(req)
			}
			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			}
			return next(ctx, method, req)
		}
	}
}

// metaSessionID reads _meta.session_id. GetMeta panics when the params
// interface holds a typed nil, which happens for some notifications.
func metaSessionID(req sdkmcp.Request) (sessionID string) {
	defer func() {
		if recover() != nil {
			sessionID = ""
		}
	}()
	params := req.GetParams()
	if params == nil {
		return ""
	}
	sid, _ := params.GetMeta()["session_id"].(string)
	return sid
}
