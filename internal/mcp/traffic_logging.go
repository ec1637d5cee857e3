package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// trafficLoggingMiddleware logs each MCP message and its response at debug
// level. Payloads are only marshalled when debug logging is enabled.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			sessionID := getSessionID(ctx)
			if sessionID == "" {
				sessionID = transportSessionID(req)
			}
			log := logger.With(
				slog.String("direction", direction),
				slog.String("method", method),
				slog.String("session_id", sessionID),
			)
			log.Debug("mcp request", "params", formatPayload(requestParams(req)))

			start := time.Now()
			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}

			attrs := []any{
				"app_id", getAppID(ctx),
				"duration", time.Since(start),
				"result", formatPayload(result),
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			log.Debug("mcp response", attrs...)
			return result, err
		}
	}
}

// transportSessionID returns the SDK session ID. Outbound requests may carry
// no session, and the accessors panic on typed nils.
func transportSessionID(req sdkmcp.Request) (id string) {
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if req == nil {
		return ""
	}
	if session := req.GetSession(); session != nil {
		return session.ID()
	}
	return ""
}

func requestParams(req sdkmcp.Request) (params any) {
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	if req == nil {
		return nil
	}
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
