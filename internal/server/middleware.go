package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yousuf/stepbyte/internal/session"
)

// sessionContextKey is the context key for storing session context
type contextKey string

const sessionContextKey contextKey = "session"

// getSessionFromContext retrieves the session context from the request context.
// SessionContext is stored as a value to keep request lifecycle separate from session lifecycle.
func getSessionFromContext(ctx context.Context) (*session.SessionContext, error) {
	sessionCtx, ok := ctx.Value(sessionContextKey).(*session.SessionContext)
	if !ok || sessionCtx == nil {
		return nil, errors.New("session context not found in request context")
	}
	return sessionCtx, nil
}

// createSessionInjectionMiddleware creates middleware that automatically manages session lifecycle.
func createSessionInjectionMiddleware(sessionMgr *session.Manager) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(
			ctx context.Context,
			method string,
			req mcp.Request,
		) (mcp.Result, error) {
			sessionCtx := sessionMgr.GetOrCreateSession(sessionID(req))
			sessionCtx.UpdateLastAccessed()

			// Store SessionContext as value in request context
			ctx = context.WithValue(ctx, sessionContextKey, sessionCtx)
			return next(ctx, method, req)
		}
	}
}

// createLoggingMiddleware creates middleware that logs all MCP method calls
func createLoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(
			ctx context.Context,
			method string,
			req mcp.Request,
		) (mcp.Result, error) {
			start := time.Now()
			id := sessionID(req)

			logger.Debug("mcp request", slog.String("session_id", id), slog.String("method", method))

			result, err := next(ctx, method, req)

			attrs := []any{
				slog.String("session_id", id),
				slog.String("method", method),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("mcp request failed", append(attrs, slog.String("error", err.Error()))...)
			} else {
				logger.Info("mcp request completed", attrs...)
			}
			return result, err
		}
	}
}

func sessionID(req mcp.Request) string {
	if s := req.GetSession(); s != nil {
		return s.ID()
	}
	return ""
}
