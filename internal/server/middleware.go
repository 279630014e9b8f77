package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// requestIDFromContext returns the ID assigned by the request ID middleware.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// loggerFromContext decorates logger with the request ID, when present.
func loggerFromContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := requestIDFromContext(ctx); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}

// createRequestIDMiddleware tags every incoming MCP request with a unique ID
// so log lines from one call can be correlated.
func createRequestIDMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(
			ctx context.Context,
			method string,
			req mcp.Request,
		) (mcp.Result, error) {
			ctx = context.WithValue(ctx, requestIDKey, uuid.NewString())
			return next(ctx, method, req)
		}
	}
}

// createLoggingMiddleware creates middleware that logs all MCP method calls
func createLoggingMiddleware(logger *zap.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(
			ctx context.Context,
			method string,
			req mcp.Request,
		) (mcp.Result, error) {
			start := time.Now()
			log := loggerFromContext(ctx, logger).With(
				zap.String("session", req.GetSession().ID()),
				zap.String("method", method),
			)

			log.Debug("request")

			result, err := next(ctx, method, req)

			duration := time.Since(start)
			if err != nil {
				log.Warn("response", zap.String("status", "error"), zap.Duration("duration", duration), zap.Error(err))
			} else {
				log.Info("response", zap.String("status", "ok"), zap.Duration("duration", duration))
			}

			return result, err
		}
	}
}
