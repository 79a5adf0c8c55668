// Package context carries request-scoped values between the echo layer and the use cases.
package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyLogger
	keyAdmin
)

// HeaderXRequestID is the header echoing the request ID back to clients.
const HeaderXRequestID = "X-Request-Id"

// echoKeyRequestID mirrors the request ID on echo.Context for the response envelope.
const echoKeyRequestID = "request_id"

// GetRequestID returns the request ID stored by the request ID middleware. Requests that
// never went through it get a fresh one.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(echoKeyRequestID).(string); ok && id != "" {
		return id
	}

	return uuid.NewString()
}

// BindRequest stores the request ID and its logger on both echo.Context and the request's
// context.Context.
func BindRequest(c echo.Context, requestID string, logger *slog.Logger) {
	c.Set(echoKeyRequestID, requestID)

	ctx := context.WithValue(c.Request().Context(), keyRequestID, requestID)
	ctx = WithLogger(ctx, logger)
	c.SetRequest(c.Request().WithContext(ctx))
}

// RequestIDFromContext returns "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)

	return id
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// GetLoggerOrDefault returns the request-scoped logger, or fallback outside a request.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(keyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

// WithAdmin marks the request as made by the named admin. The request logger, if any,
// gains an admin attribute so mutations are attributed in the logs.
func WithAdmin(ctx context.Context, username string, fallback *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, keyAdmin, username)
	if logger := GetLoggerOrDefault(ctx, fallback); logger != nil {
		ctx = WithLogger(ctx, logger.With(slog.String("admin", username)))
	}

	return ctx
}

// AdminFromContext returns the admin who authenticated the request.
func AdminFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(keyAdmin).(string)

	return username, ok && username != ""
}
