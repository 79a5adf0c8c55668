// Package middleware contains the echo middlewares specific to the API server.
package middleware

import (
	"log/slog"
	"net/http"

	"familydir/internal/delivery/api/response"
	deliverycontext "familydir/internal/delivery/context"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/errors"

	"github.com/labstack/echo/v4"
)

// ErrorMiddleware renders every handler error as the directory's error envelope.
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates the error middleware.
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError is installed as echo's HTTPErrorHandler.
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	logger := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)

	// Adapter failures carry their own message through to the client.
	var adapterErr *domainerrors.AdapterError
	if errors.As(err, &adapterErr) {
		logger.Error("Adapter failure", slog.String("adapter", adapterErr.Adapter()), slog.Any("error", err))
		_ = response.Error(c, adapterErr.HTTPCode(), adapterErr.ErrorCode(), adapterErr.Message(), nil)

		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			logger.Error("Request failed", slog.String("code", appErr.ErrorCode()), slog.Any("error", err))
		}
		_ = response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}

		_ = response.Error(c, httpErr.Code, "HTTP_ERROR", message, nil)

		return
	}

	attrs := []any{
		slog.Any("error", err),
		slog.String("method", c.Request().Method),
		slog.String("route", c.Path()),
	}
	if id := c.Param("id"); id != "" {
		attrs = append(attrs, slog.String("member_id", id))
	}
	logger.Error("Unhandled error", attrs...)

	_ = response.InternalServerError(c, "INTERNAL_ERROR", "The family directory could not complete the request")
}
