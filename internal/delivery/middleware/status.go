package middleware

import (
	"net/http"

	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/errors"

	"github.com/labstack/echo/v4"
)

// statusOf maps a handler error to the HTTP status the error handler will answer with.
func statusOf(err error) int {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPCode()
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return http.StatusInternalServerError
}
