package middleware

import (
	"log/slog"
	"strings"

	"familydir/config"
	deliverycontext "familydir/internal/delivery/context"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware guards mutating routes with the admin access token.
type AuthMiddleware struct {
	sessions usecase.SessionUsecase
	enabled  bool
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(sessions usecase.SessionUsecase, cfg *config.Config, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		enabled:  cfg.Auth != nil && cfg.Auth.Enabled,
		logger:   logger,
	}
}

// RequireAdmin validates the bearer token when login is enabled and passes requests through
// otherwise.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !m.enabled {
			return next(c)
		}

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return domainerrors.ErrUnauthorized.WithDetails("authorization header is missing")
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			return domainerrors.ErrUnauthorized.WithDetails("token must be a bearer token")
		}

		subject, err := m.sessions.Authenticate(c.Request().Context(), tokenString)
		if err != nil {
			return err
		}

		c.SetRequest(c.Request().WithContext(deliverycontext.WithAdmin(c.Request().Context(), subject, m.logger)))

		return next(c)
	}
}
