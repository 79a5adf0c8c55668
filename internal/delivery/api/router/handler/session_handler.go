package handler

import (
	"net/http"

	"familydir/internal/delivery/api/response"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/errors"
	"familydir/internal/usecase"

	"github.com/labstack/echo/v4"
)

// SessionHandler serves admin login.
type SessionHandler struct {
	sessions usecase.SessionUsecase
}

// NewSessionHandler is the constructor for SessionHandler.
func NewSessionHandler(sessions usecase.SessionUsecase) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Login exchanges admin credentials for an access token.
func (h *SessionHandler) Login(c echo.Context) error {
	var input usecase.LoginInput
	if err := c.Bind(&input); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("invalid login input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	output, err := h.sessions.Login(c.Request().Context(), &input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, output)
}
