// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"familydir/config"
	deliverycontext "familydir/internal/delivery/context"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/service"
	"familydir/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface for the single configured admin.
type sessionService struct {
	enabled      bool
	username     string
	passwordHash string
	hasher       service.PasswordHasher
	tokens       service.TokenService
	now          func() time.Time
	logger       *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	Hasher service.PasswordHasher
	Tokens service.TokenService `optional:"true"`
	Config *config.Config
	Logger *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	srv := &sessionService{
		hasher: params.Hasher,
		tokens: params.Tokens,
		now:    time.Now,
		logger: params.Logger,
	}
	if auth := params.Config.Auth; auth != nil {
		srv.enabled = auth.Enabled && params.Tokens != nil
		srv.username = auth.AdminUsername
		srv.passwordHash = auth.AdminPasswordHash
	}

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login checks the admin credentials and issues an access token.
func (srv *sessionService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	if !srv.enabled {
		return nil, domainerrors.ErrAuthDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(srv.username)) == 1
	// Always run the hash check so a wrong username costs the same as a wrong password.
	passOK := srv.hasher.Check(input.Password, srv.passwordHash)
	if !userOK || !passOK {
		srv.log(ctx).Warn("Rejected admin login", slog.String("username", input.Username))

		return nil, domainerrors.ErrInvalidCredentials
	}

	token, err := srv.tokens.GenerateToken(srv.username)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate access token")
	}

	srv.log(ctx).Info("Admin logged in", slog.String("username", srv.username))

	return &usecase.LoginOutput{
		Token:     token,
		ExpiresAt: srv.now().Add(srv.tokens.TokenDuration()),
	}, nil
}

// Authenticate validates an access token and returns its subject.
func (srv *sessionService) Authenticate(ctx context.Context, token string) (string, error) {
	if !srv.enabled {
		return "", domainerrors.ErrAuthDisabled
	}

	claims, err := srv.tokens.ValidateToken(token)
	if err != nil {
		srv.log(ctx).Debug("Rejected access token", slog.Any("error", err))

		return "", domainerrors.ErrUnauthorized.WithDetails(err.Error())
	}

	return claims.Subject, nil
}
