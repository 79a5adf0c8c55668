package usecase

import (
	"context"
	"time"
)

// LoginInput represents the admin credentials submitted at login.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginOutput carries the issued access token.
type LoginOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionUsecase issues and checks admin access tokens.
type SessionUsecase interface {
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	// Authenticate validates a bearer token and returns its subject.
	Authenticate(ctx context.Context, token string) (string, error)
}
