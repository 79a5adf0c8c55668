package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PasswordHasher verifies the admin password against its stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

// Claims defines the custom claims for admin access tokens.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and validates admin access tokens.
type TokenService interface {
	// GenerateToken creates an access token for subject.
	GenerateToken(subject string) (string, error)

	// ValidateToken checks the validity of a token string.
	ValidateToken(tokenString string) (*Claims, error)

	// TokenDuration returns the configured lifetime of access tokens.
	TokenDuration() time.Duration
}
