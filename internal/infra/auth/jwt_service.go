// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"familydir/config"
	"familydir/internal/domain/service"
	"familydir/internal/errors"
)

const (
	tokenTypeAccess = "access"
	tokenIssuer     = "familydir"
)

// ErrInvalidToken is returned when a token fails signature, expiry or type checks.
var ErrInvalidToken = errors.New("invalid token")

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret []byte        // Secret key for signing access tokens.
	ttl    time.Duration // Time-to-live for access tokens.
	now    func() time.Time
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.Auth == nil || cfg.Auth.SecretKey == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	return &jwtService{
		secret: []byte(cfg.Auth.SecretKey),
		ttl:    cfg.Auth.TokenTTL,
		now:    time.Now,
	}, nil
}

// GenerateToken creates a signed access token for subject.
func (s *jwtService) GenerateToken(subject string) (string, error) {
	now := s.now()
	claims := service.Claims{
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// ValidateToken checks the signature, expiry and type of tokenString.
func (s *jwtService) ValidateToken(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	if claims.Type != tokenTypeAccess {
		return nil, errors.Wrapf(ErrInvalidToken, "unexpected token type %q", claims.Type)
	}

	return claims, nil
}

// TokenDuration returns the configured duration for access tokens.
func (s *jwtService) TokenDuration() time.Duration {
	return s.ttl
}
