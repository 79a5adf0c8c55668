package auth

import (
	"testing"
	"time"

	"familydir/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(secret string) *config.Config {
	return &config.Config{Auth: &config.AuthConfig{
		Enabled:   true,
		SecretKey: secret,
		TokenTTL:  time.Hour,
	}}
}

func TestJWTService_GenerateAndValidateToken(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig("test_secret_key_very_long_for_testing"))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, jwtService.TokenDuration())

	token, err := jwtService.GenerateToken("admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, "familydir", claims.Issuer)
}

func TestJWTService_MissingSecret(t *testing.T) {
	_, err := NewJWTService(newTestConfig(""))
	assert.Error(t, err)

	_, err = NewJWTService(&config.Config{})
	assert.Error(t, err)
}

func TestJWTService_InvalidToken(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig("test_secret_key_very_long_for_testing"))
	require.NoError(t, err)

	other, err := NewJWTService(newTestConfig("a_different_secret_key_for_testing"))
	require.NoError(t, err)
	foreign, err := other.GenerateToken("admin")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Malformed", "not.a.token"},
		{"Empty", ""},
		{"Wrong secret", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jwtService.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc, err := NewJWTService(newTestConfig("test_secret_key_very_long_for_testing"))
	require.NoError(t, err)
	impl := svc.(*jwtService)

	impl.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := impl.GenerateToken("admin")
	require.NoError(t, err)

	impl.now = time.Now
	_, err = impl.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsWrongType(t *testing.T) {
	secret := "test_secret_key_very_long_for_testing"
	svc, err := NewJWTService(newTestConfig(secret))
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"iss":  "familydir",
		"type": "refresh",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
