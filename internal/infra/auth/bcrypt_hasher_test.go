package auth

import (
	"testing"

	domainerrors "familydir/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_AdminPassword(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	hash, err := hasher.Hash("family-admin-2024")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "configured password", password: "family-admin-2024", hash: hash, want: true},
		{name: "wrong password", password: "family-admin-2025", hash: hash},
		{name: "empty password", password: "", hash: hash},
		{name: "hash not configured", password: "family-admin-2024", hash: ""},
		{name: "malformed hash", password: "family-admin-2024", hash: "plain-text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.Check(tt.password, tt.hash))
		})
	}
}

func TestBcryptHasher_HashRejectsShortPassword(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	for _, password := range []string{"", "123", "seven77"} {
		_, err := hasher.Hash(password)
		var appErr domainerrors.AppError
		require.ErrorAs(t, err, &appErr, "password %q", password)
		assert.Equal(t, "VALIDATION_FAILED", appErr.ErrorCode())
	}
}
