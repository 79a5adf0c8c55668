package auth

import (
	"unicode/utf8"

	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/service"
	"familydir/internal/errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest admin password accepted for hashing.
const MinPasswordLength = 8

// bcryptHasher checks the admin password configured as auth.adminPasswordHash.
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher is the constructor for bcryptHasher.
func NewBcryptHasher() service.PasswordHasher {
	return NewBcryptHasherWithCost(bcrypt.DefaultCost)
}

// NewBcryptHasherWithCost returns a hasher using the given bcrypt cost.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	return &bcryptHasher{cost: cost}
}

// Hash is used by familyctl hash-password to produce the configured hash.
func (h *bcryptHasher) Hash(password string) (string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", domainerrors.ErrValidationFailed.WithDetails("password must be at least 8 characters long")
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
