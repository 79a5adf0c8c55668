package postgres

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the member store maps to domain errors.
const (
	sqlStateNotNullViolation = "23502"
	sqlStateUniqueViolation  = "23505"
)

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || sqlState(err) == sqlStateUniqueViolation {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}

func isNotNullConstraintViolation(err error) bool {
	if sqlState(err) == sqlStateNotNullViolation {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "violates not-null constraint")
}
