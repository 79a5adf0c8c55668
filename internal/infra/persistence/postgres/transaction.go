// Package postgres stores members and their children edges in PostgreSQL through GORM.
package postgres

import (
	"context"

	"familydir/internal/domain/repository"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// gormTransactionManager runs relationship updates against one *gorm.DB transaction.
type gormTransactionManager struct {
	db *gorm.DB
}

// txRepositories hands out repositories bound to a single transaction.
type txRepositories struct {
	tx *gorm.DB
}

func (f *txRepositories) NewMemberRepository() repository.MemberRepository {
	return NewMemberRepository(f.tx)
}

// NewTransactionManager is the constructor for gormTransactionManager.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute commits when fn succeeds and rolls back when it fails or panics. The error of fn is
// returned unchanged so domain errors keep their type.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) (err error) {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&txRepositories{tx: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rbErr)
		}

		return err
	}

	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}
