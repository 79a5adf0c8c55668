package memory

import (
	"context"

	"familydir/internal/domain/repository"
)

// transactionManager runs callbacks against the shared store. Writes made before a failure are
// kept; the store has no rollback.
type transactionManager struct {
	factory *repositoryFactory
}

type repositoryFactory struct {
	repo repository.MemberRepository
}

// NewMemberRepository returns the store-backed member repository.
func (f *repositoryFactory) NewMemberRepository() repository.MemberRepository {
	return f.repo
}

// NewTransactionManager is the constructor for the in-memory TransactionManager.
func NewTransactionManager(store *Store) repository.TransactionManager {
	return &transactionManager{factory: &repositoryFactory{repo: NewMemberRepository(store)}}
}

// Execute runs fn with a factory bound to the store.
func (tm *transactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(tm.factory)
}
