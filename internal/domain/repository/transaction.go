package repository

import "context"

// TransactionManager groups the writes of one relationship mutation. On PostgreSQL they
// commit or roll back together; the in-memory store applies them as they happen and keeps
// whatever fn wrote before failing.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to the running transaction.
type RepositoryFactory interface {
	NewMemberRepository() MemberRepository
}
