// Package persistence selects the member store backend.
package persistence

import (
	"log/slog"

	"familydir/config"
	"familydir/internal/domain/repository"
	"familydir/internal/infra/persistence/memory"
	"familydir/internal/infra/persistence/postgres"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// StoreParams holds dependencies for the member store, injected by Fx
type StoreParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// Store exposes the repository and transaction manager of one backend
type Store struct {
	fx.Out

	MemberRepo repository.MemberRepository
	TxManager  repository.TransactionManager
}

// NewStore creates the member store named by storage.driver
func NewStore(params StoreParams) (Store, error) {
	driver := params.Config.Storage.Driver
	logger := params.Logger

	switch driver {
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory member store, data is lost on restart")
		store := memory.NewStore()

		return Store{
			MemberRepo: memory.NewMemberRepository(store),
			TxManager:  memory.NewTransactionManager(store),
		}, nil

	case config.StorageDriverPostgres:
		logger.Info("Using PostgreSQL member store")
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lc,
			Config:    params.Config,
			Logger:    logger,
		})
		if err != nil {
			return Store{}, err
		}

		return Store{
			MemberRepo: postgres.NewMemberRepository(db),
			TxManager:  postgres.NewTransactionManager(db),
		}, nil

	default:
		return Store{}, errors.Errorf("unsupported storage driver: %s", driver)
	}
}
