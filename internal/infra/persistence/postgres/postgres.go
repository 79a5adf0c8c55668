package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"familydir/config"
	"familydir/internal/domain/lifecycle"
	"familydir/internal/errors"
	"familydir/internal/infra/metrics"
	"familydir/internal/infra/persistence/model"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	poolWaitCheckInterval = 30 * time.Second
	poolWaitWarnThreshold = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the member database. The connection is checked, and the schema optionally
// migrated, when the application starts.
func New(params Params) (*gorm.DB, error) {
	if params.Config.Postgres == nil {
		return nil, errors.New("storage driver is postgres but the postgres section is missing")
	}

	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	db = db.Session(&gorm.Session{
		// Relationship writes open their own transactions through the TransactionManager.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}
	if err := metrics.RegisterDBStats(sqlDB); err != nil {
		params.Logger.Warn("Member store pool metrics unavailable", slog.Any("error", err))
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}

			if params.Config.Storage.AutoMigrate {
				if err := Migrate(db.WithContext(ctx)); err != nil {
					return err
				}
				params.Logger.Info("Member schema migrated")
			}

			go watchPoolWaits(watchCtx, params.Logger, sqlDB)

			return nil
		},
		OnStop: func(_ context.Context) error {
			stopWatch()

			return errors.WithStack(sqlDB.Close())
		},
	})

	return db, nil
}

// Migrate creates or updates the member tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.MemberModel{}, &model.MemberChildModel{}); err != nil {
		return errors.Wrap(err, "failed to migrate member schema")
	}

	return nil
}

// watchPoolWaits warns when requests spent noticeable time waiting for a connection. Pool
// gauges themselves are exported by the DB stats collector.
func watchPoolWaits(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB) {
	ticker := time.NewTicker(poolWaitCheckInterval)
	defer ticker.Stop()

	prev := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := sqlDB.Stats()
			if waited := cur.WaitDuration - prev.WaitDuration; waited >= poolWaitWarnThreshold {
				logger.LogAttrs(ctx, slog.LevelWarn, "Member store connection pool is saturated",
					slog.Int64("waits", cur.WaitCount-prev.WaitCount),
					slog.Duration("waited", waited),
					slog.Int("inUse", cur.InUse),
					slog.Int("maxOpen", cur.MaxOpenConnections),
				)
			}
			prev = cur
		}
	}
}
