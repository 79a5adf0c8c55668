package main

import (
	"context"

	"familydir/config"
	"familydir/internal/domain/lifecycle"
	logs "familydir/internal/infra/log"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// runApp starts a short-lived Fx application with the base infrastructure plus opts, calls fn
// once every OnStart hook has run, then stops the application.
func runApp(ctx context.Context, fn func(ctx context.Context) error, opts ...fx.Option) error {
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.New,
			logs.New,
		),
		fx.Options(opts...),
	)
	if err := app.Err(); err != nil {
		return errors.Wrap(err, "failed to wire application")
	}

	startCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return errors.Wrap(err, "failed to start application")
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return errors.Wrap(err, "failed to stop application")
	}

	return runErr
}
