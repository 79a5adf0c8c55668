package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	"familydir/config"
	"familydir/internal/delivery"
	"familydir/internal/delivery/api"
	apimiddleware "familydir/internal/delivery/api/middleware"
	"familydir/internal/delivery/api/router/handler"
	"familydir/internal/domain/service"
	"familydir/internal/infra/auth"
	logs "familydir/internal/infra/log"
	"familydir/internal/infra/maps"
	"familydir/internal/infra/persistence"
	"familydir/internal/infra/qrcode"
	"familydir/internal/infra/storage"
	"familydir/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			persistence.NewStore,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			newTokenService,
			newQRCodeService,
			storage.New,
			maps.NewLinkResolver,
			maps.NewDistanceCalculator,
		),
	)
}

// newTokenService only signs tokens when admin login is enabled, since the JWT service
// refuses to start without a secret.
func newTokenService(cfg *config.Config) (service.TokenService, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}

	return auth.NewJWTService(cfg)
}

func newQRCodeService(cfg *config.Config) service.QRCodeService {
	return qrcode.NewQRCodeService(cfg.QRCode)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewMemberService,
			impl.NewFamilyService,
			impl.NewDirectoryService,
			impl.NewSessionService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			apimiddleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewMemberHandler,
			handler.NewDirectoryHandler,
			handler.NewSessionHandler,
			handler.NewImageHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
