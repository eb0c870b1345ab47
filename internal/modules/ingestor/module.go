package ingestor

import (
	"context"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/ingestor/service"
	"deriv_bot/internal/storage/pg"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("ingestor",
		fx.Provide(
			func(cfg *config.Config, candles *pg.Candles) *service.Ingestor {
				return service.New(cfg, candles)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			s *service.Ingestor,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go s.Run(ctx)
					return nil
				},
			})
		}),
	)
}
