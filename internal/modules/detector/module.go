package detector

import (
	"context"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/detector/service"
	"deriv_bot/internal/storage/pg"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("detector",
		fx.Provide(
			func(cfg *config.Config, candles *pg.Candles, signals *pg.Signals) *service.Detector {
				return service.New(cfg, candles, signals)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			s *service.Detector,
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
