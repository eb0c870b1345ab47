package executor

import (
	"context"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/executor/service"
	"deriv_bot/internal/notify"
	"deriv_bot/internal/storage/pg"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("executor",
		fx.Provide(
			func(cfg *config.Config) (*notify.Telegram, error) {
				return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
			func(
				cfg *config.Config,
				signals *pg.Signals,
				trades *pg.Trades,
				balances *pg.Balances,
				n *notify.Telegram,
			) *service.Executor {
				return service.New(cfg, signals, trades, balances, n)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			s *service.Executor,
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
