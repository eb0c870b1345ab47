package main

import (
	"context"

	"deriv_bot/internal/modules/aggregator"
	"deriv_bot/internal/modules/backfill"
	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/detector"
	"deriv_bot/internal/modules/executor"
	"deriv_bot/internal/modules/ingestor"
	"deriv_bot/internal/modules/postgres"
	"deriv_bot/pkg/logger"
	"deriv_bot/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	logger.Init()
	logger.SetServiceName("deriv_bot")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		fx.Invoke(initTracing),
		config.Module(),
		postgres.Module(),
		ingestor.Module(),
		backfill.Module(),
		aggregator.Module(),
		detector.Module(),
		executor.Module(),
	)
	app.Run()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Jaeger.Host == "" {
		return nil
	}

	tracing.SetServiceName("deriv_bot")
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}
