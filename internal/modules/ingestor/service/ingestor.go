package service

import (
	"context"
	"time"

	"deriv_bot/internal/deriv"
	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/pkg/logger"

	"github.com/pkg/errors"
)

type CandleStore interface {
	SaveCandle1m(ctx context.Context, candle *models.Candle1m) error
}

// Ingestor держит живую подписку на тики и пишет минутные свечи.
type Ingestor struct {
	cfg   *config.Config
	store CandleStore
	agg   *Aggregator
}

func New(cfg *config.Config, store CandleStore) *Ingestor {
	return &Ingestor{
		cfg:   cfg,
		store: store,
		agg:   NewAggregator(cfg.Symbol),
	}
}

// Run — вечный цикл: коннект, подписка, чтение. Любой обрыв — пауза и
// реконнект, процесс не падает.
func (s *Ingestor) Run(ctx context.Context) {
	logger.Info("[INGESTOR] starting for %s...", s.cfg.Symbol)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.runOnce(ctx); err != nil {
			logger.Error("[INGESTOR] %v. Reconnecting...", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

func (s *Ingestor) runOnce(ctx context.Context) error {
	client := deriv.NewClient(s.cfg.Deriv.WSURL, "", false)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	ticks, err := client.SubscribeTicks(ctx, s.cfg.Symbol)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return errors.New("connection lost")
		case t := <-ticks:
			s.onTick(ctx, t)
		}
	}
}

func (s *Ingestor) onTick(ctx context.Context, t models.Tick) {
	candle := s.agg.Push(t)
	if candle == nil {
		return
	}

	if err := s.store.SaveCandle1m(ctx, candle); err != nil {
		logger.Error("[INGESTOR] save 1m %s: %v", candle.MinuteStart, err)
		return
	}

	logger.Info("[INGESTOR] saved 1m: %s | O:%.4f C:%.4f | range:%.4f | ticks:%d",
		candle.MinuteStart.Format(time.RFC3339), candle.Open, candle.Close,
		candle.Range, candle.TickCount)
}
