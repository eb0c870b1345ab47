package service

import (
	"context"
	"time"

	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/pkg/logger"

	"github.com/pkg/errors"
)

// minCandles — сколько минутных свечей из 30 должно быть, чтобы окно
// считалось пригодным для агрегации.
const minCandles = 25

type CandleStore interface {
	HasCandle30m(ctx context.Context, symbol string, windowStart time.Time) (bool, error)
	Candles1m(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle1m, error)
	SaveCandle30m(ctx context.Context, candle *models.Candle30m) error
}

// Aggregator собирает минутные свечи в 30-минутные по границам часа.
type Aggregator struct {
	cfg   *config.Config
	store CandleStore
}

func New(cfg *config.Config, store CandleStore) *Aggregator {
	return &Aggregator{cfg: cfg, store: store}
}

// Run ждёт каждую 30-минутную границу, даёт минутным записям осесть
// (SettleDelay) и агрегирует только что закрытое окно.
func (s *Aggregator) Run(ctx context.Context) {
	logger.Info("[AGGREGATOR] starting for %s...", s.cfg.Symbol)

	for {
		now := time.Now().UTC()
		next := now.Truncate(30 * time.Minute).Add(30 * time.Minute)
		wait := next.Sub(now) + s.cfg.SettleDelay

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := s.AggregateWindow(ctx, time.Now().UTC()); err != nil {
			logger.Error("[AGGREGATOR] %v", err)
		}
	}
}

// AggregateWindow агрегирует окно, закрытое последней 30m-границей до now.
// Идемпотентно: если свеча окна уже есть — no-op. Если минутных свечей
// меньше 25 — окно пропускается (и больше не пересчитывается).
func (s *Aggregator) AggregateWindow(ctx context.Context, now time.Time) error {
	windowEnd := now.Truncate(30 * time.Minute)
	windowStart := windowEnd.Add(-30 * time.Minute)

	exists, err := s.store.HasCandle30m(ctx, s.cfg.Symbol, windowStart)
	if err != nil {
		return errors.Wrap(err, "check existing")
	}
	if exists {
		return nil
	}

	candles, err := s.store.Candles1m(ctx, s.cfg.Symbol, windowStart, windowEnd)
	if err != nil {
		return errors.Wrap(err, "read 1m candles")
	}

	if len(candles) < minCandles {
		logger.Info("[AGGREGATOR] not enough candles (%d/30) for %s",
			len(candles), windowStart.Format(time.RFC3339))
		return nil
	}

	out := rollup(s.cfg.Symbol, windowStart, candles)
	if err := s.store.SaveCandle30m(ctx, out); err != nil {
		return errors.Wrap(err, "save 30m")
	}

	logger.Info("[AGGREGATOR] saved 30m: %s | range:%.4f | candles:%d",
		windowStart.Format(time.RFC3339), out.Range, out.CandleCount)
	return nil
}

// rollup: open — открытие первой, close — закрытие последней, high/low —
// экстремумы по всем четырём OHLC, range — СУММА минутных range.
func rollup(symbol string, windowStart time.Time, candles []models.Candle1m) *models.Candle30m {
	out := &models.Candle30m{
		Symbol:      symbol,
		WindowStart: windowStart,
		Open:        candles[0].Open,
		Close:       candles[len(candles)-1].Close,
		High:        candles[0].High,
		Low:         candles[0].Low,
		CandleCount: len(candles),
	}

	for _, c := range candles {
		for _, p := range []float64{c.Open, c.High, c.Low, c.Close} {
			if p > out.High {
				out.High = p
			}
			if p < out.Low {
				out.Low = p
			}
		}
		out.Range += c.Range
		out.TickCount += c.TickCount
	}

	return out
}
