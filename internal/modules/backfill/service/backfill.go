package service

import (
	"context"
	"math"
	"time"

	"deriv_bot/internal/deriv"
	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/pkg/logger"

	"github.com/pkg/errors"
)

// пауза между запросами истории, чтобы не упереться в лимиты API
const fetchDelay = 500 * time.Millisecond

type CandleStore interface {
	Candles1m(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle1m, error)
	SaveCandle1m(ctx context.Context, candle *models.Candle1m) error
}

type HistoryClient interface {
	Connect(ctx context.Context) error
	Close()
	HistoryCandles(ctx context.Context, symbol string, startEpoch, endEpoch int64) ([]deriv.HistoryCandle, error)
}

// Backfill раз в интервал сверяет ожидаемую минутную сетку с базой и
// дотягивает дырки из истории.
type Backfill struct {
	cfg   *config.Config
	store CandleStore
	dial  func() HistoryClient
}

func New(cfg *config.Config, store CandleStore) *Backfill {
	return &Backfill{
		cfg:   cfg,
		store: store,
		dial: func() HistoryClient {
			return deriv.NewClient(cfg.Deriv.WSURL, "", false)
		},
	}
}

func (s *Backfill) Run(ctx context.Context) {
	logger.Info("[BACKFILL] starting for %s, lookback %dm, every %s",
		s.cfg.Symbol, s.cfg.LookbackMinutes, s.cfg.BackfillInterval)

	ticker := time.NewTicker(s.cfg.BackfillInterval)
	defer ticker.Stop()

	for {
		if err := s.CheckGaps(ctx, time.Now().UTC()); err != nil {
			logger.Error("[BACKFILL] %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckGaps строит сетку [now-lookback, now-1m] по целым минутам,
// вычитает то, что уже лежит в базе, и тащит историю по каждой дырке.
// Ошибка на одной минуте не прерывает остальные.
func (s *Backfill) CheckGaps(ctx context.Context, now time.Time) error {
	logger.Info("[BACKFILL] checking for gaps...")

	end := now.Truncate(time.Minute).Add(-time.Minute)
	start := end.Add(-time.Duration(s.cfg.LookbackMinutes-1) * time.Minute)

	existing, err := s.store.Candles1m(ctx, s.cfg.Symbol, start, end.Add(time.Minute))
	if err != nil {
		return errors.Wrap(err, "read existing candles")
	}

	have := make(map[int64]struct{}, len(existing))
	for _, c := range existing {
		have[c.MinuteStart.Unix()] = struct{}{}
	}

	var gaps []time.Time
	for t := start; !t.After(end); t = t.Add(time.Minute) {
		if _, ok := have[t.Unix()]; !ok {
			gaps = append(gaps, t)
		}
	}

	if len(gaps) == 0 {
		logger.Info("[BACKFILL] no gaps found")
		return nil
	}

	logger.Info("[BACKFILL] found %d gaps, filling...", len(gaps))

	client := s.dial()
	if err := client.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect")
	}
	defer client.Close()

	for _, gap := range gaps {
		if err := s.fillOne(ctx, client, gap); err != nil {
			logger.Error("[BACKFILL] filling %s: %v", gap.Format(time.RFC3339), err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(fetchDelay):
		}
	}

	return nil
}

func (s *Backfill) fillOne(ctx context.Context, client HistoryClient, gap time.Time) error {
	startEpoch := gap.Unix()
	endEpoch := gap.Add(time.Minute).Unix() - 1

	candles, err := client.HistoryCandles(ctx, s.cfg.Symbol, startEpoch, endEpoch)
	if err != nil {
		return err
	}

	for _, hc := range candles {
		candle := &models.Candle1m{
			Symbol:      s.cfg.Symbol,
			MinuteStart: time.Unix(hc.Epoch, 0).UTC(),
			Open:        hc.Open,
			High:        hc.High,
			Low:         hc.Low,
			Close:       hc.Close,
			// настоящих тиков нет, range приближаем телом свечи
			Range:     math.Abs(hc.Close - hc.Open),
			TickCount: 30,
			Filled:    true,
		}
		if err := s.store.SaveCandle1m(ctx, candle); err != nil {
			return err
		}
		logger.Info("[BACKFILL] filled: %s", gap.Format(time.RFC3339))
	}

	return nil
}
