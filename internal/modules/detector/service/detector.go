package service

import (
	"context"
	"time"

	"deriv_bot/internal/calc"
	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/pkg/logger"
)

type CandleStore interface {
	LastCandles30m(ctx context.Context, symbol string, n int) ([]models.Candle30m, error)
}

type SignalStore interface {
	Insert(ctx context.Context, sig *models.Signal) error
}

type candidate struct {
	c1, c2 models.Candle30m
}

// Detector следит за паттерном 010+doji: медвежья → бычья → медвежий
// дожи. Кандидаты (первые две свечи) живут в памяти инстанса, ключ —
// window_start второй свечи.
type Detector struct {
	cfg     *config.Config
	candles CandleStore
	signals SignalStore

	active map[int64]candidate
}

func New(cfg *config.Config, candles CandleStore, signals SignalStore) *Detector {
	return &Detector{
		cfg:     cfg,
		candles: candles,
		signals: signals,
		active:  make(map[int64]candidate),
	}
}

func (d *Detector) Run(ctx context.Context) {
	logger.Info("[DETECTOR] starting for %s, poll %s", d.cfg.Symbol, d.cfg.DetectorInterval)

	ticker := time.NewTicker(d.cfg.DetectorInterval)
	defer ticker.Stop()

	for {
		if err := d.Tick(ctx); err != nil {
			logger.Error("[DETECTOR] %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick — один проход: регистрация новых кандидатов, потом разрешение
// уже зарегистрированных.
func (d *Detector) Tick(ctx context.Context) error {
	if err := d.checkNewPattern(ctx); err != nil {
		return err
	}
	return d.resolveActive(ctx)
}

// checkNewPattern смотрит две последние свечи: медвежья (c1) + бычья
// (c2) открывают кандидата. Повторная регистрация того же ключа —
// идемпотентная перезапись.
func (d *Detector) checkNewPattern(ctx context.Context) error {
	candles, err := d.candles.LastCandles30m(ctx, d.cfg.Symbol, 2)
	if err != nil {
		return err
	}
	if len(candles) < 2 {
		return nil
	}

	c1, c2 := candles[len(candles)-2], candles[len(candles)-1]
	if !calc.IsBullish(c1) && calc.IsBullish(c2) {
		key := c2.WindowStart.Unix()
		d.active[key] = candidate{c1: c1, c2: c2}
		logger.Info("[DETECTOR] new 010 pattern started at %s", c2.WindowStart.Format(time.RFC3339))
	}

	return nil
}

// resolveActive проверяет каждого кандидата против самой свежей свечи
// (c3). Кандидат одноразовый: после первой же свечи новее его c2 он
// либо даёт сигнал, либо выбрасывается.
func (d *Detector) resolveActive(ctx context.Context) error {
	candles, err := d.candles.LastCandles30m(ctx, d.cfg.Symbol, 1)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return nil
	}
	c3 := candles[len(candles)-1]

	for key, cand := range d.active {
		if !c3.WindowStart.After(cand.c2.WindowStart) {
			continue // свеча после c2 ещё не сформировалась
		}

		switch {
		case calc.IsBullish(c3):
			logger.Info("[DETECTOR] pattern %d: c3 bullish, discarded", key)

		case !calc.IsDoji(c3, d.cfg.DojiThreshold):
			logger.Info("[DETECTOR] pattern %d: c3 not doji, discarded", key)

		default:
			sig := &models.Signal{
				PatternID: cand.c2.WindowStart,
				Symbol:    c3.Symbol,
				Type:      models.PatternDoji010,
				C1:        cand.c1,
				C2:        cand.c2,
				C3:        c3,
				Direction: models.DirectionBullish, // разворот вверх после отката
				CreatedAt: time.Now().UTC(),
			}
			if err := d.signals.Insert(ctx, sig); err != nil {
				return err
			}
			logger.Info("[DETECTOR] pattern %d: 010+doji, trade signal emitted", key)
		}

		delete(d.active, key)
	}

	return nil
}
