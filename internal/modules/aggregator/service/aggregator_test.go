package service

import (
	"context"
	"os"
	"testing"
	"time"

	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/pkg/logger"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeCandleStore struct {
	existing map[int64]bool
	candles  []models.Candle1m
	saved    []*models.Candle30m
}

func (f *fakeCandleStore) HasCandle30m(_ context.Context, _ string, windowStart time.Time) (bool, error) {
	return f.existing[windowStart.Unix()], nil
}

func (f *fakeCandleStore) Candles1m(_ context.Context, _ string, start, end time.Time) ([]models.Candle1m, error) {
	var out []models.Candle1m
	for _, c := range f.candles {
		if !c.MinuteStart.Before(start) && c.MinuteStart.Before(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCandleStore) SaveCandle30m(_ context.Context, candle *models.Candle30m) error {
	f.saved = append(f.saved, candle)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Symbol = "R_50"
	return cfg
}

// windowStart ровно на 30-минутной границе
var windowStart = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func minuteCandles(n int) []models.Candle1m {
	out := make([]models.Candle1m, 0, n)
	for i := 0; i < n; i++ {
		price := 100.0 + float64(i)
		out = append(out, models.Candle1m{
			Symbol:      "R_50",
			MinuteStart: windowStart.Add(time.Duration(i) * time.Minute),
			Open:        price,
			High:        price + 0.5,
			Low:         price - 0.5,
			Close:       price + 0.2,
			Range:       1.0,
			TickCount:   10,
		})
	}
	return out
}

func TestAggregateWindowRollup(t *testing.T) {
	store := &fakeCandleStore{
		existing: map[int64]bool{},
		candles:  minuteCandles(30),
	}
	s := New(testConfig(), store)

	now := windowStart.Add(30*time.Minute + 10*time.Second)
	require.NoError(t, s.AggregateWindow(context.Background(), now))
	require.Len(t, store.saved, 1)

	c := store.saved[0]
	require.Equal(t, windowStart, c.WindowStart)
	require.Equal(t, 100.0, c.Open)         // открытие первой минуты
	require.InDelta(t, 129.2, c.Close, 1e-9) // закрытие последней
	require.Equal(t, 129.5, c.High)       // максимум по всем OHLC
	require.Equal(t, 99.5, c.Low)         // минимум по всем OHLC
	require.InDelta(t, 30.0, c.Range, 1e-9) // сумма минутных range
	require.Equal(t, 300, c.TickCount)
	require.Equal(t, 30, c.CandleCount)
}

func TestAggregateWindowIdempotent(t *testing.T) {
	store := &fakeCandleStore{
		existing: map[int64]bool{windowStart.Unix(): true},
		candles:  minuteCandles(30),
	}
	s := New(testConfig(), store)

	now := windowStart.Add(30*time.Minute + 10*time.Second)
	require.NoError(t, s.AggregateWindow(context.Background(), now))
	require.Empty(t, store.saved)
}

func TestAggregateWindowTooFewCandles(t *testing.T) {
	store := &fakeCandleStore{
		existing: map[int64]bool{},
		candles:  minuteCandles(24), // меньше порога в 25
	}
	s := New(testConfig(), store)

	now := windowStart.Add(30*time.Minute + 10*time.Second)
	require.NoError(t, s.AggregateWindow(context.Background(), now))
	require.Empty(t, store.saved)
}

func TestAggregateWindowPartialButEnough(t *testing.T) {
	store := &fakeCandleStore{
		existing: map[int64]bool{},
		candles:  minuteCandles(25),
	}
	s := New(testConfig(), store)

	now := windowStart.Add(30*time.Minute + 10*time.Second)
	require.NoError(t, s.AggregateWindow(context.Background(), now))
	require.Len(t, store.saved, 1)
	require.Equal(t, 25, store.saved[0].CandleCount)
}
