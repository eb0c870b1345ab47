package service

import (
	"context"
	"os"
	"testing"
	"time"

	"deriv_bot/internal/deriv"
	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/pkg/logger"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	candles map[int64]models.Candle1m
	saved   []*models.Candle1m
}

func newFakeStore() *fakeStore {
	return &fakeStore{candles: map[int64]models.Candle1m{}}
}

func (f *fakeStore) Candles1m(_ context.Context, _ string, start, end time.Time) ([]models.Candle1m, error) {
	var out []models.Candle1m
	for _, c := range f.candles {
		if !c.MinuteStart.Before(start) && c.MinuteStart.Before(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveCandle1m(_ context.Context, candle *models.Candle1m) error {
	f.candles[candle.MinuteStart.Unix()] = *candle
	f.saved = append(f.saved, candle)
	return nil
}

type fakeHistory struct {
	requests []int64 // startEpoch каждого запроса
	failOn   map[int64]bool
}

func (f *fakeHistory) Connect(_ context.Context) error { return nil }
func (f *fakeHistory) Close()                          {}

func (f *fakeHistory) HistoryCandles(_ context.Context, _ string, startEpoch, _ int64) ([]deriv.HistoryCandle, error) {
	f.requests = append(f.requests, startEpoch)
	if f.failOn[startEpoch] {
		return nil, errors.New("history unavailable")
	}
	return []deriv.HistoryCandle{{
		Epoch: startEpoch,
		Open:  100.0,
		High:  101.0,
		Low:   99.0,
		Close: 100.5,
	}}, nil
}

func newBackfill(store *fakeStore, history *fakeHistory) *Backfill {
	cfg := &config.Config{}
	cfg.Symbol = "R_50"
	cfg.LookbackMinutes = 10

	s := New(cfg, store)
	s.dial = func() HistoryClient { return history }
	return s
}

var backfillNow = time.Date(2026, 8, 30, 12, 0, 30, 0, time.UTC)

func TestCheckGapsFetchesOnlyMissing(t *testing.T) {
	store := newFakeStore()
	history := &fakeHistory{}

	// сетка: 11:50 .. 11:59; в базе лежат все, кроме 11:52 и 11:57
	for i := 0; i < 10; i++ {
		ms := time.Date(2026, 8, 30, 11, 50+i, 0, 0, time.UTC)
		if i == 2 || i == 7 {
			continue
		}
		store.candles[ms.Unix()] = models.Candle1m{Symbol: "R_50", MinuteStart: ms}
	}

	s := newBackfill(store, history)
	require.NoError(t, s.CheckGaps(context.Background(), backfillNow))

	want := []int64{
		time.Date(2026, 8, 30, 11, 52, 0, 0, time.UTC).Unix(),
		time.Date(2026, 8, 30, 11, 57, 0, 0, time.UTC).Unix(),
	}
	require.Equal(t, want, history.requests)
	require.Len(t, store.saved, 2)
	require.True(t, store.saved[0].Filled)
	// range приближается телом свечи
	require.InDelta(t, 0.5, store.saved[0].Range, 1e-9)
}

func TestCheckGapsDenseGridNoRequests(t *testing.T) {
	store := newFakeStore()
	history := &fakeHistory{}

	for i := 0; i < 10; i++ {
		ms := time.Date(2026, 8, 30, 11, 50+i, 0, 0, time.UTC)
		store.candles[ms.Unix()] = models.Candle1m{Symbol: "R_50", MinuteStart: ms}
	}

	s := newBackfill(store, history)
	require.NoError(t, s.CheckGaps(context.Background(), backfillNow))
	require.Empty(t, history.requests)
}

func TestCheckGapsErrorDoesNotStopOthers(t *testing.T) {
	store := newFakeStore()
	firstGap := time.Date(2026, 8, 30, 11, 52, 0, 0, time.UTC).Unix()
	history := &fakeHistory{failOn: map[int64]bool{firstGap: true}}

	for i := 0; i < 10; i++ {
		ms := time.Date(2026, 8, 30, 11, 50+i, 0, 0, time.UTC)
		if i == 2 || i == 7 {
			continue
		}
		store.candles[ms.Unix()] = models.Candle1m{Symbol: "R_50", MinuteStart: ms}
	}

	s := newBackfill(store, history)
	require.NoError(t, s.CheckGaps(context.Background(), backfillNow))

	// первый запрос упал, второй всё равно ушёл и сохранился
	require.Len(t, history.requests, 2)
	require.Len(t, store.saved, 1)
	require.Equal(t, time.Date(2026, 8, 30, 11, 57, 0, 0, time.UTC), store.saved[0].MinuteStart)
}
