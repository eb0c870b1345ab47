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

type fakeCandles struct {
	all []models.Candle30m
}

func (f *fakeCandles) LastCandles30m(_ context.Context, _ string, n int) ([]models.Candle30m, error) {
	if len(f.all) < n {
		n = len(f.all)
	}
	return append([]models.Candle30m(nil), f.all[len(f.all)-n:]...), nil
}

type fakeSignals struct {
	inserted []*models.Signal
}

func (f *fakeSignals) Insert(_ context.Context, sig *models.Signal) error {
	f.inserted = append(f.inserted, sig)
	return nil
}

var baseWindow = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

func candle30m(i int, open, close, high, low float64) models.Candle30m {
	return models.Candle30m{
		Symbol:      "R_50",
		WindowStart: baseWindow.Add(time.Duration(i) * 30 * time.Minute),
		Open:        open,
		Close:       close,
		High:        high,
		Low:         low,
		Range:       high - low,
		CandleCount: 30,
	}
}

func newDetector(candles *fakeCandles, signals *fakeSignals) *Detector {
	cfg := &config.Config{}
	cfg.Symbol = "R_50"
	cfg.DojiThreshold = 0.85
	return New(cfg, candles, signals)
}

func TestDetectorEmitsSignalOn010Doji(t *testing.T) {
	candles := &fakeCandles{all: []models.Candle30m{
		candle30m(0, 10.0, 9.0, 10.5, 8.8),  // медвежья
		candle30m(1, 9.0, 11.0, 11.2, 8.9),  // бычья — кандидат открыт
	}}
	signals := &fakeSignals{}
	d := newDetector(candles, signals)

	// кандидат зарегистрирован, третьей свечи ещё нет
	require.NoError(t, d.Tick(context.Background()))
	require.Empty(t, signals.inserted)

	// медвежий дожи: тело 0.8 при диапазоне 5
	candles.all = append(candles.all, candle30m(2, 11.0, 10.2, 13.0, 8.0))
	require.NoError(t, d.Tick(context.Background()))

	require.Len(t, signals.inserted, 1)
	sig := signals.inserted[0]
	require.Equal(t, models.PatternDoji010, sig.Type)
	require.Equal(t, models.DirectionBullish, sig.Direction)
	require.Equal(t, baseWindow.Add(30*time.Minute), sig.PatternID)
	require.Equal(t, 10.0, sig.C1.Open)
	require.Equal(t, 11.0, sig.C2.Close)
	require.Equal(t, 10.2, sig.C3.Close)
}

func TestDetectorSingleShotCandidate(t *testing.T) {
	candles := &fakeCandles{all: []models.Candle30m{
		candle30m(0, 10.0, 9.0, 10.5, 8.8),
		candle30m(1, 9.0, 11.0, 11.2, 8.9),
	}}
	signals := &fakeSignals{}
	d := newDetector(candles, signals)

	require.NoError(t, d.Tick(context.Background()))
	candles.all = append(candles.all, candle30m(2, 11.0, 10.2, 13.0, 8.0))
	require.NoError(t, d.Tick(context.Background()))
	require.Len(t, signals.inserted, 1)

	// повторные проходы по тем же свечам сигналов не плодят
	require.NoError(t, d.Tick(context.Background()))
	require.NoError(t, d.Tick(context.Background()))
	require.Len(t, signals.inserted, 1)
}

func TestDetectorDiscardsBullishThird(t *testing.T) {
	candles := &fakeCandles{all: []models.Candle30m{
		candle30m(0, 10.0, 9.0, 10.5, 8.8),
		candle30m(1, 9.0, 11.0, 11.2, 8.9),
	}}
	signals := &fakeSignals{}
	d := newDetector(candles, signals)

	require.NoError(t, d.Tick(context.Background()))

	// третья свеча бычья — кандидат сгорает без сигнала
	candles.all = append(candles.all, candle30m(2, 11.0, 12.0, 12.5, 10.8))
	require.NoError(t, d.Tick(context.Background()))
	require.Empty(t, signals.inserted)

	// и не возрождается на следующей свече
	candles.all = append(candles.all, candle30m(3, 12.0, 11.0, 13.0, 8.0))
	require.NoError(t, d.Tick(context.Background()))
	require.Empty(t, signals.inserted)
}

func TestDetectorDiscardsNonDojiThird(t *testing.T) {
	candles := &fakeCandles{all: []models.Candle30m{
		candle30m(0, 10.0, 9.0, 10.5, 8.8),
		candle30m(1, 9.0, 11.0, 11.2, 8.9),
	}}
	signals := &fakeSignals{}
	d := newDetector(candles, signals)

	require.NoError(t, d.Tick(context.Background()))

	// медвежья, но тело почти во весь диапазон — не дожи
	candles.all = append(candles.all, candle30m(2, 11.0, 8.2, 11.1, 8.1))
	require.NoError(t, d.Tick(context.Background()))
	require.Empty(t, signals.inserted)
}

func TestDetectorNoCandidateWithoutBearishFirst(t *testing.T) {
	candles := &fakeCandles{all: []models.Candle30m{
		candle30m(0, 9.0, 10.0, 10.5, 8.8), // бычья
		candle30m(1, 10.0, 11.0, 11.2, 9.9),
	}}
	signals := &fakeSignals{}
	d := newDetector(candles, signals)

	require.NoError(t, d.Tick(context.Background()))
	candles.all = append(candles.all, candle30m(2, 11.0, 10.2, 13.0, 8.0))
	require.NoError(t, d.Tick(context.Background()))
	require.Empty(t, signals.inserted)
}
