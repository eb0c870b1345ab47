package calc

import (
	"testing"

	"deriv_bot/internal/models"

	"github.com/stretchr/testify/require"
)

func TestStakeBelowFirstMilestone(t *testing.T) {
	require.Equal(t, 15.0, Stake(999.99, 15.0, 2.5, 500.0))
	require.Equal(t, 15.0, Stake(100.0, 15.0, 2.5, 500.0))
	// ровно 1000 — нулевой банд, всё ещё базовая ставка
	require.Equal(t, 15.0, Stake(1000.0, 15.0, 2.5, 500.0))
}

func TestStakeBands(t *testing.T) {
	// 1500: один банд прибыли
	require.Equal(t, 17.5, Stake(1500.0, 15.0, 2.5, 500.0))
	// 2600: три банда
	require.Equal(t, 22.5, Stake(2600.0, 15.0, 2.5, 500.0))
}

func TestStakeCappedAtFivePercent(t *testing.T) {
	// банды дали бы 15 + 0*2.5, но 5% от 1000 = 50 > 15 — не режет
	require.Equal(t, 15.0, Stake(1000.0, 15.0, 2.5, 500.0))

	// маленький баланс над порогом: 5% от 1001 = 50.05, ставка 15 — не режет;
	// зато большая базовая ставка режется
	require.InDelta(t, 50.05, Stake(1001.0, 100.0, 2.5, 500.0), 1e-9)
}

func TestMultiplierPicksLargestUnderCap(t *testing.T) {
	available := []int{200, 400, 600, 800}

	// кэп = 100 / (1.7 * 0.1) = 588.2 → берём 400
	m, err := Multiplier(100.0, 99.9, 1.7, available)
	require.NoError(t, err)
	require.Equal(t, 400, m)

	// кэп = 100 / (1.7 * 0.05) = 1176.5 → берём максимум
	m, err = Multiplier(100.0, 99.95, 1.7, available)
	require.NoError(t, err)
	require.Equal(t, 800, m)
}

func TestMultiplierNoCandidateFits(t *testing.T) {
	// кэп = 100 / (1.7 * 1) = 58.8 — меньше минимального кандидата
	_, err := Multiplier(100.0, 99.0, 1.7, []int{200, 400, 600, 800})
	require.ErrorIs(t, err, ErrNoValidTrade)
}

func TestMultiplierDegenerateStop(t *testing.T) {
	_, err := Multiplier(100.0, 100.0, 1.7, []int{200})
	require.ErrorIs(t, err, ErrNoValidTrade)

	// стоп выше входа
	_, err = Multiplier(100.0, 101.0, 1.7, []int{200})
	require.ErrorIs(t, err, ErrNoValidTrade)

	_, err = Multiplier(0, -1.0, 1.7, []int{200})
	require.ErrorIs(t, err, ErrNoValidTrade)
}

func TestIsDoji(t *testing.T) {
	c := models.Candle30m{Open: 11.0, Close: 10.2, High: 13.0, Low: 8.0}
	// тело 0.8, диапазон 5 → 0.16 < 0.85
	require.True(t, IsDoji(c, 0.85))

	full := models.Candle30m{Open: 8.0, Close: 13.0, High: 13.0, Low: 8.0}
	require.False(t, IsDoji(full, 0.85))
}

func TestIsDojiZeroRange(t *testing.T) {
	flat := models.Candle30m{Open: 10.0, Close: 10.0, High: 10.0, Low: 10.0}
	require.False(t, IsDoji(flat, 0.85))
}

func TestIsBullish(t *testing.T) {
	require.True(t, IsBullish(models.Candle30m{Open: 9.0, Close: 11.0}))
	require.False(t, IsBullish(models.Candle30m{Open: 10.0, Close: 9.0}))
	// плоская свеча бычьей не считается
	require.False(t, IsBullish(models.Candle30m{Open: 10.0, Close: 10.0}))
}
