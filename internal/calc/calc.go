package calc

import (
	"errors"
	"math"

	"deriv_bot/internal/models"
)

// ErrNoValidTrade — дистанция до стопа нулевая/отрицательная или ни один
// мультипликатор не проходит под кэп. Сделка просто не ставится.
var ErrNoValidTrade = errors.New("no valid trade")

// Stake считает ставку от баланса: до 1000 — базовая, дальше по бандам
// прибыли, но не больше 5% от баланса.
func Stake(balance, base, increment, milestone float64) float64 {
	if balance < 1000 {
		return base
	}

	bands := math.Floor((balance - 1000) / milestone)
	stake := base + bands*increment

	maxStake := balance * 0.05
	return math.Min(stake, maxStake)
}

// Multiplier подбирает максимальный мультипликатор из доступных,
// влезающий под кэп entry / (k * slDist). k — "запас на дыхание":
// чем он больше, тем дальше ликвидация от стопа.
func Multiplier(entry, sl, k float64, available []int) (int, error) {
	slDist := entry - sl

	if slDist <= 0 || entry <= 0 {
		return 0, ErrNoValidTrade
	}

	cap := entry / (k * slDist)

	best := 0
	for _, m := range available {
		if float64(m) <= cap && m > best {
			best = m
		}
	}
	if best == 0 {
		return 0, ErrNoValidTrade
	}

	return best, nil
}

// IsDoji — тело маленькое относительно полного диапазона.
// Свеча с нулевым диапазоном дожи не считается.
func IsDoji(c models.Candle30m, threshold float64) bool {
	body := math.Abs(c.Close - c.Open)
	rng := c.High - c.Low

	if rng == 0 {
		return false
	}

	return body/rng < threshold
}

func IsBullish(c models.Candle30m) bool {
	return c.Close > c.Open
}
