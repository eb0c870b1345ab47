package service

import (
	"math"
	"time"

	"deriv_bot/internal/models"
)

// Aggregator складывает тики в минутную свечу. Состояние своё, никаких
// глобалов: текущая минута и буфер цен живут внутри инстанса.
type Aggregator struct {
	symbol  string
	current time.Time
	prices  []float64
}

func NewAggregator(symbol string) *Aggregator {
	return &Aggregator{symbol: symbol}
}

// Push принимает тик. Если тик открыл новую минуту — возвращает закрытую
// свечу предыдущей минуты, иначе nil. Последняя неполная минута при
// остановке процесса не флашится.
func (a *Aggregator) Push(t models.Tick) *models.Candle1m {
	minuteStart := time.Unix(t.Epoch, 0).UTC().Truncate(time.Minute)

	var flushed *models.Candle1m
	if !a.current.IsZero() && !a.current.Equal(minuteStart) {
		flushed = a.flush()
		a.prices = a.prices[:0]
	}

	a.current = minuteStart
	a.prices = append(a.prices, t.Price)

	return flushed
}

func (a *Aggregator) flush() *models.Candle1m {
	if len(a.prices) == 0 {
		return nil
	}

	open := a.prices[0]
	high, low := open, open
	// range — сумма модулей движений между соседними тиками
	var summedRange float64
	for i, p := range a.prices {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
		if i > 0 {
			summedRange += math.Abs(p - a.prices[i-1])
		}
	}

	return &models.Candle1m{
		Symbol:      a.symbol,
		MinuteStart: a.current,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       a.prices[len(a.prices)-1],
		Range:       summedRange,
		TickCount:   len(a.prices),
	}
}
