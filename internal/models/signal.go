package models

import "time"

const (
	DirectionBearish = 0
	DirectionBullish = 1
)

const PatternDoji010 = "010_doji"

// Signal — подтверждённый паттерн, ждёт исполнения.
// PatternID — window_start второй свечи паттерна.
type Signal struct {
	ID          int64
	PatternID   time.Time
	Symbol      string
	Type        string
	C1          Candle30m
	C2          Candle30m
	C3          Candle30m
	Direction   int // 1 = bullish, 0 = bearish
	CreatedAt   time.Time
	Processed   bool
	ProcessedAt *time.Time
}
