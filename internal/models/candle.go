package models

import "time"

// Tick — один тик с биржи. Живёт только в памяти, в базу не пишется.
type Tick struct {
	Symbol string
	Price  float64
	Epoch  int64
}

// Candle1m — минутная свеча. Range — сумма |Δprice| по соседним тикам
// внутри минуты (прокси волатильности), НЕ high-low.
type Candle1m struct {
	Symbol      string
	MinuteStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Range       float64
	TickCount   int
	Filled      bool // true, если восстановлена бэкфиллом из истории
	CreatedAt   time.Time
}

// Candle30m — 30-минутная свеча, собранная из минутных.
// Range — СУММА минутных range, не пересчёт по high-low.
type Candle30m struct {
	Symbol      string
	WindowStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Range       float64
	TickCount   int
	CandleCount int
	CreatedAt   time.Time
}
