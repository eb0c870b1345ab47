package models

import "time"

const (
	TradeStatusOpen   = "OPEN"
	TradeStatusClosed = "CLOSED"

	TradeResultTP = "TP"
	TradeResultSL = "SL"

	ContractMultUp   = "MULTUP"
	ContractMultDown = "MULTDOWN"
)

// Trade — размещённый мультипликаторный контракт.
type Trade struct {
	ContractID    int64
	PatternID     time.Time
	Symbol        string
	Direction     int
	ContractType  string
	EntryTime     time.Time
	EntryPrice    float64
	SL            float64 // стоп в валюте счёта
	TP            float64 // тейк в валюте счёта
	Stake         float64
	Multiplier    int
	Status        string // OPEN/CLOSED
	Result        string // TP/SL (после закрытия)
	Pnl           float64
	BuyPrice      float64
	SellPrice     float64
	ExitPrice     float64
	BalanceBefore float64
	ExitTime      *time.Time
	C1            Candle30m
	C2            Candle30m
	C3            Candle30m
}

// BalanceSnapshot — запись в журнале баланса после каждого закрытия.
type BalanceSnapshot struct {
	ID         int64
	Time       time.Time
	Balance    float64
	ContractID *int64
	Pnl        *float64
}
