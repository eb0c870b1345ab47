package deriv

import "fmt"

// BrokerError — брокер ответил объектом error. Ретраев нет: операция
// прерывается, сообщение брокера отдаём вызывающему.
type BrokerError struct {
	Code    string
	Message string
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker rejected: %s (%s)", e.Message, e.Code)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tickPayload struct {
	Symbol string  `json:"symbol"`
	Quote  float64 `json:"quote"`
	Epoch  int64   `json:"epoch"`
}

// PortfolioContract — позиция из пуша portfolio.
type PortfolioContract struct {
	ContractID int64   `json:"contract_id"`
	IsSold     int     `json:"is_sold"`
	BuyPrice   float64 `json:"buy_price"`
	SellPrice  float64 `json:"sell_price"`
	ExitTick   float64 `json:"exit_tick"`
}

type PortfolioUpdate struct {
	Contracts []PortfolioContract `json:"contracts"`
}

// inboundFrame — типизированная проекция входящего кадра. Всё, что не
// распозналось ни как ответ, ни как пуш — ошибка протокола.
type inboundFrame struct {
	ReqID     int64            `json:"req_id"`
	MsgType   string           `json:"msg_type"`
	Error     *apiError        `json:"error"`
	Tick      *tickPayload     `json:"tick"`
	Portfolio *PortfolioUpdate `json:"portfolio"`
}

// HistoryCandle — минутная свеча из ticks_history.
type HistoryCandle struct {
	Epoch int64   `json:"epoch"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// BuyResult — подтверждение брокера на buy.
type BuyResult struct {
	ContractID  int64   `json:"contract_id"`
	BuyPrice    float64 `json:"buy_price"`
	BalanceNow  float64 `json:"balance_after"`
	TransID     int64   `json:"transaction_id"`
	Longcode    string  `json:"longcode"`
	StartTime   int64   `json:"start_time"`
	PurchaseFee float64 `json:"payout"`
}

// BuyParams — параметры мультипликаторного контракта.
type BuyParams struct {
	Symbol       string
	ContractType string // MULTUP / MULTDOWN
	Stake        float64
	Multiplier   int
	Currency     string
	StopLoss     float64 // в валюте счёта
	TakeProfit   float64 // в валюте счёта
}
