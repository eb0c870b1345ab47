package deriv

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// Buy ставит мультипликаторный контракт. Отказ брокера приходит как
// *BrokerError, повторов нет — решает вызывающий.
func (c *Client) Buy(ctx context.Context, p BuyParams) (*BuyResult, error) {
	if !c.isAuthorized() {
		return nil, fmt.Errorf("buy: not authorized")
	}
	if p.Stake <= 0 {
		return nil, fmt.Errorf("buy: stake <= 0")
	}
	if p.Multiplier <= 0 {
		return nil, fmt.Errorf("buy: multiplier <= 0")
	}

	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	raw, err := c.request(ctx, map[string]any{
		"buy":   1,
		"price": p.Stake,
		"parameters": map[string]any{
			"contract_type": p.ContractType,
			"symbol":        p.Symbol,
			"amount":        p.Stake,
			"basis":         "stake",
			"currency":      currency,
			"multiplier":    p.Multiplier,
			"limit_order": map[string]any{
				"stop_loss":   p.StopLoss,
				"take_profit": p.TakeProfit,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Buy *BuyResult `json:"buy"`
	}
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("buy decode: %w", err)
	}
	if resp.Buy == nil || resp.Buy.ContractID == 0 {
		return nil, fmt.Errorf("buy: empty confirmation")
	}

	return resp.Buy, nil
}
