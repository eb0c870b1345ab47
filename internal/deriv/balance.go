package deriv

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// Balance — текущий баланс счёта (нужна авторизация).
func (c *Client) Balance(ctx context.Context) (float64, error) {
	if !c.isAuthorized() {
		return 0, fmt.Errorf("balance: not authorized")
	}

	raw, err := c.request(ctx, map[string]any{
		"balance": 1,
		"account": "current",
	})
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}

	var resp struct {
		Balance *struct {
			Balance  float64 `json:"balance"`
			Currency string  `json:"currency"`
		} `json:"balance"`
	}
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("balance decode: %w", err)
	}
	if resp.Balance == nil {
		return 0, fmt.Errorf("balance: empty response")
	}

	return resp.Balance.Balance, nil
}
