package deriv

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// HistoryCandles — разовый запрос минутных свечей за [start, end].
// Это не подписка: ответ приходит сразу и целиком.
func (c *Client) HistoryCandles(ctx context.Context, symbol string, startEpoch, endEpoch int64) ([]HistoryCandle, error) {
	raw, err := c.request(ctx, map[string]any{
		"ticks_history": symbol,
		"start":         startEpoch,
		"end":           endEpoch,
		"style":         "candles",
		"granularity":   60,
		"count":         5000,
	})
	if err != nil {
		return nil, fmt.Errorf("ticks_history %s: %w", symbol, err)
	}

	var resp struct {
		Candles []HistoryCandle `json:"candles"`
	}
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ticks_history decode: %w", err)
	}

	return resp.Candles, nil
}
