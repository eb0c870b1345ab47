package deriv

import (
	"context"
	"fmt"

	"deriv_bot/internal/models"
)

// SubscribeTicks подписывает на тики символа. Сами тики идут через
// возвращённый канал, его наполняет ридер соединения.
func (c *Client) SubscribeTicks(ctx context.Context, symbol string) (<-chan models.Tick, error) {
	_, err := c.request(ctx, map[string]any{
		"ticks":     symbol,
		"subscribe": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe ticks %s: %w", symbol, err)
	}
	return c.ticks, nil
}

// SubscribePortfolio — пуши по открытым контрактам (нужна авторизация).
func (c *Client) SubscribePortfolio(ctx context.Context) (<-chan PortfolioUpdate, error) {
	if !c.isAuthorized() {
		return nil, fmt.Errorf("subscribe portfolio: not authorized")
	}

	_, err := c.request(ctx, map[string]any{
		"portfolio": 1,
		"subscribe": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe portfolio: %w", err)
	}
	return c.portfolio, nil
}

func (c *Client) isAuthorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authorized
}
