package service

import (
	"context"

	"deriv_bot/internal/deriv"
	"deriv_bot/internal/models"
	"deriv_bot/pkg/logger"
)

func (s *Executor) onPortfolioUpdate(ctx context.Context, u deriv.PortfolioUpdate) {
	for _, pos := range u.Contracts {
		if pos.IsSold != 1 {
			continue
		}
		if err := s.onPositionClosed(ctx, pos); err != nil {
			logger.Error("[EXECUTOR] close contract %d: %v", pos.ContractID, err)
		}
	}
}

// onPositionClosed сверяет проданный контракт брокера с открытой сделкой
// в журнале и закрывает её. Контракт без нашей сделки молча игнорируется:
// позиция могла быть открыта руками.
func (s *Executor) onPositionClosed(ctx context.Context, pos deriv.PortfolioContract) error {
	open, err := s.trades.Open(ctx, s.cfg.Symbol)
	if err != nil {
		return err
	}

	var trade *models.Trade
	for i := range open {
		if open[i].ContractID == pos.ContractID {
			trade = &open[i]
			break
		}
	}
	if trade == nil {
		return nil
	}

	buyPrice := pos.BuyPrice
	if buyPrice == 0 {
		buyPrice = trade.Stake
	}
	pnl := pos.SellPrice - buyPrice

	result := models.TradeResultSL
	if pnl > 0 {
		result = models.TradeResultTP
	}

	exitPrice := pos.ExitTick
	if exitPrice == 0 {
		// брокер не прислал exit_tick, подставляем целевой уровень
		if result == models.TradeResultTP {
			exitPrice = trade.TP
		} else {
			exitPrice = trade.SL
		}
	}

	trade.Status = models.TradeStatusClosed
	trade.Result = result
	trade.Pnl = pnl
	trade.BuyPrice = buyPrice
	trade.SellPrice = pos.SellPrice
	trade.ExitPrice = exitPrice

	if err := s.trades.CloseTrade(ctx, trade); err != nil {
		return err
	}

	balance, err := s.accountBalance(ctx)
	if err != nil {
		logger.Error("[EXECUTOR] balance after close: %v", err)
		balance = trade.BalanceBefore + pnl
	}

	cid := pos.ContractID
	p := pnl
	if err := s.balances.Append(ctx, &models.BalanceSnapshot{
		Balance:    balance,
		ContractID: &cid,
		Pnl:        &p,
	}); err != nil {
		logger.Error("[EXECUTOR] save balance snapshot: %v", err)
	}

	logger.Info("[EXECUTOR] TRADE CLOSED: %d | %s | pnl $%.2f | balance $%.2f",
		pos.ContractID, result, pnl, balance)
	s.n.Sendf("%s %s закрыта: pnl $%.2f, баланс $%.2f",
		resultEmoji(result), s.cfg.Symbol, pnl, balance)
	return nil
}

func resultEmoji(result string) string {
	if result == models.TradeResultTP {
		return "✅"
	}
	return "❌"
}
