package pg

import (
	"context"
	"fmt"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// Trades implement db store
type Trades struct {
	db *db.PgTxManager
}

// NewTrades instance
func NewTrades(manager *db.PgTxManager) *Trades {
	return &Trades{db: manager}
}

// Insert пишет сделку после успешного размещения (status=OPEN).
func (t *Trades) Insert(ctx context.Context, trade *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.Insert: %w", err)
		}
	}()

	c1, err := sonic.Marshal(trade.C1)
	if err != nil {
		return err
	}
	c2, err := sonic.Marshal(trade.C2)
	if err != nil {
		return err
	}
	c3, err := sonic.Marshal(trade.C3)
	if err != nil {
		return err
	}

	return t.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trades (contract_id, pattern_id, symbol, direction, contract_type,
				entry_time, entry_price, sl, tp, stake, multiplier, status,
				buy_price, balance_before, c1, c2, c3)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			trade.ContractID, trade.PatternID, trade.Symbol, trade.Direction, trade.ContractType,
			trade.EntryTime, trade.EntryPrice, trade.SL, trade.TP, trade.Stake, trade.Multiplier,
			trade.Status, trade.BuyPrice, trade.BalanceBefore, c1, c2, c3,
		)
		return err
	})
}

// Open — открытые сделки по символу.
func (t *Trades) Open(ctx context.Context, symbol string) (out []models.Trade, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.Open: %w", err)
		}
	}()

	rows, err := t.db.Conn().Query(ctx, `
		SELECT contract_id, pattern_id, symbol, direction, contract_type,
			entry_time, entry_price, sl, tp, stake, multiplier, status,
			buy_price, balance_before
		FROM trades
		WHERE symbol = $1 AND status = $2`,
		symbol, models.TradeStatusOpen,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Trade
		if err := rows.Scan(&m.ContractID, &m.PatternID, &m.Symbol, &m.Direction,
			&m.ContractType, &m.EntryTime, &m.EntryPrice, &m.SL, &m.TP, &m.Stake,
			&m.Multiplier, &m.Status, &m.BuyPrice, &m.BalanceBefore); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CloseTrade переводит сделку в CLOSED с результатом и P&L.
func (t *Trades) CloseTrade(ctx context.Context, trade *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.CloseTrade: %w", err)
		}
	}()

	return t.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			UPDATE trades SET
				status = $2,
				result = $3,
				pnl = $4,
				buy_price = $5,
				sell_price = $6,
				exit_price = $7,
				exit_time = now()
			WHERE contract_id = $1`,
			trade.ContractID, models.TradeStatusClosed, trade.Result, trade.Pnl,
			trade.BuyPrice, trade.SellPrice, trade.ExitPrice,
		)
		return err
	})
}
