package pg

import (
	"context"
	"fmt"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Balances implement db store
type Balances struct {
	db *db.PgTxManager
}

// NewBalances instance
func NewBalances(manager *db.PgTxManager) *Balances {
	return &Balances{db: manager}
}

// Append — журнал только дописывается, после каждого закрытия позиции.
func (b *Balances) Append(ctx context.Context, snap *models.BalanceSnapshot) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Balances.Append: %w", err)
		}
	}()

	return b.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO balance_history (time, balance, contract_id, pnl)
			VALUES (now(), $1, $2, $3)`,
			snap.Balance, snap.ContractID, snap.Pnl,
		)
		return err
	})
}

// Latest — последний снимок баланса; false, если журнал пуст.
func (b *Balances) Latest(ctx context.Context) (balance float64, found bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Balances.Latest: %w", err)
		}
	}()

	err = b.db.Conn().QueryRow(ctx, `
		SELECT balance FROM balance_history ORDER BY time DESC LIMIT 1`,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}
