package pg

import (
	"context"
	"fmt"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// Signals implement db store
type Signals struct {
	db *db.PgTxManager
}

// NewSignals instance
func NewSignals(manager *db.PgTxManager) *Signals {
	return &Signals{db: manager}
}

// Insert — сигнал создаётся ровно один раз на подтверждённый паттерн.
func (s *Signals) Insert(ctx context.Context, sig *models.Signal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Signals.Insert: %w", err)
		}
	}()

	c1, err := sonic.Marshal(sig.C1)
	if err != nil {
		return err
	}
	c2, err := sonic.Marshal(sig.C2)
	if err != nil {
		return err
	}
	c3, err := sonic.Marshal(sig.C3)
	if err != nil {
		return err
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trade_signals (pattern_id, symbol, type, c1, c2, c3, direction, created_at, processed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), false)`,
			sig.PatternID, sig.Symbol, sig.Type, c1, c2, c3, sig.Direction,
		)
		return err
	})
}

// Pending — необработанные сигналы, старые первыми.
func (s *Signals) Pending(ctx context.Context) (out []models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Signals.Pending: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx, `
		SELECT id, pattern_id, symbol, type, c1, c2, c3, direction, created_at
		FROM trade_signals
		WHERE processed = false
		ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m          models.Signal
			c1, c2, c3 []byte
		)
		if err := rows.Scan(&m.ID, &m.PatternID, &m.Symbol, &m.Type,
			&c1, &c2, &c3, &m.Direction, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal(c1, &m.C1); err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal(c2, &m.C2); err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal(c3, &m.C3); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkProcessed ставит processed сразу после передачи в исполнение,
// независимо от результата размещения.
func (s *Signals) MarkProcessed(ctx context.Context, id int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Signals.MarkProcessed: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			UPDATE trade_signals SET processed = true, processed_at = now() WHERE id = $1`,
			id,
		)
		return err
	})
}
