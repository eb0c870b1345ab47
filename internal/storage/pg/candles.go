package pg

import (
	"context"
	"fmt"
	"time"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Candles implement db store
type Candles struct {
	db *db.PgTxManager
}

// NewCandles instance
func NewCandles(manager *db.PgTxManager) *Candles {
	return &Candles{db: manager}
}

// SaveCandle1m — upsert по (symbol, minute_start), дубль перезаписывается.
func (c *Candles) SaveCandle1m(ctx context.Context, candle *models.Candle1m) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.SaveCandle1m: %w", err)
		}
	}()

	return c.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO candles_1m (symbol, minute_start, open, high, low, close, "range", tick_count, filled, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (symbol, minute_start) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				"range" = EXCLUDED."range",
				tick_count = EXCLUDED.tick_count,
				filled = EXCLUDED.filled`,
			candle.Symbol, candle.MinuteStart, candle.Open, candle.High,
			candle.Low, candle.Close, candle.Range, candle.TickCount, candle.Filled,
		)
		return err
	})
}

// Candles1m — минутные свечи за [start, end), по возрастанию minute_start.
func (c *Candles) Candles1m(ctx context.Context, symbol string, start, end time.Time) (out []models.Candle1m, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.Candles1m: %w", err)
		}
	}()

	rows, err := c.db.Conn().Query(ctx, `
		SELECT symbol, minute_start, open, high, low, close, "range", tick_count, filled, created_at
		FROM candles_1m
		WHERE symbol = $1 AND minute_start >= $2 AND minute_start < $3
		ORDER BY minute_start ASC`,
		symbol, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Candle1m
		if err := rows.Scan(&m.Symbol, &m.MinuteStart, &m.Open, &m.High, &m.Low,
			&m.Close, &m.Range, &m.TickCount, &m.Filled, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveCandle30m — вставка once-only: по конфликту ключа НИЧЕГО не меняем,
// выигрывает первая успешная агрегация.
func (c *Candles) SaveCandle30m(ctx context.Context, candle *models.Candle30m) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.SaveCandle30m: %w", err)
		}
	}()

	return c.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO candles_30m (symbol, window_start, open, high, low, close, "range", tick_count, candle_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (symbol, window_start) DO NOTHING`,
			candle.Symbol, candle.WindowStart, candle.Open, candle.High,
			candle.Low, candle.Close, candle.Range, candle.TickCount, candle.CandleCount,
		)
		return err
	})
}

// HasCandle30m — есть ли уже свеча за это окно.
func (c *Candles) HasCandle30m(ctx context.Context, symbol string, windowStart time.Time) (ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.HasCandle30m: %w", err)
		}
	}()

	err = c.db.Conn().QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM candles_30m WHERE symbol = $1 AND window_start = $2)`,
		symbol, windowStart,
	).Scan(&ok)
	return ok, err
}

// LastCandles30m — последние n свечей, по возрастанию window_start.
func (c *Candles) LastCandles30m(ctx context.Context, symbol string, n int) (out []models.Candle30m, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.LastCandles30m: %w", err)
		}
	}()

	rows, err := c.db.Conn().Query(ctx, `
		SELECT symbol, window_start, open, high, low, close, "range", tick_count, candle_count, created_at
		FROM (
			SELECT * FROM candles_30m
			WHERE symbol = $1
			ORDER BY window_start DESC
			LIMIT $2
		) t
		ORDER BY window_start ASC`,
		symbol, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Candle30m
		if err := rows.Scan(&m.Symbol, &m.WindowStart, &m.Open, &m.High, &m.Low,
			&m.Close, &m.Range, &m.TickCount, &m.CandleCount, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
