// Package data persists historical candles in an embedded SQLite store
// and serves them back as an ordered candle source.
package data

import (
	"context"
	"database/sql"
	"fmt"

	"wedge/internal/market"
	"wedge/pkg/db"
)

// Dataset is a candle table for one symbol/interval pair.
type Dataset struct {
	store *db.Database
}

// Open creates or opens the dataset at path and ensures its schema.
func Open(path string) (*Dataset, error) {
	store, err := db.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(store.DB); err != nil {
		store.Close()
		return nil, err
	}
	return &Dataset{store: store}, nil
}

func (d *Dataset) Close() error { return d.store.Close() }

// Insert upserts one candle keyed by open time.
func (d *Dataset) Insert(ctx context.Context, c market.Candle) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("dataset insert: %w", err)
	}
	_, err := d.store.DB.ExecContext(ctx, `
		INSERT INTO candles (open_time, close_time, open, high, low, close,
			volume, quote_volume, trades, taker_buy_base, taker_buy_quote)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(open_time) DO UPDATE SET
			close_time = excluded.close_time,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			quote_volume = excluded.quote_volume,
			trades = excluded.trades,
			taker_buy_base = excluded.taker_buy_base,
			taker_buy_quote = excluded.taker_buy_quote
	`, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close,
		c.Volume, c.QuoteVolume, c.Trades, c.TakerBuyBase, c.TakerBuyQuote)
	if err != nil {
		return fmt.Errorf("insert candle: %w", err)
	}
	return nil
}

// MaxOpenTime returns the newest stored open time, or 0 when empty.
// Downloads resume from here.
func (d *Dataset) MaxOpenTime(ctx context.Context) (int64, error) {
	var max int64
	err := d.store.DB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(open_time), 0) FROM candles`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("query max open time: %w", err)
	}
	return max, nil
}

// Count returns the number of stored candles.
func (d *Dataset) Count(ctx context.Context) (int, error) {
	var n int
	err := d.store.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM candles`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count candles: %w", err)
	}
	return n, nil
}

// Iterator streams candles with open_time in [start, end) ordered by open
// time. Zero bounds are unbounded. The iterator is finite and not
// restartable; construct a fresh one to replay.
func (d *Dataset) Iterator(ctx context.Context, start, end int64) (*Iterator, error) {
	query := `SELECT open_time, close_time, open, high, low, close,
		volume, quote_volume, trades, taker_buy_base, taker_buy_quote
		FROM candles`
	var args []any
	switch {
	case start > 0 && end > 0:
		query += ` WHERE open_time >= ? AND open_time < ?`
		args = append(args, start, end)
	case start > 0:
		query += ` WHERE open_time >= ?`
		args = append(args, start)
	case end > 0:
		query += ` WHERE open_time < ?`
		args = append(args, end)
	}
	query += ` ORDER BY open_time`

	rows, err := d.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	return &Iterator{rows: rows}, nil
}

// Iterator implements market.Source over a SQL cursor.
type Iterator struct {
	rows *sql.Rows
	err  error
}

func (it *Iterator) Next() (market.Candle, bool) {
	if it.err != nil || !it.rows.Next() {
		if it.err == nil {
			it.err = it.rows.Err()
		}
		return market.Candle{}, false
	}
	var c market.Candle
	if err := it.rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low,
		&c.Close, &c.Volume, &c.QuoteVolume, &c.Trades,
		&c.TakerBuyBase, &c.TakerBuyQuote); err != nil {
		it.err = fmt.Errorf("scan candle: %w", err)
		return market.Candle{}, false
	}
	return c, true
}

func (it *Iterator) Err() error { return it.err }

func (it *Iterator) Close() error { return it.rows.Close() }
