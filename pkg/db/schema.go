package db

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS candles (
    open_time INTEGER PRIMARY KEY,
    close_time INTEGER NOT NULL,
    open REAL NOT NULL,
    high REAL NOT NULL,
    low REAL NOT NULL,
    close REAL NOT NULL,
    volume REAL NOT NULL,
    quote_volume REAL DEFAULT 0,
    trades INTEGER DEFAULT 0,
    taker_buy_base REAL DEFAULT 0,
    taker_buy_quote REAL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_candles_close_time ON candles(close_time);

CREATE TABLE IF NOT EXISTS strategy_state (
    name TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// EnsureSchema creates the tables if missing.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
