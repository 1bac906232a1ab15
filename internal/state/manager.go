// Package state persists strategy state between runs so a restarted
// live engine resumes where it left off.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"wedge/pkg/db"
)

// Manager reads and writes per-strategy state blobs keyed by strategy
// name.
type Manager struct {
	mu sync.Mutex
	db *db.Database
}

func NewManager(database *db.Database) *Manager {
	return &Manager{db: database}
}

// Load returns the saved state for a strategy, or nil when none exists.
func (m *Manager) Load(ctx context.Context, name string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var raw string
	err := m.db.DB.QueryRowContext(ctx,
		`SELECT state FROM strategy_state WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// Save upserts the state for a strategy.
func (m *Manager) Save(ctx context.Context, name string, state json.RawMessage) error {
	if len(state) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.DB.ExecContext(ctx, `
		INSERT INTO strategy_state (name, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`,
		name, string(state), time.Now().UnixMilli())
	return err
}
