// Package snapshotcache persists a document's wire.Snapshot to a local
// sqlite file between runs of cmd/substance-server. This is a demo-binary
// persistence aid, not the document core's own storage: the core stays
// in-memory per SPEC_FULL.md's persistence scoping.
package snapshotcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/systemshift/substance/internal/substance/wire"
)

const (
	pragmaWAL         = "PRAGMA journal_mode=WAL"
	pragmaBusyTimeout = "PRAGMA busy_timeout=5000"

	schemaSnapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
	name TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`
)

// Cache wraps a sqlite-backed key-value store of named snapshots.
type Cache struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite file at path and ensures its schema.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	for _, pragma := range []string{pragmaWAL, pragmaBusyTimeout} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSnapshots); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying sqlite connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Save upserts snap under name.
func (c *Cache) Save(ctx context.Context, name string, snap wire.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, name, string(data))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot stored under name. ok is false if none exists.
func (c *Cache) Load(ctx context.Context, name string) (snap wire.Snapshot, ok bool, err error) {
	var data string
	row := c.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE name = ?`, name)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return wire.Snapshot{}, false, nil
		}
		return wire.Snapshot{}, false, fmt.Errorf("loading snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return wire.Snapshot{}, false, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, true, nil
}
