// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the persisted snapshot format version. Loaders reject
// snapshots written with a different version and start empty instead.
const SchemaVersion = 1

const createSnapshotTables = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	schema_version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	ttl_seconds INTEGER NOT NULL
);
`

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// SnapshotStore persists cache entries to a sqlite database so a client can
// survive restarts. Writes are whole-value, last-writer-wins: Save replaces
// the previous snapshot entirely.
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshot opens (creating if needed) a snapshot database at path.
func OpenSnapshot(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(createSnapshotTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with the cache's current live entries.
// Values are serialized as JSON; entries whose values cannot be serialized
// are skipped rather than failing the whole snapshot.
func (s *SnapshotStore) Save(c *Cache) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM snapshot_meta`); err != nil {
		return fmt.Errorf("clear snapshot meta: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO snapshot_meta (schema_version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO cache_entries (key, value, created_at, ttl_seconds) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.Entries() {
		blob, err := json.Marshal(e.Value)
		if err != nil {
			continue
		}
		if _, err := stmt.Exec(e.Key, blob, e.CreatedAt.UnixNano(), int64(e.TTL.Seconds())); err != nil {
			return fmt.Errorf("write snapshot entry: %w", err)
		}
	}

	return tx.Commit()
}

// Load restores persisted entries into the cache. Expired entries and
// snapshots with an unknown schema version are silently skipped; a cache
// that starts empty is always preferable to one restored from a format we
// no longer understand.
func (s *SnapshotStore) Load(c *Cache) error {
	var version int
	err := s.db.QueryRow(`SELECT schema_version FROM snapshot_meta`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != SchemaVersion {
		return nil
	}

	rows, err := s.db.Query(`SELECT key, value, created_at, ttl_seconds FROM cache_entries`)
	if err != nil {
		return fmt.Errorf("read snapshot entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var blob []byte
		var createdAt, ttlSeconds int64
		if err := rows.Scan(&key, &blob, &createdAt, &ttlSeconds); err != nil {
			return fmt.Errorf("scan snapshot entry: %w", err)
		}

		var value any
		if err := json.Unmarshal(blob, &value); err != nil {
			continue
		}

		c.Restore(Entry{
			Key:       key,
			Value:     value,
			CreatedAt: time.Unix(0, createdAt),
			TTL:       time.Duration(ttlSeconds) * time.Second,
		})
	}
	return rows.Err()
}
