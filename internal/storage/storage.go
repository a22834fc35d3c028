// Package storage is the durable key/value layer under the permission
// store, the request queue, and the connected-origin table. It offers
// two regions: a session region cleared when a fresh browser session
// starts, and a persistent region surviving restarts.
//
// Records are versioned JSON blobs. A record whose stored version does
// not match the caller's schema version is treated as absent, so a
// schema change invalidates stale data instead of crashing on it.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Region selects which durability class a record belongs to.
type Region string

const (
	RegionSession    Region = "session"
	RegionPersistent Region = "persistent"
)

// Store is a SQLite-backed KV store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	region     TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	version    INTEGER NOT NULL,
	value      BLOB    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (region, key)
);
`

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("storage: missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get loads the record at (region, key) into out. The first return is
// false when the record is absent or its version does not match.
func (s *Store) Get(region Region, key string, version int, out any) (bool, error) {
	var storedVersion int
	var value []byte
	err := s.db.QueryRow(
		`SELECT version, value FROM kv WHERE region = ? AND key = ?`,
		string(region), key,
	).Scan(&storedVersion, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: get %s/%s: %w", region, key, err)
	}
	if storedVersion != version {
		return false, nil
	}
	if err := json.Unmarshal(value, out); err != nil {
		// Corrupt blob: treat as absent, same as a version mismatch.
		return false, nil
	}
	return true, nil
}

// Put writes the record at (region, key), replacing any previous value.
func (s *Store) Put(region Region, key string, version int, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal %s/%s: %w", region, key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (region, key, version, value, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (region, key) DO UPDATE SET version = excluded.version,
		 value = excluded.value, updated_at = excluded.updated_at`,
		string(region), key, version, value, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", region, key, err)
	}
	return nil
}

// Delete removes the record at (region, key). Missing records are not
// an error.
func (s *Store) Delete(region Region, key string) error {
	if _, err := s.db.Exec(
		`DELETE FROM kv WHERE region = ? AND key = ?`, string(region), key,
	); err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", region, key, err)
	}
	return nil
}

// ClearRegion drops every record in the region. Called with
// RegionSession when a fresh browser session starts.
func (s *Store) ClearRegion(region Region) error {
	if _, err := s.db.Exec(
		`DELETE FROM kv WHERE region = ?`, string(region),
	); err != nil {
		return fmt.Errorf("storage: clear region %s: %w", region, err)
	}
	return nil
}
