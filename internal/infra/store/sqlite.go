// Package store persists player resume positions in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the positions database.
	DefaultDBPath = "data/positions.db"
)

// ErrNotOpen is returned by operations on a closed database.
var ErrNotOpen = errors.New("position store not open")

// DB is the SQLite resume-position store.
type DB struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewDB creates a new store instance.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{
		path: path,
	}
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open position store: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", d.path).Msg("Position store opened")
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

func (d *DB) initSchema() error {
	if _, err := d.db.Exec(`
	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS playback_positions (
		instance_id TEXT NOT NULL,
		media_url TEXT NOT NULL,
		position REAL NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (instance_id, media_url)
	);

	CREATE INDEX IF NOT EXISTS idx_positions_updated ON playback_positions(updated_at);
	`); err != nil {
		return err
	}

	version := d.getSchemaVersion()
	if version != "" && version != CurrentSchemaVersion {
		log.Info().
			Str("current", version).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating position store schema")
	}
	if version != CurrentSchemaVersion {
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}
	return nil
}

func (d *DB) getSchemaVersion() string {
	var version string
	err := d.db.QueryRow("SELECT value FROM store_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

func (d *DB) setMeta(key, value string) error {
	now := timestamp(time.Now())
	_, err := d.db.Exec(`
		INSERT INTO store_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	return err
}

// timestamp formats t in UTC so stored times compare as strings
// whatever the local zone was when they were written.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SavePosition records where playback of mediaURL stopped for an instance.
func (d *DB) SavePosition(instanceID, mediaURL string, seconds float64) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return ErrNotOpen
	}

	now := timestamp(time.Now())
	_, err := d.db.Exec(`
		INSERT INTO playback_positions (instance_id, media_url, position, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(instance_id, media_url) DO UPDATE SET position = ?, updated_at = ?
	`, instanceID, mediaURL, seconds, now, seconds, now)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// LoadPosition returns the saved position, if any.
func (d *DB) LoadPosition(instanceID, mediaURL string) (float64, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return 0, false, ErrNotOpen
	}

	var pos float64
	err := d.db.QueryRow(
		"SELECT position FROM playback_positions WHERE instance_id = ? AND media_url = ?",
		instanceID, mediaURL,
	).Scan(&pos)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load position: %w", err)
	}
	return pos, true, nil
}

// ClearPosition forgets the saved position.
func (d *DB) ClearPosition(instanceID, mediaURL string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return ErrNotOpen
	}

	if _, err := d.db.Exec(
		"DELETE FROM playback_positions WHERE instance_id = ? AND media_url = ?",
		instanceID, mediaURL,
	); err != nil {
		return fmt.Errorf("clear position: %w", err)
	}
	return nil
}

// Prune deletes positions not updated within maxAge and returns how many were removed.
func (d *DB) Prune(maxAge time.Duration) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return 0, ErrNotOpen
	}

	cutoff := timestamp(time.Now().Add(-maxAge))
	res, err := d.db.Exec("DELETE FROM playback_positions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune positions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of saved positions.
func (d *DB) Count() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return 0, ErrNotOpen
	}

	var n int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM playback_positions").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
