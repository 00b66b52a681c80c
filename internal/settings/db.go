// Package settings persists small pieces of state between runs: browser
// preferences, attached media and the install journal.
package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Keys used across the application.
const (
	KeyListFilter   = "list_filter"
	KeyCatalogMtime = "catalog_mtime"
)

// DB wraps the SQLite settings database.
type DB struct {
	db *sql.DB
}

// Open opens or creates the settings database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS installs (
		row INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		dir TEXT NOT NULL,
		installed_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the value stored under key and whether it exists.
func (d *DB) Get(key string) (string, bool, error) {
	var v string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return v, true, nil
}

// Put stores value under key, replacing any previous value.
func (d *DB) Put(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// GetInt returns the integer stored under key, or def when it is missing
// or not a number.
func (d *DB) GetInt(key string, def int) (int, error) {
	v, ok, err := d.Get(key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// PutInt stores an integer under key.
func (d *DB) PutInt(key string, n int) error {
	return d.Put(key, strconv.Itoa(n))
}

// GetTime returns the time stored under key; zero when missing.
func (d *DB) GetTime(key string) (time.Time, error) {
	v, ok, err := d.Get(key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// PutTime stores t under key.
func (d *DB) PutTime(key string, t time.Time) error {
	return d.Put(key, t.UTC().Format(time.RFC3339))
}

// Remove deletes key. Removing a missing key is not an error.
func (d *DB) Remove(key string) error {
	if _, err := d.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing setting %s: %w", key, err)
	}
	return nil
}

// InstallRecord is one entry of the install journal.
type InstallRecord struct {
	Row         int
	Name        string
	Dir         string
	InstalledAt time.Time
}

// RecordInstall notes that row was installed into dir.
func (d *DB) RecordInstall(row int, name, dir string) error {
	_, err := d.db.Exec(
		`INSERT INTO installs (row, name, dir, installed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(row) DO UPDATE SET name=excluded.name, dir=excluded.dir, installed_at=excluded.installed_at`,
		row, name, dir, time.Now().UTC(),
	)
	return err
}

// RemoveInstall drops row from the journal.
func (d *DB) RemoveInstall(row int) error {
	_, err := d.db.Exec("DELETE FROM installs WHERE row = ?", row)
	return err
}

// Installs returns the journal ordered by row.
func (d *DB) Installs() ([]InstallRecord, error) {
	rows, err := d.db.Query("SELECT row, name, dir, installed_at FROM installs ORDER BY row")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []InstallRecord
	for rows.Next() {
		var r InstallRecord
		if err := rows.Scan(&r.Row, &r.Name, &r.Dir, &r.InstalledAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
