// SPDX-License-Identifier: Apache-2.0

// Package store archives result records in a SQLite database.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/zosgo/zosgo/internal/errors"
	"github.com/zosgo/zosgo/internal/result"
)

// schemaVersion is the latest schema version. Bump it when adding migrations.
const schemaVersion = 1

// Entry describes an archived record.
type Entry struct {
	ID        string    `json:"id"`
	Analysis  string    `json:"analysis"`
	Version   int       `json:"version"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Text is the record's interchange text. List leaves it empty.
	Text []byte `json:"-"`
}

// Store is a record archive.
type Store struct {
	db      *sql.DB
	catalog *result.Catalog

	mu      sync.Mutex
	entropy io.Reader
}

// Open opens or creates the archive at path. Records read back are decoded
// against catalog.
func Open(path string, catalog *result.Catalog) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(path, 0o600)

	return &Store{
		db:      db,
		catalog: catalog,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS records (
		  id         TEXT PRIMARY KEY,
		  analysis   TEXT NOT NULL,
		  version    INTEGER NOT NULL,
		  source     TEXT,
		  text       BLOB NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_analysis
		ON records(analysis, id DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
	}

	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", schemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

func verifyWALMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("verify journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", mode)
	}
	return nil
}

func (s *Store) newID(now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Put archives rec and returns its entry. source may be empty.
func (s *Store) Put(ctx context.Context, rec *result.Record, source string) (Entry, error) {
	text, err := rec.Encode()
	if err != nil {
		return Entry{}, fmt.Errorf("encode record: %w", err)
	}

	now := time.Now().UTC()
	id, err := s.newID(now)
	if err != nil {
		return Entry{}, fmt.Errorf("generate id: %w", err)
	}

	e := Entry{
		ID:        id,
		Analysis:  rec.Metadata.Analysis,
		Version:   rec.Metadata.Version,
		Source:    source,
		CreatedAt: time.UnixMilli(now.UnixMilli()).UTC(),
		Text:      text,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, analysis, version, source, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Analysis, e.Version, toNullString(source), text, now.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert record: %w", err)
	}
	return e, nil
}

// Get returns an archived entry and its decoded record.
func (s *Store) Get(ctx context.Context, id string) (Entry, *result.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, analysis, version, source, text, created_at FROM records WHERE id = ?`, id)

	var (
		e       Entry
		source  sql.NullString
		created int64
	)
	err := row.Scan(&e.ID, &e.Analysis, &e.Version, &source, &e.Text, &created)
	if err == sql.ErrNoRows {
		return Entry{}, nil, errors.NewNotFound(id)
	}
	if err != nil {
		return Entry{}, nil, fmt.Errorf("get record: %w", err)
	}
	e.Source = source.String
	e.CreatedAt = time.UnixMilli(created).UTC()

	rec, err := s.catalog.DecodeContext(ctx, e.Text)
	if err != nil {
		return e, nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return e, rec, nil
}

// ListOptions filters List.
type ListOptions struct {
	// Analysis keeps only records of one kind when set.
	Analysis string
	// Limit caps the number of entries; zero means no limit.
	Limit int
}

// List returns archived entries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT id, analysis, version, source, created_at FROM records`
	var args []any
	if opts.Analysis != "" {
		query += ` WHERE analysis = ?`
		args = append(args, opts.Analysis)
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			source  sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Analysis, &e.Version, &source, &created); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		e.Source = source.String
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an archived record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
