package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // SQLite driver "sqlite" (pure Go)
)

const DefaultHistoryLimit = 50

var ErrNotFound = errors.New("reading not found")

// SQLiteStore keeps the most recent readings per type, capped at limit.
type SQLiteStore struct {
	db    *sql.DB
	limit int
}

// NewSQLiteStore opens dataSourceName with driverName ("sqlite3" or
// "sqlite") and applies the embedded migrations.
func NewSQLiteStore(driverName, dataSourceName string, limit int) (*SQLiteStore, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps appends serialized.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, limit: limit}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Limit() int {
	return s.limit
}

func (s *SQLiteStore) initSchema() error {
	return applyMigrations(context.Background(), s.db, migrationFS, "migrations")
}

// Append stores e as the newest entry of its type and drops entries beyond
// the limit, all in one transaction. On error nothing changes.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO readings (id, type, created_at, payload) VALUES (?, ?, ?, ?)",
		e.ID, e.Type, e.CreatedAt.UTC().UnixMilli(), string(e.Payload),
	); err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        DELETE FROM readings
        WHERE type = ? AND seq NOT IN (
            SELECT seq FROM readings WHERE type = ? ORDER BY seq DESC LIMIT ?
        )`, e.Type, e.Type, s.limit); err != nil {
		return fmt.Errorf("failed to prune readings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append: %w", err)
	}
	return nil
}

// List returns entries of readingType, most recent first.
func (s *SQLiteStore) List(ctx context.Context, readingType string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, created_at, payload FROM readings WHERE type = ? ORDER BY seq DESC", readingType)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			created int64
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Type, &created, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, readingType, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM readings WHERE type = ? AND id = ?", readingType, id)
	if err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, readingType, id)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, readingType string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM readings WHERE type = ?", readingType); err != nil {
		return fmt.Errorf("failed to clear %s readings: %w", readingType, err)
	}
	return nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM readings"); err != nil {
		return fmt.Errorf("failed to clear readings: %w", err)
	}
	return nil
}
