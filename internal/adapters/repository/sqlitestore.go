package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/okian/buffcal/pkg/logger"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS processed_messages (
		message_id   TEXT PRIMARY KEY,
		processed_at TEXT NOT NULL
	)`
	selectAllSQL = `SELECT message_id, processed_at FROM processed_messages`
	deleteAllSQL = `DELETE FROM processed_messages`
	insertSQL    = `INSERT INTO processed_messages (message_id, processed_at) VALUES (?, ?)`
)

// SQLiteStore keeps processed messages in a SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens (or creates) the database at dsn and ensures the
// schema exists. Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, ErrEmptyPath
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrPersistence, dsn, err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" stable.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", ErrPersistence, err)
	}
	return &SQLiteStore{db: db, opts: o}, nil
}

// Load reads every record. Rows whose timestamp cannot be read are skipped.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, selectAllSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrPersistence, err)
	}
	defer rows.Close()

	records := make(map[string]time.Time)
	for rows.Next() {
		var id, ts string
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrPersistence, err)
		}
		at, err := parseTimestamp(ts)
		if err != nil {
			s.opts.logger.Warn(ctx, "skipping record with unreadable timestamp",
				logger.String("message_id", id),
				logger.String("timestamp", ts),
			)
			continue
		}
		records[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrPersistence, err)
	}
	return records, nil
}

// Save replaces the table contents with records in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records map[string]time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteAllSQL); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrPersistence, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", ErrPersistence, err)
	}
	defer stmt.Close()

	for id, at := range records {
		if _, err = stmt.ExecContext(ctx, id, formatTimestamp(at)); err != nil {
			return fmt.Errorf("%w: insert %s: %v", ErrPersistence, id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
