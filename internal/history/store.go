// Package history persists finished conversions to the embedded SQLite
// database and serves the read-back API.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/convert-be/shared/sqlite"
)

// ErrRecordNotFound is returned when a conversion record does not exist.
var ErrRecordNotFound = errors.New("conversion record not found")

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	job_id        TEXT PRIMARY KEY,
	source_name   TEXT NOT NULL,
	source_format TEXT NOT NULL,
	target_format TEXT NOT NULL,
	category      TEXT NOT NULL,
	status        TEXT NOT NULL,
	failure_kind  TEXT NOT NULL DEFAULT '',
	detail        TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions (created_at DESC, job_id DESC);
`

type Store struct {
	db *sqlx.DB
}

// NewStore creates the history store and ensures its schema exists.
func NewStore(client *sqlite.Client) (*Store, error) {
	s := &Store{db: client.GetDB()}
	if _, err := s.db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create conversions schema: %w", err)
	}
	return s, nil
}

func (s *Store) Insert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO conversions (
			job_id, source_name, source_format, target_format,
			category, status, failure_kind, detail, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		rec.JobID,
		rec.SourceName,
		rec.SourceFormat,
		rec.TargetFormat,
		rec.Category,
		rec.Status,
		rec.FailureKind,
		rec.Detail,
		rec.DurationMs,
		rec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert conversion record: %w", err)
	}

	return nil
}

func (s *Store) GetByJobID(ctx context.Context, jobID string) (*Record, error) {
	var rec Record
	query := `
		SELECT
			job_id, source_name, source_format, target_format,
			category, status, failure_kind, detail, duration_ms, created_at
		FROM conversions
		WHERE job_id = ?
	`

	err := s.db.GetContext(ctx, &rec, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion record: %w", err)
	}

	return &rec, nil
}

type Filter struct {
	Status       string
	Category     string
	TargetFormat string
	PageSize     int
	Cursor       *Cursor
}

// Cursor is a keyset pagination position over (created_at, job_id).
type Cursor struct {
	CreatedAt time.Time
	JobID     string
}

// List returns up to PageSize+1 records matching the filter, newest first.
// The extra record tells the caller whether a next page exists.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
		SELECT
			job_id, source_name, source_format, target_format,
			category, status, failure_kind, detail, duration_ms, created_at
		FROM conversions
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}

	if filter.TargetFormat != "" {
		query += " AND target_format = ?"
		args = append(args, filter.TargetFormat)
	}

	if filter.Cursor != nil {
		// The driver binds time.Time as text in the value's own zone;
		// records are stored in UTC, so the cursor is normalized before
		// binding or the text comparison misorders.
		query += " AND (created_at, job_id) < (?, ?)"
		args = append(args, filter.Cursor.CreatedAt.UTC(), filter.Cursor.JobID)
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += " LIMIT ?"
	args = append(args, filter.PageSize+1)

	var records []Record
	err := s.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversion records: %w", err)
	}

	return records, nil
}
