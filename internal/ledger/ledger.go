// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records which Drive files the sync pipeline has handled and
// how far each one got, so repeat runs only do outstanding work.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/thibo73800/flow-watcher/pkg/types"
)

// ErrNotFound is returned by Get when the file has no record.
var ErrNotFound = errors.New("ledger: record not found")

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			file_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			local_path TEXT,
			transcript_path TEXT,
			notion_page_id TEXT,
			status TEXT NOT NULL,
			error TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_status ON files(status)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			downloaded INTEGER NOT NULL DEFAULT 0,
			transcribed INTEGER NOT NULL DEFAULT 0,
			published INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the record for fileID or ErrNotFound.
func (s *Store) Get(ctx context.Context, fileID string) (*types.FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT file_id, name, local_path, transcript_path, notion_page_id, status, error, updated_at
		 FROM files WHERE file_id = ?`, fileID)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", fileID, err)
	}
	return rec, nil
}

// Upsert inserts or replaces rec, stamping UpdatedAt.
func (s *Store) Upsert(ctx context.Context, rec *types.FileRecord) error {
	rec.UpdatedAt = s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (file_id, name, local_path, transcript_path, notion_page_id, status, error, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET
			name = excluded.name,
			local_path = excluded.local_path,
			transcript_path = excluded.transcript_path,
			notion_page_id = excluded.notion_page_id,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		rec.FileID, rec.Name, rec.LocalPath, rec.TranscriptPath, rec.NotionPageID,
		string(rec.Status), rec.Error, rec.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("writing record %s: %w", rec.FileID, err)
	}
	return nil
}

// List returns every record, most recently updated first.
func (s *Store) List(ctx context.Context) ([]types.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, name, local_path, transcript_path, notion_page_id, status, error, updated_at
		 FROM files ORDER BY updated_at DESC, file_id`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []types.FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(sc scanner) (*types.FileRecord, error) {
	var (
		rec                             types.FileRecord
		local, transcript, page, errMsg sql.NullString
		status, updated                 string
	)
	if err := sc.Scan(&rec.FileID, &rec.Name, &local, &transcript, &page, &status, &errMsg, &updated); err != nil {
		return nil, err
	}
	rec.LocalPath = local.String
	rec.TranscriptPath = transcript.String
	rec.NotionPageID = page.String
	rec.Error = errMsg.String
	rec.Status = types.FileStatus(status)
	if t, err := time.Parse(timeLayout, updated); err == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}

// BeginRun records the start of a pipeline run under a new ID.
func (s *Store) BeginRun(ctx context.Context) (*types.RunRecord, error) {
	run := &types.RunRecord{ID: uuid.NewString(), StartedAt: s.now()}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout)); err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}
	return run, nil
}

// FinishRun stamps run as finished and stores its counts.
func (s *Store) FinishRun(ctx context.Context, run *types.RunRecord) error {
	run.FinishedAt = s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, downloaded = ?, transcribed = ?, published = ?, skipped = ?, failed = ?
		 WHERE id = ?`,
		run.FinishedAt.Format(timeLayout), run.Downloaded, run.Transcribed, run.Published,
		run.Skipped, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// Runs returns up to limit runs, newest first. A limit of 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]types.RunRecord, error) {
	query := `SELECT id, started_at, finished_at, downloaded, transcribed, published, skipped, failed
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunRecord
	for rows.Next() {
		var (
			run      types.RunRecord
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Downloaded, &run.Transcribed,
			&run.Published, &run.Skipped, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt, _ = time.Parse(timeLayout, started)
		if finished.Valid {
			run.FinishedAt, _ = time.Parse(timeLayout, finished.String)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
