package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the ledger at path and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores run and its transfer records atomically.
func (s *Store) RecordRun(ctx context.Context, run Run, records []TransferRecord) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, started_at, finished_at, subject, session, method, dry_run,
            source_dir, dest_root, mapping_path, transfer_count, failure_count, warning_count
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Subject,
		run.Session,
		run.Method,
		boolToInt(run.DryRun),
		run.SourceDir,
		run.DestRoot,
		nullableString(run.MappingPath),
		run.Transfers,
		run.Failures,
		run.Warnings,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transfers (
            run_id, seq, series_id, kind, method, source, destination, status, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transfer insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		seq := rec.Seq
		if seq == 0 {
			seq = i + 1
		}
		if _, err := stmt.ExecContext(
			ctx,
			run.ID,
			seq,
			rec.SeriesID,
			rec.Kind,
			rec.Method,
			nullableString(rec.Source),
			nullableString(rec.Destination),
			rec.Status,
			nullableString(rec.Error),
		); err != nil {
			return fmt.Errorf("insert transfer %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, subject, session, method, dry_run,
    source_dir, dest_root, mapping_path, transfer_count, failure_count, warning_count`

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun fetches a run by ID, accepting a unique ID prefix.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY id LIMIT 2`, id+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		for _, m := range matches {
			if m.ID == id {
				return m, nil
			}
		}
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// Transfers returns the transfer records of runID in sequence order.
func (s *Store) Transfers(ctx context.Context, runID string) ([]TransferRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT seq, series_id, kind, method, source, destination, status, error_message
         FROM transfers WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var records []TransferRecord
	for rows.Next() {
		var (
			rec                   TransferRecord
			source, dest, message sql.NullString
		)
		if err := rows.Scan(&rec.Seq, &rec.SeriesID, &rec.Kind, &rec.Method, &source, &dest, &rec.Status, &message); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		rec.Source = source.String
		rec.Destination = dest.String
		rec.Error = message.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return records, nil
}

// Prune deletes runs that started before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stamp := formatTime(cutoff)
	if _, err := tx.ExecContext(ctx, `DELETE FROM transfers WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, stamp); err != nil {
		return 0, fmt.Errorf("prune transfers: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, stamp)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return removed, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run            Run
		started, ended string
		dryRun         int
		mappingPath    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID, &started, &ended, &run.Subject, &run.Session, &run.Method, &dryRun,
		&run.SourceDir, &run.DestRoot, &mappingPath, &run.Transfers, &run.Failures, &run.Warnings,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(ended); err != nil {
		return Run{}, err
	}
	run.DryRun = dryRun != 0
	run.MappingPath = mappingPath.String
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
