package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pkg.jsn.cam/billionrows/pkg/billionrows"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	keys INTEGER NOT NULL,
	lines INTEGER NOT NULL,
	rejected INTEGER NOT NULL,
	records INTEGER NOT NULL,
	chunks INTEGER NOT NULL,
	excluded_chunks INTEGER NOT NULL,
	excluded_records INTEGER NOT NULL,
	workers INTEGER NOT NULL,
	batch_size INTEGER NOT NULL,
	digest TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	completed_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS station_stats (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	station TEXT NOT NULL,
	min REAL NOT NULL,
	max REAL NOT NULL,
	mean REAL NOT NULL,
	PRIMARY KEY (run_id, station)
);
`

// SQLiteSink persists run results in a SQLite database. It implements
// billionrows.Sink.
type SQLiteSink struct {
	db  *sql.DB
	log *log.Logger
}

var _ billionrows.Sink = (*SQLiteSink)(nil)

// NewSQLiteSink opens the database at dbPath and creates its tables.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", dbPath, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteSink{db: db, log: log.Default()}, nil
}

// SetLogger replaces the sink's logger
func (s *SQLiteSink) SetLogger(l *log.Logger) {
	s.log = l
}

// StoreResult inserts the run and its summaries in one transaction.
func (s *SQLiteSink) StoreResult(ctx context.Context, res *billionrows.Result) error {
	rec := NewRunRecord(res)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(run_id, source, keys, lines, rejected, records, chunks, excluded_chunks, excluded_records,
		 workers, batch_size, digest, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Source, rec.Keys, rec.Lines, rec.Rejected, rec.Records, rec.Chunks,
		rec.ExcludedChunks, rec.ExcludedRecords, rec.Workers, rec.BatchSize,
		strconv.FormatUint(rec.Digest, 16), rec.StartedAt.UTC(), rec.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM station_stats WHERE run_id = ?`, rec.RunID); err != nil {
		return fmt.Errorf("clear stats for run %s: %w", rec.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO station_stats (run_id, station, min, max, mean) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for station, sum := range res.Report {
		if _, err := stmt.ExecContext(ctx, rec.RunID, station, sum.Min, sum.Max, sum.Mean); err != nil {
			return fmt.Errorf("insert %q: %w", station, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", rec.RunID, err)
	}

	s.log.Printf("[STORE] Stored run %s in sqlite (%d keys)", rec.RunID, rec.Keys)
	return nil
}

// LoadRun returns the metadata of a stored run
func (s *SQLiteSink) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	var (
		rec    RunRecord
		digest string
	)
	err := s.db.QueryRowContext(ctx, `SELECT run_id, source, keys, lines, rejected, records, chunks,
		excluded_chunks, excluded_records, workers, batch_size, digest, started_at, completed_at
		FROM runs WHERE run_id = ?`, runID).Scan(
		&rec.RunID, &rec.Source, &rec.Keys, &rec.Lines, &rec.Rejected, &rec.Records, &rec.Chunks,
		&rec.ExcludedChunks, &rec.ExcludedRecords, &rec.Workers, &rec.BatchSize, &digest,
		&rec.StartedAt, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("load run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("load run %s: %w", runID, err)
	}

	rec.Digest, err = strconv.ParseUint(digest, 16, 64)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse digest of run %s: %w", runID, err)
	}
	rec.StartedAt = rec.StartedAt.In(time.Local)
	rec.CompletedAt = rec.CompletedAt.In(time.Local)
	return rec, nil
}

// LoadReport returns the stored report of a run
func (s *SQLiteSink) LoadReport(ctx context.Context, runID string) (billionrows.Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT station, min, max, mean FROM station_stats WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	defer rows.Close()

	report := make(billionrows.Report)
	for rows.Next() {
		var (
			station string
			sum     billionrows.Summary
		)
		if err := rows.Scan(&station, &sum.Min, &sum.Max, &sum.Mean); err != nil {
			return nil, fmt.Errorf("scan report %s: %w", runID, err)
		}
		report[station] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	if len(report) == 0 {
		if _, err := s.LoadRun(ctx, runID); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
