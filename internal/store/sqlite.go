package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobimpact/internal/model"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02 15:04:05.000000000"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sweeps (
		id         TEXT PRIMARY KEY,
		models     TEXT NOT NULL,
		started_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS model_runs (
		sweep_id    TEXT NOT NULL,
		model       TEXT NOT NULL,
		provider    TEXT NOT NULL DEFAULT '',
		state       TEXT NOT NULL,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		files       TEXT NOT NULL DEFAULT '',
		error       TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL DEFAULT '',
		finished_at TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (sweep_id, model)
	)`,
	`CREATE TABLE IF NOT EXISTS job_outcomes (
		sweep_id     TEXT NOT NULL,
		model        TEXT NOT NULL,
		job          TEXT NOT NULL,
		status       TEXT NOT NULL,
		genai_impact TEXT NOT NULL DEFAULT '',
		attempts     INTEGER NOT NULL DEFAULT 0,
		error        TEXT NOT NULL DEFAULT '',
		recorded_at  TEXT NOT NULL
	)`,
}

// SQLiteStore is a RunLedger backed by a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// ledger tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating ledger tables: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// BeginSweep records a new sweep and marks every model pending.
func (s *SQLiteStore) BeginSweep(sweepID string, models []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning sweep %s: %w", sweepID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO sweeps (id, models, started_at) VALUES (?, ?, ?)",
		sweepID, strings.Join(models, ","), formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("inserting sweep %s: %w", sweepID, err)
	}
	for _, m := range models {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO model_runs (sweep_id, model, state) VALUES (?, ?, ?)",
			sweepID, m, string(model.StatePending),
		); err != nil {
			return fmt.Errorf("inserting model run %s: %w", m, err)
		}
	}
	return tx.Commit()
}

// RecordState stores the latest view of one model run.
func (s *SQLiteStore) RecordState(sweepID string, run model.ModelRun) error {
	errText := ""
	if run.Err != nil {
		errText = run.Err.Error()
	}
	_, err := s.db.Exec(`INSERT INTO model_runs
		(sweep_id, model, provider, state, succeeded, failed, files, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (sweep_id, model) DO UPDATE SET
			provider = excluded.provider,
			state = excluded.state,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			files = excluded.files,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		sweepID, run.Model, run.Provider, string(run.State), run.Succeeded, run.Failed,
		strings.Join(run.Files, ","), errText, formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("recording state of %s: %w", run.Model, err)
	}
	return nil
}

// RecordOutcomes stores one row per job outcome.
func (s *SQLiteStore) RecordOutcomes(sweepID, modelID string, outcomes []model.Outcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("recording outcomes of %s: %w", modelID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO job_outcomes
		(sweep_id, model, job, status, genai_impact, attempts, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	at := formatTime(s.now())
	for _, o := range outcomes {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		if _, err := stmt.Exec(sweepID, modelID, o.Job, string(o.Status),
			string(o.Prediction.Impact), o.Attempts, errText, at); err != nil {
			return fmt.Errorf("inserting outcome for %q: %w", o.Job, err)
		}
	}
	return tx.Commit()
}

// RunRecord is one stored model run.
type RunRecord struct {
	SweepID    string
	Model      string
	Provider   string
	State      model.RunState
	Succeeded  int
	Failed     int
	Files      []string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ListRuns returns the most recent model runs, newest sweep first.
func (s *SQLiteStore) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT r.sweep_id, r.model, r.provider, r.state, r.succeeded, r.failed,
			r.files, r.error, r.started_at, r.finished_at
		FROM model_runs r JOIN sweeps s ON s.id = r.sweep_id
		ORDER BY s.started_at DESC, r.rowid ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec               RunRecord
			state, files      string
			started, finished string
		)
		if err := rows.Scan(&rec.SweepID, &rec.Model, &rec.Provider, &state, &rec.Succeeded,
			&rec.Failed, &files, &rec.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.State = model.RunState(state)
		if files != "" {
			rec.Files = strings.Split(files, ",")
		}
		rec.StartedAt = parseTime(started)
		rec.FinishedAt = parseTime(finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Cleanup deletes sweeps started before now minus olderThan, along with their
// runs and outcomes.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := formatTime(s.now().Add(-olderThan))
	for _, stmt := range []string{
		"DELETE FROM job_outcomes WHERE sweep_id IN (SELECT id FROM sweeps WHERE started_at < ?)",
		"DELETE FROM model_runs WHERE sweep_id IN (SELECT id FROM sweeps WHERE started_at < ?)",
		"DELETE FROM sweeps WHERE started_at < ?",
	} {
		if _, err := s.db.Exec(stmt, cutoff); err != nil {
			return fmt.Errorf("cleaning up sweeps older than %v: %w", olderThan, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
