package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"condor-trader/internal/models"
)

// SQLiteStore implements AuditStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based audit store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Zombie-order cancellations
	CREATE TABLE IF NOT EXISTS cancellations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		age_seconds REAL NOT NULL,
		cancelled_at DATETIME NOT NULL,
		dry_run INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_cancellations_at ON cancellations(cancelled_at);

	-- Reconciliation sweeps
	CREATE TABLE IF NOT EXISTS reconcile_runs (
		id TEXT PRIMARY KEY,
		ran_at DATETIME NOT NULL,
		local_count INTEGER NOT NULL,
		external_count INTEGER NOT NULL,
		discrepancy_count INTEGER NOT NULL,
		discrepancies TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reconcile_ran_at ON reconcile_runs(ran_at);

	-- Decision journal
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		strategy TEXT NOT NULL,
		confidence REAL NOT NULL,
		reasoning TEXT,
		approved INTEGER DEFAULT 0,
		risk_result TEXT,
		order_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol, timestamp);

	-- Job bookkeeping
	CREATE TABLE IF NOT EXISTS job_runs (
		job TEXT PRIMARY KEY,
		last_run DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordCancellation appends one cancellation to the audit trail.
func (s *SQLiteStore) RecordCancellation(ctx context.Context, c models.Cancellation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cancellations (order_id, symbol, age_seconds, cancelled_at, dry_run)
		VALUES (?, ?, ?, ?, ?)`,
		c.OrderID, c.Symbol, c.AgeAtCancel.Seconds(), c.CancelledAt, boolToInt(c.DryRun))
	if err != nil {
		return fmt.Errorf("recording cancellation: %w", err)
	}
	return nil
}

// RecentCancellations returns the most recent cancellations, newest first.
func (s *SQLiteStore) RecentCancellations(ctx context.Context, limit int) ([]models.Cancellation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, symbol, age_seconds, cancelled_at, dry_run
		FROM cancellations ORDER BY cancelled_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cancellations: %w", err)
	}
	defer rows.Close()

	var out []models.Cancellation
	for rows.Next() {
		var c models.Cancellation
		var ageSeconds float64
		var dryRun int
		if err := rows.Scan(&c.OrderID, &c.Symbol, &ageSeconds, &c.CancelledAt, &dryRun); err != nil {
			return nil, err
		}
		c.AgeAtCancel = time.Duration(ageSeconds * float64(time.Second))
		c.DryRun = dryRun != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// CancellationCount returns the cumulative number of real (non-dry-run)
// cancellations.
func (s *SQLiteStore) CancellationCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cancellations WHERE dry_run = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting cancellations: %w", err)
	}
	return count, nil
}

// RecordReconcileRun appends one reconciliation sweep summary.
func (s *SQLiteStore) RecordReconcileRun(ctx context.Context, run ReconcileRun) error {
	discJSON, err := json.Marshal(run.Discrepancies)
	if err != nil {
		return fmt.Errorf("encoding discrepancies: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, ran_at, local_count, external_count, discrepancy_count, discrepancies)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.RanAt, run.LocalCount, run.ExternalCount, len(run.Discrepancies), string(discJSON))
	if err != nil {
		return fmt.Errorf("recording reconcile run: %w", err)
	}
	return nil
}

// RecentReconcileRuns returns recent sweeps, newest first.
func (s *SQLiteStore) RecentReconcileRuns(ctx context.Context, limit int) ([]ReconcileRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ran_at, local_count, external_count, discrepancies
		FROM reconcile_runs ORDER BY ran_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying reconcile runs: %w", err)
	}
	defer rows.Close()

	var out []ReconcileRun
	for rows.Next() {
		var run ReconcileRun
		var discJSON string
		if err := rows.Scan(&run.ID, &run.RanAt, &run.LocalCount, &run.ExternalCount, &discJSON); err != nil {
			return nil, err
		}
		if discJSON != "" {
			if err := json.Unmarshal([]byte(discJSON), &run.Discrepancies); err != nil {
				return nil, fmt.Errorf("decoding discrepancies for run %s: %w", run.ID, err)
			}
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// RecordDecision journals one decision cycle.
func (s *SQLiteStore) RecordDecision(ctx context.Context, d DecisionRecord) error {
	var riskJSON []byte
	if d.RiskResult != nil {
		var err error
		riskJSON, err = json.Marshal(d.RiskResult)
		if err != nil {
			return fmt.Errorf("encoding risk result: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, timestamp, symbol, strategy, confidence, reasoning, approved, risk_result, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp, d.Symbol, string(d.Strategy), d.Confidence, d.Reasoning,
		boolToInt(d.Approved), string(riskJSON), d.OrderID)
	if err != nil {
		return fmt.Errorf("recording decision: %w", err)
	}
	return nil
}

// RecentDecisions returns recent decision records, newest first.
func (s *SQLiteStore) RecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, symbol, strategy, confidence, reasoning, approved, risk_result, order_id
		FROM decisions ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		var strategy, riskJSON string
		var approved int
		if err := rows.Scan(&d.ID, &d.Timestamp, &d.Symbol, &strategy, &d.Confidence,
			&d.Reasoning, &approved, &riskJSON, &d.OrderID); err != nil {
			return nil, err
		}
		d.Strategy = models.Strategy(strategy)
		d.Approved = approved != 0
		if riskJSON != "" {
			var rr models.RiskCheckResult
			if err := json.Unmarshal([]byte(riskJSON), &rr); err == nil {
				d.RiskResult = &rr
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetLastRun upserts the last-run timestamp for a job.
func (s *SQLiteStore) SetLastRun(ctx context.Context, job string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (job, last_run) VALUES (?, ?)
		ON CONFLICT(job) DO UPDATE SET last_run = excluded.last_run`, job, t)
	if err != nil {
		return fmt.Errorf("setting last run for %s: %w", job, err)
	}
	return nil
}

// LastRun returns the last-run timestamp for a job, zero if never run.
func (s *SQLiteStore) LastRun(ctx context.Context, job string) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_run FROM job_runs WHERE job = ?`, job).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("getting last run for %s: %w", job, err)
	}
	return t, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
