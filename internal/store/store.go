// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"condor-trader/internal/models"
)

// AuditStore persists counters and recent-event history for the
// lifecycle monitor and reconciler, plus the decision journal.
// Append-only semantics: rows are inserted, never rewritten.
type AuditStore interface {
	// Zombie-order cleanup
	RecordCancellation(ctx context.Context, c models.Cancellation) error
	RecentCancellations(ctx context.Context, limit int) ([]models.Cancellation, error)
	CancellationCount(ctx context.Context) (int64, error)

	// Reconciliation
	RecordReconcileRun(ctx context.Context, run ReconcileRun) error
	RecentReconcileRuns(ctx context.Context, limit int) ([]ReconcileRun, error)

	// Decision journal
	RecordDecision(ctx context.Context, d DecisionRecord) error
	RecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error)

	// Sweep bookkeeping
	SetLastRun(ctx context.Context, job string, t time.Time) error
	LastRun(ctx context.Context, job string) (time.Time, error)

	Close() error
}

// ReconcileRun summarizes one reconciliation sweep.
type ReconcileRun struct {
	ID            string               `json:"id"`
	RanAt         time.Time            `json:"ran_at"`
	LocalCount    int                  `json:"local_count"`
	ExternalCount int                  `json:"external_count"`
	Discrepancies []models.Discrepancy `json:"discrepancies"`
}

// DecisionRecord journals one full decision cycle for auditability.
type DecisionRecord struct {
	ID         string                  `json:"id"`
	Symbol     string                  `json:"symbol"`
	Timestamp  time.Time               `json:"timestamp"`
	Strategy   models.Strategy         `json:"strategy"`
	Confidence float64                 `json:"confidence"`
	Reasoning  string                  `json:"reasoning"`
	Approved   bool                    `json:"approved"`
	RiskResult *models.RiskCheckResult `json:"risk_result,omitempty"`
	OrderID    string                  `json:"order_id,omitempty"`
}
