// Package monitor implements zombie-order cleanup: working orders older
// than a configured age are cancelled to bound unwanted-fill risk.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"condor-trader/internal/broker"
	"condor-trader/internal/config"
	"condor-trader/internal/logging"
	"condor-trader/internal/models"
	"condor-trader/internal/store"
	"condor-trader/pkg/utils"
)

const jobName = "zombie_sweep"

// Monitor sweeps working orders on a fixed external cadence and cancels
// ones past the age threshold.
type Monitor struct {
	cfg    config.MonitorConfig
	broker broker.Broker
	store  store.AuditStore
	logger zerolog.Logger
	clock  func() time.Time
}

// NewMonitor creates an order lifecycle monitor.
func NewMonitor(cfg config.MonitorConfig, b broker.Broker, s store.AuditStore, logger zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		broker: b,
		store:  s,
		logger: logging.WithComponent(logger, "monitor"),
		clock:  time.Now,
	}
}

// SetClock overrides the monitor's clock. Intended for tests.
func (m *Monitor) SetClock(clock func() time.Time) {
	m.clock = clock
}

// CancelFailure records one failed cancellation within a sweep.
type CancelFailure struct {
	OrderID string `json:"order_id"`
	Symbol  string `json:"symbol"`
	Error   string `json:"error"`
}

// SweepResult is the structured outcome of one sweep.
type SweepResult struct {
	RanAt      time.Time             `json:"ran_at"`
	DryRun     bool                  `json:"dry_run"`
	Checked    int                   `json:"checked"`
	Cancelled  []models.Cancellation `json:"cancelled"`
	Failures   []CancelFailure       `json:"failures"`
	TotalCount int64                 `json:"cumulative_cancellations"`
}

// Sweep lists working orders and cancels any whose age exceeds the
// threshold. A failed cancel for one order never prevents attempting the
// rest; failures are collected and returned. The order listing is
// retried once (idempotent read); cancels are never retried.
func (m *Monitor) Sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	now := m.clock()
	result := &SweepResult{RanAt: now, DryRun: dryRun}

	listCtx, cancel := context.WithTimeout(ctx, m.cfg.BrokerTimeout)
	defer cancel()

	orders, err := utils.RetryWithResult(listCtx, utils.ReadRetryConfig(), func() ([]models.TrackedOrder, error) {
		return m.broker.ListOpenOrders(listCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("listing open orders: %w", err)
	}

	result.Checked = len(orders)

	for _, order := range orders {
		if !order.Status.IsPending() {
			continue
		}
		age := order.Age(now)
		if age <= m.cfg.MaxOrderAge {
			continue
		}

		if !dryRun {
			cancelCtx, cancelFn := context.WithTimeout(ctx, m.cfg.BrokerTimeout)
			err := m.broker.CancelOrder(cancelCtx, order.ID)
			cancelFn()
			if err != nil {
				m.logger.Error().Err(err).Str("order_id", order.ID).
					Msg("Failed to cancel zombie order")
				result.Failures = append(result.Failures, CancelFailure{
					OrderID: order.ID,
					Symbol:  order.Symbol,
					Error:   err.Error(),
				})
				continue
			}
		}

		c := models.Cancellation{
			OrderID:     order.ID,
			Symbol:      order.Symbol,
			AgeAtCancel: age,
			CancelledAt: now,
			DryRun:      dryRun,
		}
		result.Cancelled = append(result.Cancelled, c)
		logging.LogCancellation(m.logger, order.ID, order.Symbol, age, dryRun)

		// Dry runs report what would be cancelled without touching the
		// audit trail.
		if m.store != nil && !dryRun {
			if err := m.store.RecordCancellation(ctx, c); err != nil {
				m.logger.Error().Err(err).Str("order_id", order.ID).
					Msg("Failed to record cancellation")
			}
		}
	}

	if m.store != nil {
		if !dryRun {
			if err := m.store.SetLastRun(ctx, jobName, now); err != nil {
				m.logger.Error().Err(err).Msg("Failed to record sweep time")
			}
		}
		if count, err := m.store.CancellationCount(ctx); err == nil {
			result.TotalCount = count
		}
	}

	m.logger.Info().
		Int("checked", result.Checked).
		Int("cancelled", len(result.Cancelled)).
		Int("failed", len(result.Failures)).
		Bool("dry_run", dryRun).
		Msg("Zombie sweep complete")

	return result, nil
}

// History returns recent cancellations for observability.
func (m *Monitor) History(ctx context.Context) ([]models.Cancellation, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.RecentCancellations(ctx, m.cfg.HistoryKeep)
}
