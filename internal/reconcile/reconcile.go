// Package reconcile compares broker-reported positions against the
// locally tracked snapshot and surfaces discrepancies. Divergence is
// reported, never silently corrected.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"condor-trader/internal/broker"
	"condor-trader/internal/config"
	"condor-trader/internal/logging"
	"condor-trader/internal/models"
	"condor-trader/internal/store"
	"condor-trader/pkg/utils"
)

// Tolerances bound acceptable divergence between local and external state.
type Tolerances struct {
	QuantityEpsilon   float64 // absolute, in shares/contracts
	ValueTolerancePct float64 // relative, percent of external market value
}

// Compare walks the union of symbols across both maps and emits one
// Discrepancy per violated field. Pure function; symmetric up to
// direction labels.
func Compare(local, external map[string]models.Position, tol Tolerances) []models.Discrepancy {
	var out []models.Discrepancy

	symbols := make(map[string]bool, len(local)+len(external))
	for s := range local {
		symbols[s] = true
	}
	for s := range external {
		symbols[s] = true
	}

	ordered := make([]string, 0, len(symbols))
	for s := range symbols {
		ordered = append(ordered, s)
	}
	sort.Strings(ordered)

	for _, symbol := range ordered {
		loc, hasLocal := local[symbol]
		ext, hasExternal := external[symbol]

		switch {
		case hasExternal && !hasLocal:
			out = append(out, models.Discrepancy{
				Kind:          models.DiscrepancyMissingLocally,
				Symbol:        symbol,
				ExternalValue: ext.Quantity,
				Difference:    ext.Quantity,
				Message: fmt.Sprintf(
					"broker reports %s qty %.4f but it is not tracked locally", symbol, ext.Quantity),
			})
		case hasLocal && !hasExternal:
			out = append(out, models.Discrepancy{
				Kind:       models.DiscrepancyLocalOnly,
				Symbol:     symbol,
				LocalValue: loc.Quantity,
				Difference: loc.Quantity,
				Message: fmt.Sprintf(
					"%s qty %.4f tracked locally but broker does not report it", symbol, loc.Quantity),
			})
		default:
			out = append(out, compareFields(symbol, loc, ext, tol)...)
		}
	}
	return out
}

func compareFields(symbol string, loc, ext models.Position, tol Tolerances) []models.Discrepancy {
	var out []models.Discrepancy

	if diff := math.Abs(loc.Quantity - ext.Quantity); diff > tol.QuantityEpsilon {
		out = append(out, models.Discrepancy{
			Kind:          models.DiscrepancyQuantity,
			Symbol:        symbol,
			LocalValue:    loc.Quantity,
			ExternalValue: ext.Quantity,
			Difference:    diff,
			Message: fmt.Sprintf(
				"Quantity mismatch for %s: local %.4f vs external %.4f (diff %.4f, tolerance %.4f)",
				symbol, loc.Quantity, ext.Quantity, diff, tol.QuantityEpsilon),
		})
	}

	// The relative tolerance pivots on the larger magnitude so the
	// comparison gives the same answer regardless of argument order.
	valueDiff := math.Abs(loc.MarketValue - ext.MarketValue)
	pivot := math.Max(math.Abs(loc.MarketValue), math.Abs(ext.MarketValue))
	limit := pivot * tol.ValueTolerancePct / 100
	if valueDiff > limit {
		out = append(out, models.Discrepancy{
			Kind:          models.DiscrepancyMarketValue,
			Symbol:        symbol,
			LocalValue:    loc.MarketValue,
			ExternalValue: ext.MarketValue,
			Difference:    valueDiff,
			Message: fmt.Sprintf(
				"Market value mismatch for %s: local %.2f vs external %.2f (diff %.2f exceeds %.1f%%)",
				symbol, loc.MarketValue, ext.MarketValue, valueDiff, tol.ValueTolerancePct),
		})
	}
	return out
}

// Reconciler runs periodic reconciliation sweeps against the broker.
type Reconciler struct {
	cfg    config.ReconcileConfig
	broker broker.Broker
	store  store.AuditStore
	logger zerolog.Logger
	clock  func() time.Time
}

// NewReconciler creates a state reconciler.
func NewReconciler(cfg config.ReconcileConfig, b broker.Broker, s store.AuditStore, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		cfg:    cfg,
		broker: b,
		store:  s,
		logger: logging.WithComponent(logger, "reconcile"),
		clock:  time.Now,
	}
}

// SetClock overrides the reconciler's clock. Intended for tests.
func (r *Reconciler) SetClock(clock func() time.Time) {
	r.clock = clock
}

// Run fetches broker positions (retried once; read is idempotent), loads
// the local snapshot, compares, and persists the run summary.
func (r *Reconciler) Run(ctx context.Context) (*store.ReconcileRun, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.BrokerTimeout)
	defer cancel()

	positions, err := utils.RetryWithResult(fetchCtx, utils.ReadRetryConfig(), func() ([]models.Position, error) {
		return r.broker.ListPositions(fetchCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching broker positions: %w", err)
	}

	external := make(map[string]models.Position, len(positions))
	for _, p := range positions {
		external[p.Symbol] = p
	}

	local, err := LoadSnapshot(r.cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("loading local snapshot: %w", err)
	}

	discrepancies := Compare(local, external, Tolerances{
		QuantityEpsilon:   r.cfg.QuantityEpsilon,
		ValueTolerancePct: r.cfg.ValueTolerancePct,
	})

	run := &store.ReconcileRun{
		ID:            uuid.NewString(),
		RanAt:         r.clock(),
		LocalCount:    len(local),
		ExternalCount: len(external),
		Discrepancies: discrepancies,
	}

	for _, d := range discrepancies {
		logging.LogDiscrepancy(r.logger, string(d.Kind), d.Symbol, d.Message)
	}

	if r.store != nil {
		if err := r.store.RecordReconcileRun(ctx, *run); err != nil {
			r.logger.Error().Err(err).Msg("Failed to record reconcile run")
		}
		if err := r.store.SetLastRun(ctx, "reconcile", run.RanAt); err != nil {
			r.logger.Error().Err(err).Msg("Failed to record reconcile time")
		}
	}

	r.logger.Info().
		Int("local", run.LocalCount).
		Int("external", run.ExternalCount).
		Int("discrepancies", len(discrepancies)).
		Msg("Reconciliation complete")

	return run, nil
}

// LoadSnapshot reads the locally tracked position snapshot. A missing
// file is an empty book, not an error.
func LoadSnapshot(path string) (map[string]models.Position, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]models.Position{}, nil
	}
	if err != nil {
		return nil, err
	}

	var positions []models.Position
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}

	out := make(map[string]models.Position, len(positions))
	for _, p := range positions {
		out[p.Symbol] = p
	}
	return out, nil
}
