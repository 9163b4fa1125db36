// Package pipeline runs one full decision cycle: regime gate, signal
// classification, structure construction, risk gate, and (optionally)
// submission through the broker boundary.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"condor-trader/internal/broker"
	"condor-trader/internal/config"
	"condor-trader/internal/logging"
	"condor-trader/internal/models"
	"condor-trader/internal/regime"
	"condor-trader/internal/risk"
	"condor-trader/internal/signal"
	"condor-trader/internal/store"
	"condor-trader/internal/structure"
)

// Outcome is the structured result of one evaluation cycle. Exactly one
// of the terminal states is set: skipped, blocked, approved (and, when
// submission is enabled, submitted).
type Outcome struct {
	Symbol     string                  `json:"symbol"`
	Timestamp  time.Time               `json:"timestamp"`
	Signal     models.OptionsSignal    `json:"signal"`
	Order      *models.SpreadOrder     `json:"order,omitempty"`
	RiskResult *models.RiskCheckResult `json:"risk_result,omitempty"`
	Approved   bool                    `json:"approved"`
	Submitted  bool                    `json:"submitted"`
	OrderID    string                  `json:"order_id,omitempty"`
	BlockedBy  string                  `json:"blocked_by,omitempty"`
	Reason     string                  `json:"reason"`
}

// Evaluator wires the decision components together.
type Evaluator struct {
	regime     *regime.Cache
	classifier *signal.Classifier
	builder    *structure.Builder
	gate       *risk.Gate
	broker     broker.Broker
	store      store.AuditStore
	logger     zerolog.Logger
	clock      func() time.Time
	submit     bool
}

// NewEvaluator builds an evaluator from configuration. When submit is
// false the pipeline stops after the risk gate (advisory mode).
func NewEvaluator(cfg *config.Config, cache *regime.Cache, b broker.Broker, s store.AuditStore, logger zerolog.Logger, submit bool) *Evaluator {
	return &Evaluator{
		regime:     cache,
		classifier: signal.NewClassifier(cfg.Signal),
		builder:    structure.NewBuilder(cfg.Structure),
		gate:       risk.NewGate(cfg.Risk, cfg.Trading.Symbols),
		broker:     b,
		store:      s,
		logger:     logging.WithComponent(logger, "pipeline"),
		clock:      time.Now,
		submit:     submit,
	}
}

// SetClock overrides the evaluator's clock. Intended for tests.
func (e *Evaluator) SetClock(clock func() time.Time) {
	e.clock = clock
}

// Evaluate runs one cycle for a symbol. Validation failures are data in
// the Outcome, not errors; only broker/store connectivity problems
// surface as errors.
func (e *Evaluator) Evaluate(ctx context.Context, in models.IndicatorSet, account models.AccountState) (*Outcome, error) {
	now := e.clock()
	out := &Outcome{Symbol: in.Symbol, Timestamp: now}
	log := logging.WithSymbol(e.logger, in.Symbol)

	// Premium selling is a SELL-side decision against the regime.
	if ok, reason := e.regime.ShouldTrade(models.SideSell); !ok {
		out.BlockedBy = "regime"
		out.Reason = reason
		out.Signal = models.OptionsSignal{Symbol: in.Symbol, Strategy: models.StrategySkip, Reasoning: reason}
		e.journal(ctx, out)
		return out, nil
	}

	out.Signal = e.classifier.Classify(in)
	logging.LogDecision(log, in.Symbol, string(out.Signal.Strategy), out.Signal.Confidence, out.Signal.Reasoning)

	if out.Signal.Strategy == models.StrategySkip {
		out.Reason = out.Signal.Reasoning
		e.journal(ctx, out)
		return out, nil
	}

	order, err := e.builder.Build(out.Signal, in.Price, now)
	if err != nil {
		// Unbuildable structure is an invariant violation: loud, blocks
		// the cycle, but the sweep itself did not fail.
		out.BlockedBy = "structure"
		out.Reason = err.Error()
		e.journal(ctx, out)
		return out, nil
	}
	out.Order = order

	result := e.gate.EvaluateAll(order, account, now)
	out.RiskResult = &result
	out.Approved = result.Approved

	if !result.Approved {
		failures := result.Failures()
		out.BlockedBy = failures[0].Rule
		out.Reason = failures[0].Message
		for _, f := range failures {
			logging.LogBlocked(log, in.Symbol, f.Rule, f.Message)
		}
		e.journal(ctx, out)
		return out, nil
	}

	out.Reason = fmt.Sprintf("all %d risk checks passed", len(result.Checks))

	if e.submit && e.broker != nil {
		orderID, err := e.broker.SubmitOrder(ctx, order)
		if err != nil {
			e.journal(ctx, out)
			return out, fmt.Errorf("submitting order: %w", err)
		}
		out.Submitted = true
		out.OrderID = orderID
		log.Info().Str("order_id", orderID).
			Float64("net_credit", order.NetCredit).Msg("Order submitted")
	}

	e.journal(ctx, out)
	return out, nil
}

func (e *Evaluator) journal(ctx context.Context, out *Outcome) {
	if e.store == nil {
		return
	}
	rec := store.DecisionRecord{
		ID:         uuid.NewString(),
		Symbol:     out.Symbol,
		Timestamp:  out.Timestamp,
		Strategy:   out.Signal.Strategy,
		Confidence: out.Signal.Confidence,
		Reasoning:  out.Signal.Reasoning,
		Approved:   out.Approved,
		RiskResult: out.RiskResult,
		OrderID:    out.OrderID,
	}
	if err := e.store.RecordDecision(ctx, rec); err != nil {
		e.logger.Error().Err(err).Msg("Failed to journal decision")
	}
}
