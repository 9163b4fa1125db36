// Package structure converts a strategy signal and the current price
// into concrete option legs and coarse trade economics.
//
// The premium and probability numbers produced here are OTM-distance
// heuristics, not model prices. The strategy-selection thresholds were
// tuned against exactly these estimates; swapping in a real pricing
// model requires re-validating those thresholds.
package structure

import (
	"fmt"
	"math"
	"time"

	"condor-trader/internal/config"
	derrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
)

// Builder constructs fully specified spread orders. Pure: no I/O.
type Builder struct {
	cfg config.StructureConfig
}

// NewBuilder creates a structure builder.
func NewBuilder(cfg config.StructureConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build dispatches on the signal's strategy. A SKIP signal returns nil
// with no error; callers treat that as "nothing to trade".
func (b *Builder) Build(sig models.OptionsSignal, price float64, now time.Time) (*models.SpreadOrder, error) {
	switch sig.Strategy {
	case models.StrategySkip:
		return nil, nil
	case models.StrategyIronCondor:
		return b.BuildIronCondor(sig, price, now)
	case models.StrategyCashSecuredPut:
		return b.BuildPutSpread(sig, price, now)
	default:
		return nil, derrors.NewValidationError("strategy", sig.Strategy, "unknown strategy")
	}
}

// BuildIronCondor builds the four-leg structure: short call + long call
// above the market, short put + long put below. The output is either
// complete or an error; never a partial structure.
func (b *Builder) BuildIronCondor(sig models.OptionsSignal, price float64, now time.Time) (*models.SpreadOrder, error) {
	if price <= 0 {
		return nil, derrors.NewStructureError(sig.Symbol,
			fmt.Sprintf("cannot compute strikes from non-positive price %.2f", price), nil)
	}

	expiration := b.expiration(now)
	otm := b.cfg.ShortStrikeOTMPct / 100

	// Short strikes ~6% OTM approximate a 20-delta contract.
	shortCall := b.roundStrike(price * (1 + otm))
	longCall := b.roundStrike(price * (1 + otm + sig.CallSpreadWidthPct/100))
	shortPut := b.roundStrike(price * (1 - otm))
	longPut := b.roundStrike(price * (1 - otm - sig.PutSpreadWidthPct/100))

	if longCall <= shortCall || longPut >= shortPut {
		return nil, derrors.NewStructureError(sig.Symbol,
			fmt.Sprintf("degenerate strikes: calls %.2f/%.2f puts %.2f/%.2f (width too narrow for increment %.2f)",
				shortCall, longCall, shortPut, longPut, b.cfg.StrikeIncrement), nil)
	}

	legs := []models.OptionLeg{
		leg(sig.Symbol, models.SideSell, shortCall, expiration, models.OptionCall, price),
		leg(sig.Symbol, models.SideBuy, longCall, expiration, models.OptionCall, price),
		leg(sig.Symbol, models.SideSell, shortPut, expiration, models.OptionPut, price),
		leg(sig.Symbol, models.SideBuy, longPut, expiration, models.OptionPut, price),
	}

	credit := netCredit(legs)
	widerWidth := math.Max(longCall-shortCall, shortPut-longPut)

	order := &models.SpreadOrder{
		Symbol:   sig.Symbol,
		Strategy: models.StrategyIronCondor,
		Legs:     legs,
		Quantity: 1,
		// Max loss: the wider wing minus the credit received, per contract.
		NetCredit:  credit,
		MaxLoss:    widerWidth*100 - credit*100,
		Breakevens: []float64{shortPut - credit, shortCall + credit},
		ProbProfit: probabilityEstimate(price, shortCall, shortPut),
		Reasoning:  sig.Reasoning,
	}

	if err := order.ValidatePairing(); err != nil {
		return nil, derrors.NewStructureError(sig.Symbol, "built condor failed pairing check", err)
	}
	return order, nil
}

// BuildPutSpread builds the two-leg put credit spread used in lieu of a
// cash-secured put, so the position stays defined-risk.
func (b *Builder) BuildPutSpread(sig models.OptionsSignal, price float64, now time.Time) (*models.SpreadOrder, error) {
	if price <= 0 {
		return nil, derrors.NewStructureError(sig.Symbol,
			fmt.Sprintf("cannot compute strikes from non-positive price %.2f", price), nil)
	}

	expiration := b.expiration(now)
	otm := b.cfg.ShortStrikeOTMPct / 100

	shortPut := b.roundStrike(price * (1 - otm))
	longPut := b.roundStrike(price * (1 - otm - sig.PutSpreadWidthPct/100))

	if longPut >= shortPut {
		return nil, derrors.NewStructureError(sig.Symbol,
			fmt.Sprintf("degenerate strikes: puts %.2f/%.2f (width too narrow for increment %.2f)",
				shortPut, longPut, b.cfg.StrikeIncrement), nil)
	}

	legs := []models.OptionLeg{
		leg(sig.Symbol, models.SideSell, shortPut, expiration, models.OptionPut, price),
		leg(sig.Symbol, models.SideBuy, longPut, expiration, models.OptionPut, price),
	}

	credit := netCredit(legs)
	width := shortPut - longPut

	order := &models.SpreadOrder{
		Symbol:     sig.Symbol,
		Strategy:   models.StrategyCashSecuredPut,
		Legs:       legs,
		Quantity:   1,
		NetCredit:  credit,
		MaxLoss:    width*100 - credit*100,
		Breakevens: []float64{shortPut - credit},
		ProbProfit: probabilityEstimate(price, 0, shortPut),
		Reasoning:  sig.Reasoning,
	}

	if err := order.ValidatePairing(); err != nil {
		return nil, derrors.NewStructureError(sig.Symbol, "built spread failed pairing check", err)
	}
	return order, nil
}

func (b *Builder) expiration(now time.Time) time.Time {
	dte := b.cfg.TargetDTE
	if dte <= 0 {
		dte = 35
	}
	return now.AddDate(0, 0, dte).Truncate(24 * time.Hour)
}

// roundStrike snaps a raw strike onto the symbol's strike increment.
func (b *Builder) roundStrike(raw float64) float64 {
	inc := b.cfg.StrikeIncrement
	if inc <= 0 {
		inc = 1.0
	}
	return math.Round(raw/inc) * inc
}

func leg(symbol string, side models.OrderSide, strike float64, exp time.Time, ot models.OptionType, spot float64) models.OptionLeg {
	return models.OptionLeg{
		Symbol:           symbol,
		Side:             side,
		Strike:           strike,
		Expiration:       exp,
		OptionType:       ot,
		EstimatedDelta:   estimateDelta(spot, strike, ot),
		EstimatedPremium: estimatePremium(spot, strike),
	}
}

// estimatePremium is a rule-of-thumb premium by OTM distance: roughly
// 0.4% of spot at the short strike, decaying with distance. Labeled
// estimate; not a price.
func estimatePremium(spot, strike float64) float64 {
	if spot <= 0 {
		return 0
	}
	dist := math.Abs(strike-spot) / spot // fraction OTM
	premium := spot * 0.004 * math.Exp(-25*math.Max(0, dist-0.06))
	return math.Round(premium*100) / 100
}

// estimateDelta is a coarse delta by OTM distance, signed by type.
func estimateDelta(spot, strike float64, ot models.OptionType) float64 {
	if spot <= 0 {
		return 0
	}
	dist := math.Abs(strike-spot) / spot
	mag := 0.5 * math.Exp(-12*dist)
	if ot == models.OptionPut {
		return -mag
	}
	return mag
}

// netCredit sums signed per-leg premiums: collected on shorts, paid on longs.
func netCredit(legs []models.OptionLeg) float64 {
	var credit float64
	for _, l := range legs {
		if l.Side == models.SideSell {
			credit += l.EstimatedPremium
		} else {
			credit -= l.EstimatedPremium
		}
	}
	return math.Round(credit*100) / 100
}

// probabilityEstimate buckets probability of profit by the distance from
// spot to the nearest short strike. Documented heuristic, not a model.
func probabilityEstimate(spot, shortCall, shortPut float64) float64 {
	if spot <= 0 {
		return 0
	}
	nearest := math.Inf(1)
	if shortCall > 0 {
		nearest = math.Min(nearest, math.Abs(shortCall-spot)/spot*100)
	}
	if shortPut > 0 {
		nearest = math.Min(nearest, math.Abs(spot-shortPut)/spot*100)
	}
	switch {
	case nearest >= 8:
		return 0.80
	case nearest >= 6:
		return 0.70
	case nearest >= 4:
		return 0.60
	default:
		return 0.50
	}
}
