package models

import "time"

// Position is a position snapshot, either broker-reported or locally
// tracked; the reconciler compares the two shapes field by field.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	MarketValue   float64 `json:"market_value"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
}

// AccountState is the slice of account data the risk gate needs. It is
// assembled at the I/O boundary and passed in; the gate itself does no I/O.
type AccountState struct {
	Equity        float64                `json:"equity"`
	OpenPositions []Position             `json:"open_positions"`
	EarningsDates map[string][]time.Time `json:"earnings_dates,omitempty"`
}

// DiscrepancyKind labels the way local and external state diverged.
type DiscrepancyKind string

const (
	DiscrepancyMissingLocally DiscrepancyKind = "PHANTOM_MISSING_LOCALLY"
	DiscrepancyLocalOnly      DiscrepancyKind = "PHANTOM_LOCAL_ONLY"
	DiscrepancyQuantity       DiscrepancyKind = "QUANTITY_MISMATCH"
	DiscrepancyMarketValue    DiscrepancyKind = "VALUE_MISMATCH"
)

// Discrepancy is one detected divergence between local and broker state.
// Discrepancies are reported, never silently corrected.
type Discrepancy struct {
	Kind          DiscrepancyKind `json:"kind"`
	Symbol        string          `json:"symbol"`
	LocalValue    float64         `json:"local_value"`
	ExternalValue float64         `json:"external_value"`
	Difference    float64         `json:"difference"`
	Message       string          `json:"message"`
}

// RiskCheck is the outcome of a single risk rule.
type RiskCheck struct {
	Rule         string  `json:"rule"`
	Passed       bool    `json:"passed"`
	CurrentValue float64 `json:"current_value"`
	Threshold    float64 `json:"threshold"`
	Message      string  `json:"message"`
}

// RiskCheckResult aggregates an ordered battery of rule outcomes.
// Submission is permitted iff every check passed.
type RiskCheckResult struct {
	Approved bool        `json:"approved"`
	Checks   []RiskCheck `json:"checks"`
}

// Failures returns only the failed checks, in evaluation order.
func (r *RiskCheckResult) Failures() []RiskCheck {
	var out []RiskCheck
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}
