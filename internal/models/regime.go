// Package models defines the core domain types shared across the trading system.
package models

import (
	"fmt"
	"time"
)

// Bias represents the directional bias of the current market regime.
type Bias string

const (
	BiasLong    Bias = "LONG"
	BiasShort   Bias = "SHORT"
	BiasNeutral Bias = "NEUTRAL"
)

// VolatilityRegime buckets the current volatility environment.
type VolatilityRegime string

const (
	VolLow     VolatilityRegime = "LOW"
	VolNormal  VolatilityRegime = "NORMAL"
	VolHigh    VolatilityRegime = "HIGH"
	VolExtreme VolatilityRegime = "EXTREME"
)

// MarketRegime is the snapshot written by the slow regime process ("brain")
// and read by the fast decision path ("hands"). It is only ever replaced
// wholesale, never mutated in place.
type MarketRegime struct {
	Bias            Bias             `json:"bias"`
	Confidence      float64          `json:"confidence"` // 0..1
	Volatility      VolatilityRegime `json:"volatility_regime"`
	MaxPositionPct  float64          `json:"max_position_pct"`
	MaxDailyRiskPct float64          `json:"max_daily_risk_pct"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ValidUntil      time.Time        `json:"valid_until"`
	Source          string           `json:"source"`
}

// Validate checks field ranges after decoding a regime snapshot.
func (r *MarketRegime) Validate() error {
	switch r.Bias {
	case BiasLong, BiasShort, BiasNeutral:
	default:
		return fmt.Errorf("invalid bias: %q", r.Bias)
	}
	switch r.Volatility {
	case VolLow, VolNormal, VolHigh, VolExtreme:
	default:
		return fmt.Errorf("invalid volatility regime: %q", r.Volatility)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0,1]", r.Confidence)
	}
	if r.MaxPositionPct < 0 || r.MaxPositionPct > 100 {
		return fmt.Errorf("max_position_pct %.2f outside [0,100]", r.MaxPositionPct)
	}
	if r.ValidUntil.IsZero() {
		return fmt.Errorf("valid_until is required")
	}
	return nil
}

// IsExpired reports whether the regime's validity window has passed.
func (r *MarketRegime) IsExpired(now time.Time) bool {
	return now.After(r.ValidUntil)
}

// Age returns how long ago the regime was computed.
func (r *MarketRegime) Age(now time.Time) time.Duration {
	return now.Sub(r.UpdatedAt)
}
