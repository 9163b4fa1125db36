package models

import (
	"fmt"
	"time"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// OrderSide is the direction of a single leg.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OptionLeg is one contract within a multi-leg structure.
type OptionLeg struct {
	Symbol           string     `json:"symbol"`
	Side             OrderSide  `json:"side"`
	Strike           float64    `json:"strike"`
	Expiration       time.Time  `json:"expiration"`
	OptionType       OptionType `json:"option_type"`
	EstimatedDelta   float64    `json:"estimated_delta"`
	EstimatedPremium float64    `json:"estimated_premium"`
}

// SpreadOrder is a fully specified defined-risk structure: four legs for
// an iron condor, two for a single-sided credit spread. Economics fields
// are coarse estimates derived from OTM distance, not model prices.
type SpreadOrder struct {
	Symbol     string      `json:"symbol"`
	Strategy   Strategy    `json:"strategy"`
	Legs       []OptionLeg `json:"legs"`
	Quantity   int         `json:"quantity"`
	NetCredit  float64     `json:"net_credit"`
	MaxLoss    float64     `json:"max_loss"`
	Breakevens []float64   `json:"breakevens"`
	ProbProfit float64     `json:"prob_profit"`
	Reasoning  string      `json:"reasoning"`
}

// ShortLegs returns the sell-side legs of the order.
func (o *SpreadOrder) ShortLegs() []OptionLeg {
	return o.legsBySide(SideSell)
}

// LongLegs returns the buy-side (protective) legs of the order.
func (o *SpreadOrder) LongLegs() []OptionLeg {
	return o.legsBySide(SideBuy)
}

func (o *SpreadOrder) legsBySide(side OrderSide) []OptionLeg {
	var out []OptionLeg
	for _, leg := range o.Legs {
		if leg.Side == side {
			out = append(out, leg)
		}
	}
	return out
}

// Collateral returns the capital at risk for the structure, per contract
// multiplier of 100 shares.
func (o *SpreadOrder) Collateral() float64 {
	qty := o.Quantity
	if qty <= 0 {
		qty = 1
	}
	return o.MaxLoss * float64(qty)
}

// ValidatePairing verifies that every short leg has a protective long leg
// of the same type and expiration at a worse strike. An unpaired short
// leg is an invariant violation, never a tradeable structure.
func (o *SpreadOrder) ValidatePairing() error {
	if len(o.Legs) == 0 {
		return fmt.Errorf("order has no legs")
	}
	for _, short := range o.ShortLegs() {
		if !o.hasProtectiveLeg(short) {
			return fmt.Errorf("short %s %.2f exp %s has no protective long leg",
				short.OptionType, short.Strike, short.Expiration.Format("2006-01-02"))
		}
	}
	return nil
}

func (o *SpreadOrder) hasProtectiveLeg(short OptionLeg) bool {
	for _, long := range o.LongLegs() {
		if long.OptionType != short.OptionType || !long.Expiration.Equal(short.Expiration) {
			continue
		}
		// Protection sits further OTM: above the short call, below the short put.
		if short.OptionType == OptionCall && long.Strike > short.Strike {
			return true
		}
		if short.OptionType == OptionPut && long.Strike < short.Strike {
			return true
		}
	}
	return false
}

// DTE returns days-to-expiration of the nearest leg.
func (o *SpreadOrder) DTE(now time.Time) int {
	if len(o.Legs) == 0 {
		return 0
	}
	nearest := o.Legs[0].Expiration
	for _, leg := range o.Legs[1:] {
		if leg.Expiration.Before(nearest) {
			nearest = leg.Expiration
		}
	}
	return int(nearest.Sub(now).Hours() / 24)
}
