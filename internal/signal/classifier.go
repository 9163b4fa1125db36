// Package signal turns raw market indicators into a strategy choice and
// asymmetric spread widths.
package signal

import (
	"fmt"

	"condor-trader/internal/config"
	"condor-trader/internal/models"
)

// Classifier maps indicator readings to a premium-selling strategy.
// It is pure: same inputs, same signal, no I/O.
type Classifier struct {
	cfg config.SignalConfig
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg config.SignalConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// IVRank computes the 52-week implied-volatility rank, clamped to [0,100].
func IVRank(current, low52w, high52w float64) float64 {
	if high52w <= low52w {
		return 0
	}
	rank := (current - low52w) / (high52w - low52w) * 100
	if rank < 0 {
		return 0
	}
	if rank > 100 {
		return 100
	}
	return rank
}

// ivEnvironment buckets IV rank for confidence scoring.
func ivEnvironment(rank float64) models.IVEnvironment {
	switch {
	case rank >= 70:
		return models.IVHigh
	case rank >= 50:
		return models.IVElevated
	case rank >= 30:
		return models.IVModerate
	default:
		return models.IVLow
	}
}

// trendDirection reads direction from the DI lines when ADX confirms a trend.
func (c *Classifier) trendDirection(in models.IndicatorSet) models.TrendDirection {
	if in.ADX < c.cfg.MildTrendADX {
		return models.TrendNeutral
	}
	if in.PlusDI > in.MinusDI {
		return models.TrendBullish
	}
	if in.MinusDI > in.PlusDI {
		return models.TrendBearish
	}
	return models.TrendNeutral
}

// Classify evaluates the decision table in order; the first matching row
// wins. The reasoning string must tie the choice to the inputs that
// drove it, for the audit trail.
func (c *Classifier) Classify(in models.IndicatorSet) models.OptionsSignal {
	rank := IVRank(in.CurrentIV, in.IVLow52w, in.IVHigh52w)
	env := ivEnvironment(rank)
	trend := c.trendDirection(in)

	sig := models.OptionsSignal{
		Symbol:         in.Symbol,
		IVRank:         rank,
		IVEnvironment:  env,
		TrendDirection: trend,
		ADX:            in.ADX,
	}

	base := c.cfg.BaseWidthPct
	mult := c.cfg.UptrendMultiplier

	switch {
	case rank < c.cfg.MinIVRank:
		// Premium too thin to compensate for the risk: stand aside.
		sig.Strategy = models.StrategySkip
		sig.Confidence = 0.9
		sig.Reasoning = fmt.Sprintf(
			"IV rank %.1f below minimum %.1f: premium too thin to sell, skipping",
			rank, c.cfg.MinIVRank)

	case trend == models.TrendBullish && in.ADX > c.cfg.StrongTrendADX && in.RSI > 50:
		// Never sell naked calls into a confirmed uptrend.
		sig.Strategy = models.StrategyCashSecuredPut
		sig.CallSpreadWidthPct = 0
		sig.PutSpreadWidthPct = base
		sig.Confidence = confidence(env, trend)
		sig.Reasoning = fmt.Sprintf(
			"strong uptrend (ADX %.1f > %.1f, +DI %.1f > -DI %.1f, RSI %.1f > 50): "+
				"put side only, no call exposure into the trend",
			in.ADX, c.cfg.StrongTrendADX, in.PlusDI, in.MinusDI, in.RSI)

	case trend == models.TrendBullish:
		sig.Strategy = models.StrategyIronCondor
		sig.CallSpreadWidthPct = base * mult
		sig.PutSpreadWidthPct = base
		sig.Confidence = confidence(env, trend)
		sig.Reasoning = fmt.Sprintf(
			"mild uptrend (ADX %.1f, +DI leading): condor with call side widened %.1fx "+
				"(%.1f%% vs %.1f%%) to keep the call leg untested",
			in.ADX, mult, sig.CallSpreadWidthPct, sig.PutSpreadWidthPct)

	case trend == models.TrendBearish:
		sig.Strategy = models.StrategyIronCondor
		sig.CallSpreadWidthPct = base
		sig.PutSpreadWidthPct = base * mult
		sig.Confidence = confidence(env, trend)
		sig.Reasoning = fmt.Sprintf(
			"downtrend (ADX %.1f, -DI leading): condor with put side widened %.1fx "+
				"(%.1f%% vs %.1f%%)",
			in.ADX, mult, sig.PutSpreadWidthPct, sig.CallSpreadWidthPct)

	default:
		sig.Strategy = models.StrategyIronCondor
		sig.CallSpreadWidthPct = base
		sig.PutSpreadWidthPct = base
		sig.Confidence = confidence(env, trend)
		sig.Reasoning = fmt.Sprintf(
			"neutral/ranging market (ADX %.1f below %.1f): symmetric condor at %.1f%% widths, "+
				"IV rank %.1f (%s)",
			in.ADX, c.cfg.MildTrendADX, base, rank, env)
	}

	return sig
}

// confidence scores a tradeable signal: higher IV environments and
// trend-neutrality both raise it.
func confidence(env models.IVEnvironment, trend models.TrendDirection) float64 {
	score := 0.5
	switch env {
	case models.IVHigh:
		score += 0.25
	case models.IVElevated:
		score += 0.15
	case models.IVModerate:
		score += 0.05
	}
	if trend == models.TrendNeutral {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}
	return score
}
