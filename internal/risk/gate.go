// Package risk implements the ordered pre-submission check battery.
// Every rule is evaluated; a single failure blocks the whole order.
package risk

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"condor-trader/internal/config"
	"condor-trader/internal/models"
)

// Gate evaluates a proposed trade against the configured risk rules.
// Stateless and pure: same trade + account state, same result.
type Gate struct {
	cfg config.RiskConfig
	// whitelist is the explicit allow-list; anything absent is denied.
	whitelist map[string]bool
}

// NewGate creates a risk gate. symbols is the trade allow-list.
func NewGate(cfg config.RiskConfig, symbols []string) *Gate {
	wl := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wl[strings.ToUpper(s)] = true
	}
	return &Gate{cfg: cfg, whitelist: wl}
}

// EvaluateAll runs every check in order and aggregates. No
// short-circuiting: the caller sees all violations at once. Order:
// ticker, earnings, sizing, spread integrity, DTE, position count.
func (g *Gate) EvaluateAll(order *models.SpreadOrder, account models.AccountState, now time.Time) models.RiskCheckResult {
	checks := []models.RiskCheck{
		g.checkWhitelist(order),
		g.checkEarnings(order, account, now),
		g.checkPositionSize(order, account),
		g.checkSpreadIntegrity(order),
		g.checkDTE(order, now),
		g.checkPositionCount(account),
	}

	approved := true
	for _, c := range checks {
		if !c.Passed {
			approved = false
		}
	}
	return models.RiskCheckResult{Approved: approved, Checks: checks}
}

// checkWhitelist enforces the explicit allow-list. Default-deny: a
// symbol not on the list fails, there is no blocklist fallback.
func (g *Gate) checkWhitelist(order *models.SpreadOrder) models.RiskCheck {
	symbol := strings.ToUpper(order.Symbol)
	if g.whitelist[symbol] {
		return pass("ticker_whitelist", 0, 0,
			fmt.Sprintf("%s is on the allow-list", symbol))
	}
	return fail("ticker_whitelist", 0, 0,
		fmt.Sprintf("%s is not on the allow-list (default-deny)", symbol))
}

// checkEarnings fails when today falls inside a registered earnings
// window or within the buffer before it.
func (g *Gate) checkEarnings(order *models.SpreadOrder, account models.AccountState, now time.Time) models.RiskCheck {
	dates := account.EarningsDates[strings.ToUpper(order.Symbol)]
	if len(dates) == 0 {
		return pass("earnings_blackout", 0, float64(g.cfg.EarningsBufferDays),
			"no registered earnings window")
	}

	today := now.Truncate(24 * time.Hour)
	buffer := time.Duration(g.cfg.EarningsBufferDays) * 24 * time.Hour
	for _, d := range dates {
		earnings := d.Truncate(24 * time.Hour)
		windowStart := earnings.Add(-buffer)
		if !today.Before(windowStart) && !today.After(earnings) {
			daysUntil := int(earnings.Sub(today).Hours() / 24)
			return fail("earnings_blackout", float64(daysUntil), float64(g.cfg.EarningsBufferDays),
				fmt.Sprintf("earnings on %s is %d day(s) away, inside the %d-day blackout",
					earnings.Format("2006-01-02"), daysUntil, g.cfg.EarningsBufferDays))
		}
	}
	return pass("earnings_blackout", 0, float64(g.cfg.EarningsBufferDays),
		"outside all registered earnings windows")
}

// checkPositionSize caps the structure's collateral at a fraction of
// account equity.
func (g *Gate) checkPositionSize(order *models.SpreadOrder, account models.AccountState) models.RiskCheck {
	collateral := order.Collateral()
	limit := account.Equity * g.cfg.MaxPositionPct / 100

	if account.Equity <= 0 {
		return fail("position_sizing", collateral, limit, "account equity unavailable or zero")
	}
	if collateral > limit {
		return fail("position_sizing", collateral, limit,
			fmt.Sprintf("collateral $%.2f exceeds %.1f%% of equity ($%.2f)",
				collateral, g.cfg.MaxPositionPct, limit))
	}
	return pass("position_sizing", collateral, limit,
		fmt.Sprintf("collateral $%.2f within %.1f%% of equity ($%.2f)",
			collateral, g.cfg.MaxPositionPct, limit))
}

// checkSpreadIntegrity rejects any structure with an unpaired short leg.
// A naked single-leg credit position always fails here.
func (g *Gate) checkSpreadIntegrity(order *models.SpreadOrder) models.RiskCheck {
	shorts := len(order.ShortLegs())
	longs := len(order.LongLegs())
	if err := order.ValidatePairing(); err != nil {
		return fail("spread_integrity", float64(longs), float64(shorts), err.Error())
	}
	return pass("spread_integrity", float64(longs), float64(shorts),
		fmt.Sprintf("all %d short leg(s) paired with protective longs", shorts))
}

// checkDTE keeps expiration inside the configured window: too short is
// gamma risk, too long ties up capital.
func (g *Gate) checkDTE(order *models.SpreadOrder, now time.Time) models.RiskCheck {
	dte := order.DTE(now)
	if dte < g.cfg.MinDTE {
		return fail("dte_window", float64(dte), float64(g.cfg.MinDTE),
			fmt.Sprintf("%d DTE below minimum %d (gamma risk)", dte, g.cfg.MinDTE))
	}
	if dte > g.cfg.MaxDTE {
		return fail("dte_window", float64(dte), float64(g.cfg.MaxDTE),
			fmt.Sprintf("%d DTE above maximum %d (capital efficiency)", dte, g.cfg.MaxDTE))
	}
	return pass("dte_window", float64(dte), float64(g.cfg.MaxDTE),
		fmt.Sprintf("%d DTE inside [%d,%d]", dte, g.cfg.MinDTE, g.cfg.MaxDTE))
}

// checkPositionCount pairs long and short option quantities per
// underlying; each paired unit is one open spread.
func (g *Gate) checkPositionCount(account models.AccountState) models.RiskCheck {
	open := CountOpenSpreads(account.OpenPositions)
	if open+1 > g.cfg.MaxOpenSpreads {
		return fail("position_count", float64(open), float64(g.cfg.MaxOpenSpreads),
			fmt.Sprintf("%d open spread(s) vs limit %d: %d/%d", open, g.cfg.MaxOpenSpreads,
				open, g.cfg.MaxOpenSpreads))
	}
	return pass("position_count", float64(open), float64(g.cfg.MaxOpenSpreads),
		fmt.Sprintf("%d open spread(s), limit %d", open, g.cfg.MaxOpenSpreads))
}

// CountOpenSpreads counts paired spread structures across the option
// positions: per underlying, a spread = min(total long qty, total short qty).
func CountOpenSpreads(positions []models.Position) int {
	type bucket struct{ long, short float64 }
	byUnderlying := make(map[string]*bucket)

	for _, p := range positions {
		underlying, isOption := ParseOCCUnderlying(p.Symbol)
		if !isOption {
			continue
		}
		b := byUnderlying[underlying]
		if b == nil {
			b = &bucket{}
			byUnderlying[underlying] = b
		}
		if p.Quantity >= 0 {
			b.long += p.Quantity
		} else {
			b.short += -p.Quantity
		}
	}

	total := 0
	for _, b := range byUnderlying {
		total += int(math.Min(b.long, b.short))
	}
	return total
}

// ParseOCCUnderlying extracts the underlying from an OCC option symbol
// (e.g. "SPY250919C00580000" -> "SPY"). Returns false for plain equity
// symbols.
func ParseOCCUnderlying(symbol string) (string, bool) {
	// OCC: root (1-6 alpha) + 6-digit date + C/P + 8-digit strike.
	if len(symbol) < 16 {
		return "", false
	}
	tail := symbol[len(symbol)-15:]
	for i, r := range tail {
		if i == 6 {
			if r != 'C' && r != 'P' {
				return "", false
			}
			continue
		}
		if !unicode.IsDigit(r) {
			return "", false
		}
	}
	root := symbol[:len(symbol)-15]
	for _, r := range root {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	return root, true
}

func pass(rule string, current, threshold float64, message string) models.RiskCheck {
	return models.RiskCheck{Rule: rule, Passed: true, CurrentValue: current, Threshold: threshold, Message: message}
}

func fail(rule string, current, threshold float64, message string) models.RiskCheck {
	return models.RiskCheck{Rule: rule, Passed: false, CurrentValue: current, Threshold: threshold, Message: message}
}
