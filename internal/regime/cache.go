// Package regime provides the cached market-regime snapshot shared
// between the slow classification process ("brain") and the fast
// decision path ("hands").
package regime

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"condor-trader/internal/config"
	"condor-trader/internal/models"
)

// Cache is a read-through cache over the on-disk regime snapshot. Reads
// are served from memory within MemoryTTL; expired, corrupt, or missing
// snapshots degrade to a conservative default rather than failing, so
// the decision path never blocks on the brain being late.
type Cache struct {
	cfg    config.RegimeConfig
	logger zerolog.Logger
	clock  func() time.Time

	mu       sync.Mutex
	cached   *models.MarketRegime
	cachedAt time.Time
}

// NewCache creates a regime cache backed by the configured file path.
func NewCache(cfg config.RegimeConfig, logger zerolog.Logger) *Cache {
	return &Cache{
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
	}
}

// SetClock overrides the cache's clock. Intended for tests.
func (c *Cache) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// ConservativeDefault is the regime assumed when no trustworthy snapshot
// exists: neutral bias, high volatility, small position ceiling.
func (c *Cache) ConservativeDefault() models.MarketRegime {
	now := c.clock()
	maxPos := c.cfg.DefaultMaxPosPct
	if maxPos <= 0 {
		maxPos = 2.0
	}
	return models.MarketRegime{
		Bias:            models.BiasNeutral,
		Confidence:      0,
		Volatility:      models.VolHigh,
		MaxPositionPct:  maxPos,
		MaxDailyRiskPct: 1.0,
		UpdatedAt:       now,
		ValidUntil:      now,
		Source:          "conservative-default",
	}
}

// Get returns the current regime. It never returns an error: a missing,
// unparseable, expired, or over-age snapshot yields the conservative
// default. The memory TTL bounds disk reads on the hot path.
func (c *Cache) Get() models.MarketRegime {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.cached != nil && now.Sub(c.cachedAt) < c.cfg.MemoryTTL {
		return c.degradeIfStale(*c.cached, now)
	}

	regime, err := c.readFile()
	if err != nil {
		c.logger.Warn().Err(err).Str("path", c.cfg.FilePath).
			Msg("Regime snapshot unreadable, using conservative default")
		c.cached = nil
		return c.ConservativeDefault()
	}

	c.cached = &regime
	c.cachedAt = now
	return c.degradeIfStale(regime, now)
}

// degradeIfStale substitutes the conservative default when the snapshot
// is past ValidUntil or older than the staleness bound.
func (c *Cache) degradeIfStale(r models.MarketRegime, now time.Time) models.MarketRegime {
	if r.IsExpired(now) || r.Age(now) > c.cfg.StalenessBound {
		c.logger.Warn().
			Time("valid_until", r.ValidUntil).
			Dur("age", r.Age(now)).
			Msg("Regime snapshot stale, using conservative default")
		return c.ConservativeDefault()
	}
	return r
}

func (c *Cache) readFile() (models.MarketRegime, error) {
	var regime models.MarketRegime
	data, err := os.ReadFile(c.cfg.FilePath)
	if err != nil {
		return regime, fmt.Errorf("reading regime file: %w", err)
	}
	if err := json.Unmarshal(data, &regime); err != nil {
		return regime, fmt.Errorf("parsing regime file: %w", err)
	}
	if err := regime.Validate(); err != nil {
		return regime, fmt.Errorf("validating regime: %w", err)
	}
	return regime, nil
}

// Update writes a new regime snapshot. The write is atomic (temp file +
// rename) so a concurrent reader never observes a half-written snapshot.
// Only the brain process calls this.
func (c *Cache) Update(regime models.MarketRegime) error {
	if err := regime.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid regime: %w", err)
	}

	data, err := json.MarshalIndent(regime, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding regime: %w", err)
	}
	if err := writeFileAtomic(c.cfg.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("writing regime file: %w", err)
	}

	c.mu.Lock()
	c.cached = &regime
	c.cachedAt = c.clock()
	c.mu.Unlock()

	c.logger.Info().
		Str("bias", string(regime.Bias)).
		Str("volatility", string(regime.Volatility)).
		Float64("confidence", regime.Confidence).
		Time("valid_until", regime.ValidUntil).
		Msg("Regime snapshot updated")
	return nil
}

// ShouldTrade decides whether a trade on the given side is permitted
// under the current regime, with a human-readable reason.
func (c *Cache) ShouldTrade(side models.OrderSide) (bool, string) {
	r := c.Get()

	if r.Volatility == models.VolExtreme {
		return false, "volatility regime is EXTREME: all trading blocked"
	}

	blockConf := c.cfg.BlockConfidence
	if blockConf <= 0 {
		blockConf = 0.7
	}

	// Selling premium against a high-confidence directional regime is
	// the documented historical loss pattern.
	if side == models.SideSell && r.Bias == models.BiasLong && r.Confidence > blockConf {
		return false, fmt.Sprintf(
			"bias LONG with confidence %.2f > %.2f: selling blocked", r.Confidence, blockConf)
	}
	if side == models.SideBuy && r.Bias == models.BiasShort && r.Confidence > blockConf {
		return false, fmt.Sprintf(
			"bias SHORT with confidence %.2f > %.2f: buying blocked", r.Confidence, blockConf)
	}

	return true, fmt.Sprintf("regime %s/%s (confidence %.2f) permits %s",
		r.Bias, r.Volatility, r.Confidence, side)
}
