// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig   `mapstructure:"trading"`
	Regime      RegimeConfig    `mapstructure:"regime"`
	Signal      SignalConfig    `mapstructure:"signal"`
	Structure   StructureConfig `mapstructure:"structure"`
	Risk        RiskConfig      `mapstructure:"risk"`
	Monitor     MonitorConfig   `mapstructure:"monitor"`
	Reconcile   ReconcileConfig `mapstructure:"reconcile"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode    string   `mapstructure:"mode"`    // "live", "paper"
	Symbols []string `mapstructure:"symbols"` // allow-list, default-deny
}

// RegimeConfig holds regime cache configuration.
type RegimeConfig struct {
	FilePath         string        `mapstructure:"file_path"`
	MemoryTTL        time.Duration `mapstructure:"memory_ttl"`
	StalenessBound   time.Duration `mapstructure:"staleness_bound"`
	BlockConfidence  float64       `mapstructure:"block_confidence"`
	DefaultMaxPosPct float64       `mapstructure:"default_max_pos_pct"`
}

// SignalConfig holds strategy-classification thresholds.
type SignalConfig struct {
	MinIVRank         float64 `mapstructure:"min_iv_rank"`
	StrongTrendADX    float64 `mapstructure:"strong_trend_adx"`
	MildTrendADX      float64 `mapstructure:"mild_trend_adx"`
	BaseWidthPct      float64 `mapstructure:"base_width_pct"`
	UptrendMultiplier float64 `mapstructure:"uptrend_multiplier"`
}

// StructureConfig holds spread-construction parameters.
type StructureConfig struct {
	ShortStrikeOTMPct float64 `mapstructure:"short_strike_otm_pct"`
	StrikeIncrement   float64 `mapstructure:"strike_increment"`
	TargetDTE         int     `mapstructure:"target_dte"`
}

// RiskConfig holds risk gate configuration.
type RiskConfig struct {
	MaxPositionPct     float64 `mapstructure:"max_position_pct"`
	MinDTE             int     `mapstructure:"min_dte"`
	MaxDTE             int     `mapstructure:"max_dte"`
	MaxOpenSpreads     int     `mapstructure:"max_open_spreads"`
	EarningsBufferDays int     `mapstructure:"earnings_buffer_days"`
	// Earnings maps symbol to upcoming earnings dates (YYYY-MM-DD).
	// Registered by the operator; the gate blacks out trading around them.
	Earnings map[string][]string `mapstructure:"earnings"`
}

// MonitorConfig holds order-lifecycle monitor configuration.
type MonitorConfig struct {
	MaxOrderAge   time.Duration `mapstructure:"max_order_age"`
	BrokerTimeout time.Duration `mapstructure:"broker_timeout"`
	HistoryKeep   int           `mapstructure:"history_keep"`
}

// ReconcileConfig holds state-reconciler configuration.
type ReconcileConfig struct {
	QuantityEpsilon   float64       `mapstructure:"quantity_epsilon"`
	ValueTolerancePct float64       `mapstructure:"value_tolerance_pct"`
	SnapshotPath      string        `mapstructure:"snapshot_path"`
	BrokerTimeout     time.Duration `mapstructure:"broker_timeout"`
}

// Credentials holds API credentials.
type Credentials struct {
	Alpaca AlpacaCredentials `mapstructure:"alpaca"`
}

// AlpacaCredentials holds Alpaca API credentials.
type AlpacaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/condor-trader"
	}
	return filepath.Join(home, ".config", "condor-trader")
}

// Default returns a configuration populated with operator-tuned defaults.
// Every threshold here was adjusted based on observed incidents and must
// stay externally configurable.
func Default() *Config {
	configDir := DefaultConfigDir()
	return &Config{
		Trading: TradingConfig{
			Mode:    "paper",
			Symbols: []string{"SPY", "QQQ", "IWM"},
		},
		Regime: RegimeConfig{
			FilePath:         filepath.Join(configDir, "market_regime.json"),
			MemoryTTL:        5 * time.Second,
			StalenessBound:   60 * time.Minute,
			BlockConfidence:  0.7,
			DefaultMaxPosPct: 2.0,
		},
		Signal: SignalConfig{
			MinIVRank:         30,
			StrongTrendADX:    35,
			MildTrendADX:      20,
			BaseWidthPct:      2.0,
			UptrendMultiplier: 1.5,
		},
		Structure: StructureConfig{
			ShortStrikeOTMPct: 6.0,
			StrikeIncrement:   1.0,
			TargetDTE:         35,
		},
		Risk: RiskConfig{
			MaxPositionPct:     5.0,
			MinDTE:             30,
			MaxDTE:             45,
			MaxOpenSpreads:     1,
			EarningsBufferDays: 3,
		},
		Monitor: MonitorConfig{
			MaxOrderAge:   60 * time.Second,
			BrokerTimeout: 10 * time.Second,
			HistoryKeep:   20,
		},
		Reconcile: ReconcileConfig{
			QuantityEpsilon:   0.0001,
			ValueTolerancePct: 1.0,
			SnapshotPath:      filepath.Join(configDir, "local_positions.json"),
			BrokerTimeout:     10 * time.Second,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Missing config file is acceptable: defaults apply.
			return nil
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Credentials.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Credentials.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Credentials.Alpaca.BaseURL = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}

	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 100 {
		return fmt.Errorf("max_position_pct must be in (0,100]")
	}
	if c.Risk.MinDTE < 0 || c.Risk.MaxDTE < c.Risk.MinDTE {
		return fmt.Errorf("dte window invalid: [%d,%d]", c.Risk.MinDTE, c.Risk.MaxDTE)
	}
	if c.Risk.MaxOpenSpreads < 0 {
		return fmt.Errorf("max_open_spreads must be non-negative")
	}

	if c.Signal.MinIVRank < 0 || c.Signal.MinIVRank > 100 {
		return fmt.Errorf("min_iv_rank must be between 0 and 100")
	}
	if c.Signal.BaseWidthPct <= 0 {
		return fmt.Errorf("base_width_pct must be positive")
	}
	if c.Signal.UptrendMultiplier < 1 {
		return fmt.Errorf("uptrend_multiplier must be >= 1")
	}

	if c.Structure.ShortStrikeOTMPct <= 0 {
		return fmt.Errorf("short_strike_otm_pct must be positive")
	}
	if c.Structure.StrikeIncrement <= 0 {
		return fmt.Errorf("strike_increment must be positive")
	}

	if c.Regime.MemoryTTL < 0 || c.Regime.StalenessBound <= 0 {
		return fmt.Errorf("regime ttl/staleness must be positive")
	}

	if c.Monitor.MaxOrderAge <= 0 {
		return fmt.Errorf("max_order_age must be positive")
	}

	if c.Reconcile.QuantityEpsilon < 0 || c.Reconcile.ValueTolerancePct < 0 {
		return fmt.Errorf("reconcile tolerances must be non-negative")
	}

	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode != "live"
}
