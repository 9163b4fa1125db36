package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.True(t, cfg.IsPaperMode())
	assert.Equal(t, []string{"SPY", "QQQ", "IWM"}, cfg.Trading.Symbols)
	assert.Equal(t, 5.0, cfg.Risk.MaxPositionPct)
	assert.Equal(t, 30, cfg.Risk.MinDTE)
	assert.Equal(t, 45, cfg.Risk.MaxDTE)
	assert.Equal(t, 1, cfg.Risk.MaxOpenSpreads)
	assert.Equal(t, 60*time.Second, cfg.Monitor.MaxOrderAge)
	assert.Equal(t, 0.0001, cfg.Reconcile.QuantityEpsilon)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(c *Config) {},
		},
		{
			name:   "live mode passes",
			mutate: func(c *Config) { c.Trading.Mode = "live" },
		},
		{
			name:    "unknown mode fails",
			mutate:  func(c *Config) { c.Trading.Mode = "yolo" },
			wantErr: "invalid trading mode",
		},
		{
			name:    "zero position pct fails",
			mutate:  func(c *Config) { c.Risk.MaxPositionPct = 0 },
			wantErr: "max_position_pct",
		},
		{
			name:    "inverted dte window fails",
			mutate:  func(c *Config) { c.Risk.MinDTE, c.Risk.MaxDTE = 45, 30 },
			wantErr: "dte window invalid",
		},
		{
			name:    "negative open spreads fails",
			mutate:  func(c *Config) { c.Risk.MaxOpenSpreads = -1 },
			wantErr: "max_open_spreads",
		},
		{
			name:    "iv rank above 100 fails",
			mutate:  func(c *Config) { c.Signal.MinIVRank = 120 },
			wantErr: "min_iv_rank",
		},
		{
			name:    "sub-unity uptrend multiplier fails",
			mutate:  func(c *Config) { c.Signal.UptrendMultiplier = 0.5 },
			wantErr: "uptrend_multiplier",
		},
		{
			name:    "zero strike increment fails",
			mutate:  func(c *Config) { c.Structure.StrikeIncrement = 0 },
			wantErr: "strike_increment",
		},
		{
			name:    "zero staleness bound fails",
			mutate:  func(c *Config) { c.Regime.StalenessBound = 0 },
			wantErr: "staleness",
		},
		{
			name:    "zero max order age fails",
			mutate:  func(c *Config) { c.Monitor.MaxOrderAge = 0 },
			wantErr: "max_order_age",
		},
		{
			name:    "negative tolerance fails",
			mutate:  func(c *Config) { c.Reconcile.QuantityEpsilon = -1 },
			wantErr: "tolerances",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingDirUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, 5.0, cfg.Risk.MaxPositionPct)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
[trading]
mode = "live"
symbols = ["SPY"]

[risk]
max_position_pct = 3.0
max_open_spreads = 2

[risk.earnings]
SPY = ["2026-04-20"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Trading.Mode)
	assert.Equal(t, []string{"SPY"}, cfg.Trading.Symbols)
	assert.Equal(t, 3.0, cfg.Risk.MaxPositionPct)
	assert.Equal(t, 2, cfg.Risk.MaxOpenSpreads)
	// viper lowercases map keys; consumers normalize case, so the test
	// only cares that the dates survive.
	require.Len(t, cfg.Risk.Earnings, 1)
	for _, dates := range cfg.Risk.Earnings {
		assert.Equal(t, []string{"2026-04-20"}, dates)
	}

	// Sections not present in the file keep their defaults.
	assert.Equal(t, 35, cfg.Structure.TargetDTE)
}

func TestLoad_CredentialsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[alpaca]
api_key = "key-from-file"
api_secret = "secret-from-file"
base_url = "https://paper-api.alpaca.markets"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "key-from-file", cfg.Credentials.Alpaca.APIKey)
	assert.Equal(t, "https://paper-api.alpaca.markets", cfg.Credentials.Alpaca.BaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ALPACA_API_KEY", "key-from-env")
	t.Setenv("TRADING_MODE", "live")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Credentials.Alpaca.APIKey)
	assert.Equal(t, "live", cfg.Trading.Mode)
	assert.False(t, cfg.IsPaperMode())
}

func TestLoad_InvalidFileValuesRejected(t *testing.T) {
	dir := t.TempDir()
	content := `
[risk]
max_position_pct = 150.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_position_pct")
}
