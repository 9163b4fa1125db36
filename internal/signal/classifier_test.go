package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-trader/internal/config"
	"condor-trader/internal/models"
)

func testConfig() config.SignalConfig {
	return config.SignalConfig{
		MinIVRank:         30,
		StrongTrendADX:    35,
		MildTrendADX:      20,
		BaseWidthPct:      2.0,
		UptrendMultiplier: 1.5,
	}
}

func TestIVRank(t *testing.T) {
	tests := []struct {
		name                string
		current, low, high  float64
		want                float64
	}{
		{"midpoint", 30, 20, 40, 50},
		{"at low", 20, 20, 40, 0},
		{"at high", 40, 20, 40, 100},
		{"below low clamps to zero", 10, 20, 40, 0},
		{"above high clamps to hundred", 50, 20, 40, 100},
		{"degenerate range", 30, 40, 40, 0},
		{"inverted range", 30, 50, 40, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IVRank(tt.current, tt.low, tt.high), 1e-9)
		})
	}
}

func TestClassify_ThinPremiumSkips(t *testing.T) {
	c := NewClassifier(testConfig())

	// IV rank 15: (0.15-0.10)/(0.10..0.43 range)... use direct numbers.
	sig := c.Classify(models.IndicatorSet{
		Symbol:    "SPY",
		Price:     500,
		CurrentIV: 0.13,
		IVLow52w:  0.10,
		IVHigh52w: 0.30,
		ADX:       15,
		PlusDI:    20,
		MinusDI:   20,
		RSI:       50,
	})

	require.Equal(t, models.StrategySkip, sig.Strategy)
	assert.InDelta(t, 15, sig.IVRank, 1e-9)
	assert.Contains(t, sig.Reasoning, "below minimum")
}

func TestClassify_StrongUptrendSellsPutsOnly(t *testing.T) {
	c := NewClassifier(testConfig())

	sig := c.Classify(models.IndicatorSet{
		Symbol:    "SPY",
		Price:     500,
		CurrentIV: 0.19,
		IVLow52w:  0.10,
		IVHigh52w: 0.30, // rank 45
		ADX:       40,
		PlusDI:    30,
		MinusDI:   15,
		RSI:       60,
	})

	require.Equal(t, models.StrategyCashSecuredPut, sig.Strategy)
	assert.Zero(t, sig.CallSpreadWidthPct, "no call exposure into a confirmed uptrend")
	assert.Equal(t, 2.0, sig.PutSpreadWidthPct)
	assert.Equal(t, models.TrendBullish, sig.TrendDirection)
	assert.Contains(t, sig.Reasoning, "strong uptrend")
}

func TestClassify_MildUptrendWidensCallSide(t *testing.T) {
	c := NewClassifier(testConfig())

	sig := c.Classify(models.IndicatorSet{
		Symbol:    "QQQ",
		Price:     400,
		CurrentIV: 0.25,
		IVLow52w:  0.10,
		IVHigh52w: 0.30, // rank 75
		ADX:       25,
		PlusDI:    28,
		MinusDI:   18,
		RSI:       58,
	})

	require.Equal(t, models.StrategyIronCondor, sig.Strategy)
	assert.Equal(t, 3.0, sig.CallSpreadWidthPct, "call width = base * 1.5")
	assert.Equal(t, 2.0, sig.PutSpreadWidthPct)
}

func TestClassify_DowntrendWidensPutSide(t *testing.T) {
	c := NewClassifier(testConfig())

	sig := c.Classify(models.IndicatorSet{
		Symbol:    "IWM",
		Price:     200,
		CurrentIV: 0.25,
		IVLow52w:  0.10,
		IVHigh52w: 0.30,
		ADX:       28,
		PlusDI:    14,
		MinusDI:   27,
		RSI:       42,
	})

	require.Equal(t, models.StrategyIronCondor, sig.Strategy)
	assert.Equal(t, 2.0, sig.CallSpreadWidthPct)
	assert.Equal(t, 3.0, sig.PutSpreadWidthPct)
	assert.Equal(t, models.TrendBearish, sig.TrendDirection)
}

func TestClassify_NeutralIsSymmetricAndMostConfident(t *testing.T) {
	c := NewClassifier(testConfig())

	base := models.IndicatorSet{
		Symbol:    "SPY",
		Price:     500,
		CurrentIV: 0.26,
		IVLow52w:  0.10,
		IVHigh52w: 0.30, // rank 80, HIGH environment
		PlusDI:    20,
		MinusDI:   20,
		RSI:       50,
	}

	neutral := base
	neutral.ADX = 12
	neutralSig := c.Classify(neutral)

	require.Equal(t, models.StrategyIronCondor, neutralSig.Strategy)
	assert.Equal(t, neutralSig.CallSpreadWidthPct, neutralSig.PutSpreadWidthPct)
	assert.Equal(t, models.TrendNeutral, neutralSig.TrendDirection)

	trending := base
	trending.ADX = 25
	trending.PlusDI = 30
	trending.MinusDI = 12
	trendingSig := c.Classify(trending)

	assert.Greater(t, neutralSig.Confidence, trendingSig.Confidence,
		"neutral/ranging should be the highest-confidence case")
}

func TestClassify_ReasoningCitesInputs(t *testing.T) {
	c := NewClassifier(testConfig())

	sig := c.Classify(models.IndicatorSet{
		Symbol:    "SPY",
		Price:     500,
		CurrentIV: 0.19,
		IVLow52w:  0.10,
		IVHigh52w: 0.30,
		ADX:       40,
		PlusDI:    30,
		MinusDI:   15,
		RSI:       60,
	})

	// The reasoning must bind the decision to the numbers that drove it.
	assert.Contains(t, sig.Reasoning, "40.0")
	assert.Contains(t, sig.Reasoning, "60.0")
	assert.NotEmpty(t, sig.Reasoning)
}
