package models

// Strategy is the structure the classifier selected for the cycle.
type Strategy string

const (
	StrategySkip           Strategy = "SKIP"
	StrategyCashSecuredPut Strategy = "CASH_SECURED_PUT"
	StrategyIronCondor     Strategy = "IRON_CONDOR"
)

// TrendDirection summarizes the directional read from ADX/DI.
type TrendDirection string

const (
	TrendBullish TrendDirection = "BULLISH"
	TrendBearish TrendDirection = "BEARISH"
	TrendNeutral TrendDirection = "NEUTRAL"
)

// IVEnvironment buckets implied-volatility rank for premium selling.
type IVEnvironment string

const (
	IVLow      IVEnvironment = "LOW"
	IVModerate IVEnvironment = "MODERATE"
	IVElevated IVEnvironment = "ELEVATED"
	IVHigh     IVEnvironment = "HIGH"
)

// IndicatorSet carries the raw indicator inputs for one evaluation cycle.
type IndicatorSet struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	CurrentIV float64 `json:"current_iv"`
	IVLow52w  float64 `json:"iv_low_52w"`
	IVHigh52w float64 `json:"iv_high_52w"`
	ADX       float64 `json:"adx"`
	PlusDI    float64 `json:"plus_di"`
	MinusDI   float64 `json:"minus_di"`
	RSI       float64 `json:"rsi"`
}

// OptionsSignal is the classifier's output for one cycle. It is an
// intermediate value consumed immediately by the structure builder and
// is never persisted on its own.
type OptionsSignal struct {
	Symbol             string         `json:"symbol"`
	Strategy           Strategy       `json:"strategy"`
	IVRank             float64        `json:"iv_rank"`
	IVEnvironment      IVEnvironment  `json:"iv_environment"`
	TrendDirection     TrendDirection `json:"trend_direction"`
	ADX                float64        `json:"adx"`
	CallSpreadWidthPct float64        `json:"call_spread_width_pct"`
	PutSpreadWidthPct  float64        `json:"put_spread_width_pct"`
	Confidence         float64        `json:"confidence"` // 0..1
	Reasoning          string         `json:"reasoning"`
}
