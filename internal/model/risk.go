package model

import "time"

// MarketCondition is the coarse regime label supplied with slippage factors.
type MarketCondition string

const (
	MarketStable   MarketCondition = "STABLE"
	MarketVolatile MarketCondition = "VOLATILE"
	MarketExtreme  MarketCondition = "EXTREME"
)

// MarketTrend is the directional label from the market signal gateway.
type MarketTrend string

const (
	TrendBullish MarketTrend = "BULLISH"
	TrendBearish MarketTrend = "BEARISH"
	TrendNeutral MarketTrend = "NEUTRAL"
)

// RiskLevel grades an analysis outcome.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// SlippageFactors are the market inputs to the tolerance model.
// Volatility, Liquidity and TimeOfDay are normalized to [0, 1];
// TradeSize is in quote-currency units.
type SlippageFactors struct {
	Volatility       float64         `json:"volatility"`
	Liquidity        float64         `json:"liquidity"`
	TimeOfDay        float64         `json:"time_of_day"`
	TradeSize        float64         `json:"trade_size"`
	ChainID          uint64          `json:"chain_id"`
	MarketConditions MarketCondition `json:"market_conditions"`
}

// ToleranceResult is the output of the tolerance model.
type ToleranceResult struct {
	RecommendedTolerance float64   `json:"recommended_tolerance"`
	AdjustedTolerance    float64   `json:"adjusted_tolerance"`
	RiskLevel            RiskLevel `json:"risk_level"`
	Warnings             []string  `json:"warnings"`
	IsWithinLimits       bool      `json:"is_within_limits"`
}

// ToleranceValidation reports whether a tolerance value is acceptable.
type ToleranceValidation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// GasSignals are live fee-market observations for a chain.
// Fees are in gwei; Congestion is normalized to [0, 1].
type GasSignals struct {
	BaseFee     float64 `json:"base_fee"`
	PriorityFee float64 `json:"priority_fee"`
	Congestion  float64 `json:"congestion"`
}

// SlippageAnalysis is the slippage sub-report of a risk report.
type SlippageAnalysis struct {
	ExpectedSlippage    float64   `json:"expected_slippage"`
	CurrentSlippage     float64   `json:"current_slippage"`
	RecommendedSlippage float64   `json:"recommended_slippage"`
	RiskLevel           RiskLevel `json:"risk_level"`
}

// PriceImpactAnalysis is the price-impact sub-report.
type PriceImpactAnalysis struct {
	Impact            float64   `json:"impact"`
	ImpactPercentage  float64   `json:"impact_percentage"`
	RecommendedAmount float64   `json:"recommended_amount"`
	RiskLevel         RiskLevel `json:"risk_level"`
}

// GasStrategy labels the gas-bidding posture for current congestion.
type GasStrategy string

const (
	GasAggressive   GasStrategy = "AGGRESSIVE"
	GasBalanced     GasStrategy = "BALANCED"
	GasConservative GasStrategy = "CONSERVATIVE"
)

// GasAnalysis is the gas sub-report.
type GasAnalysis struct {
	OptimalGasPrice float64     `json:"optimal_gas_price"`
	TotalCost       float64     `json:"total_cost"`
	Strategy        GasStrategy `json:"strategy"`
}

// MarketAnalysis is the market-conditions sub-report.
type MarketAnalysis struct {
	LiquidityScore  float64     `json:"liquidity_score"`
	VolatilityIndex float64     `json:"volatility_index"`
	Depth           float64     `json:"depth"`
	Spread          float64     `json:"spread"`
	VolumeTrend     MarketTrend `json:"volume_trend"`
	OverallTrend    MarketTrend `json:"overall_trend"`
}

// SplitRecommendation proposes breaking a trade into sequential tranches.
type SplitRecommendation struct {
	SplitCount    int           `json:"split_count"`
	TrancheAmount float64       `json:"tranche_amount"`
	Delay         time.Duration `json:"delay"`
}

// ParameterRecommendations are the tuned execution parameters.
type ParameterRecommendations struct {
	Slippage float64              `json:"slippage"`
	Amount   float64              `json:"amount"`
	GasPrice float64              `json:"gas_price"`
	Deadline time.Duration        `json:"deadline"`
	Split    *SplitRecommendation `json:"split,omitempty"`
}

// RiskFactor is one triggered contributor to the overall risk score.
type RiskFactor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Probability float64 `json:"probability"`
	Severity    float64 `json:"severity"`
	Mitigation  string  `json:"mitigation"`
}

// RiskAssessment is the weighted aggregate of triggered risk factors.
type RiskAssessment struct {
	Score   float64      `json:"score"`
	Level   RiskLevel    `json:"level"`
	Factors []RiskFactor `json:"factors"`
}

// ExecutionStrategy is the pipeline's verdict on how to carry out a swap.
type ExecutionStrategy string

const (
	StrategyImmediate ExecutionStrategy = "IMMEDIATE"
	StrategyWait      ExecutionStrategy = "WAIT"
	StrategySplit     ExecutionStrategy = "SPLIT"
	StrategyCancel    ExecutionStrategy = "CANCEL"
)

// ExecutionOptimization carries the strategy decision and its rationale.
type ExecutionOptimization struct {
	Strategy   ExecutionStrategy `json:"strategy"`
	Confidence float64           `json:"confidence"`
	Reasoning  []string          `json:"reasoning"`
}

// RiskReport aggregates every sub-analysis for one simulate call.
// Reports are derived fresh per request and never cached.
type RiskReport struct {
	Slippage        SlippageAnalysis         `json:"slippage"`
	PriceImpact     PriceImpactAnalysis      `json:"price_impact"`
	Gas             GasAnalysis              `json:"gas"`
	Market          MarketAnalysis           `json:"market"`
	Recommendations ParameterRecommendations `json:"recommendations"`
	Assessment      RiskAssessment           `json:"assessment"`
	Optimization    ExecutionOptimization    `json:"optimization"`
	GeneratedAt     time.Time                `json:"generated_at"`
}
