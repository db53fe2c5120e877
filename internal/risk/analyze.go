package risk

import (
	"math"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

const (
	// liquidityDepthScale converts the gateway's normalized liquidity score
	// into an estimated pool depth in quote-currency units.
	liquidityDepthScale = 1_000_000

	// maxExpectedSlippage caps the modeled slippage, in percent.
	maxExpectedSlippage = 10.0
)

// signals are the market observations fetched once per simulate call.
type signals struct {
	volatility float64
	liquidity  float64
	trend      model.MarketTrend
	gas        model.GasSignals
	timeOfDay  float64
}

func (s signals) poolLiquidity() float64 {
	depth := s.liquidity * liquidityDepthScale
	if depth < 1 {
		depth = 1
	}
	return depth
}

// observedSlippage estimates the slippage currently seen in the market
// from the effective spread.
func observedSlippage(s signals) float64 {
	return 0.05 + s.volatility*0.25
}

// analyzeSlippage compares the observed slippage against the modeled
// expectation for this trade. currentSlippage is the observed value.
func analyzeSlippage(tradeSize, currentSlippage float64, s signals) model.SlippageAnalysis {
	expected := (tradeSize / s.poolLiquidity()) * (1 + s.volatility) * (1 + (s.timeOfDay-0.5)*0.2)
	if expected > maxExpectedSlippage {
		expected = maxExpectedSlippage
	}

	level := model.RiskLow
	if expected > 0 {
		ratio := currentSlippage / expected
		switch {
		case ratio < 1.2:
			level = model.RiskLow
		case ratio < 1.5:
			level = model.RiskMedium
		case ratio < 2.0:
			level = model.RiskHigh
		default:
			level = model.RiskCritical
		}
	}

	multiplier := map[model.RiskLevel]float64{
		model.RiskLow:      1.1,
		model.RiskMedium:   1.2,
		model.RiskHigh:     1.5,
		model.RiskCritical: 2.0,
	}[level]

	return model.SlippageAnalysis{
		ExpectedSlippage:    expected,
		CurrentSlippage:     currentSlippage,
		RecommendedSlippage: expected * multiplier,
		RiskLevel:           level,
	}
}

// impactCapFractions bound the recommended amount as a share of pool
// liquidity, by risk tier.
var impactCapFractions = map[model.RiskLevel]float64{
	model.RiskLow:      0.10,
	model.RiskMedium:   0.05,
	model.RiskHigh:     0.02,
	model.RiskCritical: 0.01,
}

func analyzePriceImpact(tradeSize float64, s signals) model.PriceImpactAnalysis {
	pool := s.poolLiquidity()
	impact := (tradeSize / pool) * 100

	var level model.RiskLevel
	switch {
	case impact < 0.1:
		level = model.RiskLow
	case impact < 0.5:
		level = model.RiskMedium
	case impact < 1.0:
		level = model.RiskHigh
	default:
		level = model.RiskCritical
	}

	percentage := 0.0
	if tradeSize > 0 {
		percentage = impact / tradeSize * 100
	}

	return model.PriceImpactAnalysis{
		Impact:            impact,
		ImpactPercentage:  percentage,
		RecommendedAmount: math.Min(tradeSize, pool*impactCapFractions[level]),
		RiskLevel:         level,
	}
}

func analyzeGas(estimatedGas uint64, s signals) model.GasAnalysis {
	optimal := (s.gas.BaseFee + s.gas.PriorityFee) * (1 + 0.5*s.gas.Congestion)

	var strategy model.GasStrategy
	switch {
	case s.gas.Congestion < 0.3:
		strategy = model.GasAggressive
	case s.gas.Congestion < 0.7:
		strategy = model.GasBalanced
	default:
		strategy = model.GasConservative
	}

	return model.GasAnalysis{
		OptimalGasPrice: optimal,
		TotalCost:       float64(estimatedGas) * optimal,
		Strategy:        strategy,
	}
}

func analyzeMarket(s signals) model.MarketAnalysis {
	return model.MarketAnalysis{
		LiquidityScore:  s.liquidity,
		VolatilityIndex: s.volatility,
		Depth:           s.poolLiquidity(),
		Spread:          observedSlippage(s),
		VolumeTrend:     s.trend,
		OverallTrend:    s.trend,
	}
}
