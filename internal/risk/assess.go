package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

var tierWeights = map[model.RiskLevel]float64{
	model.RiskLow:      0.2,
	model.RiskMedium:   0.5,
	model.RiskHigh:     0.75,
	model.RiskCritical: 1.0,
}

func assessRisk(slippage model.SlippageAnalysis, impact model.PriceImpactAnalysis, s signals) model.RiskAssessment {
	var factors []model.RiskFactor

	// A high slippage ratio on a negligible expectation carries no real
	// exposure, so the factor also requires a material expected slippage.
	if (slippage.RiskLevel == model.RiskHigh || slippage.RiskLevel == model.RiskCritical) && slippage.ExpectedSlippage > 0.1 {
		factors = append(factors, model.RiskFactor{
			Name:        "slippage",
			Impact:      tierWeights[slippage.RiskLevel],
			Probability: 0.8,
			Severity:    0.9,
			Mitigation:  "raise slippage tolerance or reduce trade size",
		})
	}
	if impact.RiskLevel == model.RiskHigh || impact.RiskLevel == model.RiskCritical {
		factors = append(factors, model.RiskFactor{
			Name:        "price_impact",
			Impact:      tierWeights[impact.RiskLevel],
			Probability: 0.85,
			Severity:    1.0,
			Mitigation:  "split the trade into smaller sequential tranches",
		})
	}
	if s.volatility > 0.7 {
		factors = append(factors, model.RiskFactor{
			Name:        "volatility",
			Impact:      s.volatility,
			Probability: 0.7,
			Severity:    0.8,
			Mitigation:  "defer execution until volatility subsides",
		})
	}
	if s.liquidity < 0.3 {
		factors = append(factors, model.RiskFactor{
			Name:        "low_liquidity",
			Impact:      1 - s.liquidity,
			Probability: 0.75,
			Severity:    0.9,
			Mitigation:  "reduce trade size or route through deeper pools",
		})
	}
	if s.gas.Congestion > 0.7 {
		factors = append(factors, model.RiskFactor{
			Name:        "congestion",
			Impact:      s.gas.Congestion,
			Probability: 0.6,
			Severity:    0.5,
			Mitigation:  "raise the gas price or wait for congestion to clear",
		})
	}

	score := 0.0
	for _, f := range factors {
		score += f.Impact * f.Probability * f.Severity
	}
	score = math.Min(score, 1.0)

	var level model.RiskLevel
	switch {
	case score >= 0.8:
		level = model.RiskCritical
	case score >= 0.5:
		level = model.RiskHigh
	case score >= 0.2:
		level = model.RiskMedium
	default:
		level = model.RiskLow
	}

	return model.RiskAssessment{Score: score, Level: level, Factors: factors}
}

// deadlines recommended per risk tier.
var deadlineByLevel = map[model.RiskLevel]time.Duration{
	model.RiskLow:      20 * time.Minute,
	model.RiskMedium:   10 * time.Minute,
	model.RiskHigh:     5 * time.Minute,
	model.RiskCritical: 2 * time.Minute,
}

func buildRecommendations(
	amount float64,
	tol model.ToleranceResult,
	slippage model.SlippageAnalysis,
	impact model.PriceImpactAnalysis,
	gas model.GasAnalysis,
	assessment model.RiskAssessment,
	s signals,
) model.ParameterRecommendations {
	rec := model.ParameterRecommendations{
		Slippage: math.Max(slippage.RecommendedSlippage, tol.AdjustedTolerance),
		Amount:   impact.RecommendedAmount,
		GasPrice: gas.OptimalGasPrice,
		Deadline: deadlineByLevel[assessment.Level],
	}

	if impact.RiskLevel == model.RiskHigh || impact.RiskLevel == model.RiskCritical {
		rec.Split = buildSplit(amount, impact.RecommendedAmount, s.volatility)
	}
	return rec
}

// buildSplit sizes equal tranches and an inter-tranche delay scaled by
// volatility. Returns nil when no split is needed.
func buildSplit(amount, recommendedAmount, volatility float64) *model.SplitRecommendation {
	if recommendedAmount <= 0 || amount <= recommendedAmount {
		return nil
	}
	count := int(math.Ceil(amount / recommendedAmount))
	return &model.SplitRecommendation{
		SplitCount:    count,
		TrancheAmount: amount / float64(count),
		Delay:         time.Duration(float64(30*time.Second) * (1 + volatility)),
	}
}

func decideStrategy(assessment model.RiskAssessment, split *model.SplitRecommendation, volatilityIndex float64) model.ExecutionOptimization {
	var strategy model.ExecutionStrategy
	var reasoning []string

	switch {
	case assessment.Level == model.RiskCritical:
		strategy = model.StrategyCancel
		reasoning = append(reasoning, fmt.Sprintf("risk score %.2f is critical, execution rejected", assessment.Score))
		for _, f := range assessment.Factors {
			reasoning = append(reasoning, fmt.Sprintf("%s: %s", f.Name, f.Mitigation))
		}
	case split != nil:
		strategy = model.StrategySplit
		reasoning = append(reasoning, fmt.Sprintf("price impact favors %d sequential tranches of %.4f", split.SplitCount, split.TrancheAmount))
	case assessment.Level == model.RiskHigh:
		strategy = model.StrategyWait
		reasoning = append(reasoning, fmt.Sprintf("risk score %.2f is high, deferring execution", assessment.Score))
	default:
		strategy = model.StrategyImmediate
		reasoning = append(reasoning, "risk within acceptable bounds, executing immediately")
	}

	confidence := 0.8
	switch assessment.Level {
	case model.RiskLow:
		confidence += 0.1
	case model.RiskMedium:
		confidence -= 0.1
	case model.RiskHigh:
		confidence -= 0.2
	case model.RiskCritical:
		confidence -= 0.4
	}
	if volatilityIndex < 0.3 {
		confidence += 0.05
	} else if volatilityIndex > 0.7 {
		confidence -= 0.1
	}
	confidence = math.Max(0, math.Min(1, confidence))

	return model.ExecutionOptimization{
		Strategy:   strategy,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}
