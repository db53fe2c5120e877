package tolerance

import (
	"strings"
	"testing"
	"time"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

func pinnedModel(t *testing.T, hour int) *Model {
	t.Helper()
	m := NewModel(DefaultConfig(), nil)
	m.SetClock(func() time.Time {
		return time.Date(2024, 6, 1, hour, 30, 0, 0, time.UTC)
	})
	return m
}

func TestComputeVolatileMarketScenario(t *testing.T) {
	m := pinnedModel(t, 3)

	result := m.Compute(0.5, model.SlippageFactors{
		Volatility:       0.8,
		Liquidity:        0.3,
		TimeOfDay:        0.5,
		TradeSize:        15000,
		ChainID:          42161,
		MarketConditions: model.MarketVolatile,
	})

	if result.AdjustedTolerance <= 0.5 {
		t.Fatalf("adjusted tolerance %g not above base 0.5", result.AdjustedTolerance)
	}
	switch result.RiskLevel {
	case model.RiskMedium, model.RiskHigh, model.RiskCritical:
	default:
		t.Fatalf("unexpected risk level %s", result.RiskLevel)
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "volatility") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a volatility warning, got %v", result.Warnings)
	}
	if result.RecommendedTolerance != 0.5 {
		t.Fatalf("recommended tolerance mutated: %g", result.RecommendedTolerance)
	}
}

func TestComputeClamping(t *testing.T) {
	m := pinnedModel(t, 10)
	cfg := m.Config()

	inputs := []model.SlippageFactors{
		{Volatility: 0.99, Liquidity: 0.01, TradeSize: 1e8, ChainID: 42161, MarketConditions: model.MarketExtreme},
		{Volatility: 0, Liquidity: 1, TradeSize: 1, ChainID: 1},
		{Volatility: 0.5, Liquidity: 0.5, TradeSize: 5000, ChainID: 137},
	}
	bases := []float64{0.001, 0.5, 10, 99}

	for _, factors := range inputs {
		for _, base := range bases {
			result := m.Compute(base, factors)
			if result.AdjustedTolerance < cfg.MinTolerance || result.AdjustedTolerance > cfg.MaxTolerance {
				t.Fatalf("adjusted %g outside [%g, %g] for base %g factors %+v",
					result.AdjustedTolerance, cfg.MinTolerance, cfg.MaxTolerance, base, factors)
			}
		}
	}
}

func TestComputeVolatilityMonotonic(t *testing.T) {
	m := pinnedModel(t, 3)
	factors := model.SlippageFactors{Liquidity: 0.7, TradeSize: 100, ChainID: 1}

	prev := 0.0
	for _, vol := range []float64{0, 0.1, 0.3, 0.6, 0.9} {
		factors.Volatility = vol
		result := m.Compute(0.5, factors)
		if result.AdjustedTolerance < prev {
			t.Fatalf("tolerance decreased from %g to %g at volatility %g", prev, result.AdjustedTolerance, vol)
		}
		prev = result.AdjustedTolerance
	}
}

func TestComputeTradeSizeMonotonic(t *testing.T) {
	m := pinnedModel(t, 3)
	factors := model.SlippageFactors{Volatility: 0.1, Liquidity: 0.7, ChainID: 1}

	prev := 0.0
	for _, size := range []float64{100, 6000, 10001, 50000} {
		factors.TradeSize = size
		result := m.Compute(0.5, factors)
		if result.AdjustedTolerance < prev {
			t.Fatalf("tolerance decreased from %g to %g at trade size %g", prev, result.AdjustedTolerance, size)
		}
		prev = result.AdjustedTolerance
	}
}

func TestComputePeakHoursApplied(t *testing.T) {
	factors := model.SlippageFactors{Volatility: 0.1, Liquidity: 0.7, TradeSize: 100, ChainID: 1}

	offPeak := pinnedModel(t, 3).Compute(0.5, factors)
	peak := pinnedModel(t, 10).Compute(0.5, factors)

	if peak.AdjustedTolerance <= offPeak.AdjustedTolerance {
		t.Fatalf("peak tolerance %g not above off-peak %g", peak.AdjustedTolerance, offPeak.AdjustedTolerance)
	}
}

func TestValidateBelowMinimum(t *testing.T) {
	m := NewModel(DefaultConfig(), nil)

	result := m.Validate(0.05)
	if result.IsValid {
		t.Fatalf("expected 0.05 to be invalid with minimum 0.1")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "minimum") {
		t.Fatalf("expected a minimum-bound error, got %v", result.Errors)
	}
}

func TestUpdateConfigAtomic(t *testing.T) {
	m := NewModel(DefaultConfig(), nil)
	before := m.Config()

	warning := 3.0
	bad := 0.05 // below default, violates min <= default <= max
	err := m.UpdateConfig(ConfigPatch{
		WarningThreshold: &warning,
		MaxTolerance:     &bad,
	})
	if err == nil {
		t.Fatalf("expected invalid update to be rejected")
	}

	after := m.Config()
	if after.WarningThreshold != before.WarningThreshold || after.MaxTolerance != before.MaxTolerance {
		t.Fatalf("rejected update mutated config: %+v != %+v", after, before)
	}
}

func TestUpdateConfigApplies(t *testing.T) {
	m := NewModel(DefaultConfig(), nil)

	min := 0.2
	if err := m.UpdateConfig(ConfigPatch{MinTolerance: &min}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Config().MinTolerance; got != 0.2 {
		t.Fatalf("min tolerance not applied: %g", got)
	}
}

func TestUpdateConfigFieldBounds(t *testing.T) {
	m := NewModel(DefaultConfig(), nil)

	over := 150.0
	if err := m.UpdateConfig(ConfigPatch{PeakHoursMultiplier: &over}); err == nil {
		t.Fatalf("expected out-of-range multiplier to be rejected")
	}
}
