package tolerance

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Model converts a base tolerance plus market factors into an adjusted
// tolerance, a risk tier, and warnings. Pure given its inputs and the
// wall-clock hour.
type Model struct {
	mu     sync.RWMutex
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewModel builds a Model. An invalid config is replaced with defaults.
func NewModel(cfg Config, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.validate(); err != nil {
		logger.Warn("invalid tolerance config, using defaults", zap.Error(err))
		cfg = DefaultConfig()
	}
	if cfg.ChainMultipliers == nil {
		cfg.ChainMultipliers = map[uint64]float64{}
	}
	return &Model{cfg: cfg.clone(), logger: logger, now: time.Now}
}

// SetClock overrides the wall-clock source. Used by tests to pin the
// time-of-day adjustment.
func (m *Model) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Config returns a copy of the current configuration.
func (m *Model) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.clone()
}

// Compute derives the adjusted tolerance for the given base and factors.
// Multipliers apply in a fixed order: volatility, liquidity, time of day,
// trade size, chain.
func (m *Model) Compute(base float64, factors model.SlippageFactors) model.ToleranceResult {
	m.mu.RLock()
	cfg := m.cfg
	now := m.now
	m.mu.RUnlock()

	adjusted := base
	var warnings []string

	if cfg.VolatilityEnabled {
		mult := 1.0
		switch {
		case factors.Volatility > 0.8:
			mult = cfg.HighVolatilityMultiplier
		case factors.Volatility > 0.5:
			mult = 1.2
		case factors.Volatility > 0.2:
			mult = 1.1
		}
		adjusted *= mult
		if factors.Volatility > 0.5 {
			warnings = append(warnings, fmt.Sprintf("elevated volatility %.2f increased tolerance by %.0f%%", factors.Volatility, (mult-1)*100))
		}
	}

	switch factors.MarketConditions {
	case model.MarketVolatile:
		warnings = append(warnings, "market conditions are volatile")
	case model.MarketExtreme:
		warnings = append(warnings, "market conditions are extreme, consider deferring the trade")
	}

	if cfg.LiquidityEnabled {
		mult := 1.0
		switch {
		case factors.Liquidity < 0.3:
			mult = cfg.LowLiquidityMultiplier
		case factors.Liquidity < 0.6:
			mult = 1.1
		}
		adjusted *= mult
		if factors.Liquidity < 0.3 {
			warnings = append(warnings, fmt.Sprintf("low liquidity %.2f increased tolerance by %.0f%%", factors.Liquidity, (mult-1)*100))
		}
	}

	if cfg.TimeOfDayEnabled {
		mult := cfg.OffPeakMultiplier
		if peak := isPeakHour(now().UTC().Hour()); peak {
			mult = cfg.PeakHoursMultiplier
			if mult != 1.0 {
				warnings = append(warnings, "peak trading hours adjustment applied")
			}
		} else if mult != 1.0 {
			warnings = append(warnings, "off-peak hours adjustment applied")
		}
		adjusted *= mult
	}

	if cfg.TradeSizeEnabled {
		mult := 1.0
		switch {
		case factors.TradeSize > cfg.LargeTradeThreshold:
			mult = cfg.LargeTradeMultiplier
			warnings = append(warnings, fmt.Sprintf("large trade size %.0f increased tolerance by %.0f%%", factors.TradeSize, (mult-1)*100))
		case factors.TradeSize > cfg.LargeTradeThreshold/2:
			mult = 1.2
		}
		adjusted *= mult
	}

	if cfg.ChainEnabled {
		if mult, ok := cfg.ChainMultipliers[factors.ChainID]; ok {
			adjusted *= mult
		}
	}

	clamped := adjusted
	if clamped < cfg.MinTolerance {
		clamped = cfg.MinTolerance
	}
	if clamped > cfg.MaxTolerance {
		clamped = cfg.MaxTolerance
		warnings = append(warnings, fmt.Sprintf("tolerance capped at maximum %.2f%%", cfg.MaxTolerance))
	}

	level := riskLevel(clamped, cfg)
	if level == model.RiskHigh || level == model.RiskCritical {
		warnings = append(warnings, fmt.Sprintf("adjusted tolerance %.2f%% is in %s territory", clamped, level))
	}

	return model.ToleranceResult{
		RecommendedTolerance: base,
		AdjustedTolerance:    clamped,
		RiskLevel:            level,
		Warnings:             warnings,
		IsWithinLimits:       adjusted >= cfg.MinTolerance && adjusted <= cfg.MaxTolerance,
	}
}

// Validate checks a tolerance value against the configured bounds.
func (m *Model) Validate(value float64) model.ToleranceValidation {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	var errs []string
	if value < cfg.MinTolerance {
		errs = append(errs, fmt.Sprintf("tolerance %g below minimum %g", value, cfg.MinTolerance))
	}
	if value > cfg.MaxTolerance {
		errs = append(errs, fmt.Sprintf("tolerance %g above maximum %g", value, cfg.MaxTolerance))
	}
	return model.ToleranceValidation{IsValid: len(errs) == 0, Errors: errs}
}

// UpdateConfig applies a partial update. The merged configuration is
// re-validated as a whole; an invalid update changes nothing.
func (m *Model) UpdateConfig(patch ConfigPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg.clone()
	applyFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	applyFloat(&next.DefaultTolerance, patch.DefaultTolerance)
	applyFloat(&next.MinTolerance, patch.MinTolerance)
	applyFloat(&next.MaxTolerance, patch.MaxTolerance)
	applyFloat(&next.WarningThreshold, patch.WarningThreshold)
	applyFloat(&next.CriticalThreshold, patch.CriticalThreshold)
	applyFloat(&next.HighVolatilityMultiplier, patch.HighVolatilityMultiplier)
	applyFloat(&next.LowLiquidityMultiplier, patch.LowLiquidityMultiplier)
	applyFloat(&next.PeakHoursMultiplier, patch.PeakHoursMultiplier)
	applyFloat(&next.OffPeakMultiplier, patch.OffPeakMultiplier)
	applyFloat(&next.LargeTradeThreshold, patch.LargeTradeThreshold)
	applyFloat(&next.LargeTradeMultiplier, patch.LargeTradeMultiplier)
	for chain, mult := range patch.ChainMultipliers {
		next.ChainMultipliers[chain] = mult
	}

	if err := next.validate(); err != nil {
		m.logger.Warn("tolerance config update rejected", zap.Error(err))
		return fmt.Errorf("config update rejected: %w", err)
	}

	m.cfg = next
	m.logger.Info("tolerance config updated",
		zap.Float64("min", next.MinTolerance),
		zap.Float64("default", next.DefaultTolerance),
		zap.Float64("max", next.MaxTolerance))
	return nil
}

// Peak trading hours in UTC: 9-11 and 14-16 inclusive.
func isPeakHour(hour int) bool {
	return (hour >= 9 && hour <= 11) || (hour >= 14 && hour <= 16)
}

func riskLevel(value float64, cfg Config) model.RiskLevel {
	switch {
	case value <= cfg.WarningThreshold:
		return model.RiskLow
	case value <= cfg.CriticalThreshold:
		return model.RiskMedium
	case value <= cfg.MaxTolerance:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}
