package tolerance

import "fmt"

// Config holds the tunables of the slippage tolerance model.
// All tolerance values are percentages.
type Config struct {
	DefaultTolerance  float64
	MinTolerance      float64
	MaxTolerance      float64
	WarningThreshold  float64
	CriticalThreshold float64

	HighVolatilityMultiplier float64
	LowLiquidityMultiplier   float64
	PeakHoursMultiplier      float64
	OffPeakMultiplier        float64
	LargeTradeThreshold      float64
	LargeTradeMultiplier     float64
	ChainMultipliers         map[uint64]float64

	VolatilityEnabled bool
	LiquidityEnabled  bool
	TimeOfDayEnabled  bool
	TradeSizeEnabled  bool
	ChainEnabled      bool
}

// DefaultConfig returns the model defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTolerance:  0.5,
		MinTolerance:      0.1,
		MaxTolerance:      5.0,
		WarningThreshold:  1.0,
		CriticalThreshold: 2.0,

		HighVolatilityMultiplier: 1.5,
		LowLiquidityMultiplier:   1.4,
		PeakHoursMultiplier:      1.3,
		OffPeakMultiplier:        1.0,
		LargeTradeThreshold:      10000,
		LargeTradeMultiplier:     1.5,
		ChainMultipliers: map[uint64]float64{
			1:     1.0,
			10:    1.1,
			56:    1.05,
			137:   1.05,
			8453:  1.05,
			42161: 1.1,
		},

		VolatilityEnabled: true,
		LiquidityEnabled:  true,
		TimeOfDayEnabled:  true,
		TradeSizeEnabled:  true,
		ChainEnabled:      true,
	}
}

// ConfigPatch is a partial configuration update. Nil fields keep their
// current value.
type ConfigPatch struct {
	DefaultTolerance  *float64
	MinTolerance      *float64
	MaxTolerance      *float64
	WarningThreshold  *float64
	CriticalThreshold *float64

	HighVolatilityMultiplier *float64
	LowLiquidityMultiplier   *float64
	PeakHoursMultiplier      *float64
	OffPeakMultiplier        *float64
	LargeTradeThreshold      *float64
	LargeTradeMultiplier     *float64
	ChainMultipliers         map[uint64]float64
}

func (c Config) validate() error {
	bounded := map[string]float64{
		"default_tolerance":          c.DefaultTolerance,
		"min_tolerance":              c.MinTolerance,
		"max_tolerance":              c.MaxTolerance,
		"warning_threshold":          c.WarningThreshold,
		"critical_threshold":         c.CriticalThreshold,
		"high_volatility_multiplier": c.HighVolatilityMultiplier,
		"low_liquidity_multiplier":   c.LowLiquidityMultiplier,
		"peak_hours_multiplier":      c.PeakHoursMultiplier,
		"off_peak_multiplier":        c.OffPeakMultiplier,
		"large_trade_multiplier":     c.LargeTradeMultiplier,
	}
	for name, value := range bounded {
		if value < 0 || value > 100 {
			return fmt.Errorf("%s %g outside [0, 100]", name, value)
		}
	}
	if c.MinTolerance > c.DefaultTolerance || c.DefaultTolerance > c.MaxTolerance {
		return fmt.Errorf("tolerance ordering violated: min %g <= default %g <= max %g required",
			c.MinTolerance, c.DefaultTolerance, c.MaxTolerance)
	}
	if c.WarningThreshold > c.CriticalThreshold {
		return fmt.Errorf("warning threshold %g exceeds critical threshold %g",
			c.WarningThreshold, c.CriticalThreshold)
	}
	return nil
}

func (c Config) clone() Config {
	out := c
	out.ChainMultipliers = make(map[uint64]float64, len(c.ChainMultipliers))
	for chain, mult := range c.ChainMultipliers {
		out.ChainMultipliers[chain] = mult
	}
	return out
}
