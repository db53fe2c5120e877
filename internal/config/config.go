package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	AggregatorURL     string
	AggregatorKey     string
	AggregatorTimeout time.Duration

	MarketURL     string
	MarketTimeout time.Duration

	RelayURL string

	SlippageDefault  float64
	SlippageMin      float64
	SlippageMax      float64
	SlippageWarning  float64
	SlippageCritical float64

	HighVolatilityMultiplier float64
	LowLiquidityMultiplier   float64
	PeakHoursMultiplier      float64
	OffPeakMultiplier        float64
	LargeTradeThreshold      float64
	LargeTradeMultiplier     float64
	ChainMultipliers         map[uint64]float64

	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	BackoffMultiplier float64

	FallbackEnabled  bool
	FallbackGasPrice float64
	FallbackSlippage float64

	RefundRecipient string
	RefundPercent   int

	PostgresDSN string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CIPHERSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("aggregator-timeout", 10*time.Second)
	v.SetDefault("market-timeout", 5*time.Second)
	v.SetDefault("slippage-default", 0.5)
	v.SetDefault("slippage-min", 0.1)
	v.SetDefault("slippage-max", 5.0)
	v.SetDefault("slippage-warning", 1.0)
	v.SetDefault("slippage-critical", 2.0)
	v.SetDefault("high-volatility-multiplier", 1.5)
	v.SetDefault("low-liquidity-multiplier", 1.4)
	v.SetDefault("peak-hours-multiplier", 1.3)
	v.SetDefault("off-peak-multiplier", 1.0)
	v.SetDefault("large-trade-threshold", 10000.0)
	v.SetDefault("large-trade-multiplier", 1.5)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-base-delay", 2*time.Second)
	v.SetDefault("retry-max-delay", 30*time.Second)
	v.SetDefault("backoff-multiplier", 2.0)
	v.SetDefault("fallback-enabled", true)
	v.SetDefault("fallback-gas-price", 50.0)
	v.SetDefault("fallback-slippage", 1.0)
	v.SetDefault("refund-percent", 90)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		AggregatorURL:     v.GetString("aggregator-url"),
		AggregatorKey:     v.GetString("aggregator-key"),
		AggregatorTimeout: v.GetDuration("aggregator-timeout"),
		MarketURL:         v.GetString("market-url"),
		MarketTimeout:     v.GetDuration("market-timeout"),
		RelayURL:          v.GetString("relay-url"),
		SlippageDefault:   v.GetFloat64("slippage-default"),
		SlippageMin:       v.GetFloat64("slippage-min"),
		SlippageMax:       v.GetFloat64("slippage-max"),
		SlippageWarning:   v.GetFloat64("slippage-warning"),
		SlippageCritical:  v.GetFloat64("slippage-critical"),

		HighVolatilityMultiplier: v.GetFloat64("high-volatility-multiplier"),
		LowLiquidityMultiplier:   v.GetFloat64("low-liquidity-multiplier"),
		PeakHoursMultiplier:      v.GetFloat64("peak-hours-multiplier"),
		OffPeakMultiplier:        v.GetFloat64("off-peak-multiplier"),
		LargeTradeThreshold:      v.GetFloat64("large-trade-threshold"),
		LargeTradeMultiplier:     v.GetFloat64("large-trade-multiplier"),

		MaxRetries:        v.GetInt("max-retries"),
		RetryBaseDelay:    v.GetDuration("retry-base-delay"),
		RetryMaxDelay:     v.GetDuration("retry-max-delay"),
		BackoffMultiplier: v.GetFloat64("backoff-multiplier"),
		FallbackEnabled:   v.GetBool("fallback-enabled"),
		FallbackGasPrice:  v.GetFloat64("fallback-gas-price"),
		FallbackSlippage:  v.GetFloat64("fallback-slippage"),
		RefundRecipient:   v.GetString("refund-recipient"),
		RefundPercent:     v.GetInt("refund-percent"),
		PostgresDSN:       v.GetString("postgres-dsn"),
		LogLevel:          v.GetString("log-level"),
	}

	if v.IsSet("chain-multipliers") {
		cfg.ChainMultipliers = make(map[uint64]float64)
		for key, value := range v.GetStringMapString("chain-multipliers") {
			chainID, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				return Config{}, fmt.Errorf("parse chain-multipliers key %q: %w", key, err)
			}
			mult, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Config{}, fmt.Errorf("parse chain-multipliers value %q: %w", value, err)
			}
			cfg.ChainMultipliers[chainID] = mult
		}
	}

	if cfg.RefundPercent < 0 || cfg.RefundPercent > 100 {
		return Config{}, fmt.Errorf("refund-percent %d outside [0, 100]", cfg.RefundPercent)
	}

	return cfg, nil
}
