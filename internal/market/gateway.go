package market

import (
	"context"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Gateway supplies market signals for the risk pipeline. Implementations
// are best-effort data sources; callers that cannot tolerate failure wrap
// a Gateway with Resilient.
type Gateway interface {
	Volatility(ctx context.Context, token string) (float64, error)
	Liquidity(ctx context.Context, token string) (float64, error)
	Trend(ctx context.Context, token string) (model.MarketTrend, error)
	GasSignals(ctx context.Context, chainID uint64) (model.GasSignals, error)
}

// Fallback constants returned when a signal source fails.
const (
	FallbackVolatility  = 0.5
	FallbackLiquidity   = 0.5
	FallbackCongestion  = 0.5
	FallbackBaseFee     = 30.0 // gwei
	FallbackPriorityFee = 2.0  // gwei
)

// FallbackTrend is the trend returned when the source fails.
const FallbackTrend = model.TrendNeutral
