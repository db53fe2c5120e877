package market

import (
	"context"

	"go.uber.org/zap"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Resilient wraps a Gateway and absorbs failures into the documented
// fallback constants so the risk pipeline degrades instead of aborting.
type Resilient struct {
	inner  Gateway
	logger *zap.Logger
}

// NewResilient wraps inner with fallback behavior.
func NewResilient(inner Gateway, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resilient{inner: inner, logger: logger}
}

func (r *Resilient) Volatility(ctx context.Context, token string) (float64, error) {
	v, err := r.inner.Volatility(ctx, token)
	if err != nil {
		r.logger.Warn("volatility fetch failed, using fallback",
			zap.String("token", token), zap.Float64("fallback", FallbackVolatility), zap.Error(err))
		return FallbackVolatility, nil
	}
	return v, nil
}

func (r *Resilient) Liquidity(ctx context.Context, token string) (float64, error) {
	v, err := r.inner.Liquidity(ctx, token)
	if err != nil {
		r.logger.Warn("liquidity fetch failed, using fallback",
			zap.String("token", token), zap.Float64("fallback", FallbackLiquidity), zap.Error(err))
		return FallbackLiquidity, nil
	}
	return v, nil
}

func (r *Resilient) Trend(ctx context.Context, token string) (model.MarketTrend, error) {
	v, err := r.inner.Trend(ctx, token)
	if err != nil {
		r.logger.Warn("trend fetch failed, using fallback",
			zap.String("token", token), zap.String("fallback", string(FallbackTrend)), zap.Error(err))
		return FallbackTrend, nil
	}
	return v, nil
}

func (r *Resilient) GasSignals(ctx context.Context, chainID uint64) (model.GasSignals, error) {
	v, err := r.inner.GasSignals(ctx, chainID)
	if err != nil {
		r.logger.Warn("gas signals fetch failed, using fallback",
			zap.Uint64("chain_id", chainID), zap.Error(err))
		return model.GasSignals{
			BaseFee:     FallbackBaseFee,
			PriorityFee: FallbackPriorityFee,
			Congestion:  FallbackCongestion,
		}, nil
	}
	return v, nil
}
