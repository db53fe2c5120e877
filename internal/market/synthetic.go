package market

import (
	"context"
	"hash/fnv"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Synthetic is a deterministic offline Gateway. Signals are derived from a
// hash of the token symbol so repeated runs see identical markets.
type Synthetic struct{}

// NewSynthetic returns an offline signal source.
func NewSynthetic() *Synthetic { return &Synthetic{} }

func (s *Synthetic) Volatility(_ context.Context, token string) (float64, error) {
	return unitInterval(token, "vol"), nil
}

func (s *Synthetic) Liquidity(_ context.Context, token string) (float64, error) {
	return unitInterval(token, "liq"), nil
}

func (s *Synthetic) Trend(_ context.Context, token string) (model.MarketTrend, error) {
	switch int(hash64(token, "trend") % 3) {
	case 0:
		return model.TrendBullish, nil
	case 1:
		return model.TrendBearish, nil
	default:
		return model.TrendNeutral, nil
	}
}

func (s *Synthetic) GasSignals(_ context.Context, chainID uint64) (model.GasSignals, error) {
	congestion := float64(chainID%100) / 100
	return model.GasSignals{
		BaseFee:     FallbackBaseFee,
		PriorityFee: FallbackPriorityFee,
		Congestion:  congestion,
	}, nil
}

func hash64(token, salt string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(salt))
	h.Write([]byte(token))
	return h.Sum64()
}

func unitInterval(token, salt string) float64 {
	return float64(hash64(token, salt)%1000) / 1000
}
