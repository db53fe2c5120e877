package market

import (
	"context"
	"errors"
	"testing"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

type failingGateway struct{}

func (failingGateway) Volatility(context.Context, string) (float64, error) {
	return 0, errors.New("provider down")
}

func (failingGateway) Liquidity(context.Context, string) (float64, error) {
	return 0, errors.New("provider down")
}

func (failingGateway) Trend(context.Context, string) (model.MarketTrend, error) {
	return "", errors.New("provider down")
}

func (failingGateway) GasSignals(context.Context, uint64) (model.GasSignals, error) {
	return model.GasSignals{}, errors.New("provider down")
}

func TestResilientFallbacks(t *testing.T) {
	gw := NewResilient(failingGateway{}, nil)
	ctx := context.Background()

	vol, err := gw.Volatility(ctx, "WETH")
	if err != nil || vol != FallbackVolatility {
		t.Fatalf("volatility fallback: got %g, %v", vol, err)
	}

	liq, err := gw.Liquidity(ctx, "WETH")
	if err != nil || liq != FallbackLiquidity {
		t.Fatalf("liquidity fallback: got %g, %v", liq, err)
	}

	trend, err := gw.Trend(ctx, "WETH")
	if err != nil || trend != FallbackTrend {
		t.Fatalf("trend fallback: got %s, %v", trend, err)
	}

	gas, err := gw.GasSignals(ctx, 1)
	if err != nil || gas.Congestion != FallbackCongestion || gas.BaseFee != FallbackBaseFee {
		t.Fatalf("gas fallback: got %+v, %v", gas, err)
	}
}

func TestSyntheticDeterministic(t *testing.T) {
	gw := NewSynthetic()
	ctx := context.Background()

	first, err := gw.Volatility(ctx, "WETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := gw.Volatility(ctx, "WETH")
	if first != second {
		t.Fatalf("synthetic volatility not stable: %g != %g", first, second)
	}
	if first < 0 || first > 1 {
		t.Fatalf("volatility %g outside [0, 1]", first)
	}
}
