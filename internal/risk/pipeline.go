package risk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/market"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/tolerance"
)

// Pipeline turns a request and its quote into a risk report and an
// execution strategy. Sub-analyses are independent and run concurrently;
// only the final aggregation orders them.
type Pipeline struct {
	signals   market.Gateway
	tolerance *tolerance.Model
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline builds a Pipeline. The market gateway should already be
// wrapped for fallback behavior; the pipeline does not absorb its errors.
func NewPipeline(signalGateway market.Gateway, tolModel *tolerance.Model, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		signals:   signalGateway,
		tolerance: tolModel,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the wall-clock source for deterministic tests.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// Simulate derives a fresh RiskReport for the request against its quote.
func (p *Pipeline) Simulate(ctx context.Context, req model.SwapRequest, q model.Quote) (model.RiskReport, error) {
	if q.ToAmount <= 0 {
		return model.RiskReport{}, &model.ValidationError{Field: "quote", Reason: "quote is missing or has no output amount"}
	}
	if err := req.Validate(); err != nil {
		return model.RiskReport{}, err
	}

	s, err := p.fetchSignals(ctx, req)
	if err != nil {
		return model.RiskReport{}, fmt.Errorf("fetch market signals: %w", err)
	}

	baseTolerance := req.Slippage
	if baseTolerance <= 0 {
		baseTolerance = p.tolerance.Config().DefaultTolerance
	}
	observed := observedSlippage(s)

	var (
		slippage   model.SlippageAnalysis
		impact     model.PriceImpactAnalysis
		gas        model.GasAnalysis
		conditions model.MarketAnalysis
	)
	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		slippage = analyzeSlippage(req.Amount, observed, s)
		return nil
	})
	group.Go(func() error {
		impact = analyzePriceImpact(req.Amount, s)
		return nil
	})
	group.Go(func() error {
		gas = analyzeGas(q.EstimatedGas, s)
		return nil
	})
	group.Go(func() error {
		conditions = analyzeMarket(s)
		return nil
	})
	if err := group.Wait(); err != nil {
		return model.RiskReport{}, err
	}

	tol := p.tolerance.Compute(baseTolerance, model.SlippageFactors{
		Volatility:       s.volatility,
		Liquidity:        s.liquidity,
		TimeOfDay:        s.timeOfDay,
		TradeSize:        req.Amount,
		ChainID:          req.ChainID,
		MarketConditions: marketCondition(s.volatility),
	})

	assessment := assessRisk(slippage, impact, s)
	recommendations := buildRecommendations(req.Amount, tol, slippage, impact, gas, assessment, s)
	optimization := decideStrategy(assessment, recommendations.Split, conditions.VolatilityIndex)

	p.logger.Info("risk simulation complete",
		zap.Float64("score", assessment.Score),
		zap.String("level", string(assessment.Level)),
		zap.String("strategy", string(optimization.Strategy)),
		zap.Float64("confidence", optimization.Confidence))

	return model.RiskReport{
		Slippage:        slippage,
		PriceImpact:     impact,
		Gas:             gas,
		Market:          conditions,
		Recommendations: recommendations,
		Assessment:      assessment,
		Optimization:    optimization,
		GeneratedAt:     p.now().UTC(),
	}, nil
}

// fetchSignals gathers the market observations once, concurrently.
func (p *Pipeline) fetchSignals(ctx context.Context, req model.SwapRequest) (signals, error) {
	var s signals
	now := p.now().UTC()
	s.timeOfDay = (float64(now.Hour()) + float64(now.Minute())/60) / 24

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		s.volatility, err = p.signals.Volatility(groupCtx, req.FromToken)
		return err
	})
	group.Go(func() error {
		var err error
		s.liquidity, err = p.signals.Liquidity(groupCtx, req.FromToken)
		return err
	})
	group.Go(func() error {
		var err error
		s.trend, err = p.signals.Trend(groupCtx, req.FromToken)
		return err
	})
	group.Go(func() error {
		var err error
		s.gas, err = p.signals.GasSignals(groupCtx, req.ChainID)
		return err
	})
	if err := group.Wait(); err != nil {
		return signals{}, err
	}
	return s, nil
}

func marketCondition(volatility float64) model.MarketCondition {
	switch {
	case volatility > 0.8:
		return model.MarketExtreme
	case volatility > 0.5:
		return model.MarketVolatile
	default:
		return model.MarketStable
	}
}
