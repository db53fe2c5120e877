package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/quote"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/storage"
)

// Simulator produces a risk report for a request and its quote.
type Simulator interface {
	Simulate(ctx context.Context, req model.SwapRequest, q model.Quote) (model.RiskReport, error)
}

// Orchestrator runs the risk pipeline and carries out its strategy
// decision. Every terminal record it produces lands in the swap store.
type Orchestrator struct {
	quotes    quote.Gateway
	submitter quote.Submitter
	sim       Simulator
	store     storage.SwapStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrchestrator builds an Orchestrator with its collaborators.
func NewOrchestrator(quotes quote.Gateway, submitter quote.Submitter, sim Simulator, store storage.SwapStore, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		quotes:    quotes,
		submitter: submitter,
		sim:       sim,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the wall-clock source for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// ExecuteWithOptimization analyzes the swap, applies the recommended
// parameters, and dispatches on the decided strategy. Quote failures
// abort: the engine never trades against a synthetic price.
func (o *Orchestrator) ExecuteWithOptimization(ctx context.Context, req model.SwapRequest) (model.SwapRecord, error) {
	if err := req.Validate(); err != nil {
		return model.SwapRecord{}, err
	}

	q, err := o.quotes.GetQuote(ctx, req)
	if err != nil {
		return model.SwapRecord{}, fmt.Errorf("get quote: %w", err)
	}

	report, err := o.sim.Simulate(ctx, req, q)
	if err != nil {
		return model.SwapRecord{}, fmt.Errorf("simulate swap: %w", err)
	}

	tuned := req
	tuned.Slippage = report.Recommendations.Slippage
	if tuned.GasPrice == 0 {
		tuned.GasPrice = report.Recommendations.GasPrice
	}
	if tuned.Deadline == nil {
		deadline := o.now().UTC().Add(report.Recommendations.Deadline)
		tuned.Deadline = &deadline
	}

	o.logger.Info("executing swap",
		zap.String("strategy", string(report.Optimization.Strategy)),
		zap.Float64("slippage", tuned.Slippage),
		zap.Float64("amount", tuned.Amount))

	switch report.Optimization.Strategy {
	case model.StrategyCancel:
		return model.SwapRecord{}, riskRejection(report.Assessment)
	case model.StrategyWait:
		reason := "market conditions unfavorable"
		if len(report.Optimization.Reasoning) > 0 {
			reason = report.Optimization.Reasoning[0]
		}
		return model.SwapRecord{}, &model.DeferredError{Reason: reason}
	case model.StrategySplit:
		return o.executeSplit(ctx, tuned, q, report.Recommendations.Split)
	default:
		return o.executeSingle(ctx, tuned, q)
	}
}

func (o *Orchestrator) executeSingle(ctx context.Context, req model.SwapRequest, q model.Quote) (model.SwapRecord, error) {
	record := o.newRecord(req, q)

	result, err := o.submitter.SubmitSwap(ctx, req, q)
	if err != nil {
		record.Status = model.SwapFailed
		record.UpdatedAt = o.now().UTC()
		o.persist(ctx, record)
		return model.SwapRecord{}, fmt.Errorf("submit swap: %w", err)
	}

	record.Status = model.SwapConfirmed
	record.TxHash = result.TxHash
	record.ToAmount = result.ToAmount
	record.UpdatedAt = o.now().UTC()
	o.persist(ctx, record)
	return record, nil
}

// executeSplit submits tranches strictly sequentially with the recommended
// delay between them. Concurrent tranches would expose the trade's shape.
func (o *Orchestrator) executeSplit(ctx context.Context, req model.SwapRequest, q model.Quote, split *model.SplitRecommendation) (model.SwapRecord, error) {
	if split == nil || split.SplitCount < 1 {
		return o.executeSingle(ctx, req, q)
	}

	var (
		total     float64
		succeeded int
		lastHash  string
		lastErr   error
	)

	for i := 0; i < split.SplitCount; i++ {
		if i > 0 && split.Delay > 0 {
			if err := sleep(ctx, split.Delay); err != nil {
				return model.SwapRecord{}, err
			}
		}

		tranche := req
		tranche.Amount = split.TrancheAmount

		result, err := o.submitter.SubmitSwap(ctx, tranche, q)
		if err != nil {
			lastErr = err
			o.logger.Warn("tranche submission failed",
				zap.Int("tranche", i+1), zap.Int("of", split.SplitCount), zap.Error(err))
			continue
		}

		succeeded++
		total += result.ToAmount
		lastHash = result.TxHash
		o.logger.Info("tranche submitted",
			zap.Int("tranche", i+1), zap.Int("of", split.SplitCount), zap.String("tx_hash", result.TxHash))
	}

	if succeeded == 0 {
		return model.SwapRecord{}, fmt.Errorf("all %d tranches failed: %w", split.SplitCount, lastErr)
	}

	record := o.newRecord(req, q)
	record.Status = model.SwapConfirmed
	record.TxHash = lastHash
	record.ToAmount = total
	record.TrancheCount = split.SplitCount
	record.UpdatedAt = o.now().UTC()
	o.persist(ctx, record)
	return record, nil
}

// SubmitFallback places a public swap after bundle submission exhausted
// its retries, tagging the record with the triggering error.
func (o *Orchestrator) SubmitFallback(ctx context.Context, req model.SwapRequest, gasPrice, slippage float64, trigger error) (model.SwapRecord, error) {
	if err := req.Validate(); err != nil {
		return model.SwapRecord{}, err
	}
	req.GasPrice = gasPrice
	req.Slippage = slippage

	q, err := o.quotes.GetQuote(ctx, req)
	if err != nil {
		return model.SwapRecord{}, fmt.Errorf("get fallback quote: %w", err)
	}

	record := o.newRecord(req, q)
	record.FallbackUsed = true
	if trigger != nil {
		record.FallbackError = trigger.Error()
	}

	result, err := o.submitter.SubmitSwap(ctx, req, q)
	if err != nil {
		record.Status = model.SwapFailed
		record.UpdatedAt = o.now().UTC()
		o.persist(ctx, record)
		return model.SwapRecord{}, fmt.Errorf("submit fallback swap: %w", err)
	}

	record.Status = model.SwapConfirmed
	record.TxHash = result.TxHash
	record.ToAmount = result.ToAmount
	record.UpdatedAt = o.now().UTC()
	o.persist(ctx, record)
	return record, nil
}

// GetSwap reads a record, lazily expiring a pending swap whose deadline
// has passed.
func (o *Orchestrator) GetSwap(ctx context.Context, id string) (model.SwapRecord, bool, error) {
	record, ok, err := o.store.GetSwap(ctx, id)
	if err != nil || !ok {
		return record, ok, err
	}

	if record.Status == model.SwapPending && record.Deadline != nil && o.now().UTC().After(*record.Deadline) {
		record.Status = model.SwapExpired
		record.UpdatedAt = o.now().UTC()
		o.persist(ctx, record)
	}
	return record, true, nil
}

// ListSwaps returns the swap history for an address.
func (o *Orchestrator) ListSwaps(ctx context.Context, address string) ([]model.SwapRecord, error) {
	return o.store.ListSwapsByAddress(ctx, address)
}

func (o *Orchestrator) newRecord(req model.SwapRequest, q model.Quote) model.SwapRecord {
	now := o.now().UTC()
	return model.SwapRecord{
		SwapID:    model.NewID("swap"),
		Status:    model.SwapPending,
		Request:   req,
		Quote:     q,
		CreatedAt: now,
		UpdatedAt: now,
		Deadline:  req.Deadline,
	}
}

func (o *Orchestrator) persist(ctx context.Context, record model.SwapRecord) {
	if err := o.store.PutSwap(ctx, record); err != nil {
		o.logger.Warn("swap history write failed", zap.String("swap_id", record.SwapID), zap.Error(err))
	}
}

func riskRejection(assessment model.RiskAssessment) error {
	rejection := &model.RiskRejection{Factor: "aggregate risk", Mitigation: "reduce trade size or wait for calmer markets", Score: assessment.Score}
	top := 0.0
	for _, f := range assessment.Factors {
		weight := f.Impact * f.Probability * f.Severity
		if weight > top {
			top = weight
			rejection.Factor = f.Name
			rejection.Mitigation = f.Mitigation
		}
	}
	return rejection
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
