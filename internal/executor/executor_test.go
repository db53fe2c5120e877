package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/storage"
)

type fakeQuotes struct {
	q   model.Quote
	err error
}

func (f fakeQuotes) GetQuote(context.Context, model.SwapRequest) (model.Quote, error) {
	return f.q, f.err
}

type fakeSubmitter struct {
	calls   []model.SwapRequest
	outputs []model.SwapResult
	errs    []error
}

func (f *fakeSubmitter) SubmitSwap(_ context.Context, req model.SwapRequest, _ model.Quote) (model.SwapResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return model.SwapResult{}, f.errs[i]
	}
	if i < len(f.outputs) {
		return f.outputs[i], nil
	}
	return model.SwapResult{TxHash: "0xdead", ToAmount: req.Amount}, nil
}

type fakeSim struct {
	report model.RiskReport
	err    error
}

func (f fakeSim) Simulate(context.Context, model.SwapRequest, model.Quote) (model.RiskReport, error) {
	return f.report, f.err
}

func baseReport(strategy model.ExecutionStrategy) model.RiskReport {
	return model.RiskReport{
		Recommendations: model.ParameterRecommendations{
			Slippage: 0.8,
			GasPrice: 25,
			Deadline: 10 * time.Minute,
		},
		Assessment: model.RiskAssessment{Score: 0.1, Level: model.RiskLow},
		Optimization: model.ExecutionOptimization{
			Strategy:   strategy,
			Confidence: 0.9,
			Reasoning:  []string{"test"},
		},
	}
}

func request() model.SwapRequest {
	return model.SwapRequest{
		FromToken:   "WETH",
		ToToken:     "USDC",
		Amount:      600,
		ChainID:     1,
		UserAddress: "0x1111111111111111111111111111111111111111",
	}
}

func newTestOrchestrator(sim fakeSim, submitter *fakeSubmitter) (*Orchestrator, *storage.Memory) {
	store := storage.NewMemory()
	o := NewOrchestrator(fakeQuotes{q: model.Quote{ToAmount: 1500, EstimatedGas: 180000}}, submitter, sim, store, nil)
	return o, store
}

func TestExecuteImmediate(t *testing.T) {
	submitter := &fakeSubmitter{outputs: []model.SwapResult{{TxHash: "0x1", ToAmount: 1490}}}
	o, store := newTestOrchestrator(fakeSim{report: baseReport(model.StrategyImmediate)}, submitter)

	record, err := o.ExecuteWithOptimization(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != model.SwapConfirmed || record.ToAmount != 1490 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(submitter.calls) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(submitter.calls))
	}
	if submitter.calls[0].Slippage != 0.8 {
		t.Fatalf("recommended slippage not applied: %g", submitter.calls[0].Slippage)
	}

	stored, ok, _ := store.GetSwap(context.Background(), record.SwapID)
	if !ok || stored.Status != model.SwapConfirmed {
		t.Fatalf("record not in history: ok=%v %+v", ok, stored)
	}
}

func TestExecuteSplit(t *testing.T) {
	report := baseReport(model.StrategySplit)
	report.Recommendations.Split = &model.SplitRecommendation{
		SplitCount:    3,
		TrancheAmount: 200,
		Delay:         time.Millisecond,
	}
	submitter := &fakeSubmitter{outputs: []model.SwapResult{
		{TxHash: "0x1", ToAmount: 500},
		{TxHash: "0x2", ToAmount: 495},
		{TxHash: "0x3", ToAmount: 505},
	}}
	o, _ := newTestOrchestrator(fakeSim{report: report}, submitter)

	record, err := o.ExecuteWithOptimization(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(submitter.calls) != 3 {
		t.Fatalf("expected 3 tranche submissions, got %d", len(submitter.calls))
	}
	for i, call := range submitter.calls {
		if call.Amount != 200 {
			t.Fatalf("tranche %d amount %g, want 200", i, call.Amount)
		}
	}
	if record.ToAmount != 1500 {
		t.Fatalf("combined output %g, want 1500", record.ToAmount)
	}
	if record.TrancheCount != 3 {
		t.Fatalf("tranche count %d, want 3", record.TrancheCount)
	}
}

func TestExecuteSplitPartialFailure(t *testing.T) {
	report := baseReport(model.StrategySplit)
	report.Recommendations.Split = &model.SplitRecommendation{SplitCount: 3, TrancheAmount: 200}
	submitter := &fakeSubmitter{
		outputs: []model.SwapResult{{ToAmount: 500}, {}, {ToAmount: 505}},
		errs:    []error{nil, errors.New("route stale"), nil},
	}
	o, _ := newTestOrchestrator(fakeSim{report: report}, submitter)

	record, err := o.ExecuteWithOptimization(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ToAmount != 1005 {
		t.Fatalf("combined output %g, want 1005", record.ToAmount)
	}
}

func TestExecuteSplitAllFail(t *testing.T) {
	report := baseReport(model.StrategySplit)
	report.Recommendations.Split = &model.SplitRecommendation{SplitCount: 2, TrancheAmount: 300}
	submitter := &fakeSubmitter{errs: []error{errors.New("down"), errors.New("down")}}
	o, _ := newTestOrchestrator(fakeSim{report: report}, submitter)

	if _, err := o.ExecuteWithOptimization(context.Background(), request()); err == nil {
		t.Fatalf("expected error when every tranche fails")
	}
}

func TestExecuteCancelReturnsRiskRejection(t *testing.T) {
	report := baseReport(model.StrategyCancel)
	report.Assessment = model.RiskAssessment{
		Score: 0.9,
		Level: model.RiskCritical,
		Factors: []model.RiskFactor{{
			Name:        "price_impact",
			Impact:      1.0,
			Probability: 0.85,
			Severity:    1.0,
			Mitigation:  "split the trade into smaller sequential tranches",
		}},
	}
	submitter := &fakeSubmitter{}
	o, _ := newTestOrchestrator(fakeSim{report: report}, submitter)

	_, err := o.ExecuteWithOptimization(context.Background(), request())
	var rejection *model.RiskRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("expected RiskRejection, got %v", err)
	}
	if rejection.Factor != "price_impact" || rejection.Mitigation == "" {
		t.Fatalf("rejection lacks factor detail: %+v", rejection)
	}
	if len(submitter.calls) != 0 {
		t.Fatalf("cancel must not submit, got %d calls", len(submitter.calls))
	}
}

func TestExecuteWaitReturnsDeferred(t *testing.T) {
	submitter := &fakeSubmitter{}
	o, _ := newTestOrchestrator(fakeSim{report: baseReport(model.StrategyWait)}, submitter)

	_, err := o.ExecuteWithOptimization(context.Background(), request())
	var deferred *model.DeferredError
	if !errors.As(err, &deferred) {
		t.Fatalf("expected DeferredError, got %v", err)
	}
	if len(submitter.calls) != 0 {
		t.Fatalf("wait must not submit, got %d calls", len(submitter.calls))
	}
}

func TestExecuteFailsClosedOnQuoteError(t *testing.T) {
	submitter := &fakeSubmitter{}
	store := storage.NewMemory()
	o := NewOrchestrator(
		fakeQuotes{err: &model.GatewayError{Gateway: "aggregator", Kind: model.GatewayServer, Message: "boom"}},
		submitter,
		fakeSim{report: baseReport(model.StrategyImmediate)},
		store,
		nil,
	)

	_, err := o.ExecuteWithOptimization(context.Background(), request())
	var gwErr *model.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if len(submitter.calls) != 0 {
		t.Fatalf("quote failure must abort before submission")
	}
}

func TestGetSwapLazyExpiry(t *testing.T) {
	submitter := &fakeSubmitter{}
	o, store := newTestOrchestrator(fakeSim{}, submitter)

	past := time.Now().UTC().Add(-time.Hour)
	record := model.SwapRecord{
		SwapID:   "swap_x",
		Status:   model.SwapPending,
		Request:  request(),
		Deadline: &past,
	}
	if err := store.PutSwap(context.Background(), record); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	got, ok, err := o.GetSwap(context.Background(), "swap_x")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got.Status != model.SwapExpired {
		t.Fatalf("expected lazy expiry, got %s", got.Status)
	}

	stored, _, _ := store.GetSwap(context.Background(), "swap_x")
	if stored.Status != model.SwapExpired {
		t.Fatalf("expiry not persisted: %s", stored.Status)
	}
}
