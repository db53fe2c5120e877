package bundle

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/storage"
)

type fakeRelay struct {
	height      uint64
	heightErr   error
	simErr      error
	submitHash  string
	submitCalls int
	failFirst   int
}

func (f *fakeRelay) SimulateBundle(_ context.Context, txs []string, _ uint64) (model.BundleSimulation, error) {
	if f.simErr != nil {
		return model.BundleSimulation{}, f.simErr
	}
	return model.BundleSimulation{GasUsed: uint64(len(txs)) * 100000, Profit: 0.01}, nil
}

func (f *fakeRelay) SubmitBundle(context.Context, []string, uint64, *model.RefundConfig) (string, error) {
	f.submitCalls++
	if f.submitCalls <= f.failFirst {
		return "", errors.New("relay rejected bundle")
	}
	return f.submitHash, nil
}

func (f *fakeRelay) BlockNumber(context.Context) (uint64, error) {
	if f.heightErr != nil {
		return 0, f.heightErr
	}
	return f.height, nil
}

type fakeFallback struct {
	called  bool
	trigger error
	err     error
}

func (f *fakeFallback) SubmitFallback(_ context.Context, req model.SwapRequest, _, _ float64, trigger error) (model.SwapRecord, error) {
	f.called = true
	f.trigger = trigger
	if f.err != nil {
		return model.SwapRecord{}, f.err
	}
	return model.SwapRecord{SwapID: "swap_fb", Status: model.SwapConfirmed, Request: req, FallbackUsed: true}, nil
}

func signedTxHex(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := types.NewTransaction(0, common.HexToAddress("0x2222222222222222222222222222222222222222"),
		big.NewInt(1), 21000, big.NewInt(1_000_000_000), nil)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(1)), key)
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		t.Fatalf("encode tx: %v", err)
	}
	return hexutil.Encode(raw)
}

func testConfig() Config {
	return Config{
		MaxRetries:        3,
		BaseDelay:         time.Millisecond,
		MaxDelay:          4 * time.Millisecond,
		BackoffMultiplier: 2,
		RefundRecipient:   "0x3333333333333333333333333333333333333333",
		RefundPercent:     90,
	}
}

func TestValidateTransactions(t *testing.T) {
	if err := ValidateTransactions(nil); err == nil {
		t.Fatalf("empty list must fail")
	}

	tooMany := make([]string, MaxBundleSize+1)
	valid := signedTxHex(t)
	for i := range tooMany {
		tooMany[i] = valid
	}
	if err := ValidateTransactions(tooMany); err == nil {
		t.Fatalf("oversized list must fail")
	}

	if err := ValidateTransactions([]string{"not-hex"}); err == nil {
		t.Fatalf("malformed hex must fail")
	}
	if err := ValidateTransactions([]string{"0xdeadbeef"}); err == nil {
		t.Fatalf("non-transaction bytes must fail")
	}

	if err := ValidateTransactions([]string{valid}); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}
}

func TestBackoffSchedule(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 300*time.Millisecond, 2)

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, expected := range want {
		if got := b.delay(i + 1); got != expected {
			t.Fatalf("delay(%d) = %s, want %s", i+1, got, expected)
		}
	}
}

func TestCreateBundleFirstTry(t *testing.T) {
	relayGW := &fakeRelay{height: 100, submitHash: "0xbundle"}
	store := storage.NewMemory()
	o := NewOrchestrator(relayGW, store, nil, testConfig(), nil)

	record, err := o.CreateBundleWithRetry(context.Background(), []string{signedTxHex(t)}, "0xaaaa", SubmitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != model.BundleSubmitted {
		t.Fatalf("status %s, want SUBMITTED", record.Status)
	}
	if record.BundleHash != "0xbundle" || record.TargetBlock != 101 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.SubmissionAttempts != 1 {
		t.Fatalf("attempts %d, want 1", record.SubmissionAttempts)
	}
	if record.Refund == nil || record.Refund.Percent != 90 {
		t.Fatalf("refund config not applied: %+v", record.Refund)
	}

	stored, ok, _ := store.GetBundle(context.Background(), record.BundleID)
	if !ok || stored.Status != model.BundleSubmitted {
		t.Fatalf("record not persisted: ok=%v %+v", ok, stored)
	}
}

func TestCreateBundleRetryBudget(t *testing.T) {
	relayGW := &fakeRelay{height: 100, submitHash: "0xbundle", failFirst: 100}
	store := storage.NewMemory()
	o := NewOrchestrator(relayGW, store, nil, testConfig(), nil)

	_, err := o.CreateBundleWithRetry(context.Background(), []string{signedTxHex(t)}, "0xaaaa", SubmitOptions{})
	var exhausted *model.RetryExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhausted, got %v", err)
	}
	if relayGW.submitCalls != 4 {
		t.Fatalf("submit calls %d, want maxRetries+1 = 4", relayGW.submitCalls)
	}
	if exhausted.Attempts != 4 {
		t.Fatalf("reported attempts %d, want 4", exhausted.Attempts)
	}
}

func TestCreateBundleRecoversWithinBudget(t *testing.T) {
	relayGW := &fakeRelay{height: 100, submitHash: "0xbundle", failFirst: 2}
	o := NewOrchestrator(relayGW, storage.NewMemory(), nil, testConfig(), nil)

	record, err := o.CreateBundleWithRetry(context.Background(), []string{signedTxHex(t)}, "0xaaaa", SubmitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.SubmissionAttempts != 3 {
		t.Fatalf("attempts %d, want 3", record.SubmissionAttempts)
	}
}

func TestCreateBundleSimulationFailureAborts(t *testing.T) {
	relayGW := &fakeRelay{height: 100, simErr: errors.New("bundle reverts")}
	o := NewOrchestrator(relayGW, storage.NewMemory(), nil, testConfig(), nil)

	_, err := o.CreateBundleWithRetry(context.Background(), []string{signedTxHex(t)}, "0xaaaa", SubmitOptions{})
	if err == nil {
		t.Fatalf("expected simulation failure to abort")
	}
	if relayGW.submitCalls != 0 {
		t.Fatalf("simulation failure must not submit, got %d calls", relayGW.submitCalls)
	}
}

func TestCreateBundleMalformedListConsumesNoRetry(t *testing.T) {
	relayGW := &fakeRelay{height: 100}
	o := NewOrchestrator(relayGW, storage.NewMemory(), nil, testConfig(), nil)

	_, err := o.CreateBundleWithRetry(context.Background(), []string{"0x00"}, "0xaaaa", SubmitOptions{})
	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if relayGW.submitCalls != 0 {
		t.Fatalf("validation failure must not submit")
	}
}

func TestCreateBundleFallback(t *testing.T) {
	relayGW := &fakeRelay{height: 100, failFirst: 100}
	store := storage.NewMemory()
	fb := &fakeFallback{}
	cfg := testConfig()
	cfg.FallbackEnabled = true
	cfg.FallbackGasPrice = 40
	cfg.FallbackSlippage = 1.0
	o := NewOrchestrator(relayGW, store, fb, cfg, nil)

	req := model.SwapRequest{
		FromToken:   "WETH",
		ToToken:     "USDC",
		Amount:      1,
		ChainID:     1,
		UserAddress: "0xaaaa",
	}
	record, err := o.CreateBundleWithRetry(context.Background(), []string{signedTxHex(t)}, "0xaaaa",
		SubmitOptions{FallbackRequest: &req})
	if err != nil {
		t.Fatalf("fallback path should succeed: %v", err)
	}
	if !fb.called {
		t.Fatalf("fallback submitter not invoked")
	}
	if fb.trigger == nil {
		t.Fatalf("triggering error not passed to fallback")
	}
	if record.Status != model.BundleFailed {
		t.Fatalf("bundle status %s, want FAILED", record.Status)
	}
	if record.FallbackSwapID != "swap_fb" {
		t.Fatalf("fallback swap not linked: %+v", record)
	}
}

func TestRetryBundleChain(t *testing.T) {
	relayGW := &fakeRelay{height: 100, submitHash: "0xretry"}
	store := storage.NewMemory()
	o := NewOrchestrator(relayGW, store, nil, testConfig(), nil)

	original := model.BundleRecord{
		BundleID:           "bundle_orig",
		UserAddress:        "0xaaaa",
		TargetBlock:        100,
		Status:             model.BundleFailed,
		Transactions:       []string{signedTxHex(t)},
		SubmissionAttempts: 4,
		LastError:          "relay rejected bundle",
		CreatedAt:          time.Now().UTC().Add(-time.Minute),
		UpdatedAt:          time.Now().UTC().Add(-time.Minute),
	}
	if err := store.PutBundle(context.Background(), original); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	retry, err := o.RetryBundle(context.Background(), "bundle_orig", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry.BundleID == original.BundleID {
		t.Fatalf("retry must have a fresh id")
	}
	if retry.TargetBlock != 101 {
		t.Fatalf("target block %d, want original+1 = 101", retry.TargetBlock)
	}
	if retry.Retry == nil || retry.Retry.OriginalBundleID != "bundle_orig" || retry.Retry.AttemptNumber != 1 {
		t.Fatalf("retry link wrong: %+v", retry.Retry)
	}
	if retry.Retry.LastError != "relay rejected bundle" {
		t.Fatalf("retry link missing last error: %+v", retry.Retry)
	}

	// The original terminal record must be untouched.
	stored, _, _ := store.GetBundle(context.Background(), "bundle_orig")
	if !reflect.DeepEqual(stored, original) {
		t.Fatalf("original record mutated:\n%+v\n%+v", stored, original)
	}
}

func TestRetryBundleEligibility(t *testing.T) {
	relayGW := &fakeRelay{height: 100, submitHash: "0xretry"}
	store := storage.NewMemory()
	o := NewOrchestrator(relayGW, store, nil, testConfig(), nil)
	ctx := context.Background()
	tx := signedTxHex(t)

	confirmed := model.BundleRecord{
		BundleID: "bundle_ok", Status: model.BundleConfirmed,
		Transactions: []string{tx}, CreatedAt: time.Now().UTC(),
	}
	store.PutBundle(ctx, confirmed)
	if _, err := o.RetryBundle(ctx, "bundle_ok", 0); err == nil {
		t.Fatalf("confirmed bundle must not be retryable")
	}

	stale := model.BundleRecord{
		BundleID: "bundle_stale", Status: model.BundleFailed,
		Transactions: []string{tx}, CreatedAt: time.Now().UTC().Add(-31 * time.Minute),
	}
	store.PutBundle(ctx, stale)
	var timeout *model.TimeoutExpired
	if _, err := o.RetryBundle(ctx, "bundle_stale", 0); !errors.As(err, &timeout) {
		t.Fatalf("stale bundle: expected TimeoutExpired, got %v", err)
	}

	spent := model.BundleRecord{
		BundleID: "bundle_spent", Status: model.BundleFailed,
		Transactions: []string{tx}, CreatedAt: time.Now().UTC(),
		Retry: &model.RetryLink{OriginalBundleID: "bundle_0", AttemptNumber: 3, MaxRetries: 3},
	}
	store.PutBundle(ctx, spent)
	var exhausted *model.RetryExhausted
	if _, err := o.RetryBundle(ctx, "bundle_spent", 0); !errors.As(err, &exhausted) {
		t.Fatalf("spent budget: expected RetryExhausted, got %v", err)
	}
}

func TestGetBundleStatusLazyExpiry(t *testing.T) {
	relayGW := &fakeRelay{height: 105}
	store := storage.NewMemory()
	o := NewOrchestrator(relayGW, store, nil, testConfig(), nil)
	ctx := context.Background()

	submitted := model.BundleRecord{
		BundleID: "bundle_sub", Status: model.BundleSubmitted,
		TargetBlock: 100, CreatedAt: time.Now().UTC(),
	}
	store.PutBundle(ctx, submitted)

	record, ok, err := o.GetBundleStatus(ctx, "bundle_sub")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if record.Status != model.BundleExpired {
		t.Fatalf("status %s, want EXPIRED", record.Status)
	}
	stored, _, _ := store.GetBundle(ctx, "bundle_sub")
	if stored.Status != model.BundleExpired {
		t.Fatalf("expiry not persisted: %s", stored.Status)
	}
}

func TestGetBundleStatusHeightFailureLeavesStatus(t *testing.T) {
	relayGW := &fakeRelay{heightErr: errors.New("rpc down")}
	store := storage.NewMemory()
	o := NewOrchestrator(relayGW, store, nil, testConfig(), nil)
	ctx := context.Background()

	submitted := model.BundleRecord{
		BundleID: "bundle_sub", Status: model.BundleSubmitted,
		TargetBlock: 100, CreatedAt: time.Now().UTC(),
	}
	store.PutBundle(ctx, submitted)

	record, ok, err := o.GetBundleStatus(ctx, "bundle_sub")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if record.Status != model.BundleSubmitted {
		t.Fatalf("status %s, want SUBMITTED unchanged", record.Status)
	}
}

func TestDegradedSimulationWithoutRelay(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackEnabled = true
	fb := &fakeFallback{}
	o := NewOrchestrator(nil, storage.NewMemory(), fb, cfg, nil)

	req := model.SwapRequest{
		FromToken: "WETH", ToToken: "USDC", Amount: 1, ChainID: 1, UserAddress: "0xaaaa",
	}
	record, err := o.CreateBundleWithRetry(context.Background(), []string{signedTxHex(t)}, "0xaaaa",
		SubmitOptions{TargetBlock: 200, FallbackRequest: &req})
	if err != nil {
		t.Fatalf("degraded path should fall back: %v", err)
	}
	if record.Simulation == nil || !record.Simulation.Degraded {
		t.Fatalf("expected degraded simulation: %+v", record.Simulation)
	}
	if !fb.called {
		t.Fatalf("fallback not used without relay session")
	}
}
