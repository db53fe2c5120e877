package bundle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/relay"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/storage"
)

// StalenessWindow bounds how old a terminal bundle may be and still spawn
// a retry.
const StalenessWindow = 30 * time.Minute

// degradedGasPerTx is the per-transaction gas estimate used when no relay
// session is available to simulate against.
const degradedGasPerTx = 210_000

// FallbackSubmitter places a public swap when the relay path is exhausted.
type FallbackSubmitter interface {
	SubmitFallback(ctx context.Context, req model.SwapRequest, gasPrice, slippage float64, trigger error) (model.SwapRecord, error)
}

// Config holds the retry and fallback tunables for bundle submission.
type Config struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	FallbackEnabled   bool
	FallbackGasPrice  float64
	FallbackSlippage  float64
	RefundRecipient   string
	RefundPercent     int
}

// SubmitOptions tune a single bundle submission.
type SubmitOptions struct {
	// TargetBlock overrides the default target of current height + 1.
	TargetBlock uint64
	// Refund overrides the configured refund routing.
	Refund *model.RefundConfig
	// FallbackRequest, when set, enables public fallback submission for
	// the originating swap after relay retries are exhausted.
	FallbackRequest *model.SwapRequest
}

// Orchestrator drives the relay bundle lifecycle: build, simulate, submit,
// retry with backoff, and fall back to the public path.
type Orchestrator struct {
	relay    relay.Gateway
	store    storage.BundleStore
	fallback FallbackSubmitter
	cfg      Config
	backoff  backoff
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrchestrator builds an Orchestrator. relayGateway may be nil, in which
// case simulation degrades to fixed estimates and submission always falls
// back.
func NewOrchestrator(relayGateway relay.Gateway, store storage.BundleStore, fallback FallbackSubmitter, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		relay:    relayGateway,
		store:    store,
		fallback: fallback,
		cfg:      cfg,
		backoff:  newBackoff(cfg.BaseDelay, cfg.MaxDelay, cfg.BackoffMultiplier),
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the wall-clock source for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// CreateBundleWithRetry validates, simulates, and submits a bundle,
// retrying with backoff and falling back to the public path if enabled.
// Validation and simulation failures abort without consuming a retry.
func (o *Orchestrator) CreateBundleWithRetry(ctx context.Context, rawTxs []string, userAddress string, opts SubmitOptions) (model.BundleRecord, error) {
	if err := ValidateTransactions(rawTxs); err != nil {
		return model.BundleRecord{}, err
	}

	targetBlock := opts.TargetBlock
	if targetBlock == 0 {
		if o.relay == nil {
			return model.BundleRecord{}, &model.ValidationError{Field: "target_block", Reason: "target block is required without a relay session"}
		}
		height, err := o.relay.BlockNumber(ctx)
		if err != nil {
			return model.BundleRecord{}, fmt.Errorf("read chain height: %w", err)
		}
		targetBlock = height + 1
	}

	sim, err := o.simulate(ctx, rawTxs, targetBlock)
	if err != nil {
		// A failed simulation is a hard stop, never retried.
		return model.BundleRecord{}, fmt.Errorf("simulate bundle: %w", err)
	}

	record := o.newRecord(rawTxs, userAddress, targetBlock, opts, sim)
	return o.submitWithRetry(ctx, record, opts)
}

// RetryBundle spawns a fresh submission for a terminal bundle, linked to
// the original. The original record is never modified.
func (o *Orchestrator) RetryBundle(ctx context.Context, bundleID string, targetBlock uint64) (model.BundleRecord, error) {
	original, ok, err := o.store.GetBundle(ctx, bundleID)
	if err != nil {
		return model.BundleRecord{}, fmt.Errorf("load bundle: %w", err)
	}
	if !ok {
		return model.BundleRecord{}, &model.ValidationError{Field: "bundle_id", Reason: fmt.Sprintf("unknown bundle %s", bundleID)}
	}

	if !original.Status.Retryable() {
		return model.BundleRecord{}, &model.ValidationError{
			Field:  "bundle_id",
			Reason: fmt.Sprintf("bundle in status %s is not retryable", original.Status),
		}
	}

	attemptNumber := 1
	if original.Retry != nil {
		attemptNumber = original.Retry.AttemptNumber + 1
	}
	if attemptNumber > o.cfg.MaxRetries {
		return model.BundleRecord{}, &model.RetryExhausted{
			Attempts: attemptNumber,
			LastErr:  fmt.Errorf("retry budget of %d exhausted", o.cfg.MaxRetries),
		}
	}

	if o.now().UTC().Sub(original.CreatedAt) >= StalenessWindow {
		return model.BundleRecord{}, &model.TimeoutExpired{What: "bundle retry window"}
	}

	if targetBlock == 0 {
		targetBlock = original.TargetBlock + 1
	}

	sim, err := o.simulate(ctx, original.Transactions, targetBlock)
	if err != nil {
		return model.BundleRecord{}, fmt.Errorf("simulate retry bundle: %w", err)
	}

	opts := SubmitOptions{TargetBlock: targetBlock, Refund: original.Refund}
	record := o.newRecord(original.Transactions, original.UserAddress, targetBlock, opts, sim)
	record.Retry = &model.RetryLink{
		OriginalBundleID: original.BundleID,
		AttemptNumber:    attemptNumber,
		MaxRetries:       o.cfg.MaxRetries,
		LastError:        original.LastError,
	}
	return o.submitWithRetry(ctx, record, opts)
}

// GetBundleStatus reads a bundle, lazily expiring a submitted bundle whose
// target block has passed. Height-read failures leave the status as is.
func (o *Orchestrator) GetBundleStatus(ctx context.Context, bundleID string) (model.BundleRecord, bool, error) {
	record, ok, err := o.store.GetBundle(ctx, bundleID)
	if err != nil || !ok {
		return record, ok, err
	}
	if record.Status != model.BundleSubmitted || o.relay == nil {
		return record, true, nil
	}

	height, err := o.relay.BlockNumber(ctx)
	if err != nil {
		o.logger.Warn("chain height read failed, leaving bundle status unchanged",
			zap.String("bundle_id", bundleID), zap.Error(err))
		return record, true, nil
	}

	if height > record.TargetBlock {
		record.Status = model.BundleExpired
		record.UpdatedAt = o.now().UTC()
		o.persist(ctx, record)
		o.logger.Info("bundle expired",
			zap.String("bundle_id", bundleID),
			zap.Uint64("target_block", record.TargetBlock),
			zap.Uint64("height", height))
	}
	return record, true, nil
}

// ListBundles returns the bundle history for an address.
func (o *Orchestrator) ListBundles(ctx context.Context, address string) ([]model.BundleRecord, error) {
	return o.store.ListBundlesByAddress(ctx, address)
}

func (o *Orchestrator) simulate(ctx context.Context, rawTxs []string, targetBlock uint64) (model.BundleSimulation, error) {
	if o.relay == nil {
		o.logger.Warn("no relay session, using degraded simulation estimates",
			zap.Int("transactions", len(rawTxs)))
		return model.BundleSimulation{
			GasUsed:  uint64(len(rawTxs)) * degradedGasPerTx,
			Degraded: true,
		}, nil
	}
	return o.relay.SimulateBundle(ctx, rawTxs, targetBlock)
}

func (o *Orchestrator) submitWithRetry(ctx context.Context, record model.BundleRecord, opts SubmitOptions) (model.BundleRecord, error) {
	if o.relay == nil {
		record.LastError = "no relay session configured"
		return o.exhaust(ctx, record, opts, fmt.Errorf("no relay session configured"))
	}

	var lastErr error
	maxAttempts := o.cfg.MaxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		record.SubmissionAttempts = attempt
		record.LastSubmissionAttempt = o.now().UTC()

		hash, err := o.relay.SubmitBundle(ctx, record.Transactions, record.TargetBlock, record.Refund)
		if err == nil {
			record.Status = model.BundleSubmitted
			record.BundleHash = hash
			record.UpdatedAt = o.now().UTC()
			o.persist(ctx, record)
			o.logger.Info("bundle submitted",
				zap.String("bundle_id", record.BundleID),
				zap.String("bundle_hash", hash),
				zap.Uint64("target_block", record.TargetBlock),
				zap.Int("attempt", attempt))
			return record, nil
		}

		lastErr = err
		o.logger.Warn("bundle submission failed",
			zap.String("bundle_id", record.BundleID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		if attempt < maxAttempts {
			if err := sleep(ctx, o.backoff.delay(attempt)); err != nil {
				return model.BundleRecord{}, err
			}
		}
	}

	record.LastError = lastErr.Error()
	return o.exhaust(ctx, record, opts, lastErr)
}

// exhaust freezes the record as FAILED and runs the public fallback if one
// is available.
func (o *Orchestrator) exhaust(ctx context.Context, record model.BundleRecord, opts SubmitOptions, lastErr error) (model.BundleRecord, error) {
	record.Status = model.BundleFailed
	record.UpdatedAt = o.now().UTC()

	if !o.cfg.FallbackEnabled || o.fallback == nil || opts.FallbackRequest == nil {
		o.persist(ctx, record)
		return record, &model.RetryExhausted{Attempts: record.SubmissionAttempts, LastErr: lastErr}
	}

	o.logger.Info("falling back to public submission",
		zap.String("bundle_id", record.BundleID),
		zap.Float64("gas_price", o.cfg.FallbackGasPrice),
		zap.Float64("slippage", o.cfg.FallbackSlippage))

	swap, err := o.fallback.SubmitFallback(ctx, *opts.FallbackRequest, o.cfg.FallbackGasPrice, o.cfg.FallbackSlippage, lastErr)
	if err != nil {
		o.persist(ctx, record)
		return record, &model.RetryExhausted{Attempts: record.SubmissionAttempts, LastErr: fmt.Errorf("fallback failed: %w (relay: %v)", err, lastErr)}
	}

	record.FallbackSwapID = swap.SwapID
	o.persist(ctx, record)
	return record, nil
}

func (o *Orchestrator) newRecord(rawTxs []string, userAddress string, targetBlock uint64, opts SubmitOptions, sim model.BundleSimulation) model.BundleRecord {
	now := o.now().UTC()
	refund := opts.Refund
	if refund == nil && o.cfg.RefundRecipient != "" {
		refund = &model.RefundConfig{Recipient: o.cfg.RefundRecipient, Percent: o.cfg.RefundPercent}
	}
	simCopy := sim
	return model.BundleRecord{
		BundleID:     model.NewID("bundle"),
		UserAddress:  userAddress,
		TargetBlock:  targetBlock,
		Status:       model.BundlePending,
		Transactions: rawTxs,
		GasEstimate:  sim.GasUsed,
		Refund:       refund,
		Simulation:   &simCopy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (o *Orchestrator) persist(ctx context.Context, record model.BundleRecord) {
	if err := o.store.PutBundle(ctx, record); err != nil {
		o.logger.Warn("bundle history write failed", zap.String("bundle_id", record.BundleID), zap.Error(err))
	}
}
