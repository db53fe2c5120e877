package model

import "time"

// BundleStatus is the lifecycle state of a BundleRecord.
type BundleStatus string

const (
	BundlePending   BundleStatus = "PENDING"
	BundleSubmitted BundleStatus = "SUBMITTED"
	BundleConfirmed BundleStatus = "CONFIRMED"
	BundleFailed    BundleStatus = "FAILED"
	BundleExpired   BundleStatus = "EXPIRED"
	BundleReverted  BundleStatus = "REVERTED"
)

// Terminal reports whether the status permits no further in-place change.
func (s BundleStatus) Terminal() bool {
	switch s {
	case BundleConfirmed, BundleFailed, BundleExpired, BundleReverted:
		return true
	default:
		return false
	}
}

// Retryable reports whether a terminal bundle may spawn a retry record.
func (s BundleStatus) Retryable() bool {
	switch s {
	case BundleFailed, BundleExpired, BundleReverted:
		return true
	default:
		return false
	}
}

// RefundConfig routes a share of bundle payments back to the user.
type RefundConfig struct {
	Recipient string `json:"recipient"`
	Percent   int    `json:"percent"`
}

// RetryLink ties a retry bundle back to the record it replaces.
type RetryLink struct {
	OriginalBundleID string `json:"original_bundle_id"`
	AttemptNumber    int    `json:"attempt_number"`
	MaxRetries       int    `json:"max_retries"`
	LastError        string `json:"last_error,omitempty"`
}

// BundleSimulation is the relay's pre-submission estimate.
type BundleSimulation struct {
	GasUsed  uint64  `json:"gas_used"`
	Profit   float64 `json:"profit"`
	Degraded bool    `json:"degraded,omitempty"`
}

// BundleRecord tracks one relay submission attempt. A record is created
// exactly once per attempt; retries create fresh records linked via
// RetryLink, and a terminal record is never modified again.
type BundleRecord struct {
	BundleID              string            `json:"bundle_id"`
	BundleHash            string            `json:"bundle_hash,omitempty"`
	UserAddress           string            `json:"user_address"`
	TargetBlock           uint64            `json:"target_block"`
	Status                BundleStatus      `json:"status"`
	Transactions          []string          `json:"transactions"`
	GasEstimate           uint64            `json:"gas_estimate,omitempty"`
	GasPrice              float64           `json:"gas_price,omitempty"`
	Refund                *RefundConfig     `json:"refund,omitempty"`
	Simulation            *BundleSimulation `json:"simulation,omitempty"`
	SubmissionAttempts    int               `json:"submission_attempts"`
	LastSubmissionAttempt time.Time         `json:"last_submission_attempt"`
	LastError             string            `json:"last_error,omitempty"`
	FallbackSwapID        string            `json:"fallback_swap_id,omitempty"`
	Retry                 *RetryLink        `json:"retry,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}
