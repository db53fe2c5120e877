package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Amount bounds accepted for a swap, in quote-currency units.
const (
	MinSwapAmount = 0.000001
	MaxSwapAmount = 1e9
)

// SupportedChains lists the chain IDs the engine will execute on.
var SupportedChains = map[uint64]bool{
	1:     true, // mainnet
	10:    true, // optimism
	56:    true, // bsc
	137:   true, // polygon
	8453:  true, // base
	42161: true, // arbitrum
}

// SwapRequest is the immutable input describing a desired swap.
type SwapRequest struct {
	FromToken   string     `json:"from_token"`
	ToToken     string     `json:"to_token"`
	Amount      float64    `json:"amount"`
	ChainID     uint64     `json:"chain_id"`
	UserAddress string     `json:"user_address"`
	Slippage    float64    `json:"slippage,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	GasPrice    float64    `json:"gas_price,omitempty"`
	Permit      string     `json:"permit,omitempty"`
}

// Validate checks the request against the engine's input constraints.
func (r SwapRequest) Validate() error {
	if r.FromToken == "" || r.ToToken == "" {
		return &ValidationError{Field: "token", Reason: "from and to tokens are required"}
	}
	if r.FromToken == r.ToToken {
		return &ValidationError{Field: "to_token", Reason: "from and to tokens must differ"}
	}
	if r.Amount < MinSwapAmount || r.Amount > MaxSwapAmount {
		return &ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("amount %g outside [%g, %g]", r.Amount, MinSwapAmount, MaxSwapAmount),
		}
	}
	if !SupportedChains[r.ChainID] {
		return &ValidationError{Field: "chain_id", Reason: fmt.Sprintf("unsupported chain %d", r.ChainID)}
	}
	if r.UserAddress == "" {
		return &ValidationError{Field: "user_address", Reason: "user address is required"}
	}
	return nil
}

// RouteHop describes a single hop of an aggregator route.
type RouteHop struct {
	Protocol string  `json:"protocol"`
	Pool     string  `json:"pool,omitempty"`
	TokenIn  string  `json:"token_in"`
	TokenOut string  `json:"token_out"`
	Share    float64 `json:"share,omitempty"`
}

// Quote is a price snapshot from the aggregator. Never mutated after creation.
type Quote struct {
	ToAmount     float64    `json:"to_amount"`
	EstimatedGas uint64     `json:"estimated_gas"`
	Route        []RouteHop `json:"route,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// SwapStatus is the lifecycle state of a SwapRecord.
type SwapStatus string

const (
	SwapPending   SwapStatus = "PENDING"
	SwapConfirmed SwapStatus = "CONFIRMED"
	SwapFailed    SwapStatus = "FAILED"
	SwapCancelled SwapStatus = "CANCELLED"
	SwapExpired   SwapStatus = "EXPIRED"
)

// SwapResult is the public submission response.
type SwapResult struct {
	TxHash   string  `json:"tx_hash"`
	ToAmount float64 `json:"to_amount"`
}

// SwapRecord tracks an accepted swap through execution. Records are
// soft-retained for history queries and never deleted.
type SwapRecord struct {
	SwapID        string      `json:"swap_id"`
	Status        SwapStatus  `json:"status"`
	Request       SwapRequest `json:"request"`
	Quote         Quote       `json:"quote"`
	TxHash        string      `json:"tx_hash,omitempty"`
	ToAmount      float64     `json:"to_amount,omitempty"`
	BundleID      string      `json:"bundle_id,omitempty"`
	FallbackUsed  bool        `json:"fallback_used,omitempty"`
	FallbackError string      `json:"fallback_error,omitempty"`
	TrancheCount  int         `json:"tranche_count,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Deadline      *time.Time  `json:"deadline,omitempty"`
}

// NewID returns an opaque, globally unique identifier with the given prefix.
func NewID(prefix string) string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// timestamp so an id is still produced.
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + hex.EncodeToString(buf)
}
