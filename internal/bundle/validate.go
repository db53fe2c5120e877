package bundle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// MaxBundleSize is the largest transaction count a relay bundle accepts.
const MaxBundleSize = 10

// ValidateTransactions checks that the raw transaction list is well formed:
// 1 to 10 entries, each a hex-encoded signed transaction.
func ValidateTransactions(rawTxs []string) error {
	if len(rawTxs) == 0 {
		return &model.ValidationError{Field: "transactions", Reason: "at least one transaction is required"}
	}
	if len(rawTxs) > MaxBundleSize {
		return &model.ValidationError{
			Field:  "transactions",
			Reason: fmt.Sprintf("%d transactions exceeds bundle limit %d", len(rawTxs), MaxBundleSize),
		}
	}

	for i, raw := range rawTxs {
		data, err := hexutil.Decode(raw)
		if err != nil {
			return &model.ValidationError{
				Field:  "transactions",
				Reason: fmt.Sprintf("transaction %d is not valid hex: %v", i, err),
			}
		}
		var tx types.Transaction
		if err := tx.UnmarshalBinary(data); err != nil {
			return &model.ValidationError{
				Field:  "transactions",
				Reason: fmt.Sprintf("transaction %d is not a valid signed transaction: %v", i, err),
			}
		}
	}
	return nil
}
