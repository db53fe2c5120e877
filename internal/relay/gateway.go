package relay

import (
	"context"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Gateway is the private relay consumed by the bundle orchestrator.
type Gateway interface {
	SimulateBundle(ctx context.Context, txs []string, targetBlock uint64) (model.BundleSimulation, error)
	SubmitBundle(ctx context.Context, txs []string, targetBlock uint64, refund *model.RefundConfig) (string, error)
	BlockNumber(ctx context.Context) (uint64, error)
}
