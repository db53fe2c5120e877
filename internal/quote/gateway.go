package quote

import (
	"context"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Gateway supplies price quotes for candidate swaps.
type Gateway interface {
	GetQuote(ctx context.Context, req model.SwapRequest) (model.Quote, error)
}

// Submitter places a swap on the public path.
type Submitter interface {
	SubmitSwap(ctx context.Context, req model.SwapRequest, q model.Quote) (model.SwapResult, error)
}
