package storage

import (
	"context"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// SwapStore keeps swap history. Records are soft-retained: Put replaces by
// id and nothing is ever deleted.
type SwapStore interface {
	PutSwap(ctx context.Context, record model.SwapRecord) error
	GetSwap(ctx context.Context, id string) (model.SwapRecord, bool, error)
	ListSwapsByAddress(ctx context.Context, address string) ([]model.SwapRecord, error)
}

// BundleStore keeps bundle history with the same retention semantics.
type BundleStore interface {
	PutBundle(ctx context.Context, record model.BundleRecord) error
	GetBundle(ctx context.Context, id string) (model.BundleRecord, bool, error)
	ListBundlesByAddress(ctx context.Context, address string) ([]model.BundleRecord, error)
}

// Store combines swap and bundle history behind one backend.
type Store interface {
	SwapStore
	BundleStore
}
