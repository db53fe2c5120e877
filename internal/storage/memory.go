package storage

import (
	"context"
	"sync"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Memory is an in-process store for both swap and bundle history. It is
// the reference store for tests and single-instance deployments.
type Memory struct {
	mu      sync.RWMutex
	swaps   map[string]model.SwapRecord
	bundles map[string]model.BundleRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		swaps:   make(map[string]model.SwapRecord),
		bundles: make(map[string]model.BundleRecord),
	}
}

func (m *Memory) PutSwap(_ context.Context, record model.SwapRecord) error {
	m.mu.Lock()
	m.swaps[record.SwapID] = record
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetSwap(_ context.Context, id string) (model.SwapRecord, bool, error) {
	m.mu.RLock()
	record, ok := m.swaps[id]
	m.mu.RUnlock()
	return record, ok, nil
}

func (m *Memory) ListSwapsByAddress(_ context.Context, address string) ([]model.SwapRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.SwapRecord
	for _, record := range m.swaps {
		if record.Request.UserAddress == address {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *Memory) PutBundle(_ context.Context, record model.BundleRecord) error {
	m.mu.Lock()
	m.bundles[record.BundleID] = record
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetBundle(_ context.Context, id string) (model.BundleRecord, bool, error) {
	m.mu.RLock()
	record, ok := m.bundles[id]
	m.mu.RUnlock()
	return record, ok, nil
}

func (m *Memory) ListBundlesByAddress(_ context.Context, address string) ([]model.BundleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.BundleRecord
	for _, record := range m.bundles {
		if record.UserAddress == address {
			out = append(out, record)
		}
	}
	return out, nil
}
