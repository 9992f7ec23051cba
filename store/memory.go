package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudx-io/chainauction/core"
)

// MemoryStore is an in-memory RecordStore for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[core.Address][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[core.Address][]byte)}
}

func (m *MemoryStore) Read(ctx context.Context, key core.Address) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Write(ctx context.Context, key core.Address, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = clone(value)
	return nil
}

func (m *MemoryStore) Create(ctx context.Context, key core.Address, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return fmt.Errorf("%w: record %s already exists", core.ErrPersistence, key)
	}
	m.records[key] = make([]byte, size)
	return nil
}

func (m *MemoryStore) Has(ctx context.Context, key core.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key]
	return ok, nil
}

func (m *MemoryStore) Commit(ctx context.Context, ops []BatchOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		m.records[op.Key] = clone(op.Value)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
