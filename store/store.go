// Package store persists auction records under deterministically derived
// 32-byte keys. Two backends are provided: an in-memory map for tests and
// tooling, and a pebble-backed store for durable operation, with an optional
// LRU read cache on top.
package store

import (
	"context"
	"fmt"

	"github.com/cloudx-io/chainauction/core"
)

// ErrNotFound reports a missing record. It satisfies
// errors.Is(err, core.ErrPersistence).
var ErrNotFound = fmt.Errorf("%w: record not found", core.ErrPersistence)

// RecordStore is the record access layer the auction core runs against. The
// surrounding environment guarantees at most one concurrent mutator per
// record; implementations only need to make Commit atomic.
//
// There is deliberately no delete operation: bids cannot be cancelled, and
// escrowed funds stay under their derived address until settlement.
type RecordStore interface {
	// Read returns the record at key, or ErrNotFound.
	Read(ctx context.Context, key core.Address) ([]byte, error)
	// Write stores the record at key, replacing any previous value.
	Write(ctx context.Context, key core.Address, value []byte) error
	// Create initializes a zero-filled record of the given size. It is an
	// error if the record already exists; callers wanting idempotent creation
	// check Has first.
	Create(ctx context.Context, key core.Address, size int) error
	// Has reports whether a record exists at key.
	Has(ctx context.Context, key core.Address) (bool, error)
	// Commit durably applies every staged write as one atomic unit: either
	// all of them are visible afterwards, or none.
	Commit(ctx context.Context, ops []BatchOp) error
	// Close releases backend resources.
	Close() error
}

// BatchOp is one staged write inside an atomic Commit.
type BatchOp struct {
	Key   core.Address
	Value []byte
}

// Batch accumulates writes for a single atomic Commit.
type Batch struct {
	ops []BatchOp
}

// Put stages a write. Later writes to the same key win.
func (b *Batch) Put(key core.Address, value []byte) {
	b.ops = append(b.ops, BatchOp{Key: key, Value: value})
}

// Ops returns the staged writes in order.
func (b *Batch) Ops() []BatchOp {
	return b.ops
}

// Len returns the number of staged writes.
func (b *Batch) Len() int {
	return len(b.ops)
}
