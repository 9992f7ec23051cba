package store

import (
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/cloudx-io/chainauction/core"
)

// PebbleStore is a durable RecordStore backed by a pebble database. Commit
// maps to a synced pebble batch, which gives the all-or-nothing guarantee the
// orchestrator relies on for fund-transfer/ledger atomicity.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble store at path.
func OpenPebble(path string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// Record values are small (a few KiB at most); favor a modest
		// memtable over the pebble defaults.
		MemTableSize: 16 << 20,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble at %s: %v", core.ErrPersistence, path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Read(ctx context.Context, key core.Address) ([]byte, error) {
	value, closer, err := p.db.Get(key[:])
	if err == pebble.ErrNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrPersistence, key, err)
	}
	out := make([]byte, len(value))
	copy(out, value)
	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrPersistence, key, err)
	}
	return out, nil
}

func (p *PebbleStore) Write(ctx context.Context, key core.Address, value []byte) error {
	if err := p.db.Set(key[:], value, pebble.Sync); err != nil {
		return fmt.Errorf("%w: write %s: %v", core.ErrPersistence, key, err)
	}
	return nil
}

func (p *PebbleStore) Create(ctx context.Context, key core.Address, size int) error {
	ok, err := p.Has(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: record %s already exists", core.ErrPersistence, key)
	}
	return p.Write(ctx, key, make([]byte, size))
}

func (p *PebbleStore) Has(ctx context.Context, key core.Address) (bool, error) {
	_, closer, err := p.db.Get(key[:])
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", core.ErrPersistence, key, err)
	}
	if err := closer.Close(); err != nil {
		return false, fmt.Errorf("%w: read %s: %v", core.ErrPersistence, key, err)
	}
	return true, nil
}

func (p *PebbleStore) Commit(ctx context.Context, ops []BatchOp) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		if err := batch.Set(op.Key[:], op.Value, nil); err != nil {
			return fmt.Errorf("%w: stage %s: %v", core.ErrPersistence, op.Key, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("%w: commit batch of %d: %v", core.ErrPersistence, len(ops), err)
	}
	return nil
}

func (p *PebbleStore) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("%w: close pebble: %v", core.ErrPersistence, err)
	}
	return nil
}
