package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cloudx-io/chainauction/core"
)

// CachedStore layers an LRU read cache over another RecordStore. Hot records
// (the auction record itself, active bidders' balances) are read on every bid,
// so avoiding a backend round trip per read pays off under load. Writes go
// through to the backend first and only then refresh the cache, so a failed
// write never poisons it.
type CachedStore struct {
	backend RecordStore
	cache   *lru.Cache[core.Address, []byte]
}

// DefaultCacheSize is the record count the cache holds when the caller does
// not choose one.
const DefaultCacheSize = 4096

// NewCachedStore wraps backend with an LRU of the given size (records, not
// bytes). Size <= 0 uses DefaultCacheSize.
func NewCachedStore(backend RecordStore, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[core.Address, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{backend: backend, cache: cache}, nil
}

func (c *CachedStore) Read(ctx context.Context, key core.Address) ([]byte, error) {
	if v, ok := c.cache.Get(key); ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	v, err := c.backend.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v)
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (c *CachedStore) Write(ctx context.Context, key core.Address, value []byte) error {
	if err := c.backend.Write(ctx, key, value); err != nil {
		return err
	}
	c.cache.Add(key, clone(value))
	return nil
}

func (c *CachedStore) Create(ctx context.Context, key core.Address, size int) error {
	if err := c.backend.Create(ctx, key, size); err != nil {
		return err
	}
	c.cache.Add(key, make([]byte, size))
	return nil
}

func (c *CachedStore) Has(ctx context.Context, key core.Address) (bool, error) {
	if _, ok := c.cache.Get(key); ok {
		return true, nil
	}
	return c.backend.Has(ctx, key)
}

func (c *CachedStore) Commit(ctx context.Context, ops []BatchOp) error {
	if err := c.backend.Commit(ctx, ops); err != nil {
		return err
	}
	for _, op := range ops {
		c.cache.Add(op.Key, clone(op.Value))
	}
	return nil
}

func (c *CachedStore) Close() error {
	c.cache.Purge()
	return c.backend.Close()
}
