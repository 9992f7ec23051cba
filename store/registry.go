package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/chainauction/core"
)

// RegistryEntry is one known auction in the registry record. The registry is
// an operator convenience for listing auctions; the protocol itself never
// reads it (every key is re-derivable from the resource address).
type RegistryEntry struct {
	Auction  string `cbor:"auction" json:"auction"`
	Resource string `cbor:"resource" json:"resource"`
	Created  int64  `cbor:"created" json:"created"`
}

// LoadRegistry reads the registry record. A missing record is an empty
// registry, not an error.
func LoadRegistry(ctx context.Context, rs RecordStore) ([]RegistryEntry, error) {
	raw, err := rs.Read(ctx, RegistryKey())
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []RegistryEntry
	if err := cbor.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode registry: %v", core.ErrPersistence, err)
	}
	return entries, nil
}

// AppendRegistry adds an auction to the registry record. The registry is a
// singleton record updated by read-modify-write; callers must serialize
// auction creation around it.
func AppendRegistry(ctx context.Context, rs RecordStore, entry RegistryEntry) error {
	entries, err := LoadRegistry(ctx, rs)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	raw, err := cbor.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encode registry: %v", core.ErrPersistence, err)
	}
	return rs.Write(ctx, RegistryKey(), raw)
}
