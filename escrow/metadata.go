package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudx-io/chainauction/core"
	"github.com/cloudx-io/chainauction/store"
	"github.com/cloudx-io/chainauction/wire"
)

// MetadataStore maintains per-(auction, bidder) audit records. It is purely
// observational: the orchestrator treats its failures as warnings, never as a
// reason to reject an otherwise valid bid.
type MetadataStore struct {
	store store.RecordStore
}

// NewMetadataStore returns a MetadataStore over the given record store.
func NewMetadataStore(rs store.RecordStore) *MetadataStore {
	return &MetadataStore{store: rs}
}

// MetadataAddress derives the metadata record address for a bidder in an
// auction.
func (s *MetadataStore) MetadataAddress(auction, bidder core.Address) core.Address {
	return store.MetadataKey(auction, bidder)
}

// StageBid stages the updated audit record for an accepted bid: last bid
// timestamp and slot, and the running total the bidder has contributed across
// all their bids in this auction. The record is created lazily on first bid.
func (s *MetadataStore) StageBid(ctx context.Context, batch *store.Batch, auction, bidder core.Address, ts int64, slot uint64, amount uint64) error {
	meta, err := s.load(ctx, auction, bidder)
	if err != nil {
		return err
	}
	total, err := core.AddAmounts(meta.TotalContributed, amount)
	if err != nil {
		return err
	}
	meta.Bidder = bidder
	meta.Auction = auction
	meta.LastBidTimestamp = ts
	meta.LastBidSlot = slot
	meta.TotalContributed = total
	batch.Put(s.MetadataAddress(auction, bidder), wire.EncodeBidderMetadata(meta))
	return nil
}

// Load returns the bidder's audit record, or ErrNotFound if the bidder never
// bid in this auction.
func (s *MetadataStore) Load(ctx context.Context, auction, bidder core.Address) (*core.BidderMetadata, error) {
	raw, err := s.store.Read(ctx, s.MetadataAddress(auction, bidder))
	if err != nil {
		return nil, err
	}
	meta, err := wire.DecodeBidderMetadata(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata for %s in %s: %v", core.ErrPersistence, bidder, auction, err)
	}
	return meta, nil
}

func (s *MetadataStore) load(ctx context.Context, auction, bidder core.Address) (*core.BidderMetadata, error) {
	meta, err := s.Load(ctx, auction, bidder)
	if errors.Is(err, store.ErrNotFound) {
		return &core.BidderMetadata{}, nil
	}
	return meta, err
}
