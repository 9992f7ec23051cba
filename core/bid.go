package core

import (
	"fmt"
	"sort"
)

// Bid is a single active offer: the bidder's escrow pot address and the amount
// staked behind it, in base units. Bids are ordered by amount descending; at
// equal amounts the earlier bid ranks higher, preserving the incentive to bid
// early.
type Bid struct {
	Escrow Address
	Amount uint64
}

// MaxLedgerCapacity bounds the configurable size of a bid ledger. Decoders
// reject any persisted record claiming a larger capacity.
const MaxLedgerCapacity = 1 << 12

// DefaultLedgerCapacity is used when an auction is created without an explicit
// capacity.
const DefaultLedgerCapacity = 32

// BidState is the bounded, rank-ordered ledger of active bids for one auction.
//
// Two attacks shape this structure:
//
//  1. A bidder submits many small bids to fill the ledger so their own maximum
//     wins. Defeated by keeping the ledger capacity-bounded and pruning the
//     lowest-ranked entry eagerly: small bids never displace higher ones.
//  2. A bidder bids repeatedly to delay the auction finishing forever.
//     Defeated by the timing rules on AuctionData (hard end time), not here.
//
// Bids cannot be cancelled. A pruned bidder keeps their escrowed funds (the
// ledger stores only the escrow address, never the funds) but no longer counts
// toward winner determination.
type BidState struct {
	// Max is the capacity N fixed at auction configuration time.
	Max int
	// Bids is sorted by amount descending, insertion-order on ties.
	Bids []Bid
}

// NewBidState returns an empty ledger with the given capacity.
func NewBidState(max int) BidState {
	return BidState{Max: max}
}

// PlaceBid inserts b into the ledger, maintaining every invariant:
//
//   - A bidder's new bid replaces their prior entry and must strictly improve
//     on it, otherwise ErrBidTooSmall.
//   - The ledger stays sorted by amount descending with insertion-order
//     tiebreak.
//   - Length never exceeds Max: on overflow the lowest-ranked entry is pruned.
//     An incoming bid that would itself be the eviction victim is rejected
//     with ErrBidTooSmall instead of being inserted and immediately dropped.
//
// PlaceBid never moves funds; escrow transfers happen before this call.
func (s *BidState) PlaceBid(b Bid) error {
	// Decoded records may claim zero capacity; never accept a bid that the
	// truncation below would immediately discard.
	if s.Max < 1 {
		return fmt.Errorf("%w: ledger has no capacity", ErrValidation)
	}
	if b.Amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrBidTooSmall)
	}
	if i := s.index(b.Escrow); i >= 0 {
		if b.Amount <= s.Bids[i].Amount {
			return fmt.Errorf("%w: %d does not improve on active bid %d", ErrBidTooSmall, b.Amount, s.Bids[i].Amount)
		}
		s.Bids = append(s.Bids[:i], s.Bids[i+1:]...)
	} else if len(s.Bids) >= s.Max && len(s.Bids) > 0 && b.Amount <= s.Bids[len(s.Bids)-1].Amount {
		return fmt.Errorf("%w: ledger full and %d does not beat lowest active bid %d",
			ErrBidTooSmall, b.Amount, s.Bids[len(s.Bids)-1].Amount)
	}

	// First index with a strictly smaller amount: new bid lands after every
	// equal-amount entry, so the earlier bid keeps the tie.
	pos := sort.Search(len(s.Bids), func(i int) bool {
		return s.Bids[i].Amount < b.Amount
	})
	s.Bids = append(s.Bids, Bid{})
	copy(s.Bids[pos+1:], s.Bids[pos:])
	s.Bids[pos] = b

	if len(s.Bids) > s.Max {
		s.Bids = s.Bids[:s.Max]
	}
	return nil
}

// Winner returns the highest-ranked bid, or nil if the ledger is empty.
func (s *BidState) Winner() *Bid {
	if len(s.Bids) == 0 {
		return nil
	}
	return &s.Bids[0]
}

// ActiveBid returns the bidder's current entry for the given escrow address,
// or nil if the bidder has no active bid (never bid, or pruned).
func (s *BidState) ActiveBid(escrow Address) *Bid {
	if i := s.index(escrow); i >= 0 {
		return &s.Bids[i]
	}
	return nil
}

func (s *BidState) index(escrow Address) int {
	for i := range s.Bids {
		if s.Bids[i].Escrow == escrow {
			return i
		}
	}
	return -1
}
