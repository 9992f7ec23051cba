package core

import "fmt"

// AuctionState is the lifecycle position of an auction at a given instant.
// Transitions are one-way: NotStarted → Open → (GapExpired | DeadlinePassed).
// The state is evaluated lazily from timestamps on every bid and at
// settlement; there is no background timer.
type AuctionState int

const (
	// StateNotStarted means the clock has not reached StartTime yet.
	StateNotStarted AuctionState = iota
	// StateOpen means bids are currently accepted.
	StateOpen
	// StateGapExpired means GapTime elapsed with no new bid.
	StateGapExpired
	// StateDeadlinePassed means the hard EndTime is behind us.
	StateDeadlinePassed
)

// Concluded reports whether the auction has ended and settlement may read the
// winner.
func (s AuctionState) Concluded() bool {
	return s == StateGapExpired || s == StateDeadlinePassed
}

func (s AuctionState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateOpen:
		return "open"
	case StateGapExpired:
		return "gap_expired"
	case StateDeadlinePassed:
		return "deadline_passed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AuctionData is the persisted auction record. It exclusively owns its bid
// ledger; escrow pots and bidder metadata are referenced by derived address
// only, never embedded.
type AuctionData struct {
	// Resource is the identifier of the thing being auctioned.
	Resource Address
	// StartTime is the unix timestamp at which bidding opens.
	StartTime int64
	// EndTime, if set, is the hard deadline: no bid is accepted after it, no
	// matter how recently the last bid arrived.
	EndTime *int64
	// GapTime, if set, is the required silence in seconds after the last bid
	// before the auction concludes.
	GapTime *int64
	// LastBid is the timestamp of the most recent accepted bid, nil before
	// the first bid.
	LastBid *int64
	// PriceFloor is the minimum acceptable amount for any bid. Zero means no
	// floor.
	PriceFloor uint64
	// Ledger holds the active bids.
	Ledger BidState
}

// State evaluates the timing state machine at time now.
//
// The hard deadline is checked before the gap rule, so the effective deadline
// is min(LastBid+GapTime, EndTime): late bids cannot extend the auction's life
// past EndTime by resetting the gap window. Bidding at exactly EndTime is
// still allowed. Before the first bid, the gap window runs from StartTime.
func (a *AuctionData) State(now int64) AuctionState {
	if now < a.StartTime {
		return StateNotStarted
	}
	if a.EndTime != nil && now > *a.EndTime {
		return StateDeadlinePassed
	}
	if a.GapTime != nil {
		last := a.StartTime
		if a.LastBid != nil {
			last = *a.LastBid
		}
		if now-last > *a.GapTime {
			return StateGapExpired
		}
	}
	return StateOpen
}

// PlaceBid validates the bid against the timing rules and the price floor,
// hands it to the ledger, and refreshes LastBid. The gap rule is evaluated
// against the previous LastBid, before this bid resets the window.
func (a *AuctionData) PlaceBid(b Bid, now int64) error {
	if state := a.State(now); state != StateOpen {
		return fmt.Errorf("%w: %s", ErrAuctionClosed, state)
	}
	if b.Amount < a.PriceFloor {
		return fmt.Errorf("%w: %d is below the price floor %d", ErrBidTooSmall, b.Amount, a.PriceFloor)
	}
	if err := a.Ledger.PlaceBid(b); err != nil {
		return err
	}
	ts := now
	a.LastBid = &ts
	return nil
}

// Winner returns the highest-ranked active bid, or nil when no bid is live.
func (a *AuctionData) Winner() *Bid {
	return a.Ledger.Winner()
}

// EndsAt returns the effective conclusion deadline as currently known: the
// earlier of LastBid+GapTime and EndTime. Nil when the auction has no gap and
// no hard deadline configured.
func (a *AuctionData) EndsAt() *int64 {
	var deadline *int64
	if a.GapTime != nil {
		last := a.StartTime
		if a.LastBid != nil {
			last = *a.LastBid
		}
		d := last + *a.GapTime
		deadline = &d
	}
	if a.EndTime != nil && (deadline == nil || *a.EndTime < *deadline) {
		e := *a.EndTime
		deadline = &e
	}
	return deadline
}

// BidderMetadata is the per-(auction, bidder) audit record. It is written on
// every accepted bid and survives pruning from the ledger, so a bidder's
// history remains inspectable after they are outbid. It never feeds ranking.
type BidderMetadata struct {
	Bidder           Address
	Auction          Address
	LastBidTimestamp int64
	LastBidSlot      uint64
	TotalContributed uint64
}
