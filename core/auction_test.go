package core

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func i64(v int64) *int64 {
	return &v
}

func newAuction(start int64, end, gap *int64) AuctionData {
	return AuctionData{
		Resource:  AddressFromSeed("resource"),
		StartTime: start,
		EndTime:   end,
		GapTime:   gap,
		Ledger:    NewBidState(8),
	}
}

func TestAuctionState_GapWindow(t *testing.T) {
	a := newAuction(0, nil, i64(600))

	// First bid lands at t=0 and opens the gap window.
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 0))
	check.Equal(t, StateOpen, a.State(600)) // exactly gap seconds of silence is still open
	check.Equal(t, StateGapExpired, a.State(601))

	// A bid after the gap expired is rejected; the rejection is evaluated
	// against the previous last-bid timestamp.
	err := a.PlaceBid(Bid{Escrow: escrowAddr("B"), Amount: 20}, 601)
	check.True(t, errors.Is(err, ErrAuctionClosed))
	check.Equal(t, 1, len(a.Ledger.Bids))

	// A bid inside the window is accepted and resets the window from its own
	// timestamp.
	a = newAuction(0, nil, i64(600))
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 0))
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("B"), Amount: 20}, 599))
	check.Equal(t, StateOpen, a.State(1199))
	check.Equal(t, StateGapExpired, a.State(1200))
}

func TestAuctionState_GapRunsFromStartBeforeFirstBid(t *testing.T) {
	a := newAuction(100, nil, i64(60))

	check.Equal(t, StateNotStarted, a.State(99))
	check.Equal(t, StateOpen, a.State(100))
	check.Equal(t, StateOpen, a.State(160))
	check.Equal(t, StateGapExpired, a.State(161))
}

func TestAuctionState_HardDeadline(t *testing.T) {
	a := newAuction(0, i64(1000), nil)

	// Bidding at exactly the deadline is allowed; one second past is not.
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 1000))
	err := a.PlaceBid(Bid{Escrow: escrowAddr("B"), Amount: 20}, 1001)
	check.True(t, errors.Is(err, ErrAuctionClosed))
	check.Equal(t, StateDeadlinePassed, a.State(1001))
}

func TestAuctionState_GapCannotExtendPastDeadline(t *testing.T) {
	a := newAuction(0, i64(100), i64(600))

	// The gap window alone would keep the auction alive until t=690, but the
	// hard deadline wins.
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 90))
	check.Equal(t, StateDeadlinePassed, a.State(101))
	err := a.PlaceBid(Bid{Escrow: escrowAddr("B"), Amount: 20}, 101)
	check.True(t, errors.Is(err, ErrAuctionClosed))
}

func TestAuctionState_NoGapNoDeadline(t *testing.T) {
	a := newAuction(0, nil, nil)
	check.Equal(t, StateOpen, a.State(1<<40))
}

func TestAuctionState_Concluded(t *testing.T) {
	check.False(t, StateNotStarted.Concluded())
	check.False(t, StateOpen.Concluded())
	check.True(t, StateGapExpired.Concluded())
	check.True(t, StateDeadlinePassed.Concluded())
}

func TestPlaceBid_BeforeStart(t *testing.T) {
	a := newAuction(100, nil, nil)
	err := a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 99)
	check.True(t, errors.Is(err, ErrAuctionClosed))
	check.Nil(t, a.LastBid)
}

func TestPlaceBid_PriceFloor(t *testing.T) {
	a := newAuction(0, nil, nil)
	a.PriceFloor = 100

	err := a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 99}, 10)
	check.True(t, errors.Is(err, ErrBidTooSmall))
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 100}, 10))
	check.Equal(t, uint64(100), a.Winner().Amount)
}

func TestPlaceBid_UpdatesLastBid(t *testing.T) {
	a := newAuction(0, nil, i64(600))
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 42))
	assert.NotNil(t, a.LastBid)
	check.Equal(t, int64(42), *a.LastBid)
}

func TestEndsAt(t *testing.T) {
	// No gap, no deadline: unbounded.
	a := newAuction(0, nil, nil)
	check.Nil(t, a.EndsAt())

	// Gap only: start + gap before the first bid, last bid + gap after.
	a = newAuction(0, nil, i64(600))
	assert.NotNil(t, a.EndsAt())
	check.Equal(t, int64(600), *a.EndsAt())
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 500))
	check.Equal(t, int64(1100), *a.EndsAt())

	// Gap extension is clamped by the hard deadline.
	a = newAuction(0, i64(700), i64(600))
	assert.NoError(t, a.PlaceBid(Bid{Escrow: escrowAddr("A"), Amount: 10}, 500))
	check.Equal(t, int64(700), *a.EndsAt())

	// Deadline only.
	a = newAuction(0, i64(700), nil)
	check.Equal(t, int64(700), *a.EndsAt())
}
