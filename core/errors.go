package core

import "errors"

// Error taxonomy for the auction core. Callers are expected to classify
// failures with errors.Is; layers above add context with %w wrapping but never
// substitute a different sentinel.
var (
	// ErrValidation is returned when an account or derived address does not
	// match what the operation expects.
	ErrValidation = errors.New("account validation failed")

	// ErrAuctionClosed is returned when a bid arrives outside the auction's
	// open window (not yet started, gap expired, or past the hard deadline).
	ErrAuctionClosed = errors.New("auction is not accepting bids")

	// ErrBidTooSmall is returned when a bid does not improve on the bidder's
	// own active bid, falls below the price floor, or would itself be the
	// eviction victim of a full ledger.
	ErrBidTooSmall = errors.New("bid too small")

	// ErrInsufficientFunds is returned when an escrow transfer would overdraw
	// the bidder's spendable balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNumericalOverflow is returned when amount arithmetic would wrap.
	ErrNumericalOverflow = errors.New("numerical overflow")

	// ErrPersistence is returned for record store read/write/create failures,
	// including truncated or corrupt persisted records.
	ErrPersistence = errors.New("record store failure")
)
