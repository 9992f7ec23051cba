// Package escrow moves bidder funds into per-(auction, bidder) escrow pots
// and maintains the bidder metadata audit trail. Funds never leave a pot
// through this package: refunds for outbid bidders belong to settlement.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudx-io/chainauction/core"
	"github.com/cloudx-io/chainauction/store"
	"github.com/cloudx-io/chainauction/wire"
)

// Bank tracks spendable balances as fixed-size records keyed by owner
// address. It is the value-transfer primitive the escrow manager draws from.
//
// A balance record is shared by every auction the owner bids in, so unlike
// auction records it needs its own exclusion: any read-stage-commit sequence
// against it must hold AccountLock for its duration, or two concurrent debits
// read the same balance and the later commit erases the earlier one.
type Bank struct {
	store store.RecordStore

	mu    sync.Mutex
	locks map[core.Address]*sync.Mutex
}

// NewBank returns a Bank over the given record store.
func NewBank(rs store.RecordStore) *Bank {
	return &Bank{store: rs, locks: make(map[core.Address]*sync.Mutex)}
}

// AccountLock returns the mutex guarding the owner's balance record. Deposit
// takes it internally; callers that stage a debit and commit it separately
// must hold it from the balance read until the commit completes.
func (b *Bank) AccountLock(owner core.Address) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[owner] = lock
	}
	return lock
}

// Balance returns the owner's spendable balance. An absent account reads as
// zero.
func (b *Bank) Balance(ctx context.Context, owner core.Address) (uint64, error) {
	raw, err := b.store.Read(ctx, store.AccountKey(owner))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	bal, err := wire.DecodeBalance(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: account %s: %v", core.ErrPersistence, owner, err)
	}
	return bal, nil
}

// Deposit credits the owner's spendable balance and returns the new total.
// This is the funding entry point for tooling and tests; it writes directly
// rather than staging, since deposits are independent of any auction.
func (b *Bank) Deposit(ctx context.Context, owner core.Address, amount uint64) (uint64, error) {
	lock := b.AccountLock(owner)
	lock.Lock()
	defer lock.Unlock()

	bal, err := b.Balance(ctx, owner)
	if err != nil {
		return 0, err
	}
	total, err := core.AddAmounts(bal, amount)
	if err != nil {
		return 0, err
	}
	if err := b.store.Write(ctx, store.AccountKey(owner), wire.EncodeBalance(total)); err != nil {
		return 0, err
	}
	return total, nil
}
