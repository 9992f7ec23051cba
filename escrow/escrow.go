package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudx-io/chainauction/core"
	"github.com/cloudx-io/chainauction/store"
	"github.com/cloudx-io/chainauction/wire"
)

// Manager creates escrow pots and stages fund transfers into them. A pot's
// address is a pure function of (auction, bidder), so it is re-derivable by
// both parties and is the identity the bid ledger carries.
type Manager struct {
	store store.RecordStore
	bank  *Bank
}

// NewManager returns a Manager drawing funds from bank.
func NewManager(rs store.RecordStore, bank *Bank) *Manager {
	return &Manager{store: rs, bank: bank}
}

// PotAddress derives the escrow pot address for a bidder in an auction.
func (m *Manager) PotAddress(auction, bidder core.Address) core.Address {
	return store.PotKey(auction, bidder)
}

// EnsurePot creates the bidder's escrow pot if it does not exist yet and
// returns its address. Idempotent: a second call for an existing pot is a
// no-op creation.
func (m *Manager) EnsurePot(ctx context.Context, auction, bidder core.Address) (core.Address, error) {
	pot := m.PotAddress(auction, bidder)
	ok, err := m.store.Has(ctx, pot)
	if err != nil {
		return core.Address{}, err
	}
	if !ok {
		if err := m.store.Create(ctx, pot, wire.BalanceSize); err != nil {
			return core.Address{}, err
		}
	}
	return pot, nil
}

// StageTransfer stages moving amount from the bidder's spendable balance into
// the pot. Nothing is durable until the caller commits the batch, which keeps
// the transfer atomic with the ledger update it belongs to. Fails with
// ErrInsufficientFunds before staging anything if the balance cannot cover
// the amount; there is no partial transfer.
func (m *Manager) StageTransfer(ctx context.Context, batch *store.Batch, bidder, pot core.Address, amount uint64) error {
	balance, err := m.bank.Balance(ctx, bidder)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: balance %d, bid %d", core.ErrInsufficientFunds, balance, amount)
	}

	potBalance, err := m.potBalance(ctx, pot)
	if err != nil {
		return err
	}
	escrowed, err := core.AddAmounts(potBalance, amount)
	if err != nil {
		return err
	}

	batch.Put(store.AccountKey(bidder), wire.EncodeBalance(balance-amount))
	batch.Put(pot, wire.EncodeBalance(escrowed))
	return nil
}

// PotBalance returns the funds currently escrowed for a bidder in an auction.
// An absent pot reads as zero.
func (m *Manager) PotBalance(ctx context.Context, auction, bidder core.Address) (uint64, error) {
	return m.potBalance(ctx, m.PotAddress(auction, bidder))
}

func (m *Manager) potBalance(ctx context.Context, pot core.Address) (uint64, error) {
	raw, err := m.store.Read(ctx, pot)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	bal, err := wire.DecodeBalance(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: pot %s: %v", core.ErrPersistence, pot, err)
	}
	return bal, nil
}
