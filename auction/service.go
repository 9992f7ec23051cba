// Package auction orchestrates the place-bid flow: timing validation, escrow
// funding, metadata recording, ledger insertion, and atomic persistence of
// the lot.
package auction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloudx-io/chainauction/core"
	"github.com/cloudx-io/chainauction/escrow"
	"github.com/cloudx-io/chainauction/store"
	"github.com/cloudx-io/chainauction/wire"
)

// Service is the entry point for auction mutations and reads. Calls against
// the same auction are serialized by a per-auction mutex. The bidder's
// spendable balance record is shared across auctions and deposits, so
// PlaceBid additionally holds the bank's per-account lock from the balance
// read through the commit. Lock order is always auction then account.
//
// There is no cancel operation: once accepted, a bid stands until settlement.
type Service struct {
	store store.RecordStore
	bank  *escrow.Bank
	pots  *escrow.Manager
	meta  *escrow.MetadataStore
	clock Clock
	log   *zap.Logger

	createMu sync.Mutex

	mu    sync.Mutex
	locks map[core.Address]*sync.Mutex
}

// NewService wires a Service over the given record store.
func NewService(rs store.RecordStore, clock Clock, log *zap.Logger) *Service {
	bank := escrow.NewBank(rs)
	return &Service{
		store: rs,
		bank:  bank,
		pots:  escrow.NewManager(rs, bank),
		meta:  escrow.NewMetadataStore(rs),
		clock: clock,
		log:   log,
		locks: make(map[core.Address]*sync.Mutex),
	}
}

// Bank exposes the balance ledger for funding and balance queries.
func (s *Service) Bank() *escrow.Bank {
	return s.bank
}

// AuctionConfig describes a new auction.
type AuctionConfig struct {
	// Resource identifies what is being auctioned. Zero generates a fresh
	// UUID-derived resource address.
	Resource core.Address
	// StartTime defaults to the current clock reading when zero.
	StartTime int64
	// EndTime is the optional hard deadline.
	EndTime *int64
	// GapTime is the optional no-new-bid window in seconds.
	GapTime *int64
	// PriceFloor is the minimum acceptable bid, zero for none.
	PriceFloor uint64
	// MaxBids is the ledger capacity N; zero uses DefaultLedgerCapacity.
	MaxBids int
}

// CreateAuction initializes and persists a new auction record, registers it,
// and returns its address. Creations are serialized so the duplicate-resource
// check and the registry read-modify-write stay race-free.
func (s *Service) CreateAuction(ctx context.Context, cfg AuctionConfig) (core.Address, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	now, _ := s.clock.Now()

	resource := cfg.Resource
	if resource.IsZero() {
		resource = core.AddressFromSeed(uuid.NewString())
	}
	start := cfg.StartTime
	if start == 0 {
		start = now
	}
	max := cfg.MaxBids
	if max == 0 {
		max = core.DefaultLedgerCapacity
	}
	if max < 1 || max > core.MaxLedgerCapacity {
		return core.Address{}, fmt.Errorf("%w: ledger capacity %d out of range [1, %d]", core.ErrValidation, max, core.MaxLedgerCapacity)
	}
	if cfg.EndTime != nil && *cfg.EndTime <= start {
		return core.Address{}, fmt.Errorf("%w: end time %d is not after start time %d", core.ErrValidation, *cfg.EndTime, start)
	}
	if cfg.GapTime != nil && *cfg.GapTime <= 0 {
		return core.Address{}, fmt.Errorf("%w: gap time must be positive, got %d", core.ErrValidation, *cfg.GapTime)
	}

	id := store.AuctionKey(resource)
	if ok, err := s.store.Has(ctx, id); err != nil {
		return core.Address{}, err
	} else if ok {
		return core.Address{}, fmt.Errorf("%w: auction for resource %s already exists", core.ErrValidation, resource)
	}

	data := core.AuctionData{
		Resource:   resource,
		StartTime:  start,
		EndTime:    cfg.EndTime,
		GapTime:    cfg.GapTime,
		PriceFloor: cfg.PriceFloor,
		Ledger:     core.NewBidState(max),
	}
	if err := s.store.Write(ctx, id, wire.EncodeAuctionData(&data)); err != nil {
		return core.Address{}, err
	}
	if err := store.AppendRegistry(ctx, s.store, store.RegistryEntry{
		Auction:  id.String(),
		Resource: resource.String(),
		Created:  now,
	}); err != nil {
		return core.Address{}, err
	}

	s.log.Info("auction created",
		zap.Stringer("auction", id),
		zap.Stringer("resource", resource),
		zap.Int64("start_time", start),
		zap.Int("max_bids", max))
	return id, nil
}

// BidReceipt reports an accepted bid.
type BidReceipt struct {
	Auction   core.Address
	Escrow    core.Address
	Amount    uint64
	Timestamp int64
	Slot      uint64
}

// PlaceBid escrows amount from the bidder and enters the bid into the
// auction's ledger.
//
// The sequence is: timing check, balance check, escrow creation, staged
// transfer, staged metadata, ledger insertion, last-bid refresh, atomic
// commit. Every mutation except pot creation rides in one store batch, so a
// rejection at any step leaves balances, metadata and ledger untouched. Pot
// creation is committed eagerly but is value-free and idempotent.
//
// A metadata staging failure is logged and dropped; it never fails the bid.
func (s *Service) PlaceBid(ctx context.Context, auctionID, bidder core.Address, amount uint64) (*BidReceipt, error) {
	lock := s.auctionLock(auctionID)
	lock.Lock()
	defer lock.Unlock()

	// Balance records are shared across auctions, so the auction lock alone
	// does not cover the read-stage-commit window on the bidder's funds.
	account := s.bank.AccountLock(bidder)
	account.Lock()
	defer account.Unlock()

	now, slot := s.clock.Now()

	data, err := s.readAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if state := data.State(now); state != core.StateOpen {
		return nil, fmt.Errorf("%w: %s", core.ErrAuctionClosed, state)
	}

	pot, err := s.pots.EnsurePot(ctx, auctionID, bidder)
	if err != nil {
		return nil, err
	}

	var batch store.Batch
	if err := s.pots.StageTransfer(ctx, &batch, bidder, pot, amount); err != nil {
		return nil, err
	}

	if err := s.meta.StageBid(ctx, &batch, auctionID, bidder, now, slot, amount); err != nil {
		s.log.Warn("bidder metadata not recorded",
			zap.Stringer("auction", auctionID),
			zap.Stringer("bidder", bidder),
			zap.Error(err))
	}

	if err := data.PlaceBid(core.Bid{Escrow: pot, Amount: amount}, now); err != nil {
		return nil, err
	}
	batch.Put(auctionID, wire.EncodeAuctionData(data))

	if err := s.store.Commit(ctx, batch.Ops()); err != nil {
		return nil, err
	}

	s.log.Info("bid accepted",
		zap.Stringer("auction", auctionID),
		zap.Stringer("escrow", pot),
		zap.Uint64("amount", amount),
		zap.Int64("timestamp", now),
		zap.Uint64("slot", slot))
	return &BidReceipt{
		Auction:   auctionID,
		Escrow:    pot,
		Amount:    amount,
		Timestamp: now,
		Slot:      slot,
	}, nil
}

// Info is the read-model view of one auction, consumed by settlement and the
// API layer.
type Info struct {
	Auction    core.Address
	Resource   core.Address
	StartTime  int64
	EndTime    *int64
	GapTime    *int64
	LastBid    *int64
	PriceFloor uint64
	MaxBids    int
	State      core.AuctionState
	EndsAt     *int64
	Winner     *core.Bid
	BidCount   int
}

// AuctionInfo returns the auction's timing state and winner as of now.
func (s *Service) AuctionInfo(ctx context.Context, auctionID core.Address) (*Info, error) {
	data, err := s.readAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	now, _ := s.clock.Now()
	return &Info{
		Auction:    auctionID,
		Resource:   data.Resource,
		StartTime:  data.StartTime,
		EndTime:    data.EndTime,
		GapTime:    data.GapTime,
		LastBid:    data.LastBid,
		PriceFloor: data.PriceFloor,
		MaxBids:    data.Ledger.Max,
		State:      data.State(now),
		EndsAt:     data.EndsAt(),
		Winner:     data.Winner(),
		BidCount:   len(data.Ledger.Bids),
	}, nil
}

// Bids returns the auction's active bids, highest first.
func (s *Service) Bids(ctx context.Context, auctionID core.Address) ([]core.Bid, error) {
	data, err := s.readAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return data.Ledger.Bids, nil
}

// Metadata returns a bidder's audit record for an auction.
func (s *Service) Metadata(ctx context.Context, auctionID, bidder core.Address) (*core.BidderMetadata, error) {
	return s.meta.Load(ctx, auctionID, bidder)
}

// EscrowBalance returns the funds a bidder has staked in an auction,
// regardless of whether their bid is still in the ledger.
func (s *Service) EscrowBalance(ctx context.Context, auctionID, bidder core.Address) (uint64, error) {
	return s.pots.PotBalance(ctx, auctionID, bidder)
}

// Registry lists all known auctions.
func (s *Service) Registry(ctx context.Context) ([]store.RegistryEntry, error) {
	return store.LoadRegistry(ctx, s.store)
}

func (s *Service) readAuction(ctx context.Context, auctionID core.Address) (*core.AuctionData, error) {
	raw, err := s.store.Read(ctx, auctionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: no auction at %s", core.ErrValidation, auctionID)
	}
	if err != nil {
		return nil, err
	}
	data, err := wire.DecodeAuctionData(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: auction record %s: %v", core.ErrPersistence, auctionID, err)
	}
	return data, nil
}

func (s *Service) auctionLock(auctionID core.Address) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[auctionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[auctionID] = lock
	}
	return lock
}
