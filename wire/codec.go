// Package wire defines the fixed binary layouts of every record the auction
// persists: the auction record itself, bidder metadata, and balance records.
//
// Layout conventions:
//   - integers are little-endian fixed width (u32/u64/i64)
//   - addresses are raw 32-byte values
//   - optional fields carry a one-byte presence tag (0x00 absent, 0x01 present)
//   - variable-length sequences carry a u32 length prefix, validated against an
//     explicit maximum at decode time
//
// Decoding is strict: undersized input fails with ErrShortRecord and trailing
// bytes fail with ErrTrailingBytes, so a partial write can never be read back
// as a valid record.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cloudx-io/chainauction/core"
)

var (
	// ErrShortRecord is returned when the input ends before the layout does.
	ErrShortRecord = errors.New("wire: record truncated")

	// ErrTrailingBytes is returned when decoding succeeds but input remains.
	ErrTrailingBytes = errors.New("wire: trailing bytes after record")
)

const (
	tagAbsent  = 0x00
	tagPresent = 0x01

	bidSize = core.AddressLength + 8

	// BalanceSize is the fixed size of an account or escrow pot record.
	BalanceSize = 8

	// MetadataSize is the fixed size of a BidderMetadata record.
	MetadataSize = 2*core.AddressLength + 8 + 8 + 8
)

type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.buf)-r.off < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRecord, n, r.off, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *reader) address() (core.Address, error) {
	var a core.Address
	b, err := r.take(core.AddressLength)
	if err != nil {
		return a, err
	}
	copy(a[:], b)
	return a, nil
}

func (r *reader) optI64() (*int64, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagAbsent:
		return nil, nil
	case tagPresent:
		v, err := r.i64()
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: invalid presence tag 0x%02x at offset %d", ErrShortRecord, tag, r.off-1)
	}
}

func (r *reader) done() error {
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d bytes remain", ErrTrailingBytes, len(r.buf)-r.off)
	}
	return nil
}

func appendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

func appendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func appendOptI64(buf []byte, v *int64) []byte {
	if v == nil {
		return append(buf, tagAbsent)
	}
	buf = append(buf, tagPresent)
	return appendU64(buf, uint64(*v))
}

// EncodeAuctionData serializes the auction record, ledger included.
func EncodeAuctionData(a *core.AuctionData) []byte {
	buf := make([]byte, 0, core.AddressLength+8+3*9+8+8+len(a.Ledger.Bids)*bidSize)
	buf = append(buf, a.Resource[:]...)
	buf = appendU64(buf, uint64(a.StartTime))
	buf = appendOptI64(buf, a.EndTime)
	buf = appendOptI64(buf, a.GapTime)
	buf = appendOptI64(buf, a.LastBid)
	buf = appendU64(buf, a.PriceFloor)
	buf = appendU32(buf, uint32(a.Ledger.Max))
	buf = appendU32(buf, uint32(len(a.Ledger.Bids)))
	for _, b := range a.Ledger.Bids {
		buf = append(buf, b.Escrow[:]...)
		buf = appendU64(buf, b.Amount)
	}
	return buf
}

// DecodeAuctionData parses an auction record, validating the ledger's claimed
// capacity and length against MaxLedgerCapacity before allocating.
func DecodeAuctionData(buf []byte) (*core.AuctionData, error) {
	r := &reader{buf: buf}
	var a core.AuctionData
	var err error
	if a.Resource, err = r.address(); err != nil {
		return nil, err
	}
	if a.StartTime, err = r.i64(); err != nil {
		return nil, err
	}
	if a.EndTime, err = r.optI64(); err != nil {
		return nil, err
	}
	if a.GapTime, err = r.optI64(); err != nil {
		return nil, err
	}
	if a.LastBid, err = r.optI64(); err != nil {
		return nil, err
	}
	if a.PriceFloor, err = r.u64(); err != nil {
		return nil, err
	}
	max, err := r.u32()
	if err != nil {
		return nil, err
	}
	if max > core.MaxLedgerCapacity {
		return nil, fmt.Errorf("wire: ledger capacity %d exceeds maximum %d", max, core.MaxLedgerCapacity)
	}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if count > max {
		return nil, fmt.Errorf("wire: ledger length %d exceeds capacity %d", count, max)
	}
	a.Ledger = core.BidState{Max: int(max), Bids: make([]core.Bid, 0, count)}
	for i := uint32(0); i < count; i++ {
		var b core.Bid
		if b.Escrow, err = r.address(); err != nil {
			return nil, err
		}
		if b.Amount, err = r.u64(); err != nil {
			return nil, err
		}
		a.Ledger.Bids = append(a.Ledger.Bids, b)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return &a, nil
}

// EncodeBidderMetadata serializes a metadata record into its fixed layout.
func EncodeBidderMetadata(m *core.BidderMetadata) []byte {
	buf := make([]byte, 0, MetadataSize)
	buf = append(buf, m.Bidder[:]...)
	buf = append(buf, m.Auction[:]...)
	buf = appendU64(buf, uint64(m.LastBidTimestamp))
	buf = appendU64(buf, m.LastBidSlot)
	buf = appendU64(buf, m.TotalContributed)
	return buf
}

// DecodeBidderMetadata parses a fixed-size metadata record.
func DecodeBidderMetadata(buf []byte) (*core.BidderMetadata, error) {
	r := &reader{buf: buf}
	var m core.BidderMetadata
	var err error
	if m.Bidder, err = r.address(); err != nil {
		return nil, err
	}
	if m.Auction, err = r.address(); err != nil {
		return nil, err
	}
	if m.LastBidTimestamp, err = r.i64(); err != nil {
		return nil, err
	}
	if m.LastBidSlot, err = r.u64(); err != nil {
		return nil, err
	}
	if m.TotalContributed, err = r.u64(); err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeBalance serializes an account or escrow pot balance.
func EncodeBalance(v uint64) []byte {
	return appendU64(make([]byte, 0, BalanceSize), v)
}

// DecodeBalance parses a balance record, insisting on the exact fixed size.
func DecodeBalance(buf []byte) (uint64, error) {
	if len(buf) != BalanceSize {
		return 0, fmt.Errorf("%w: balance record is %d bytes, want %d", ErrShortRecord, len(buf), BalanceSize)
	}
	return binary.LittleEndian.Uint64(buf), nil
}
