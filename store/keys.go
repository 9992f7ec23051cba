package store

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/cloudx-io/chainauction/core"
)

// Record keys are pure functions of (purpose, seeds...): SHA-256 over a fixed
// program prefix, the purpose label, and each seed. Both the bidder and the
// protocol can re-derive any key independently, so no registry of pointers is
// ever stored. Each seed is length-prefixed inside the hash so distinct seed
// lists can never collide by concatenation.
const keyPrefix = "auction"

const (
	purposeState    = "state"
	purposePot      = "pot"
	purposeMetadata = "metadata"
	purposeAccount  = "account"
	purposeRegistry = "registry"
)

// DeriveKey computes the record key for a purpose and its seeds.
func DeriveKey(purpose string, seeds ...[]byte) core.Address {
	h := sha256.New()
	writeSeed(h.Write, []byte(keyPrefix))
	writeSeed(h.Write, []byte(purpose))
	for _, s := range seeds {
		writeSeed(h.Write, s)
	}
	return core.Address(h.Sum(nil))
}

func writeSeed(write func([]byte) (int, error), s []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	write(n[:])
	write(s)
}

// AuctionKey returns the key of the auction record for a resource.
func AuctionKey(resource core.Address) core.Address {
	return DeriveKey(purposeState, resource[:])
}

// PotKey returns the key of the bidder's escrow pot for one auction. The pot
// address doubles as the escrow identity carried in the bid ledger.
func PotKey(auction, bidder core.Address) core.Address {
	return DeriveKey(purposePot, auction[:], bidder[:])
}

// MetadataKey returns the key of the bidder's metadata record for one auction.
func MetadataKey(auction, bidder core.Address) core.Address {
	return DeriveKey(purposeMetadata, auction[:], bidder[:])
}

// AccountKey returns the key of an owner's spendable balance record.
func AccountKey(owner core.Address) core.Address {
	return DeriveKey(purposeAccount, owner[:])
}

// RegistryKey returns the key of the singleton auction registry record.
func RegistryKey() core.Address {
	return DeriveKey(purposeRegistry)
}
