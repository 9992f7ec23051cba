package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AddressLength is the byte length of every record address in the system.
const AddressLength = 32

// Address identifies a record: an auction, a bidder account, an escrow pot or
// a metadata entry. Derived addresses are SHA-256 digests over domain-separated
// seeds, so both the bidder and the protocol can recompute them independently
// without a registry lookup.
type Address [AddressLength]byte

// String returns the lowercase hex form of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// AddressFromHex parses a 64-character hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("%w: address %q is not hex", ErrValidation, s)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("%w: address must be %d bytes, got %d", ErrValidation, AddressLength, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// AddressFromSeed derives a stable address from an arbitrary identity string.
// Intended for tooling and tests where callers name bidders by label rather
// than by raw key material.
func AddressFromSeed(seed string) Address {
	return Address(sha256.Sum256([]byte(seed)))
}
