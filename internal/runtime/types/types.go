// Package types defines the fixed-width identifiers shared by the routing
// registry, the wire codec, and the dispatcher. A ResourceID names a
// cross-chain asset/route independently of any single chain's addressing;
// an Address identifies a contract or handler on the local chain. The zero
// value of either type is the unset sentinel.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// ResourceIDLength is the byte width of a resource identifier.
	ResourceIDLength = 32
	// AddressLength is the byte width of a chain-local account identifier.
	AddressLength = 20
	// PaddedAddressLength is the width of an address encoded as a single
	// 32-byte word with the upper 12 bytes zeroed.
	PaddedAddressLength = 32
)

// ResourceID is the stable logical name for a kind of cross-chain asset or
// route. Equality is exact byte equality.
type ResourceID [ResourceIDLength]byte

// Address identifies a destination contract/handler on the local chain.
type Address [AddressLength]byte

// ResourceIDFromBytes copies b into a ResourceID. It fails when b is not
// exactly 32 bytes long.
func ResourceIDFromBytes(b []byte) (ResourceID, error) {
	var id ResourceID
	if len(b) != ResourceIDLength {
		return id, fmt.Errorf("resource id must be %d bytes, got %d", ResourceIDLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ResourceIDFromHex parses a 64-character hex string, with or without a
// leading "0x".
func ResourceIDFromHex(s string) (ResourceID, error) {
	b, err := decodeHex(s, ResourceIDLength)
	if err != nil {
		return ResourceID{}, fmt.Errorf("resource id: %w", err)
	}
	var id ResourceID
	copy(id[:], b)
	return id, nil
}

// Bytes returns a copy of the identifier as a slice.
func (id ResourceID) Bytes() []byte {
	out := make([]byte, ResourceIDLength)
	copy(out, id[:])
	return out
}

// Hex returns the identifier as a 0x-prefixed hex string.
func (id ResourceID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id ResourceID) String() string { return id.Hex() }

// IsZero reports whether the identifier is the unset sentinel.
func (id ResourceID) IsZero() bool { return id == ResourceID{} }

// AddressFromBytes copies b into an Address. It fails when b is not exactly
// 20 bytes long.
func AddressFromBytes(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// AddressFromHex parses a 40-character hex string, with or without a leading
// "0x".
func AddressFromHex(s string) (Address, error) {
	b, err := decodeHex(s, AddressLength)
	if err != nil {
		return Address{}, fmt.Errorf("address: %w", err)
	}
	var addr Address
	copy(addr[:], b)
	return addr, nil
}

// Bytes returns a copy of the address as a slice.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// Hex returns the address as a 0x-prefixed hex string.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the unset sentinel.
func (a Address) IsZero() bool { return a == Address{} }

// Padded returns the address left-padded to a 32-byte word, the form used
// when an address is encoded as a single ABI value.
func (a Address) Padded() []byte {
	out := make([]byte, PaddedAddressLength)
	copy(out[PaddedAddressLength-AddressLength:], a[:])
	return out
}

func decodeHex(s string, want int) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != want {
		return nil, fmt.Errorf("want %d bytes, got %d", want, len(b))
	}
	return b, nil
}
