package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of every ledger address.
const AddressLength = 20

// Address identifies an account on the ledger. Human parties own addresses
// backed by a secp256k1 key; component-derived addresses have no key at all.
type Address [AddressLength]byte

// BytesToAddress copies b into an Address. It returns an error when the input
// does not have exactly AddressLength bytes.
func BytesToAddress(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// HexToAddress parses a hex encoded address with or without the 0x prefix.
func HexToAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("decode address: %w", err)
	}
	return BytesToAddress(raw)
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// Hex renders the address as a 0x-prefixed lowercase hex string.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == Address{} }
