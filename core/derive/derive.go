// Package derive computes deterministic component-owned addresses.
//
// An address is derived from (component id, fixed tag, parent address,
// optional differentiator) plus a disambiguation byte ("bump"). FindAddress
// walks the bump down from 255 and returns the first candidate whose hash is
// not a valid compressed secp256k1 x coordinate; the bump makes that choice
// canonical. The curve test does not bind the 20-byte address: a key pair
// controls an address only through a keccak(pubkey) preimage of those 160
// bits. Spends from a derived address are authorised by the deriving
// component through an auth.ProgramSigner.
package derive

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"rentchain/core/types"
)

const (
	// MaxSeeds bounds the number of seed components.
	MaxSeeds = 16
	// MaxSeedLength bounds the length of each seed component.
	MaxSeedLength = 32
)

var (
	ErrTooManySeeds = errors.New("derive: too many seeds")
	ErrSeedTooLong  = errors.New("derive: seed too long")
	ErrOnCurve      = errors.New("derive: candidate is a valid public key")
	ErrNoBump       = errors.New("derive: no viable bump")
)

var marker = []byte("rentchain/derived-address")

func validateSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return ErrTooManySeeds
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d has %d bytes", ErrSeedTooLong, i, len(seed))
		}
	}
	return nil
}

func onCurve(hash []byte) bool {
	compressed := make([]byte, 0, 33)
	compressed = append(compressed, 0x02)
	compressed = append(compressed, hash...)
	_, err := ethcrypto.DecompressPubkey(compressed)
	return err == nil
}

// CreateAddress derives the address for the given component, bump and seeds.
// It fails with ErrOnCurve when the candidate hash is a valid compressed x
// coordinate.
func CreateAddress(program types.Address, bump uint8, seeds ...[]byte) (types.Address, error) {
	if err := validateSeeds(seeds); err != nil {
		return types.Address{}, err
	}
	parts := make([][]byte, 0, len(seeds)+3)
	parts = append(parts, seeds...)
	parts = append(parts, []byte{bump}, program[:], marker)
	hash := ethcrypto.Keccak256(parts...)
	if onCurve(hash) {
		return types.Address{}, ErrOnCurve
	}
	var addr types.Address
	copy(addr[:], hash[12:])
	return addr, nil
}

// FindAddress returns the canonical derived address and its bump: the highest
// bump for which CreateAddress succeeds.
func FindAddress(program types.Address, seeds ...[]byte) (types.Address, uint8, error) {
	if err := validateSeeds(seeds); err != nil {
		return types.Address{}, 0, err
	}
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(program, uint8(bump), seeds...)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return types.Address{}, 0, err
		}
	}
	return types.Address{}, 0, ErrNoBump
}
