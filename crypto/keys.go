package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"

	"rentchain/core/types"
)

// AddressPrefix is the bech32 human-readable part used for rentchain
// addresses.
const AddressPrefix = "rent"

// EncodeAddress renders addr in its bech32 text form.
func EncodeAddress(addr types.Address) (string, error) {
	conv, err := bech32.ConvertBits(addr[:], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(AddressPrefix, conv)
}

// MustEncodeAddress is EncodeAddress for call sites holding a well-formed
// address.
func MustEncodeAddress(addr types.Address) string {
	encoded, err := EncodeAddress(addr)
	if err != nil {
		panic(err)
	}
	return encoded
}

// DecodeAddress parses a bech32 address with the rent prefix.
func DecodeAddress(addrStr string) (types.Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return types.Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AddressPrefix {
		return types.Address{}, fmt.Errorf("unsupported address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return types.Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return types.BytesToAddress(conv)
}

// ParseAddress accepts either the bech32 or the 0x-hex form of an address.
func ParseAddress(s string) (types.Address, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		return types.HexToAddress(trimmed)
	}
	return DecodeAddress(trimmed)
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address returns the ledger address controlled by the key.
func (k *PublicKey) Address() types.Address {
	var addr types.Address
	copy(addr[:], crypto.PubkeyToAddress(*k.PublicKey).Bytes())
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
