// Package authtest mints signature-backed identities for tests.
package authtest

import (
	"crypto/ecdsa"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"rentchain/core/auth"
	"rentchain/core/types"
)

// Party is a generated key together with the identity it proves.
type Party struct {
	Key      *ecdsa.PrivateKey
	Identity auth.Identity
}

// Address returns the party's address.
func (p Party) Address() types.Address { return p.Identity.Address() }

// NewParty generates a fresh key and verifies a signature with it.
func NewParty(t testing.TB) Party {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := ethcrypto.Keccak256Hash([]byte("authtest"))
	sig, err := auth.Sign(key, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := auth.Verify(digest, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return Party{Key: key, Identity: id}
}

// Program returns a deterministic component identity for tests.
func Program(tag string) types.Address {
	var addr types.Address
	copy(addr[:], ethcrypto.Keccak256([]byte("program/" + tag))[12:])
	return addr
}
