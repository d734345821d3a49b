// Package auth models who may move value or mutate records on the ledger.
//
// Human parties are represented by Identity values, which can only be obtained
// by verifying a secp256k1 signature. Components authorise spends from their
// derived accounts with ProgramSigner values, which can only be minted from the
// ProgramKey a Keyring issued to that component.
package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"rentchain/core/types"
)

var (
	ErrInvalidSignature = errors.New("auth: invalid signature")
	ErrMissingSigner    = errors.New("auth: required signer missing")
)

// Identity is an address whose control was proven by a signature.
type Identity struct {
	address  types.Address
	verified bool
}

// Verify recovers the signer of digest. The returned Identity is the only
// authorization proof the ledger components accept for human parties.
func Verify(digest [32]byte, sig []byte) (Identity, error) {
	if len(sig) != ethcrypto.SignatureLength {
		return Identity{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, ethcrypto.SignatureLength, len(sig))
	}
	pub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var addr types.Address
	copy(addr[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return Identity{address: addr, verified: true}, nil
}

// Sign produces a signature over digest that Verify accepts.
func Sign(key *ecdsa.PrivateKey, digest [32]byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("auth: nil key")
	}
	return ethcrypto.Sign(digest[:], key)
}

// Address returns the proven address. The zero address is returned for an
// unverified identity.
func (id Identity) Address() types.Address {
	if !id.verified {
		return types.Address{}
	}
	return id.address
}

// Valid reports whether the identity came from a verified signature.
func (id Identity) Valid() bool { return id.verified && !id.address.IsZero() }

// Is reports whether the identity proves control of addr.
func (id Identity) Is(addr types.Address) bool {
	return id.Valid() && id.address == addr
}

// Signers is the set of identities proven by a transaction's signatures.
type Signers struct {
	ordered []Identity
	byAddr  map[types.Address]Identity
}

// VerifyAll recovers one identity per signature over digest.
func VerifyAll(digest [32]byte, sigs [][]byte) (*Signers, error) {
	set := &Signers{byAddr: make(map[types.Address]Identity, len(sigs))}
	for i, sig := range sigs {
		id, err := Verify(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		if _, dup := set.byAddr[id.address]; dup {
			continue
		}
		set.ordered = append(set.ordered, id)
		set.byAddr[id.address] = id
	}
	if len(set.ordered) == 0 {
		return nil, fmt.Errorf("%w: no signatures", ErrMissingSigner)
	}
	return set, nil
}

// Primary returns the first signer, which owns the transaction nonce.
func (s *Signers) Primary() Identity {
	if s == nil || len(s.ordered) == 0 {
		return Identity{}
	}
	return s.ordered[0]
}

// Require returns the identity for addr or ErrMissingSigner.
func (s *Signers) Require(addr types.Address) (Identity, error) {
	if s != nil {
		if id, ok := s.byAddr[addr]; ok {
			return id, nil
		}
	}
	return Identity{}, fmt.Errorf("%w: %s", ErrMissingSigner, addr.Hex())
}
