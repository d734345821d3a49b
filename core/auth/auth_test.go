package auth

import (
	"errors"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"rentchain/core/derive"
	"rentchain/core/types"
)

func TestVerifyRecoversSigner(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := [32]byte{0x01, 0x02}
	sig, err := Sign(key, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := Verify(digest, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	var want types.Address
	copy(want[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	if !id.Is(want) {
		t.Fatalf("recovered %s, want %s", id.Address().Hex(), want.Hex())
	}
	if _, err := Verify(digest, sig[:10]); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestZeroIdentityIsInvalid(t *testing.T) {
	var id Identity
	if id.Valid() || id.Is(types.Address{}) {
		t.Fatalf("zero identity must not authorize anything")
	}
}

func TestSignersRequire(t *testing.T) {
	a, _ := ethcrypto.GenerateKey()
	b, _ := ethcrypto.GenerateKey()
	digest := [32]byte{0x09}
	sigA, _ := Sign(a, digest)
	sigB, _ := Sign(b, digest)
	set, err := VerifyAll(digest, [][]byte{sigA, sigB, sigA})
	if err != nil {
		t.Fatalf("verify all: %v", err)
	}
	var addrA, addrB, other types.Address
	copy(addrA[:], ethcrypto.PubkeyToAddress(a.PublicKey).Bytes())
	copy(addrB[:], ethcrypto.PubkeyToAddress(b.PublicKey).Bytes())
	other[0] = 0x42
	if !set.Primary().Is(addrA) {
		t.Fatalf("primary must be the first signer")
	}
	if _, err := set.Require(addrB); err != nil {
		t.Fatalf("require b: %v", err)
	}
	if _, err := set.Require(other); !errors.Is(err, ErrMissingSigner) {
		t.Fatalf("expected ErrMissingSigner, got %v", err)
	}
}

func TestKeyringIssuesOnce(t *testing.T) {
	ring := NewKeyring()
	program := types.Address{0x10}
	if _, err := ring.Issue(program); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ring.Issue(program); !errors.Is(err, ErrKeyIssued) {
		t.Fatalf("expected ErrKeyIssued, got %v", err)
	}
}

func TestKeyringAuthorizesOnlyExactDerivation(t *testing.T) {
	ring := NewKeyring()
	program := types.Address{0x20}
	key, err := ring.Issue(program)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	lease := []byte{0x01, 0x02, 0x03}
	account, bump, err := derive.FindAddress(program, []byte("escrow"), lease)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	signer, err := key.Signer(bump, []byte("escrow"), lease)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	if err := ring.Authorizes(signer, account); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := ring.Authorizes(signer, types.Address{0x99}); err == nil {
		t.Fatalf("signer must not authorize a different account")
	}

	foreign, err := NewKeyring().Issue(program)
	if err != nil {
		t.Fatalf("foreign issue: %v", err)
	}
	forged, err := foreign.Signer(bump, []byte("escrow"), lease)
	if err != nil {
		t.Fatalf("forged signer: %v", err)
	}
	if err := ring.Authorizes(forged, account); !errors.Is(err, ErrUnknownSigner) {
		t.Fatalf("expected ErrUnknownSigner for foreign key, got %v", err)
	}
	if err := ring.Authorizes(ProgramSigner{}, account); !errors.Is(err, ErrUnknownSigner) {
		t.Fatalf("expected ErrUnknownSigner for zero signer, got %v", err)
	}
}
