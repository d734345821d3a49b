package auth

import (
	"errors"
	"fmt"
	"sync"

	"rentchain/core/derive"
	"rentchain/core/types"
)

var (
	ErrKeyIssued     = errors.New("auth: program key already issued")
	ErrUnknownSigner = errors.New("auth: signer not issued by this keyring")
)

// Keyring issues exactly one ProgramKey per component identity and later
// recognises the signers minted from those keys.
type Keyring struct {
	mu     sync.RWMutex
	issued map[types.Address]*ProgramKey
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{issued: make(map[types.Address]*ProgramKey)}
}

// Issue hands out the signing capability for program. A second call for the
// same program fails so that only the component wired at start-up holds it.
func (k *Keyring) Issue(program types.Address) (*ProgramKey, error) {
	if program.IsZero() {
		return nil, errors.New("auth: program id required")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.issued[program]; ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyIssued, program.Hex())
	}
	key := &ProgramKey{program: program, ring: k}
	k.issued[program] = key
	return key, nil
}

// Authorizes reports whether signer was minted by a key from this keyring and
// is scoped to exactly account.
func (k *Keyring) Authorizes(signer ProgramSigner, account types.Address) error {
	if k == nil || signer.key == nil {
		return ErrUnknownSigner
	}
	k.mu.RLock()
	issued, ok := k.issued[signer.key.program]
	k.mu.RUnlock()
	if !ok || issued != signer.key {
		return ErrUnknownSigner
	}
	if signer.address != account {
		return fmt.Errorf("auth: signer for %s cannot spend from %s", signer.address.Hex(), account.Hex())
	}
	return nil
}

// ProgramKey is the capability a component uses to sign for its derived
// accounts. It never exposes key material; it only mints signers.
type ProgramKey struct {
	program types.Address
	ring    *Keyring
}

// Program returns the component identity the key was issued for.
func (p *ProgramKey) Program() types.Address {
	if p == nil {
		return types.Address{}
	}
	return p.program
}

// Signer mints the authorization for the account derived from seeds and bump.
func (p *ProgramKey) Signer(bump uint8, seeds ...[]byte) (ProgramSigner, error) {
	if p == nil {
		return ProgramSigner{}, errors.New("auth: nil program key")
	}
	addr, err := derive.CreateAddress(p.program, bump, seeds...)
	if err != nil {
		return ProgramSigner{}, err
	}
	return ProgramSigner{key: p, address: addr}, nil
}

// ProgramSigner authorises spends from a single derived account.
type ProgramSigner struct {
	key     *ProgramKey
	address types.Address
}

// Address returns the derived account the signer is scoped to.
func (s ProgramSigner) Address() types.Address { return s.address }
