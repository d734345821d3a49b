// Package bank implements the two transfer services the rental components
// consume: token transfers authorised by a human identity and native transfers
// authorised by a component's derived-account signer. Both move the same
// single-denomination balance.
package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"rentchain/core/auth"
	"rentchain/core/events"
	"rentchain/core/types"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrUnauthorized        = errors.New("bank: unauthorized transfer")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
	errNilState            = errors.New("bank: state not configured")
)

// State is the account storage the bank operates on.
type State interface {
	GetAccount(addr types.Address) (*types.Account, error)
	PutAccount(addr types.Address, account *types.Account) error
}

// Bank moves balances between accounts.
type Bank struct {
	state   State
	keyring *auth.Keyring
	emitter events.Emitter
}

// New returns a bank over state. keyring recognises component signers; a nil
// keyring rejects every native transfer.
func New(state State, keyring *auth.Keyring) *Bank {
	return &Bank{state: state, keyring: keyring, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the sink for transfer events.
func (b *Bank) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	b.emitter = emitter
}

// Balance returns the balance held by addr.
func (b *Bank) Balance(addr types.Address) (*big.Int, error) {
	if b == nil || b.state == nil {
		return nil, errNilState
	}
	acc, err := b.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

// TransferToken moves amount from the owner's account to to.
func (b *Bank) TransferToken(owner auth.Identity, to types.Address, amount uint64) error {
	if !owner.Valid() {
		return fmt.Errorf("%w: owner signature required", ErrUnauthorized)
	}
	return b.transfer(events.TransferToken, owner.Address(), to, amount)
}

// TransferNative moves amount out of a component-derived account. The signer
// must have been minted by this bank's keyring for exactly that account.
func (b *Bank) TransferNative(signer auth.ProgramSigner, to types.Address, amount uint64) error {
	if b == nil {
		return errNilState
	}
	from := signer.Address()
	if err := b.keyring.Authorizes(signer, from); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return b.transfer(events.TransferNative, from, to, amount)
}

func (b *Bank) transfer(kind string, from, to types.Address, amount uint64) error {
	if err := b.move(from, to, amount); err != nil {
		return err
	}
	if amount > 0 && from != to && b.emitter != nil {
		b.emitter.Emit(events.Transfer{Kind: kind, From: from, To: to, Amount: amount})
	}
	return nil
}

// Credit adds amount to addr without a source account. It is used for genesis
// allocations only.
func (b *Bank) Credit(addr types.Address, amount *big.Int) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("bank: credit amount must be positive")
	}
	acc, err := b.state.GetAccount(addr)
	if err != nil {
		return err
	}
	current, err := toUint256(acc.Balance)
	if err != nil {
		return err
	}
	delta, err := toUint256(amount)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(current, delta)
	if overflow {
		return ErrBalanceOverflow
	}
	acc.Balance = sum.ToBig()
	return b.state.PutAccount(addr, acc)
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return uint256.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("bank: negative balance")
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrBalanceOverflow
	}
	return out, nil
}

func (b *Bank) move(from, to types.Address, amount uint64) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if to.IsZero() {
		return fmt.Errorf("bank: recipient required")
	}
	if amount == 0 {
		return nil
	}
	fromAcc, err := b.state.GetAccount(from)
	if err != nil {
		return err
	}
	fromBal, err := toUint256(fromAcc.Balance)
	if err != nil {
		return err
	}
	amt := uint256.NewInt(amount)
	if fromBal.Lt(amt) {
		return fmt.Errorf("%w: %s holds %s, needs %d", ErrInsufficientBalance, from.Hex(), fromBal.Dec(), amount)
	}
	if from == to {
		return nil
	}
	toAcc, err := b.state.GetAccount(to)
	if err != nil {
		return err
	}
	toBal, err := toUint256(toAcc.Balance)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toBal, amt)
	if overflow {
		return ErrBalanceOverflow
	}
	fromAcc.Balance = new(uint256.Int).Sub(fromBal, amt).ToBig()
	toAcc.Balance = credited.ToBig()
	if err := b.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return b.state.PutAccount(to, toAcc)
}
