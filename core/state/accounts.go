package state

import (
	"fmt"
	"math/big"

	"rentchain/core/types"
)

const accountPrefix = "account:"

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

func accountKey(addr types.Address) []byte {
	return Key(accountPrefix, addr[:])
}

// GetAccount loads the account stored under addr. Unknown addresses yield a
// zero-balance account.
func (m *Manager) GetAccount(addr types.Address) (*types.Account, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("address must not be empty")
	}
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	account := &types.Account{Balance: big.NewInt(0)}
	if ok {
		account.Nonce = stored.Nonce
		if stored.Balance != nil {
			account.Balance = new(big.Int).Set(stored.Balance)
		}
	}
	return account, nil
}

// PutAccount persists account under addr.
func (m *Manager) PutAccount(addr types.Address, account *types.Account) error {
	if addr.IsZero() {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("nil account")
	}
	balance := big.NewInt(0)
	if account.Balance != nil {
		if account.Balance.Sign() < 0 {
			return fmt.Errorf("account balance must not be negative")
		}
		balance = new(big.Int).Set(account.Balance)
	}
	return m.KVPut(accountKey(addr), &storedAccount{Nonce: account.Nonce, Balance: balance})
}

// ConsumeNonce checks that nonce is the next expected value for addr and
// advances the stored counter.
func (m *Manager) ConsumeNonce(addr types.Address, nonce uint64) error {
	account, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	if account.Nonce != nonce {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, account.Nonce, nonce)
	}
	account.Nonce++
	return m.PutAccount(addr, account)
}
