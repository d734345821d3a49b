package escrow

import (
	"fmt"

	"rentchain/core/state"
	"rentchain/core/types"
)

const escrowPrefix = "escrow/record/"

// Storage is the key-value state the custody unit persists escrows in.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedEscrow struct {
	Address     [20]byte
	Lease       [20]byte
	Tenant      [20]byte
	Landlord    [20]byte
	Custody     [20]byte
	Amount      uint64
	Initialized bool
	Released    bool
	Bump        uint8
	CreatedAt   uint64
}

func escrowKey(addr types.Address) []byte {
	return state.Key(escrowPrefix, addr[:])
}

func newStoredEscrow(e *Escrow) (*storedEscrow, error) {
	if e.CreatedAt < 0 {
		return nil, fmt.Errorf("escrow: negative timestamp")
	}
	return &storedEscrow{
		Address:     e.Address,
		Lease:       e.Lease,
		Tenant:      e.Tenant,
		Landlord:    e.Landlord,
		Custody:     e.Custody,
		Amount:      e.Amount,
		Initialized: e.Initialized,
		Released:    e.Released,
		Bump:        e.Bump,
		CreatedAt:   uint64(e.CreatedAt),
	}, nil
}

func (s *storedEscrow) toEscrow() *Escrow {
	return &Escrow{
		Address:     s.Address,
		Lease:       s.Lease,
		Tenant:      s.Tenant,
		Landlord:    s.Landlord,
		Custody:     s.Custody,
		Amount:      s.Amount,
		Initialized: s.Initialized,
		Released:    s.Released,
		Bump:        s.Bump,
		CreatedAt:   int64(s.CreatedAt),
	}
}

func getEscrow(st Storage, addr types.Address) (*Escrow, bool, error) {
	var stored storedEscrow
	ok, err := st.KVGet(escrowKey(addr), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("escrow: load record: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return stored.toEscrow(), true, nil
}

func putEscrow(st Storage, e *Escrow) error {
	stored, err := newStoredEscrow(e)
	if err != nil {
		return err
	}
	return st.KVPut(escrowKey(e.Address), stored)
}
