// core/genesis/loader.go
package genesis

import (
	"fmt"
	"math/big"

	"rentchain/core/types"
)

// Crediter receives genesis balances.
type Crediter interface {
	Credit(addr types.Address, amount *big.Int) error
}

// Marker records whether genesis already ran against a store.
type Marker interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var appliedKey = []byte("genesis/applied")

type appliedRecord struct {
	Timestamp uint64
	Accounts  uint64
}

// Apply credits every allocation once. A second call against the same store
// is a no-op and reports applied=false.
func Apply(spec *GenesisSpec, marker Marker, credit Crediter) (applied bool, err error) {
	if spec == nil {
		return false, fmt.Errorf("genesis spec must not be nil")
	}
	var rec appliedRecord
	ok, err := marker.KVGet(appliedKey, &rec)
	if err != nil {
		return false, fmt.Errorf("read genesis marker: %w", err)
	}
	if ok {
		return false, nil
	}
	allocs := spec.Allocations()
	for _, a := range allocs {
		if err := credit.Credit(a.Address, a.Amount); err != nil {
			return false, fmt.Errorf("credit %s: %w", a.Address.Hex(), err)
		}
	}
	ts := spec.GenesisTimestamp().Unix()
	if ts < 0 {
		ts = 0
	}
	if err := marker.KVPut(appliedKey, &appliedRecord{Timestamp: uint64(ts), Accounts: uint64(len(allocs))}); err != nil {
		return false, fmt.Errorf("write genesis marker: %w", err)
	}
	return true, nil
}
