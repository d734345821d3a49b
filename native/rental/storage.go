package rental

import (
	"fmt"

	"rentchain/core/state"
	"rentchain/core/types"
)

const leasePrefix = "rental/lease/"

// Storage is the key-value state the Tracker persists leases in.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedLease struct {
	Address           [20]byte
	Listing           [20]byte
	Landlord          [20]byte
	Tenant            [20]byte
	StartDate         uint64
	EndDate           uint64
	RentAmount        uint64
	DepositAmount     uint64
	PaymentsMade      uint32
	Active            bool
	LastPaymentAt     uint64
	LastPaymentAmount uint64
	TotalPaid         uint64
	PaymentStatus     uint8
	Bump              uint8
}

func leaseKey(addr types.Address) []byte {
	return state.Key(leasePrefix, addr[:])
}

func newStoredLease(l *Lease) (*storedLease, error) {
	if l.StartDate < 0 || l.EndDate < 0 || l.LastPaymentAt < 0 {
		return nil, fmt.Errorf("rental: negative timestamp")
	}
	return &storedLease{
		Address:           l.Address,
		Listing:           l.Listing,
		Landlord:          l.Landlord,
		Tenant:            l.Tenant,
		StartDate:         uint64(l.StartDate),
		EndDate:           uint64(l.EndDate),
		RentAmount:        l.RentAmount,
		DepositAmount:     l.DepositAmount,
		PaymentsMade:      l.PaymentsMade,
		Active:            l.Active,
		LastPaymentAt:     uint64(l.LastPaymentAt),
		LastPaymentAmount: l.LastPaymentAmount,
		TotalPaid:         l.TotalPaid,
		PaymentStatus:     uint8(l.PaymentStatus),
		Bump:              l.Bump,
	}, nil
}

func (s *storedLease) toLease() *Lease {
	return &Lease{
		Address:           s.Address,
		Listing:           s.Listing,
		Landlord:          s.Landlord,
		Tenant:            s.Tenant,
		StartDate:         int64(s.StartDate),
		EndDate:           int64(s.EndDate),
		RentAmount:        s.RentAmount,
		DepositAmount:     s.DepositAmount,
		PaymentsMade:      s.PaymentsMade,
		Active:            s.Active,
		LastPaymentAt:     int64(s.LastPaymentAt),
		LastPaymentAmount: s.LastPaymentAmount,
		TotalPaid:         s.TotalPaid,
		PaymentStatus:     PaymentStatus(s.PaymentStatus),
		Bump:              s.Bump,
	}
}

func getLease(st Storage, addr types.Address) (*Lease, bool, error) {
	var stored storedLease
	ok, err := st.KVGet(leaseKey(addr), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("rental: load lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return stored.toLease(), true, nil
}

func putLease(st Storage, l *Lease) error {
	stored, err := newStoredLease(l)
	if err != nil {
		return err
	}
	return st.KVPut(leaseKey(l.Address), stored)
}
