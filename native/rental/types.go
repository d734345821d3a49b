package rental

import "rentchain/core/types"

const (
	// LeaseSeed is the derivation tag for lease addresses.
	LeaseSeed = "rental"

	// PaymentInterval is the minimum number of seconds between rent payments.
	PaymentInterval int64 = 2_592_000

	MaxReasonLength = 500
)

// PaymentStatus is the lease's payment standing.
type PaymentStatus uint8

const (
	PaymentCurrent PaymentStatus = iota
	PaymentLate
	PaymentDefaulted
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentCurrent:
		return "current"
	case PaymentLate:
		return "late"
	case PaymentDefaulted:
		return "defaulted"
	default:
		return "unknown"
	}
}

// Lease binds a tenant to a listing for a fixed term.
type Lease struct {
	Address           types.Address
	Listing           types.Address
	Landlord          types.Address
	Tenant            types.Address
	StartDate         int64
	EndDate           int64
	RentAmount        uint64
	DepositAmount     uint64
	PaymentsMade      uint32
	Active            bool
	LastPaymentAt     int64
	LastPaymentAmount uint64
	TotalPaid         uint64
	PaymentStatus     PaymentStatus
	Bump              uint8
}

// Clone returns a copy of the lease.
func (l *Lease) Clone() *Lease {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// NextPaymentDue returns the earliest time the next rent payment is accepted.
// A lease without payments accepts one immediately.
func (l *Lease) NextPaymentDue() int64 {
	if l.LastPaymentAt == 0 {
		return l.StartDate
	}
	return l.LastPaymentAt + PaymentInterval
}
