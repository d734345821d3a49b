package escrow

import "rentchain/core/types"

const (
	// EscrowSeed is the derivation tag for escrow addresses.
	EscrowSeed = "escrow"

	MaxReasonLength = 500
)

// EscrowStatus is the lifecycle state of a lease's escrow.
type EscrowStatus uint8

const (
	EscrowUninitialized EscrowStatus = iota
	EscrowFunded
	EscrowReleased
)

func (s EscrowStatus) String() string {
	switch s {
	case EscrowUninitialized:
		return "uninitialized"
	case EscrowFunded:
		return "funded"
	case EscrowReleased:
		return "released"
	default:
		return "unknown"
	}
}

// ReleaseKind names which of the mutually exclusive release paths settled an
// escrow.
type ReleaseKind string

const (
	ReleaseToTenant   ReleaseKind = "tenant"
	ReleaseToLandlord ReleaseKind = "landlord"
	ReleasePartial    ReleaseKind = "partial"
)

// Escrow holds a lease's security deposit. The custody account is the
// escrow's own derived address, so only this unit's program signer can move
// the funds out.
type Escrow struct {
	Address     types.Address
	Lease       types.Address
	Tenant      types.Address
	Landlord    types.Address
	Custody     types.Address
	Amount      uint64
	Initialized bool
	Released    bool
	Bump        uint8
	CreatedAt   int64
}

// Status derives the lifecycle state from the flags.
func (e *Escrow) Status() EscrowStatus {
	switch {
	case e == nil || !e.Initialized:
		return EscrowUninitialized
	case e.Released:
		return EscrowReleased
	default:
		return EscrowFunded
	}
}

// Clone returns a copy of the escrow.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// Settlement reports how a release split the deposit.
type Settlement struct {
	Kind           ReleaseKind
	TenantAmount   uint64
	LandlordAmount uint64
	Reason         string
	ReleasedAt     int64
}
