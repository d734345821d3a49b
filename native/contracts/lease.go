package contracts

import "rentchain/core/types"

// LeaseParties is the subset of a lease the custody unit needs to bind an
// escrow to it.
type LeaseParties struct {
	Lease    types.Address
	Listing  types.Address
	Tenant   types.Address
	Landlord types.Address
	Deposit  uint64
	Active   bool
}

// LeaseReader resolves a lease reference. ok is false when no lease exists at
// the address.
type LeaseReader interface {
	LeaseParties(lease types.Address) (LeaseParties, bool, error)
}
