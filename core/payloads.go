package core

import "rentchain/native/contracts"

// Transaction methods accepted by Submit.
const (
	MethodListingCreate         = "listing.create"
	MethodListingUpdate         = "listing.update"
	MethodListingDeactivate     = "listing.deactivate"
	MethodListingVerify         = "listing.verify"
	MethodLeaseCreate           = "lease.create"
	MethodLeasePay              = "lease.pay"
	MethodLeaseEnd              = "lease.end"
	MethodLeaseDispute          = "lease.dispute"
	MethodEscrowDeposit         = "escrow.deposit"
	MethodEscrowReleaseTenant   = "escrow.release_tenant"
	MethodEscrowReleaseLandlord = "escrow.release_landlord"
	MethodEscrowDeduct          = "escrow.deduct"
)

// Payloads carry addresses in bech32 or 0x-hex form. The acting party is
// always a signer of the transaction, never a payload field.

type ListingCreatePayload struct {
	PropertyID    uint64 `json:"propertyId"`
	RentAmount    uint64 `json:"rentAmount"`
	DepositAmount uint64 `json:"depositAmount"`
	LeaseDuration int64  `json:"leaseDuration"`
	MetadataURI   string `json:"metadataUri,omitempty"`
}

type ListingUpdatePayload struct {
	Listing string                 `json:"listing"`
	Patch   contracts.ListingPatch `json:"patch"`
}

type ListingRefPayload struct {
	Listing string `json:"listing"`
}

type ListingVerifyPayload struct {
	Listing      string `json:"listing"`
	Level        uint8  `json:"level"`
	DocumentHash string `json:"documentHash,omitempty"`
}

// LeaseCreatePayload must be signed by both tenant and landlord; the first
// signature pays the nonce.
type LeaseCreatePayload struct {
	Listing       string `json:"listing"`
	Tenant        string `json:"tenant"`
	Landlord      string `json:"landlord"`
	RentAmount    uint64 `json:"rentAmount"`
	DepositAmount uint64 `json:"depositAmount"`
	LeaseDuration int64  `json:"leaseDuration"`
}

type LeaseRefPayload struct {
	Lease string `json:"lease"`
}

type LeaseDisputePayload struct {
	Lease  string `json:"lease"`
	Reason string `json:"reason"`
}

type EscrowDepositPayload struct {
	Lease    string `json:"lease"`
	Landlord string `json:"landlord"`
	Amount   uint64 `json:"amount"`
}

type EscrowReleasePayload struct {
	Lease string `json:"lease"`
}

type EscrowReleaseLandlordPayload struct {
	Lease  string `json:"lease"`
	Amount uint64 `json:"amount"`
}

type EscrowDeductPayload struct {
	Lease          string `json:"lease"`
	LandlordAmount uint64 `json:"landlordAmount"`
	Reason         string `json:"reason"`
}
