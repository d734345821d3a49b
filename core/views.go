package core

import (
	"rentchain/core/types"
	"rentchain/crypto"
	"rentchain/native/escrow"
	"rentchain/native/registry"
	"rentchain/native/rental"
)

// ListingView is the JSON rendering of a listing.
type ListingView struct {
	Address           string `json:"address"`
	Owner             string `json:"owner"`
	PropertyID        uint64 `json:"propertyId"`
	RentAmount        uint64 `json:"rentAmount"`
	DepositAmount     uint64 `json:"depositAmount"`
	LeaseDuration     int64  `json:"leaseDuration"`
	Status            string `json:"status"`
	Verified          bool   `json:"verified"`
	VerificationLevel uint8  `json:"verificationLevel"`
	MetadataURI       string `json:"metadataUri,omitempty"`
	DocumentHash      string `json:"documentHash,omitempty"`
	TotalRentals      uint32 `json:"totalRentals"`
	SuccessfulRentals uint32 `json:"successfulRentals"`
	Bump              uint8  `json:"bump"`
	CreatedAt         int64  `json:"createdAt"`
}

// LeaseView is the JSON rendering of a lease.
type LeaseView struct {
	Address           string `json:"address"`
	Listing           string `json:"listing"`
	Landlord          string `json:"landlord"`
	Tenant            string `json:"tenant"`
	StartDate         int64  `json:"startDate"`
	EndDate           int64  `json:"endDate"`
	RentAmount        uint64 `json:"rentAmount"`
	DepositAmount     uint64 `json:"depositAmount"`
	PaymentsMade      uint32 `json:"paymentsMade"`
	Active            bool   `json:"active"`
	LastPaymentAt     int64  `json:"lastPaymentAt"`
	LastPaymentAmount uint64 `json:"lastPaymentAmount"`
	TotalPaid         uint64 `json:"totalPaid"`
	PaymentStatus     string `json:"paymentStatus"`
	NextPaymentDue    int64  `json:"nextPaymentDue"`
	Bump              uint8  `json:"bump"`
}

// EscrowView is the JSON rendering of an escrow, optionally with the release
// that settled it.
type EscrowView struct {
	Address    string          `json:"address"`
	Lease      string          `json:"lease"`
	Tenant     string          `json:"tenant"`
	Landlord   string          `json:"landlord"`
	Custody    string          `json:"custody"`
	Amount     uint64          `json:"amount"`
	Status     string          `json:"status"`
	Bump       uint8           `json:"bump"`
	CreatedAt  int64           `json:"createdAt"`
	Settlement *SettlementView `json:"settlement,omitempty"`
}

// SettlementView reports the two legs of a release.
type SettlementView struct {
	Kind           string `json:"kind"`
	TenantAmount   uint64 `json:"tenantAmount"`
	LandlordAmount uint64 `json:"landlordAmount"`
	Reason         string `json:"reason,omitempty"`
	ReleasedAt     int64  `json:"releasedAt"`
}

func addr(a types.Address) string { return crypto.MustEncodeAddress(a) }

func NewListingView(l *registry.Listing) *ListingView {
	if l == nil {
		return nil
	}
	return &ListingView{
		Address:           addr(l.Address),
		Owner:             addr(l.Owner),
		PropertyID:        l.PropertyID,
		RentAmount:        l.RentAmount,
		DepositAmount:     l.DepositAmount,
		LeaseDuration:     l.LeaseDuration,
		Status:            l.Status.String(),
		Verified:          l.Verified,
		VerificationLevel: uint8(l.VerificationLevel),
		MetadataURI:       l.MetadataURI,
		DocumentHash:      l.DocumentHash,
		TotalRentals:      l.TotalRentals,
		SuccessfulRentals: l.SuccessfulRentals,
		Bump:              l.Bump,
		CreatedAt:         l.CreatedAt,
	}
}

func NewLeaseView(l *rental.Lease) *LeaseView {
	if l == nil {
		return nil
	}
	return &LeaseView{
		Address:           addr(l.Address),
		Listing:           addr(l.Listing),
		Landlord:          addr(l.Landlord),
		Tenant:            addr(l.Tenant),
		StartDate:         l.StartDate,
		EndDate:           l.EndDate,
		RentAmount:        l.RentAmount,
		DepositAmount:     l.DepositAmount,
		PaymentsMade:      l.PaymentsMade,
		Active:            l.Active,
		LastPaymentAt:     l.LastPaymentAt,
		LastPaymentAmount: l.LastPaymentAmount,
		TotalPaid:         l.TotalPaid,
		PaymentStatus:     l.PaymentStatus.String(),
		NextPaymentDue:    l.NextPaymentDue(),
		Bump:              l.Bump,
	}
}

func NewEscrowView(e *escrow.Escrow, s *escrow.Settlement) *EscrowView {
	if e == nil {
		return nil
	}
	view := &EscrowView{
		Address:   addr(e.Address),
		Lease:     addr(e.Lease),
		Tenant:    addr(e.Tenant),
		Landlord:  addr(e.Landlord),
		Custody:   addr(e.Custody),
		Amount:    e.Amount,
		Status:    e.Status().String(),
		Bump:      e.Bump,
		CreatedAt: e.CreatedAt,
	}
	if s != nil {
		view.Settlement = &SettlementView{
			Kind:           string(s.Kind),
			TenantAmount:   s.TenantAmount,
			LandlordAmount: s.LandlordAmount,
			Reason:         s.Reason,
			ReleasedAt:     s.ReleasedAt,
		}
	}
	return view
}
