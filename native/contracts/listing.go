// Package contracts holds the request/response types that the rental
// components exchange in cross-component calls. Both sides compile against
// these definitions, so a caller can only build requests the callee decodes.
package contracts

import (
	"fmt"

	"rentchain/core/auth"
	"rentchain/core/types"
)

// ListingStatus is the availability state of a listing.
type ListingStatus uint8

const (
	ListingAvailable ListingStatus = iota
	ListingRented
	ListingDeactivated
)

// Valid reports whether the status is one of the defined values.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingAvailable, ListingRented, ListingDeactivated:
		return true
	default:
		return false
	}
}

func (s ListingStatus) String() string {
	switch s {
	case ListingAvailable:
		return "available"
	case ListingRented:
		return "rented"
	case ListingDeactivated:
		return "deactivated"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseListingStatus maps the textual form back to a status.
func ParseListingStatus(s string) (ListingStatus, error) {
	switch s {
	case "available":
		return ListingAvailable, nil
	case "rented":
		return ListingRented, nil
	case "deactivated":
		return ListingDeactivated, nil
	default:
		return 0, fmt.Errorf("unknown listing status %q", s)
	}
}

// ListingPatch names exactly the listing fields to overwrite. Nil fields are
// left untouched.
type ListingPatch struct {
	RentAmount    *uint64        `json:"rentAmount,omitempty"`
	DepositAmount *uint64        `json:"depositAmount,omitempty"`
	LeaseDuration *int64         `json:"leaseDuration,omitempty"`
	Status        *ListingStatus `json:"status,omitempty"`
	MetadataURI   *string        `json:"metadataUri,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ListingPatch) Empty() bool {
	return p.RentAmount == nil && p.DepositAmount == nil && p.LeaseDuration == nil && p.Status == nil && p.MetadataURI == nil
}

// Fields lists the names of the populated fields.
func (p ListingPatch) Fields() []string {
	var out []string
	if p.RentAmount != nil {
		out = append(out, "rentAmount")
	}
	if p.DepositAmount != nil {
		out = append(out, "depositAmount")
	}
	if p.LeaseDuration != nil {
		out = append(out, "leaseDuration")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.MetadataURI != nil {
		out = append(out, "metadataUri")
	}
	return out
}

// StatusPatch builds a patch that only sets the status.
func StatusPatch(status ListingStatus) ListingPatch {
	s := status
	return ListingPatch{Status: &s}
}

// UpdateListingRequest asks the Directory to apply Patch to Listing on behalf
// of Authority. The Directory checks that Authority owns the listing; it does
// not check which component forwarded the request.
type UpdateListingRequest struct {
	Listing   types.Address
	Authority auth.Identity
	Patch     ListingPatch
}

// UpdateListingResponse reports the listing state after the patch.
type UpdateListingResponse struct {
	Listing types.Address
	Owner   types.Address
	Status  ListingStatus
	Applied []string
}

// ListingUpdater is the Directory's status-mutation entry point.
type ListingUpdater interface {
	UpdateListing(req UpdateListingRequest) (UpdateListingResponse, error)
}
