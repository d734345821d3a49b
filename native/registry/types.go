package registry

import (
	"encoding/binary"

	"rentchain/core/types"
	"rentchain/native/contracts"
)

const (
	// ListingSeed is the derivation tag for listing addresses.
	ListingSeed = "property"

	MaxMetadataURILength  = 200
	MaxDocumentHashLength = 100
)

// VerificationLevel grades how thoroughly a listing was verified.
type VerificationLevel uint8

const (
	VerificationNone VerificationLevel = iota
	VerificationBasic
	VerificationFull
)

// Valid reports whether the level is defined.
func (v VerificationLevel) Valid() bool { return v <= VerificationFull }

// Listing is a rental offer published by its owner.
type Listing struct {
	Address           types.Address
	Owner             types.Address
	PropertyID        uint64
	RentAmount        uint64
	DepositAmount     uint64
	LeaseDuration     int64
	Status            contracts.ListingStatus
	Verified          bool
	VerificationLevel VerificationLevel
	MetadataURI       string
	DocumentHash      string
	TotalRentals      uint32
	SuccessfulRentals uint32
	Bump              uint8
	CreatedAt         int64
}

// Clone returns a copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// Available mirrors Status for callers that only care about rentability.
func (l *Listing) Available() bool {
	return l != nil && l.Status == contracts.ListingAvailable
}

func propertyIDSeed(id uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	return buf[:]
}
