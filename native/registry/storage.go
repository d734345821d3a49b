package registry

import (
	"fmt"

	"rentchain/core/state"
	"rentchain/core/types"
	"rentchain/native/contracts"
)

const listingPrefix = "registry/listing/"

// Storage is the key-value state the Directory persists listings in.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedListing struct {
	Address           [20]byte
	Owner             [20]byte
	PropertyID        uint64
	RentAmount        uint64
	DepositAmount     uint64
	LeaseDuration     uint64
	Status            uint8
	Verified          bool
	VerificationLevel uint8
	MetadataURI       string
	DocumentHash      string
	TotalRentals      uint32
	SuccessfulRentals uint32
	Bump              uint8
	CreatedAt         uint64
}

func listingKey(addr types.Address) []byte {
	return state.Key(listingPrefix, addr[:])
}

func newStoredListing(l *Listing) *storedListing {
	return &storedListing{
		Address:           l.Address,
		Owner:             l.Owner,
		PropertyID:        l.PropertyID,
		RentAmount:        l.RentAmount,
		DepositAmount:     l.DepositAmount,
		LeaseDuration:     uint64(l.LeaseDuration),
		Status:            uint8(l.Status),
		Verified:          l.Verified,
		VerificationLevel: uint8(l.VerificationLevel),
		MetadataURI:       l.MetadataURI,
		DocumentHash:      l.DocumentHash,
		TotalRentals:      l.TotalRentals,
		SuccessfulRentals: l.SuccessfulRentals,
		Bump:              l.Bump,
		CreatedAt:         uint64(l.CreatedAt),
	}
}

func (s *storedListing) toListing() *Listing {
	return &Listing{
		Address:           s.Address,
		Owner:             s.Owner,
		PropertyID:        s.PropertyID,
		RentAmount:        s.RentAmount,
		DepositAmount:     s.DepositAmount,
		LeaseDuration:     int64(s.LeaseDuration),
		Status:            contracts.ListingStatus(s.Status),
		Verified:          s.Verified,
		VerificationLevel: VerificationLevel(s.VerificationLevel),
		MetadataURI:       s.MetadataURI,
		DocumentHash:      s.DocumentHash,
		TotalRentals:      s.TotalRentals,
		SuccessfulRentals: s.SuccessfulRentals,
		Bump:              s.Bump,
		CreatedAt:         int64(s.CreatedAt),
	}
}

func getListing(st Storage, addr types.Address) (*Listing, bool, error) {
	var stored storedListing
	ok, err := st.KVGet(listingKey(addr), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("registry: load listing: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return stored.toListing(), true, nil
}

func putListing(st Storage, l *Listing) error {
	if l.LeaseDuration < 0 || l.CreatedAt < 0 {
		return fmt.Errorf("registry: negative duration or timestamp")
	}
	return st.KVPut(listingKey(l.Address), newStoredListing(l))
}
