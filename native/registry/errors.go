package registry

import "errors"

var (
	ErrInvalidRentAmount        = errors.New("registry: rent amount must be greater than 0")
	ErrInvalidDepositAmount     = errors.New("registry: deposit amount must be greater than 0")
	ErrInvalidLeaseDuration     = errors.New("registry: lease duration must be greater than 0")
	ErrMetadataURITooLong       = errors.New("registry: metadata uri is too long (max 200 characters)")
	ErrDocumentHashTooLong      = errors.New("registry: document hash is too long (max 100 characters)")
	ErrInvalidVerificationLevel = errors.New("registry: invalid verification level")
	ErrInvalidStatus            = errors.New("registry: invalid listing status")
	ErrEmptyPatch               = errors.New("registry: update names no fields")
	ErrListingExists            = errors.New("registry: listing already exists")
	ErrListingNotFound          = errors.New("registry: listing not found")
	ErrUnauthorized             = errors.New("registry: caller does not own the listing")
)
