// Package registry implements the Property Listing Directory: owners publish
// rental listings at addresses derived from (owner, property id), and the
// Directory is the only component that writes listing records.
package registry

import (
	"errors"
	"fmt"
	"time"

	"rentchain/core/auth"
	"rentchain/core/derive"
	"rentchain/core/events"
	"rentchain/core/types"
	"rentchain/native/common"
	"rentchain/native/contracts"
)

var errNilState = errors.New("registry engine: state not configured")

// Engine applies listing transitions against the configured state.
type Engine struct {
	program types.Address
	state   Storage
	emitter events.Emitter
	pauses  common.PauseView
	nowFn   func() int64
}

var _ contracts.ListingUpdater = (*Engine)(nil)

// NewEngine creates a Directory engine deriving addresses under program.
func NewEngine(program types.Address) *Engine {
	return &Engine{
		program: program,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// Program returns the Directory's component identity.
func (e *Engine) Program() types.Address { return e.program }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetEmitter configures the event emitter. Passing nil discards events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause view consulted by UpdateListing.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(listingEvent{evt: evt})
}

// ListingAddress derives the address of owner's listing for propertyID.
func (e *Engine) ListingAddress(owner types.Address, propertyID uint64) (types.Address, uint8, error) {
	return derive.FindAddress(e.program, []byte(ListingSeed), owner[:], propertyIDSeed(propertyID))
}

// CreateListingParams carries the owner-chosen listing terms.
type CreateListingParams struct {
	PropertyID    uint64
	RentAmount    uint64
	DepositAmount uint64
	LeaseDuration int64
	MetadataURI   string
}

func validateTerms(rent, deposit uint64, duration int64) error {
	if rent == 0 {
		return ErrInvalidRentAmount
	}
	if deposit == 0 {
		return ErrInvalidDepositAmount
	}
	if duration <= 0 {
		return ErrInvalidLeaseDuration
	}
	return nil
}

// CreateListing publishes a new Available listing owned by owner.
func (e *Engine) CreateListing(owner auth.Identity, params CreateListingParams) (*Listing, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if !owner.Valid() {
		return nil, ErrUnauthorized
	}
	if err := validateTerms(params.RentAmount, params.DepositAmount, params.LeaseDuration); err != nil {
		return nil, err
	}
	if len(params.MetadataURI) > MaxMetadataURILength {
		return nil, ErrMetadataURITooLong
	}
	addr, bump, err := e.ListingAddress(owner.Address(), params.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("registry: derive listing address: %w", err)
	}
	if _, exists, err := getListing(e.state, addr); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrListingExists
	}
	listing := &Listing{
		Address:       addr,
		Owner:         owner.Address(),
		PropertyID:    params.PropertyID,
		RentAmount:    params.RentAmount,
		DepositAmount: params.DepositAmount,
		LeaseDuration: params.LeaseDuration,
		Status:        contracts.ListingAvailable,
		MetadataURI:   params.MetadataURI,
		Bump:          bump,
		CreatedAt:     e.nowFn(),
	}
	if err := putListing(e.state, listing); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(listing))
	return listing.Clone(), nil
}

// Listing returns the listing stored at addr.
func (e *Engine) Listing(addr types.Address) (*Listing, error) {
	if e.state == nil {
		return nil, errNilState
	}
	listing, ok, err := getListing(e.state, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

func (e *Engine) loadOwned(addr types.Address, authority auth.Identity) (*Listing, error) {
	listing, err := e.Listing(addr)
	if err != nil {
		return nil, err
	}
	if !authority.Is(listing.Owner) {
		return nil, ErrUnauthorized
	}
	return listing, nil
}

// UpdateListing applies a sparse patch on behalf of req.Authority, which must
// own the listing. It serves both owners and sibling components forwarding an
// owner's identity.
func (e *Engine) UpdateListing(req contracts.UpdateListingRequest) (contracts.UpdateListingResponse, error) {
	if err := common.Guard(e.pauses, common.ModuleRegistry); err != nil {
		return contracts.UpdateListingResponse{}, err
	}
	if req.Patch.Empty() {
		return contracts.UpdateListingResponse{}, ErrEmptyPatch
	}
	listing, err := e.loadOwned(req.Listing, req.Authority)
	if err != nil {
		return contracts.UpdateListingResponse{}, err
	}
	p := req.Patch
	if p.RentAmount != nil && *p.RentAmount == 0 {
		return contracts.UpdateListingResponse{}, ErrInvalidRentAmount
	}
	if p.DepositAmount != nil && *p.DepositAmount == 0 {
		return contracts.UpdateListingResponse{}, ErrInvalidDepositAmount
	}
	if p.LeaseDuration != nil && *p.LeaseDuration <= 0 {
		return contracts.UpdateListingResponse{}, ErrInvalidLeaseDuration
	}
	if p.Status != nil && !p.Status.Valid() {
		return contracts.UpdateListingResponse{}, ErrInvalidStatus
	}
	if p.MetadataURI != nil && len(*p.MetadataURI) > MaxMetadataURILength {
		return contracts.UpdateListingResponse{}, ErrMetadataURITooLong
	}

	if p.RentAmount != nil {
		listing.RentAmount = *p.RentAmount
	}
	if p.DepositAmount != nil {
		listing.DepositAmount = *p.DepositAmount
	}
	if p.LeaseDuration != nil {
		listing.LeaseDuration = *p.LeaseDuration
	}
	if p.Status != nil {
		listing.Status = *p.Status
	}
	if p.MetadataURI != nil {
		listing.MetadataURI = *p.MetadataURI
	}
	if err := putListing(e.state, listing); err != nil {
		return contracts.UpdateListingResponse{}, err
	}
	applied := p.Fields()
	e.emit(NewUpdatedEvent(listing, applied))
	return contracts.UpdateListingResponse{
		Listing: listing.Address,
		Owner:   listing.Owner,
		Status:  listing.Status,
		Applied: applied,
	}, nil
}

// DeactivateListing withdraws the listing from the market.
func (e *Engine) DeactivateListing(owner auth.Identity, addr types.Address) (*Listing, error) {
	listing, err := e.loadOwned(addr, owner)
	if err != nil {
		return nil, err
	}
	listing.Status = contracts.ListingDeactivated
	if err := putListing(e.state, listing); err != nil {
		return nil, err
	}
	e.emit(NewDeactivatedEvent(listing))
	return listing, nil
}

// Verify records the owner's verification evidence for the listing. Level
// VerificationNone clears the verified flag.
func (e *Engine) Verify(owner auth.Identity, addr types.Address, level VerificationLevel, documentHash string) (*Listing, error) {
	if !level.Valid() {
		return nil, ErrInvalidVerificationLevel
	}
	if len(documentHash) > MaxDocumentHashLength {
		return nil, ErrDocumentHashTooLong
	}
	listing, err := e.loadOwned(addr, owner)
	if err != nil {
		return nil, err
	}
	listing.VerificationLevel = level
	listing.Verified = level > VerificationNone
	listing.DocumentHash = documentHash
	if err := putListing(e.state, listing); err != nil {
		return nil, err
	}
	e.emit(NewVerifiedEvent(listing))
	return listing, nil
}
