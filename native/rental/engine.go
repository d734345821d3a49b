// Package rental implements the Lease Lifecycle Tracker. Leases live at
// addresses derived from (listing, tenant); creating one flips the listing to
// Rented through the Directory's update entry point.
package rental

import (
	"errors"
	"fmt"
	"math"
	"time"

	"rentchain/core/auth"
	"rentchain/core/derive"
	"rentchain/core/events"
	"rentchain/core/types"
	"rentchain/native/contracts"
)

var (
	errNilState     = errors.New("rental engine: state not configured")
	errNilDirectory = errors.New("rental engine: listing directory not configured")
	errNilTokens    = errors.New("rental engine: token service not configured")
)

// TokenTransferer moves tokens out of an account whose owner signed for it.
type TokenTransferer interface {
	TransferToken(owner auth.Identity, to types.Address, amount uint64) error
}

// Engine applies lease transitions against the configured state.
type Engine struct {
	program   types.Address
	state     Storage
	directory contracts.ListingUpdater
	tokens    TokenTransferer
	emitter   events.Emitter
	nowFn     func() int64
}

var _ contracts.LeaseReader = (*Engine)(nil)

// NewEngine creates a Tracker engine deriving addresses under program.
func NewEngine(program types.Address) *Engine {
	return &Engine{
		program: program,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// Program returns the Tracker's component identity.
func (e *Engine) Program() types.Address { return e.program }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetDirectory configures the listing entry point invoked on lease creation.
func (e *Engine) SetDirectory(directory contracts.ListingUpdater) { e.directory = directory }

// SetTokens configures the token service used for rent payments.
func (e *Engine) SetTokens(tokens TokenTransferer) { e.tokens = tokens }

// SetEmitter configures the event emitter. Passing nil discards events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

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
	e.emitter.Emit(leaseEvent{evt: evt})
}

// LeaseAddress derives the address of tenant's lease on listing.
func (e *Engine) LeaseAddress(listing, tenant types.Address) (types.Address, uint8, error) {
	return derive.FindAddress(e.program, []byte(LeaseSeed), listing[:], tenant[:])
}

// CreateLeaseParams carries the agreed lease terms.
type CreateLeaseParams struct {
	Listing       types.Address
	RentAmount    uint64
	DepositAmount uint64
	LeaseDuration int64
}

// CreateLease starts a lease between tenant and landlord. Both must have
// signed; the landlord's identity is forwarded to the Directory, which only
// accepts it if the landlord owns the listing.
func (e *Engine) CreateLease(tenant, landlord auth.Identity, params CreateLeaseParams) (*Lease, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if e.directory == nil {
		return nil, errNilDirectory
	}
	if !tenant.Valid() || !landlord.Valid() {
		return nil, ErrUnauthorized
	}
	if params.RentAmount == 0 {
		return nil, ErrInvalidRentAmount
	}
	if params.DepositAmount == 0 {
		return nil, ErrInvalidDepositAmount
	}
	if params.LeaseDuration <= 0 {
		return nil, ErrInvalidLeaseDuration
	}
	now := e.nowFn()
	if now > math.MaxInt64-params.LeaseDuration {
		return nil, ErrDurationOverflow
	}

	addr, bump, err := e.LeaseAddress(params.Listing, tenant.Address())
	if err != nil {
		return nil, fmt.Errorf("rental: derive lease address: %w", err)
	}
	if _, exists, err := getLease(e.state, addr); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrLeaseAlreadyExists
	}

	_, err = e.directory.UpdateListing(contracts.UpdateListingRequest{
		Listing:   params.Listing,
		Authority: landlord,
		Patch:     contracts.StatusPatch(contracts.ListingRented),
	})
	if err != nil {
		return nil, fmt.Errorf("rental: mark listing rented: %w", err)
	}

	lease := &Lease{
		Address:       addr,
		Listing:       params.Listing,
		Landlord:      landlord.Address(),
		Tenant:        tenant.Address(),
		StartDate:     now,
		EndDate:       now + params.LeaseDuration,
		RentAmount:    params.RentAmount,
		DepositAmount: params.DepositAmount,
		Active:        true,
		PaymentStatus: PaymentCurrent,
		Bump:          bump,
	}
	if err := putLease(e.state, lease); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(lease))
	return lease.Clone(), nil
}

// Lease returns the lease stored at addr.
func (e *Engine) Lease(addr types.Address) (*Lease, error) {
	if e.state == nil {
		return nil, errNilState
	}
	lease, ok, err := getLease(e.state, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLeaseNotFound
	}
	return lease, nil
}

// LeaseParties implements contracts.LeaseReader.
func (e *Engine) LeaseParties(addr types.Address) (contracts.LeaseParties, bool, error) {
	if e.state == nil {
		return contracts.LeaseParties{}, false, errNilState
	}
	lease, ok, err := getLease(e.state, addr)
	if err != nil || !ok {
		return contracts.LeaseParties{}, ok, err
	}
	return contracts.LeaseParties{
		Lease:    lease.Address,
		Listing:  lease.Listing,
		Tenant:   lease.Tenant,
		Landlord: lease.Landlord,
		Deposit:  lease.DepositAmount,
		Active:   lease.Active,
	}, true, nil
}

// PayRent transfers one period's rent from the tenant to the landlord. A
// payment is accepted while the lease is active, not past its end date and at
// least PaymentInterval seconds after the previous payment.
func (e *Engine) PayRent(tenant auth.Identity, addr types.Address) (*Lease, error) {
	if e.tokens == nil {
		return nil, errNilTokens
	}
	lease, err := e.Lease(addr)
	if err != nil {
		return nil, err
	}
	if !tenant.Is(lease.Tenant) {
		return nil, ErrUnauthorized
	}
	if !lease.Active {
		return nil, ErrLeaseNotActive
	}
	now := e.nowFn()
	if now > lease.EndDate {
		return nil, ErrLeaseExpired
	}
	if lease.LastPaymentAt > 0 && now-lease.LastPaymentAt < PaymentInterval {
		return nil, ErrPaymentNotDue
	}
	if lease.TotalPaid > math.MaxUint64-lease.RentAmount {
		return nil, fmt.Errorf("rental: total paid overflows")
	}

	if err := e.tokens.TransferToken(tenant, lease.Landlord, lease.RentAmount); err != nil {
		return nil, fmt.Errorf("rental: rent transfer: %w", err)
	}

	lease.PaymentsMade++
	lease.LastPaymentAt = now
	lease.LastPaymentAmount = lease.RentAmount
	lease.TotalPaid += lease.RentAmount
	lease.PaymentStatus = PaymentCurrent
	if err := putLease(e.state, lease); err != nil {
		return nil, err
	}
	e.emit(NewRentPaidEvent(lease))
	return lease, nil
}

// EndLease marks an active lease inactive. The listing status is left as is.
func (e *Engine) EndLease(landlord auth.Identity, addr types.Address) (*Lease, error) {
	lease, err := e.Lease(addr)
	if err != nil {
		return nil, err
	}
	if !landlord.Is(lease.Landlord) {
		return nil, ErrUnauthorized
	}
	if !lease.Active {
		return nil, ErrLeaseNotActive
	}
	lease.Active = false
	if err := putLease(e.state, lease); err != nil {
		return nil, err
	}
	e.emit(NewEndedEvent(lease, e.nowFn()))
	return lease, nil
}

// DisputeLease records a dispute against an active lease. Any signed party
// may raise one; the lease itself is not modified.
func (e *Engine) DisputeLease(initiator auth.Identity, addr types.Address, reason string) error {
	if !initiator.Valid() {
		return ErrUnauthorized
	}
	if len(reason) > MaxReasonLength {
		return ErrReasonTooLong
	}
	lease, err := e.Lease(addr)
	if err != nil {
		return err
	}
	if !lease.Active {
		return ErrLeaseNotActive
	}
	e.emit(NewDisputedEvent(lease, initiator.Address(), reason, e.nowFn()))
	return nil
}
