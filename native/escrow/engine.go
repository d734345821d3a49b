// Package escrow implements the Escrow Custody Unit: one security deposit per
// lease, held at an address derived from the lease and released exactly once
// along one of three mutually exclusive paths.
package escrow

import (
	"errors"
	"fmt"
	"time"

	"rentchain/core/auth"
	"rentchain/core/derive"
	"rentchain/core/events"
	"rentchain/core/types"
	"rentchain/native/contracts"
)

var (
	errNilState  = errors.New("escrow engine: state not configured")
	errNilKey    = errors.New("escrow engine: program key not configured")
	errNilBank   = errors.New("escrow engine: transfer services not configured")
	errNilLeases = errors.New("escrow engine: lease reader not configured")
)

// Transfers is the pair of value services the unit moves deposits through:
// token transfers signed by the tenant on deposit and native transfers signed
// by the unit's program signer on release.
type Transfers interface {
	TransferToken(owner auth.Identity, to types.Address, amount uint64) error
	TransferNative(signer auth.ProgramSigner, to types.Address, amount uint64) error
}

// Engine applies escrow transitions against the configured state.
type Engine struct {
	key     *auth.ProgramKey
	state   Storage
	bank    Transfers
	leases  contracts.LeaseReader
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a custody engine that signs for its derived accounts with
// key.
func NewEngine(key *auth.ProgramKey) *Engine {
	return &Engine{
		key:     key,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// Program returns the unit's component identity.
func (e *Engine) Program() types.Address { return e.key.Program() }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetTransfers configures the value services.
func (e *Engine) SetTransfers(bank Transfers) { e.bank = bank }

// SetLeases configures the lease lookup used to bind deposits to leases.
func (e *Engine) SetLeases(leases contracts.LeaseReader) { e.leases = leases }

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
	e.emitter.Emit(escrowEvent{evt: evt})
}

// EscrowAddress derives the escrow address for lease.
func (e *Engine) EscrowAddress(lease types.Address) (types.Address, uint8, error) {
	if e.key == nil {
		return types.Address{}, 0, errNilKey
	}
	return derive.FindAddress(e.key.Program(), []byte(EscrowSeed), lease[:])
}

func (e *Engine) ready() error {
	switch {
	case e.state == nil:
		return errNilState
	case e.key == nil:
		return errNilKey
	case e.bank == nil:
		return errNilBank
	}
	return nil
}

// Escrow returns the escrow held for lease. A lease without a deposit yields
// ErrEscrowNotInitialized.
func (e *Engine) Escrow(lease types.Address) (*Escrow, error) {
	if e.state == nil {
		return nil, errNilState
	}
	addr, _, err := e.EscrowAddress(lease)
	if err != nil {
		return nil, err
	}
	esc, ok, err := getEscrow(e.state, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEscrowNotInitialized
	}
	return esc, nil
}

// Deposit takes amount from the tenant into custody for lease. The lease must
// name tenant and landlord as its parties.
func (e *Engine) Deposit(tenant auth.Identity, landlord, lease types.Address, amount uint64) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.leases == nil {
		return nil, errNilLeases
	}
	if !tenant.Valid() {
		return nil, ErrUnauthorized
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	addr, bump, err := e.EscrowAddress(lease)
	if err != nil {
		return nil, fmt.Errorf("escrow: derive address: %w", err)
	}
	if _, exists, err := getEscrow(e.state, addr); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrEscrowAlreadyInitialized
	}
	parties, ok, err := e.leases.LeaseParties(lease)
	if err != nil {
		return nil, err
	}
	if !ok || parties.Tenant != tenant.Address() || parties.Landlord != landlord {
		return nil, ErrLeaseMismatch
	}

	esc := &Escrow{
		Address:     addr,
		Lease:       lease,
		Tenant:      tenant.Address(),
		Landlord:    landlord,
		Custody:     addr,
		Amount:      amount,
		Initialized: true,
		Bump:        bump,
		CreatedAt:   e.nowFn(),
	}
	if err := e.bank.TransferToken(tenant, esc.Custody, amount); err != nil {
		return nil, fmt.Errorf("escrow: deposit transfer: %w", err)
	}
	if err := putEscrow(e.state, esc); err != nil {
		return nil, err
	}
	e.emit(NewDepositedEvent(esc))
	return esc.Clone(), nil
}

// loadFunded returns the escrow for lease if it is Funded and landlord is its
// landlord.
func (e *Engine) loadFunded(landlord auth.Identity, lease types.Address) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	esc, err := e.Escrow(lease)
	if err != nil {
		return nil, err
	}
	switch esc.Status() {
	case EscrowUninitialized:
		return nil, ErrEscrowNotInitialized
	case EscrowReleased:
		return nil, ErrEscrowAlreadyReleased
	}
	if !landlord.Is(esc.Landlord) {
		return nil, ErrUnauthorized
	}
	return esc, nil
}

// settle pays out both legs from custody and marks the escrow released. The
// legs must add up to the deposited amount.
func (e *Engine) settle(esc *Escrow, s Settlement) (*Escrow, Settlement, error) {
	if s.TenantAmount+s.LandlordAmount != esc.Amount || s.TenantAmount > esc.Amount {
		return nil, Settlement{}, fmt.Errorf("escrow: settlement does not cover deposit")
	}
	signer, err := e.key.Signer(esc.Bump, []byte(EscrowSeed), esc.Lease[:])
	if err != nil {
		return nil, Settlement{}, err
	}
	if err := e.bank.TransferNative(signer, esc.Landlord, s.LandlordAmount); err != nil {
		return nil, Settlement{}, fmt.Errorf("escrow: landlord transfer: %w", err)
	}
	if err := e.bank.TransferNative(signer, esc.Tenant, s.TenantAmount); err != nil {
		return nil, Settlement{}, fmt.Errorf("escrow: tenant transfer: %w", err)
	}
	esc.Released = true
	if err := putEscrow(e.state, esc); err != nil {
		return nil, Settlement{}, err
	}
	s.ReleasedAt = e.nowFn()
	e.emit(NewReleasedEvent(esc, s))
	return esc.Clone(), s, nil
}

// ReleaseToTenant returns the whole deposit to the tenant.
func (e *Engine) ReleaseToTenant(landlord auth.Identity, lease types.Address) (*Escrow, Settlement, error) {
	esc, err := e.loadFunded(landlord, lease)
	if err != nil {
		return nil, Settlement{}, err
	}
	return e.settle(esc, Settlement{Kind: ReleaseToTenant, TenantAmount: esc.Amount})
}

// ReleaseToLandlord pays amount to the landlord. Any remainder goes back to
// the tenant in the same operation.
func (e *Engine) ReleaseToLandlord(landlord auth.Identity, lease types.Address, amount uint64) (*Escrow, Settlement, error) {
	esc, err := e.loadFunded(landlord, lease)
	if err != nil {
		return nil, Settlement{}, err
	}
	if amount > esc.Amount {
		return nil, Settlement{}, ErrInsufficientFunds
	}
	return e.settle(esc, Settlement{
		Kind:           ReleaseToLandlord,
		LandlordAmount: amount,
		TenantAmount:   esc.Amount - amount,
	})
}

// PartialDeduct keeps landlordAmount for the landlord and refunds the rest to
// the tenant. The landlord's share must be strictly less than the deposit.
func (e *Engine) PartialDeduct(landlord auth.Identity, lease types.Address, landlordAmount uint64, reason string) (*Escrow, Settlement, error) {
	esc, err := e.loadFunded(landlord, lease)
	if err != nil {
		return nil, Settlement{}, err
	}
	if landlordAmount >= esc.Amount {
		return nil, Settlement{}, ErrInvalidAmount
	}
	if len(reason) > MaxReasonLength {
		return nil, Settlement{}, ErrReasonTooLong
	}
	return e.settle(esc, Settlement{
		Kind:           ReleasePartial,
		LandlordAmount: landlordAmount,
		TenantAmount:   esc.Amount - landlordAmount,
		Reason:         reason,
	})
}
