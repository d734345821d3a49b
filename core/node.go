package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"rentchain/core/auth"
	"rentchain/core/genesis"
	"rentchain/core/ledger"
	"rentchain/core/state"
	"rentchain/core/types"
	"rentchain/native/bank"
	"rentchain/native/common"
	"rentchain/native/contracts"
	"rentchain/native/escrow"
	"rentchain/native/registry"
	"rentchain/native/rental"
	"rentchain/observability/metrics"
)

// Programs holds the component identities the three rental components derive
// their accounts under.
type Programs struct {
	Directory types.Address
	Tracker   types.Address
	Custody   types.Address
}

func (p Programs) validate() error {
	if p.Directory.IsZero() || p.Tracker.IsZero() || p.Custody.IsZero() {
		return errors.New("core: every program identity must be set")
	}
	if p.Directory == p.Tracker || p.Directory == p.Custody || p.Tracker == p.Custody {
		return errors.New("core: program identities must be distinct")
	}
	return nil
}

// NodeConfig configures a Node.
type NodeConfig struct {
	ChainID  uint64
	Programs Programs
	Pauses   common.PauseView
	Metrics  *metrics.RentalMetrics
	Logger   *slog.Logger
}

// Node is the central controller, wiring the rental components to the ledger.
type Node struct {
	ledger     *ledger.Ledger
	keyring    *auth.Keyring
	custodyKey *auth.ProgramKey
	programs   Programs
	chainID    uint64
	pauses     common.PauseView
	metrics    *metrics.RentalMetrics
	logger     *slog.Logger
}

// NewNode issues the custody unit's program key and returns a node executing
// against l.
func NewNode(l *ledger.Ledger, cfg NodeConfig) (*Node, error) {
	if l == nil {
		return nil, errors.New("core: ledger required")
	}
	if err := cfg.Programs.validate(); err != nil {
		return nil, err
	}
	keyring := auth.NewKeyring()
	custodyKey, err := keyring.Issue(cfg.Programs.Custody)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Node{
		ledger:     l,
		keyring:    keyring,
		custodyKey: custodyKey,
		programs:   cfg.Programs,
		chainID:    cfg.ChainID,
		pauses:     cfg.Pauses,
		metrics:    cfg.Metrics,
		logger:     logger,
	}, nil
}

// ChainID returns the chain id transactions must be signed for.
func (n *Node) ChainID() uint64 { return n.chainID }

// Programs returns the configured component identities.
func (n *Node) Programs() Programs { return n.programs }

// components is one operation's set of engines bound to the same state.
type components struct {
	bank      *bank.Bank
	directory *registry.Engine
	tracker   *rental.Engine
	custody   *escrow.Engine
}

func (n *Node) bind(tx *ledger.Tx) *components {
	b := bank.New(tx.State, n.keyring)
	b.SetEmitter(tx)

	directory := registry.NewEngine(n.programs.Directory)
	directory.SetState(tx.State)
	directory.SetEmitter(tx)
	directory.SetPauses(n.pauses)
	directory.SetNowFunc(tx.Now)

	tracker := rental.NewEngine(n.programs.Tracker)
	tracker.SetState(tx.State)
	tracker.SetDirectory(directory)
	tracker.SetTokens(b)
	tracker.SetEmitter(tx)
	tracker.SetNowFunc(tx.Now)

	custody := escrow.NewEngine(n.custodyKey)
	custody.SetState(tx.State)
	custody.SetTransfers(b)
	custody.SetLeases(tracker)
	custody.SetEmitter(tx)
	custody.SetNowFunc(tx.Now)

	return &components{bank: b, directory: directory, tracker: tracker, custody: custody}
}

func (n *Node) bindView(m *state.Manager) *components {
	directory := registry.NewEngine(n.programs.Directory)
	directory.SetState(m)
	tracker := rental.NewEngine(n.programs.Tracker)
	tracker.SetState(m)
	custody := escrow.NewEngine(n.custodyKey)
	custody.SetState(m)
	return &components{bank: bank.New(m, nil), directory: directory, tracker: tracker, custody: custody}
}

func (n *Node) execute(ctx context.Context, module, op string, fn func(*ledger.Tx, *components) error) error {
	if err := common.Guard(n.pauses, module); err != nil {
		return err
	}
	return n.ledger.Execute(ctx, op, func(tx *ledger.Tx) error {
		return fn(tx, n.bind(tx))
	})
}

// ApplyGenesis credits the genesis allocations once.
func (n *Node) ApplyGenesis(ctx context.Context, spec *genesis.GenesisSpec) (bool, error) {
	if id, ok := spec.ChainIDValue(); ok && id != n.chainID {
		return false, fmt.Errorf("core: genesis chain id %d does not match node chain id %d", id, n.chainID)
	}
	var applied bool
	err := n.ledger.Execute(ctx, "genesis", func(tx *ledger.Tx) error {
		var err error
		applied, err = genesis.Apply(spec, tx.State, bank.New(tx.State, nil))
		return err
	})
	if err == nil && applied {
		n.logger.Info("genesis applied", slog.Int("accounts", len(spec.Allocations())))
	}
	return applied, err
}

// --- Directory ---

func (n *Node) CreateListing(ctx context.Context, owner auth.Identity, params registry.CreateListingParams) (*registry.Listing, error) {
	var out *registry.Listing
	err := n.execute(ctx, common.ModuleRegistry, "listing.create", func(_ *ledger.Tx, c *components) error {
		var err error
		out, err = c.directory.CreateListing(owner, params)
		return err
	})
	return out, err
}

func (n *Node) UpdateListing(ctx context.Context, req contracts.UpdateListingRequest) (*registry.Listing, error) {
	var out *registry.Listing
	err := n.execute(ctx, common.ModuleRegistry, "listing.update", func(_ *ledger.Tx, c *components) error {
		resp, err := c.directory.UpdateListing(req)
		if err != nil {
			return err
		}
		out, err = c.directory.Listing(resp.Listing)
		return err
	})
	return out, err
}

func (n *Node) DeactivateListing(ctx context.Context, owner auth.Identity, listing types.Address) (*registry.Listing, error) {
	var out *registry.Listing
	err := n.execute(ctx, common.ModuleRegistry, "listing.deactivate", func(_ *ledger.Tx, c *components) error {
		var err error
		out, err = c.directory.DeactivateListing(owner, listing)
		return err
	})
	return out, err
}

func (n *Node) VerifyListing(ctx context.Context, owner auth.Identity, listing types.Address, level registry.VerificationLevel, documentHash string) (*registry.Listing, error) {
	var out *registry.Listing
	err := n.execute(ctx, common.ModuleRegistry, "listing.verify", func(_ *ledger.Tx, c *components) error {
		var err error
		out, err = c.directory.Verify(owner, listing, level, documentHash)
		return err
	})
	return out, err
}

// --- Tracker ---

func (n *Node) CreateLease(ctx context.Context, tenant, landlord auth.Identity, params rental.CreateLeaseParams) (*rental.Lease, error) {
	var out *rental.Lease
	err := n.execute(ctx, common.ModuleRental, "lease.create", func(_ *ledger.Tx, c *components) error {
		var err error
		out, err = c.tracker.CreateLease(tenant, landlord, params)
		return err
	})
	return out, err
}

func (n *Node) PayRent(ctx context.Context, tenant auth.Identity, lease types.Address) (*rental.Lease, error) {
	var out *rental.Lease
	err := n.execute(ctx, common.ModuleRental, "lease.pay", func(_ *ledger.Tx, c *components) error {
		var err error
		out, err = c.tracker.PayRent(tenant, lease)
		return err
	})
	if err == nil {
		n.metrics.AddRentPaid(out.LastPaymentAmount)
	}
	return out, err
}

func (n *Node) EndLease(ctx context.Context, landlord auth.Identity, lease types.Address) (*rental.Lease, error) {
	var out *rental.Lease
	err := n.execute(ctx, common.ModuleRental, "lease.end", func(_ *ledger.Tx, c *components) error {
		var err error
		out, err = c.tracker.EndLease(landlord, lease)
		return err
	})
	return out, err
}

func (n *Node) DisputeLease(ctx context.Context, initiator auth.Identity, lease types.Address, reason string) error {
	return n.execute(ctx, common.ModuleRental, "lease.dispute", func(_ *ledger.Tx, c *components) error {
		return c.tracker.DisputeLease(initiator, lease, reason)
	})
}

// --- Custody ---

func (n *Node) DepositEscrow(ctx context.Context, tenant auth.Identity, landlord, lease types.Address, amount uint64) (*escrow.Escrow, error) {
	var out *escrow.Escrow
	err := n.execute(ctx, common.ModuleEscrow, "escrow.deposit", func(_ *ledger.Tx, c *components) error {
		var err error
		out, err = c.custody.Deposit(tenant, landlord, lease, amount)
		return err
	})
	if err == nil {
		n.metrics.AddEscrowDeposited(out.Amount)
	}
	return out, err
}

func (n *Node) ReleaseToTenant(ctx context.Context, landlord auth.Identity, lease types.Address) (*escrow.Escrow, escrow.Settlement, error) {
	return n.release(ctx, "escrow.release_tenant", func(c *components) (*escrow.Escrow, escrow.Settlement, error) {
		return c.custody.ReleaseToTenant(landlord, lease)
	})
}

func (n *Node) ReleaseToLandlord(ctx context.Context, landlord auth.Identity, lease types.Address, amount uint64) (*escrow.Escrow, escrow.Settlement, error) {
	return n.release(ctx, "escrow.release_landlord", func(c *components) (*escrow.Escrow, escrow.Settlement, error) {
		return c.custody.ReleaseToLandlord(landlord, lease, amount)
	})
}

func (n *Node) PartialDeduct(ctx context.Context, landlord auth.Identity, lease types.Address, landlordAmount uint64, reason string) (*escrow.Escrow, escrow.Settlement, error) {
	return n.release(ctx, "escrow.deduct", func(c *components) (*escrow.Escrow, escrow.Settlement, error) {
		return c.custody.PartialDeduct(landlord, lease, landlordAmount, reason)
	})
}

func (n *Node) release(ctx context.Context, op string, fn func(*components) (*escrow.Escrow, escrow.Settlement, error)) (*escrow.Escrow, escrow.Settlement, error) {
	var (
		out        *escrow.Escrow
		settlement escrow.Settlement
	)
	err := n.execute(ctx, common.ModuleEscrow, op, func(_ *ledger.Tx, c *components) error {
		var err error
		out, settlement, err = fn(c)
		return err
	})
	if err != nil {
		return nil, escrow.Settlement{}, err
	}
	n.metrics.AddEscrowReleased("tenant", settlement.TenantAmount)
	n.metrics.AddEscrowReleased("landlord", settlement.LandlordAmount)
	return out, settlement, nil
}

// --- Reads ---

func (n *Node) view(ctx context.Context, fn func(*components) error) error {
	return n.ledger.View(ctx, func(m *state.Manager) error {
		return fn(n.bindView(m))
	})
}

func (n *Node) Listing(ctx context.Context, addr types.Address) (*registry.Listing, error) {
	var out *registry.Listing
	err := n.view(ctx, func(c *components) error {
		var err error
		out, err = c.directory.Listing(addr)
		return err
	})
	return out, err
}

func (n *Node) Lease(ctx context.Context, addr types.Address) (*rental.Lease, error) {
	var out *rental.Lease
	err := n.view(ctx, func(c *components) error {
		var err error
		out, err = c.tracker.Lease(addr)
		return err
	})
	return out, err
}

// Escrow returns the escrow held for lease.
func (n *Node) Escrow(ctx context.Context, lease types.Address) (*escrow.Escrow, error) {
	var out *escrow.Escrow
	err := n.view(ctx, func(c *components) error {
		var err error
		out, err = c.custody.Escrow(lease)
		return err
	})
	return out, err
}

func (n *Node) Balance(ctx context.Context, addr types.Address) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(c *components) error {
		var err error
		out, err = c.bank.Balance(addr)
		return err
	})
	return out, err
}

// Nonce returns the next nonce addr must sign with.
func (n *Node) Nonce(ctx context.Context, addr types.Address) (uint64, error) {
	var out uint64
	err := n.ledger.View(ctx, func(m *state.Manager) error {
		acc, err := m.GetAccount(addr)
		if err != nil {
			return err
		}
		out = acc.Nonce
		return nil
	})
	return out, err
}

// ListingAddress derives where owner's listing for propertyID lives.
func (n *Node) ListingAddress(owner types.Address, propertyID uint64) (types.Address, error) {
	addr, _, err := registry.NewEngine(n.programs.Directory).ListingAddress(owner, propertyID)
	return addr, err
}

// LeaseAddress derives where tenant's lease on listing lives.
func (n *Node) LeaseAddress(listing, tenant types.Address) (types.Address, error) {
	addr, _, err := rental.NewEngine(n.programs.Tracker).LeaseAddress(listing, tenant)
	return addr, err
}

// EscrowAddress derives the custody account of lease's escrow.
func (n *Node) EscrowAddress(lease types.Address) (types.Address, error) {
	addr, _, err := escrow.NewEngine(n.custodyKey).EscrowAddress(lease)
	return addr, err
}
