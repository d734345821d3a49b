package core

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"rentchain/core/auth"
	"rentchain/core/auth/authtest"
	"rentchain/core/events"
	"rentchain/core/genesis"
	"rentchain/core/ledger"
	"rentchain/core/state"
	"rentchain/core/types"
	"rentchain/crypto"
	"rentchain/native/common"
	"rentchain/native/contracts"
	"rentchain/native/escrow"
	"rentchain/native/registry"
	"rentchain/native/rental"
	"rentchain/storage"
)

const testChainID uint64 = 7

type testNet struct {
	node     *Node
	sink     *events.Buffer
	now      int64
	landlord authtest.Party
	tenant   authtest.Party
}

func newTestNet(t *testing.T, pauses common.PauseView) *testNet {
	t.Helper()
	net := &testNet{
		sink:     &events.Buffer{},
		now:      1_700_000_000,
		landlord: authtest.NewParty(t),
		tenant:   authtest.NewParty(t),
	}
	l := ledger.New(storage.NewMemDB(),
		ledger.WithClock(ledger.ClockFunc(func() int64 { return net.now })),
		ledger.WithEmitter(net.sink))
	node, err := NewNode(l, NodeConfig{
		ChainID: testChainID,
		Programs: Programs{
			Directory: authtest.Program("registry"),
			Tracker:   authtest.Program("rental"),
			Custody:   authtest.Program("escrow"),
		},
		Pauses: pauses,
	})
	require.NoError(t, err)
	net.node = node

	doc := "genesisTime: 2024-01-01T00:00:00Z\nalloc:\n" +
		"  " + crypto.MustEncodeAddress(net.tenant.Address()) + ": \"50000\"\n"
	spec, err := genesis.ParseGenesisSpec([]byte(doc))
	require.NoError(t, err)
	applied, err := node.ApplyGenesis(context.Background(), spec)
	require.NoError(t, err)
	require.True(t, applied)
	return net
}

func (n *testNet) submit(t *testing.T, method string, payload interface{}, signers ...authtest.Party) (*Receipt, error) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	nonce, err := n.node.Nonce(context.Background(), signers[0].Address())
	require.NoError(t, err)
	tx := &types.Transaction{ChainID: testChainID, Method: method, Nonce: nonce, Payload: raw}
	for _, s := range signers {
		require.NoError(t, tx.Sign(s.Key))
	}
	return n.node.Submit(context.Background(), tx)
}

func (n *testNet) balance(t *testing.T, addr types.Address) int64 {
	t.Helper()
	bal, err := n.node.Balance(context.Background(), addr)
	require.NoError(t, err)
	return bal.Int64()
}

func enc(a types.Address) string { return crypto.MustEncodeAddress(a) }

// setupLease publishes a listing, signs a lease and funds its escrow.
func (n *testNet) setupLease(t *testing.T) (listing, lease types.Address) {
	t.Helper()
	receipt, err := n.submit(t, MethodListingCreate, ListingCreatePayload{
		PropertyID: 1, RentAmount: 1_000, DepositAmount: 10_000, LeaseDuration: 31_536_000,
	}, n.landlord)
	require.NoError(t, err)
	listingView := receipt.Result.(*ListingView)
	listing, err = crypto.ParseAddress(listingView.Address)
	require.NoError(t, err)

	receipt, err = n.submit(t, MethodLeaseCreate, LeaseCreatePayload{
		Listing:       listingView.Address,
		Tenant:        enc(n.tenant.Address()),
		Landlord:      enc(n.landlord.Address()),
		RentAmount:    1_000,
		DepositAmount: 10_000,
		LeaseDuration: 31_536_000,
	}, n.tenant, n.landlord)
	require.NoError(t, err)
	lease, err = crypto.ParseAddress(receipt.Result.(*LeaseView).Address)
	require.NoError(t, err)

	_, err = n.submit(t, MethodEscrowDeposit, EscrowDepositPayload{
		Lease: enc(lease), Landlord: enc(n.landlord.Address()), Amount: 10_000,
	}, n.tenant)
	require.NoError(t, err)
	return listing, lease
}

func TestRentalLifecycleReleaseToLandlord(t *testing.T) {
	net := newTestNet(t, nil)
	ctx := context.Background()
	listing, lease := net.setupLease(t)

	l, err := net.node.Listing(ctx, listing)
	require.NoError(t, err)
	require.Equal(t, contracts.ListingRented, l.Status)

	custody, err := net.node.EscrowAddress(lease)
	require.NoError(t, err)
	require.EqualValues(t, 10_000, net.balance(t, custody))
	require.EqualValues(t, 40_000, net.balance(t, net.tenant.Address()))

	receipt, err := net.submit(t, MethodEscrowReleaseLandlord, EscrowReleaseLandlordPayload{Lease: enc(lease), Amount: 3_000}, net.landlord)
	require.NoError(t, err)
	view := receipt.Result.(*EscrowView)
	require.Equal(t, "released", view.Status)
	require.EqualValues(t, 3_000, view.Settlement.LandlordAmount)
	require.EqualValues(t, 7_000, view.Settlement.TenantAmount)

	require.EqualValues(t, 3_000, net.balance(t, net.landlord.Address()))
	require.EqualValues(t, 47_000, net.balance(t, net.tenant.Address()))
	require.Zero(t, net.balance(t, custody))

	_, err = net.submit(t, MethodEscrowReleaseTenant, EscrowReleasePayload{Lease: enc(lease)}, net.landlord)
	require.ErrorIs(t, err, escrow.ErrEscrowAlreadyReleased)
}

func TestRentPaymentsAndLeaseEnd(t *testing.T) {
	net := newTestNet(t, nil)
	ctx := context.Background()
	listing, lease := net.setupLease(t)

	_, err := net.submit(t, MethodLeasePay, LeaseRefPayload{Lease: enc(lease)}, net.tenant)
	require.NoError(t, err)
	_, err = net.submit(t, MethodLeasePay, LeaseRefPayload{Lease: enc(lease)}, net.tenant)
	require.ErrorIs(t, err, rental.ErrPaymentNotDue)

	net.now += rental.PaymentInterval
	_, err = net.submit(t, MethodLeasePay, LeaseRefPayload{Lease: enc(lease)}, net.tenant)
	require.NoError(t, err)
	require.EqualValues(t, 2_000, net.balance(t, net.landlord.Address()))

	_, err = net.submit(t, MethodLeaseDispute, LeaseDisputePayload{Lease: enc(lease), Reason: "heating broken"}, net.tenant)
	require.NoError(t, err)

	receipt, err := net.submit(t, MethodLeaseEnd, LeaseRefPayload{Lease: enc(lease)}, net.landlord)
	require.NoError(t, err)
	require.False(t, receipt.Result.(*LeaseView).Active)

	l, err := net.node.Listing(ctx, listing)
	require.NoError(t, err)
	require.Equal(t, contracts.ListingRented, l.Status)

	status := contracts.ListingAvailable
	_, err = net.submit(t, MethodListingUpdate, ListingUpdatePayload{
		Listing: enc(listing), Patch: contracts.ListingPatch{Status: &status},
	}, net.landlord)
	require.NoError(t, err)
	l, err = net.node.Listing(ctx, listing)
	require.NoError(t, err)
	require.Equal(t, contracts.ListingAvailable, l.Status)

	var kinds []string
	for _, evt := range net.sink.Events() {
		kinds = append(kinds, evt.EventType())
	}
	require.Contains(t, kinds, rental.EventTypeLeaseDisputed)
	require.Contains(t, kinds, rental.EventTypeLeaseEnded)
}

func TestLeaseCreateRequiresListingOwner(t *testing.T) {
	net := newTestNet(t, nil)
	impostor := authtest.NewParty(t)
	receipt, err := net.submit(t, MethodListingCreate, ListingCreatePayload{
		PropertyID: 9, RentAmount: 1, DepositAmount: 1, LeaseDuration: 10,
	}, net.landlord)
	require.NoError(t, err)
	listing := receipt.Result.(*ListingView).Address

	_, err = net.submit(t, MethodLeaseCreate, LeaseCreatePayload{
		Listing: listing, Tenant: enc(net.tenant.Address()), Landlord: enc(impostor.Address()),
		RentAmount: 1, DepositAmount: 1, LeaseDuration: 10,
	}, net.tenant, impostor)
	require.ErrorIs(t, err, registry.ErrUnauthorized)

	_, err = net.submit(t, MethodLeaseCreate, LeaseCreatePayload{
		Listing: listing, Tenant: enc(net.tenant.Address()), Landlord: enc(net.landlord.Address()),
		RentAmount: 1, DepositAmount: 1, LeaseDuration: 10,
	}, net.tenant)
	require.ErrorIs(t, err, auth.ErrMissingSigner)

	addr, err := crypto.ParseAddress(listing)
	require.NoError(t, err)
	l, err := net.node.Listing(context.Background(), addr)
	require.NoError(t, err)
	require.Equal(t, contracts.ListingAvailable, l.Status)
}

func TestSubmitNonceHandling(t *testing.T) {
	net := newTestNet(t, nil)
	raw, err := json.Marshal(ListingCreatePayload{PropertyID: 1, RentAmount: 1, DepositAmount: 1, LeaseDuration: 1})
	require.NoError(t, err)
	tx := &types.Transaction{ChainID: testChainID, Method: MethodListingCreate, Nonce: 0, Payload: raw}
	require.NoError(t, tx.Sign(net.landlord.Key))

	_, err = net.node.Submit(context.Background(), tx)
	require.NoError(t, err)
	_, err = net.node.Submit(context.Background(), tx)
	require.ErrorIs(t, err, state.ErrNonceMismatch)

	_, err = net.submit(t, MethodListingCreate, ListingCreatePayload{PropertyID: 1, RentAmount: 1, DepositAmount: 1, LeaseDuration: 1}, net.landlord)
	require.ErrorIs(t, err, registry.ErrListingExists)
	nonce, err := net.node.Nonce(context.Background(), net.landlord.Address())
	require.NoError(t, err)
	require.EqualValues(t, 1, nonce, "failed transaction must not consume the nonce")
}

func TestSubmitRejectsMalformedTransactions(t *testing.T) {
	net := newTestNet(t, nil)
	ctx := context.Background()

	tx := &types.Transaction{ChainID: testChainID + 1, Method: MethodLeasePay, Payload: json.RawMessage(`{}`)}
	require.NoError(t, tx.Sign(net.tenant.Key))
	_, err := net.node.Submit(ctx, tx)
	require.ErrorIs(t, err, ErrChainIDMismatch)

	tx = &types.Transaction{ChainID: testChainID, Method: "lease.renew", Payload: json.RawMessage(`{}`)}
	require.NoError(t, tx.Sign(net.tenant.Key))
	_, err = net.node.Submit(ctx, tx)
	require.ErrorIs(t, err, ErrUnknownMethod)

	tx = &types.Transaction{ChainID: testChainID, Method: MethodLeasePay, Payload: json.RawMessage(`{"lease":"x","extra":1}`)}
	require.NoError(t, tx.Sign(net.tenant.Key))
	_, err = net.node.Submit(ctx, tx)
	require.ErrorIs(t, err, ErrInvalidPayload)

	tx = &types.Transaction{ChainID: testChainID, Method: MethodLeasePay, Payload: json.RawMessage(`{}`)}
	_, err = net.node.Submit(ctx, tx)
	require.ErrorIs(t, err, auth.ErrMissingSigner)
}

func TestPausedModuleRejectsOperations(t *testing.T) {
	pauses, err := common.NewPauses(common.ModuleEscrow)
	require.NoError(t, err)
	net := newTestNet(t, pauses)

	_, err = net.submit(t, MethodListingCreate, ListingCreatePayload{PropertyID: 1, RentAmount: 1, DepositAmount: 1, LeaseDuration: 1}, net.landlord)
	require.NoError(t, err)
	_, err = net.submit(t, MethodEscrowDeposit, EscrowDepositPayload{
		Lease: enc(types.Address{0x01}), Landlord: enc(net.landlord.Address()), Amount: 1,
	}, net.tenant)
	require.ErrorIs(t, err, common.ErrModulePaused)

	_, err = net.node.DepositEscrow(context.Background(), net.tenant.Identity, net.landlord.Address(), types.Address{0x01}, 1)
	require.ErrorIs(t, err, common.ErrModulePaused)
}

func TestTypedOperationsMatchSubmit(t *testing.T) {
	net := newTestNet(t, nil)
	ctx := context.Background()

	listing, err := net.node.CreateListing(ctx, net.landlord.Identity, registry.CreateListingParams{
		PropertyID: 3, RentAmount: 500, DepositAmount: 2_000, LeaseDuration: 100,
	})
	require.NoError(t, err)
	addr, err := net.node.ListingAddress(net.landlord.Address(), 3)
	require.NoError(t, err)
	require.Equal(t, addr, listing.Address)

	lease, err := net.node.CreateLease(ctx, net.tenant.Identity, net.landlord.Identity, rental.CreateLeaseParams{
		Listing: listing.Address, RentAmount: 500, DepositAmount: 2_000, LeaseDuration: 100,
	})
	require.NoError(t, err)
	leaseAddr, err := net.node.LeaseAddress(listing.Address, net.tenant.Address())
	require.NoError(t, err)
	require.Equal(t, leaseAddr, lease.Address)

	_, err = net.node.DepositEscrow(ctx, net.tenant.Identity, net.landlord.Address(), lease.Address, 2_000)
	require.NoError(t, err)

	_, settlement, err := net.node.PartialDeduct(ctx, net.landlord.Identity, lease.Address, 500, "carpet")
	require.NoError(t, err)
	require.EqualValues(t, 1_500, settlement.TenantAmount)
	require.Equal(t, big.NewInt(49_500), mustBalance(t, net.node, net.tenant.Address()))

	esc, err := net.node.Escrow(ctx, lease.Address)
	require.NoError(t, err)
	require.True(t, esc.Released)

	net.now = lease.EndDate + 1
	_, err = net.node.PayRent(ctx, net.tenant.Identity, lease.Address)
	require.ErrorIs(t, err, rental.ErrLeaseExpired)
}

func mustBalance(t *testing.T, n *Node, addr types.Address) *big.Int {
	t.Helper()
	bal, err := n.Balance(context.Background(), addr)
	require.NoError(t, err)
	return bal
}

type switchPauses map[string]bool

func (s switchPauses) IsPaused(module string) bool { return s[module] }

func TestLeaseCreateBlockedWhileRegistryPaused(t *testing.T) {
	pauses := switchPauses{}
	net := newTestNet(t, pauses)
	ctx := context.Background()

	receipt, err := net.submit(t, MethodListingCreate, ListingCreatePayload{
		PropertyID: 1, RentAmount: 1_000, DepositAmount: 10_000, LeaseDuration: 31_536_000,
	}, net.landlord)
	require.NoError(t, err)
	listingView := receipt.Result.(*ListingView)
	listing, err := crypto.ParseAddress(listingView.Address)
	require.NoError(t, err)

	pauses[common.ModuleRegistry] = true
	payload := LeaseCreatePayload{
		Listing:       listingView.Address,
		Tenant:        enc(net.tenant.Address()),
		Landlord:      enc(net.landlord.Address()),
		RentAmount:    1_000,
		DepositAmount: 10_000,
		LeaseDuration: 31_536_000,
	}
	_, err = net.submit(t, MethodLeaseCreate, payload, net.tenant, net.landlord)
	require.ErrorIs(t, err, common.ErrModulePaused)

	stored, err := net.node.Listing(ctx, listing)
	require.NoError(t, err)
	require.Equal(t, contracts.ListingAvailable, stored.Status)
	leaseAddr, err := net.node.LeaseAddress(listing, net.tenant.Address())
	require.NoError(t, err)
	_, err = net.node.Lease(ctx, leaseAddr)
	require.ErrorIs(t, err, rental.ErrLeaseNotFound)
	nonce, err := net.node.Nonce(ctx, net.tenant.Address())
	require.NoError(t, err)
	require.Zero(t, nonce)

	delete(pauses, common.ModuleRegistry)
	_, err = net.submit(t, MethodLeaseCreate, payload, net.tenant, net.landlord)
	require.NoError(t, err)
}
