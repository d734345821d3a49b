package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rentchain/core/auth"
	"rentchain/core/ledger"
	"rentchain/core/types"
	"rentchain/crypto"
	"rentchain/native/common"
	"rentchain/native/contracts"
	"rentchain/native/escrow"
	"rentchain/native/registry"
	"rentchain/native/rental"
)

var (
	ErrChainIDMismatch = errors.New("core: chain id mismatch")
	ErrUnknownMethod   = errors.New("core: unknown method")
	ErrInvalidPayload  = errors.New("core: invalid payload")
)

// Receipt is returned for every committed transaction.
type Receipt struct {
	Method string      `json:"method"`
	Signer string      `json:"signer"`
	Nonce  uint64      `json:"nonce"`
	Result interface{} `json:"result,omitempty"`
}

// prepared is a decoded transaction ready to run against one operation's
// components.
type prepared func(c *components) (interface{}, error)

type handler struct {
	module  string
	prepare func(s *auth.Signers, raw json.RawMessage) (prepared, error)
}

var handlers = map[string]handler{
	MethodListingCreate:         {common.ModuleRegistry, prepareListingCreate},
	MethodListingUpdate:         {common.ModuleRegistry, prepareListingUpdate},
	MethodListingDeactivate:     {common.ModuleRegistry, prepareListingDeactivate},
	MethodListingVerify:         {common.ModuleRegistry, prepareListingVerify},
	MethodLeaseCreate:           {common.ModuleRental, prepareLeaseCreate},
	MethodLeasePay:              {common.ModuleRental, prepareLeasePay},
	MethodLeaseEnd:              {common.ModuleRental, prepareLeaseEnd},
	MethodLeaseDispute:          {common.ModuleRental, prepareLeaseDispute},
	MethodEscrowDeposit:         {common.ModuleEscrow, prepareEscrowDeposit},
	MethodEscrowReleaseTenant:   {common.ModuleEscrow, prepareReleaseTenant},
	MethodEscrowReleaseLandlord: {common.ModuleEscrow, prepareReleaseLandlord},
	MethodEscrowDeduct:          {common.ModuleEscrow, prepareDeduct},
}

// Methods lists the transaction methods Submit accepts.
func Methods() []string {
	out := make([]string, 0, len(handlers))
	for m := range handlers {
		out = append(out, m)
	}
	return out
}

// Submit verifies a signed transaction and applies it as one ledger operation.
// The primary signer's nonce is consumed in the same operation, so a failed
// transaction leaves the nonce unchanged.
func (n *Node) Submit(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidPayload)
	}
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrChainIDMismatch, n.chainID, tx.ChainID)
	}
	h, ok := handlers[tx.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, tx.Method)
	}
	digest, err := tx.SigningHash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	signers, err := auth.VerifyAll(digest, tx.Signatures)
	if err != nil {
		return nil, err
	}
	run, err := h.prepare(signers, tx.Payload)
	if err != nil {
		return nil, err
	}
	if err := common.Guard(n.pauses, h.module); err != nil {
		return nil, err
	}

	primary := signers.Primary().Address()
	var result interface{}
	err = n.ledger.Execute(ctx, tx.Method, func(ltx *ledger.Tx) error {
		if err := ltx.State.ConsumeNonce(primary, tx.Nonce); err != nil {
			return err
		}
		var err error
		result, err = run(n.bind(ltx))
		return err
	})
	if err != nil {
		return nil, err
	}
	n.observe(tx.Method, result)
	return &Receipt{
		Method: tx.Method,
		Signer: crypto.MustEncodeAddress(primary),
		Nonce:  tx.Nonce,
		Result: result,
	}, nil
}

func (n *Node) observe(method string, result interface{}) {
	switch v := result.(type) {
	case *LeaseView:
		if method == MethodLeasePay {
			n.metrics.AddRentPaid(v.LastPaymentAmount)
		}
	case *EscrowView:
		if v.Settlement != nil {
			n.metrics.AddEscrowReleased("tenant", v.Settlement.TenantAmount)
			n.metrics.AddEscrowReleased("landlord", v.Settlement.LandlordAmount)
		} else if method == MethodEscrowDeposit {
			n.metrics.AddEscrowDeposited(v.Amount)
		}
	}
}

func decode(raw json.RawMessage, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func parseAddr(field, value string) (types.Address, error) {
	a, err := crypto.ParseAddress(value)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
	}
	return a, nil
}

func prepareListingCreate(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p ListingCreatePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	owner := s.Primary()
	return func(c *components) (interface{}, error) {
		l, err := c.directory.CreateListing(owner, registry.CreateListingParams{
			PropertyID:    p.PropertyID,
			RentAmount:    p.RentAmount,
			DepositAmount: p.DepositAmount,
			LeaseDuration: p.LeaseDuration,
			MetadataURI:   p.MetadataURI,
		})
		return NewListingView(l), err
	}, nil
}

func prepareListingUpdate(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p ListingUpdatePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	listing, err := parseAddr("listing", p.Listing)
	if err != nil {
		return nil, err
	}
	req := contracts.UpdateListingRequest{Listing: listing, Authority: s.Primary(), Patch: p.Patch}
	return func(c *components) (interface{}, error) {
		if _, err := c.directory.UpdateListing(req); err != nil {
			return nil, err
		}
		l, err := c.directory.Listing(listing)
		return NewListingView(l), err
	}, nil
}

func prepareListingDeactivate(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p ListingRefPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	listing, err := parseAddr("listing", p.Listing)
	if err != nil {
		return nil, err
	}
	owner := s.Primary()
	return func(c *components) (interface{}, error) {
		l, err := c.directory.DeactivateListing(owner, listing)
		return NewListingView(l), err
	}, nil
}

func prepareListingVerify(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p ListingVerifyPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	listing, err := parseAddr("listing", p.Listing)
	if err != nil {
		return nil, err
	}
	owner := s.Primary()
	return func(c *components) (interface{}, error) {
		l, err := c.directory.Verify(owner, listing, registry.VerificationLevel(p.Level), p.DocumentHash)
		return NewListingView(l), err
	}, nil
}

func prepareLeaseCreate(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p LeaseCreatePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	listing, err := parseAddr("listing", p.Listing)
	if err != nil {
		return nil, err
	}
	tenantAddr, err := parseAddr("tenant", p.Tenant)
	if err != nil {
		return nil, err
	}
	landlordAddr, err := parseAddr("landlord", p.Landlord)
	if err != nil {
		return nil, err
	}
	tenant, err := s.Require(tenantAddr)
	if err != nil {
		return nil, err
	}
	landlord, err := s.Require(landlordAddr)
	if err != nil {
		return nil, err
	}
	params := rental.CreateLeaseParams{
		Listing:       listing,
		RentAmount:    p.RentAmount,
		DepositAmount: p.DepositAmount,
		LeaseDuration: p.LeaseDuration,
	}
	return func(c *components) (interface{}, error) {
		l, err := c.tracker.CreateLease(tenant, landlord, params)
		return NewLeaseView(l), err
	}, nil
}

func prepareLeasePay(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p LeaseRefPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lease, err := parseAddr("lease", p.Lease)
	if err != nil {
		return nil, err
	}
	tenant := s.Primary()
	return func(c *components) (interface{}, error) {
		l, err := c.tracker.PayRent(tenant, lease)
		return NewLeaseView(l), err
	}, nil
}

func prepareLeaseEnd(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p LeaseRefPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lease, err := parseAddr("lease", p.Lease)
	if err != nil {
		return nil, err
	}
	landlord := s.Primary()
	return func(c *components) (interface{}, error) {
		l, err := c.tracker.EndLease(landlord, lease)
		return NewLeaseView(l), err
	}, nil
}

func prepareLeaseDispute(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p LeaseDisputePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lease, err := parseAddr("lease", p.Lease)
	if err != nil {
		return nil, err
	}
	initiator := s.Primary()
	return func(c *components) (interface{}, error) {
		return nil, c.tracker.DisputeLease(initiator, lease, p.Reason)
	}, nil
}

func prepareEscrowDeposit(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p EscrowDepositPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lease, err := parseAddr("lease", p.Lease)
	if err != nil {
		return nil, err
	}
	landlord, err := parseAddr("landlord", p.Landlord)
	if err != nil {
		return nil, err
	}
	tenant := s.Primary()
	return func(c *components) (interface{}, error) {
		e, err := c.custody.Deposit(tenant, landlord, lease, p.Amount)
		return NewEscrowView(e, nil), err
	}, nil
}

func releaseResult(e *escrow.Escrow, s escrow.Settlement, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return NewEscrowView(e, &s), nil
}

func prepareReleaseTenant(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p EscrowReleasePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lease, err := parseAddr("lease", p.Lease)
	if err != nil {
		return nil, err
	}
	landlord := s.Primary()
	return func(c *components) (interface{}, error) {
		return releaseResult(c.custody.ReleaseToTenant(landlord, lease))
	}, nil
}

func prepareReleaseLandlord(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p EscrowReleaseLandlordPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lease, err := parseAddr("lease", p.Lease)
	if err != nil {
		return nil, err
	}
	landlord := s.Primary()
	return func(c *components) (interface{}, error) {
		return releaseResult(c.custody.ReleaseToLandlord(landlord, lease, p.Amount))
	}, nil
}

func prepareDeduct(s *auth.Signers, raw json.RawMessage) (prepared, error) {
	var p EscrowDeductPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lease, err := parseAddr("lease", p.Lease)
	if err != nil {
		return nil, err
	}
	landlord := s.Primary()
	return func(c *components) (interface{}, error) {
		return releaseResult(c.custody.PartialDeduct(landlord, lease, p.LandlordAmount, p.Reason))
	}, nil
}
