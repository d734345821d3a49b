package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"rentchain/core"
	"rentchain/core/types"
	"rentchain/crypto"
	"rentchain/indexer"
	"rentchain/native/escrow"
)

type addressParams struct {
	Address string `json:"address"`
}

type listingGetParams struct {
	Address    string `json:"address,omitempty"`
	Owner      string `json:"owner,omitempty"`
	PropertyID uint64 `json:"propertyId,omitempty"`
}

type leaseGetParams struct {
	Address string `json:"address,omitempty"`
	Listing string `json:"listing,omitempty"`
	Tenant  string `json:"tenant,omitempty"`
}

type escrowGetParams struct {
	Lease string `json:"lease"`
}

type eventsListParams struct {
	Type    string `json:"type,omitempty"`
	Address string `json:"address,omitempty"`
	After   uint64 `json:"after,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type ChainInfoResult struct {
	ChainID   uint64   `json:"chainId"`
	Directory string   `json:"directory"`
	Tracker   string   `json:"tracker"`
	Custody   string   `json:"custody"`
	Methods   []string `json:"methods"`
}

type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type AddressResult struct {
	Address string `json:"address"`
}

func parseAddress(field, value string) (types.Address, *RPCError) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return types.Address{}, invalidParams("invalid "+field, err.Error())
	}
	return addr, nil
}

func (s *Server) handleTxSubmit(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var tx types.Transaction
	if rpcErr := decodeParams(params, &tx); rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.Submit(ctx, &tx)
	if err != nil {
		return nil, chainError(err)
	}
	return receipt, nil
}

func (s *Server) handleChainInfo(context.Context, []json.RawMessage) (interface{}, *RPCError) {
	programs := s.node.Programs()
	methods := core.Methods()
	sort.Strings(methods)
	return ChainInfoResult{
		ChainID:   s.node.ChainID(),
		Directory: crypto.MustEncodeAddress(programs.Directory),
		Tracker:   crypto.MustEncodeAddress(programs.Tracker),
		Custody:   crypto.MustEncodeAddress(programs.Custody),
		Methods:   methods,
	}, nil
}

func (s *Server) listingAddress(p listingGetParams) (types.Address, *RPCError) {
	if p.Address != "" {
		return parseAddress("address", p.Address)
	}
	if p.Owner == "" {
		return types.Address{}, invalidParams("address or owner required", nil)
	}
	owner, rpcErr := parseAddress("owner", p.Owner)
	if rpcErr != nil {
		return types.Address{}, rpcErr
	}
	addr, err := s.node.ListingAddress(owner, p.PropertyID)
	if err != nil {
		return types.Address{}, chainError(err)
	}
	return addr, nil
}

func (s *Server) handleListingGet(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var p listingGetParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := s.listingAddress(p)
	if rpcErr != nil {
		return nil, rpcErr
	}
	listing, err := s.node.Listing(ctx, addr)
	if err != nil {
		return nil, chainError(err)
	}
	return core.NewListingView(listing), nil
}

func (s *Server) leaseAddress(p leaseGetParams) (types.Address, *RPCError) {
	if p.Address != "" {
		return parseAddress("address", p.Address)
	}
	if p.Listing == "" || p.Tenant == "" {
		return types.Address{}, invalidParams("address or listing and tenant required", nil)
	}
	listing, rpcErr := parseAddress("listing", p.Listing)
	if rpcErr != nil {
		return types.Address{}, rpcErr
	}
	tenant, rpcErr := parseAddress("tenant", p.Tenant)
	if rpcErr != nil {
		return types.Address{}, rpcErr
	}
	addr, err := s.node.LeaseAddress(listing, tenant)
	if err != nil {
		return types.Address{}, chainError(err)
	}
	return addr, nil
}

func (s *Server) handleLeaseGet(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var p leaseGetParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := s.leaseAddress(p)
	if rpcErr != nil {
		return nil, rpcErr
	}
	lease, err := s.node.Lease(ctx, addr)
	if err != nil {
		return nil, chainError(err)
	}
	return core.NewLeaseView(lease), nil
}

func (s *Server) handleEscrowGet(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var p escrowGetParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	lease, rpcErr := parseAddress("lease", p.Lease)
	if rpcErr != nil {
		return nil, rpcErr
	}
	esc, err := s.node.Escrow(ctx, lease)
	if errors.Is(err, escrow.ErrEscrowNotInitialized) {
		return nil, newError(http.StatusNotFound, codeNotFound, "not_found", err.Error())
	}
	if err != nil {
		return nil, chainError(err)
	}
	return core.NewEscrowView(esc, nil), nil
}

func (s *Server) handleBankBalance(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.node.Balance(ctx, addr)
	if err != nil {
		return nil, chainError(err)
	}
	nonce, err := s.node.Nonce(ctx, addr)
	if err != nil {
		return nil, chainError(err)
	}
	return BalanceResult{Address: crypto.MustEncodeAddress(addr), Balance: balance.String(), Nonce: nonce}, nil
}

func (s *Server) handleEventsList(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	if s.events == nil {
		return nil, newError(http.StatusServiceUnavailable, codeServerError, "event index unavailable", nil)
	}
	var p eventsListParams
	if len(params) > 0 {
		if rpcErr := decodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
	}
	if p.Limit < 0 || p.Limit > indexer.MaxLimit {
		return nil, invalidParams("limit out of range", p.Limit)
	}
	filter := indexer.Filter{Type: p.Type, After: p.After, Limit: p.Limit}
	if p.Address != "" {
		addr, rpcErr := parseAddress("address", p.Address)
		if rpcErr != nil {
			return nil, rpcErr
		}
		filter.Address = addr.Hex()
	}
	entries, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "internal_error", err.Error())
	}
	return entries, nil
}

func (s *Server) handleAddressListing(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var p listingGetParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Address != "" {
		return nil, invalidParams("owner and propertyId required", nil)
	}
	addr, rpcErr := s.listingAddress(p)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return AddressResult{Address: crypto.MustEncodeAddress(addr)}, nil
}

func (s *Server) handleAddressLease(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var p leaseGetParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Address != "" {
		return nil, invalidParams("listing and tenant required", nil)
	}
	addr, rpcErr := s.leaseAddress(p)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return AddressResult{Address: crypto.MustEncodeAddress(addr)}, nil
}

func (s *Server) handleAddressEscrow(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	var p escrowGetParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	lease, rpcErr := parseAddress("lease", p.Lease)
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr, err := s.node.EscrowAddress(lease)
	if err != nil {
		return nil, chainError(err)
	}
	return AddressResult{Address: crypto.MustEncodeAddress(addr)}, nil
}
