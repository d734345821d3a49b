package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rentchain/core"
	"rentchain/core/auth/authtest"
	"rentchain/core/genesis"
	"rentchain/core/ledger"
	"rentchain/core/types"
	"rentchain/crypto"
	"rentchain/indexer"
	"rentchain/storage"
)

const (
	testChainID   uint64 = 11
	testJWTEnvVar        = "RPC_TEST_JWT_SECRET"
	testJWTSecret        = "rpc-test-secret"
	testIssuer           = "rpc-tests"
)

type rpcFixture struct {
	node     *core.Node
	index    *indexer.Indexer
	server   *httptest.Server
	landlord authtest.Party
	tenant   authtest.Party
	token    string
}

func newFixture(t *testing.T, cfg ServerConfig) *rpcFixture {
	t.Helper()
	f := &rpcFixture{landlord: authtest.NewParty(t), tenant: authtest.NewParty(t)}

	index, err := indexer.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil)
	if err != nil {
		t.Fatalf("open indexer: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })
	f.index = index

	now := int64(1_700_000_000)
	l := ledger.New(storage.NewMemDB(),
		ledger.WithClock(ledger.ClockFunc(func() int64 { return now })),
		ledger.WithEmitter(index))
	node, err := core.NewNode(l, core.NodeConfig{
		ChainID: testChainID,
		Programs: core.Programs{
			Directory: authtest.Program("registry"),
			Tracker:   authtest.Program("rental"),
			Custody:   authtest.Program("escrow"),
		},
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	spec, err := genesis.ParseGenesisSpec([]byte("genesisTime: 2024-01-01T00:00:00Z\nalloc:\n  " +
		crypto.MustEncodeAddress(f.tenant.Address()) + ": \"20000\"\n"))
	if err != nil {
		t.Fatalf("parse genesis: %v", err)
	}
	if _, err := node.ApplyGenesis(context.Background(), spec); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	f.node = node

	if !cfg.JWT.Enable {
		t.Setenv(testJWTEnvVar, testJWTSecret)
		cfg.JWT = JWTConfig{Enable: true, HSSecretEnv: testJWTEnvVar, Issuer: testIssuer}
	}
	srv, err := NewServer(node, index, cfg, nil, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	f.server = httptest.NewServer(srv.Handler())
	t.Cleanup(f.server.Close)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	f.token, err = token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return f
}

type testResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (f *rpcFixture) call(t *testing.T, token, method string, params ...interface{}) (int, testResponse) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return f.post(t, token, body)
}

func (f *rpcFixture) post(t *testing.T, token string, body []byte) (int, testResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out testResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func (f *rpcFixture) signedTx(t *testing.T, method string, payload interface{}, signers ...authtest.Party) *types.Transaction {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	nonce, err := f.node.Nonce(context.Background(), signers[0].Address())
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	tx := &types.Transaction{ChainID: testChainID, Method: method, Nonce: nonce, Payload: raw}
	for _, s := range signers {
		if err := tx.Sign(s.Key); err != nil {
			t.Fatalf("sign: %v", err)
		}
	}
	return tx
}

func (f *rpcFixture) submit(t *testing.T, method string, payload interface{}, signers ...authtest.Party) map[string]interface{} {
	t.Helper()
	status, resp := f.call(t, f.token, "tx_submit", f.signedTx(t, method, payload, signers...))
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("%s failed: status %d error %+v", method, status, resp.Error)
	}
	var receipt struct {
		Result map[string]interface{} `json:"result"`
	}
	if err := json.Unmarshal(resp.Result, &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	return receipt.Result
}

func enc(a types.Address) string { return crypto.MustEncodeAddress(a) }

func TestRentalFlowOverRPC(t *testing.T) {
	f := newFixture(t, ServerConfig{})

	listing := f.submit(t, core.MethodListingCreate, core.ListingCreatePayload{
		PropertyID: 9, RentAmount: 1_000, DepositAmount: 8_000, LeaseDuration: 86_400 * 365,
	}, f.landlord)
	listingAddr := listing["address"].(string)

	lease := f.submit(t, core.MethodLeaseCreate, core.LeaseCreatePayload{
		Listing:       listingAddr,
		Tenant:        enc(f.tenant.Address()),
		Landlord:      enc(f.landlord.Address()),
		RentAmount:    1_000,
		DepositAmount: 8_000,
		LeaseDuration: 86_400 * 365,
	}, f.tenant, f.landlord)
	leaseAddr := lease["address"].(string)

	f.submit(t, core.MethodEscrowDeposit, core.EscrowDepositPayload{
		Lease: leaseAddr, Landlord: enc(f.landlord.Address()), Amount: 8_000,
	}, f.tenant)

	status, resp := f.call(t, "", "listing_get", map[string]interface{}{"owner": enc(f.landlord.Address()), "propertyId": 9})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("listing_get: %d %+v", status, resp.Error)
	}
	var listingView core.ListingView
	if err := json.Unmarshal(resp.Result, &listingView); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listingView.Address != listingAddr || listingView.Status != "rented" {
		t.Fatalf("unexpected listing %+v", listingView)
	}

	_, resp = f.call(t, "", "escrow_get", map[string]string{"lease": leaseAddr})
	var escrowView core.EscrowView
	if err := json.Unmarshal(resp.Result, &escrowView); err != nil {
		t.Fatalf("decode escrow: %v", err)
	}
	if escrowView.Amount != 8_000 || escrowView.Status != "funded" {
		t.Fatalf("unexpected escrow %+v", escrowView)
	}

	_, resp = f.call(t, "", "address_escrow", map[string]string{"lease": leaseAddr})
	var derived AddressResult
	if err := json.Unmarshal(resp.Result, &derived); err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if derived.Address != escrowView.Custody {
		t.Fatalf("derived custody %s, escrow reports %s", derived.Address, escrowView.Custody)
	}

	_, resp = f.call(t, "", "bank_balance", map[string]string{"address": enc(f.tenant.Address())})
	var balance BalanceResult
	if err := json.Unmarshal(resp.Result, &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance != "12000" || balance.Nonce != 2 {
		t.Fatalf("unexpected tenant balance %+v", balance)
	}

	_, resp = f.call(t, "", "events_list", map[string]interface{}{"address": leaseAddr})
	var entries []indexer.Entry
	if err := json.Unmarshal(resp.Result, &entries); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(entries) != 2 || entries[0].Type != "lease.created" || entries[1].Type != "escrow.deposited" {
		t.Fatalf("unexpected lease events %+v", entries)
	}
}

func TestSubmitRequiresBearerToken(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	tx := f.signedTx(t, core.MethodListingCreate, core.ListingCreatePayload{
		PropertyID: 1, RentAmount: 1, DepositAmount: 1, LeaseDuration: 1,
	}, f.landlord)

	status, resp := f.call(t, "", "tx_submit", tx)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %d %+v", status, resp.Error)
	}
	status, resp = f.call(t, "not-a-jwt", "tx_submit", tx)
	if status != http.StatusUnauthorized || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected invalid token rejection, got %d %+v", status, resp.Error)
	}
	nonce, err := f.node.Nonce(context.Background(), f.landlord.Address())
	if err != nil || nonce != 0 {
		t.Fatalf("rejected submit consumed nonce: %d %v", nonce, err)
	}
}

func TestChainErrorsMapToCodes(t *testing.T) {
	f := newFixture(t, ServerConfig{})

	tests := []struct {
		name   string
		method string
		params interface{}
		status int
		code   int
	}{
		{"missing listing", "listing_get", map[string]string{"address": enc(authtest.Program("nowhere"))}, http.StatusNotFound, codeNotFound},
		{"missing escrow", "escrow_get", map[string]string{"lease": enc(authtest.Program("nowhere"))}, http.StatusNotFound, codeNotFound},
		{"bad address", "bank_balance", map[string]string{"address": "rent1nope"}, http.StatusBadRequest, codeInvalidParams},
		{"unknown field", "lease_get", map[string]string{"lease": "x"}, http.StatusBadRequest, codeInvalidParams},
		{"unknown method", "listing_delete", map[string]string{}, http.StatusNotFound, codeMethodNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := f.call(t, "", tc.method, tc.params)
			if status != tc.status || resp.Error == nil || resp.Error.Code != tc.code {
				t.Fatalf("expected %d/%d, got %d %+v", tc.status, tc.code, status, resp.Error)
			}
		})
	}

	invalid := f.signedTx(t, core.MethodListingCreate, core.ListingCreatePayload{
		PropertyID: 1, RentAmount: 0, DepositAmount: 1, LeaseDuration: 1,
	}, f.landlord)
	status, resp := f.call(t, f.token, "tx_submit", invalid)
	if status != http.StatusBadRequest || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %d %+v", status, resp.Error)
	}

	f.submit(t, core.MethodListingCreate, core.ListingCreatePayload{
		PropertyID: 2, RentAmount: 1, DepositAmount: 1, LeaseDuration: 1,
	}, f.landlord)
	duplicate := f.signedTx(t, core.MethodListingCreate, core.ListingCreatePayload{
		PropertyID: 2, RentAmount: 1, DepositAmount: 1, LeaseDuration: 1,
	}, f.landlord)
	status, resp = f.call(t, f.token, "tx_submit", duplicate)
	if status != http.StatusConflict || resp.Error.Code != codeConflict {
		t.Fatalf("expected conflict for duplicate listing, got %d %+v", status, resp.Error)
	}
}

func TestMalformedRequests(t *testing.T) {
	f := newFixture(t, ServerConfig{MaxRequestBodyBytes: 256})

	status, resp := f.post(t, "", []byte("{not json"))
	if status != http.StatusBadRequest || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %d %+v", status, resp.Error)
	}
	status, resp = f.post(t, "", []byte(`{"jsonrpc":"1.0","id":1,"method":"chain_info"}`))
	if status != http.StatusBadRequest || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("expected invalid request, got %d %+v", status, resp.Error)
	}
	status, resp = f.post(t, "", bytes.Repeat([]byte(" "), 512))
	if status != http.StatusRequestEntityTooLarge || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("expected body limit error, got %d %+v", status, resp.Error)
	}
}

func TestChainInfo(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	_, resp := f.call(t, "", "chain_info")
	var info ChainInfoResult
	if err := json.Unmarshal(resp.Result, &info); err != nil {
		t.Fatalf("decode chain info: %v", err)
	}
	if info.ChainID != testChainID || info.Custody != enc(authtest.Program("escrow")) {
		t.Fatalf("unexpected chain info %+v", info)
	}
	if len(info.Methods) != len(core.Methods()) {
		t.Fatalf("expected %d methods, got %v", len(core.Methods()), info.Methods)
	}
}

func TestRateLimiter(t *testing.T) {
	f := newFixture(t, ServerConfig{RateLimitPerSecond: 0.001, RateLimitBurst: 2})
	for i := 0; i < 2; i++ {
		if status, _ := f.call(t, "", "chain_info"); status != http.StatusOK {
			t.Fatalf("request %d: unexpected status %d", i, status)
		}
	}
	status, resp := f.call(t, "", "chain_info")
	if status != http.StatusTooManyRequests || resp.Error.Code != codeRateLimited {
		t.Fatalf("expected rate limit, got %d %+v", status, resp.Error)
	}
}

func TestClientSourceIgnoresForwardedForWhenNotTrusted(t *testing.T) {
	trusted, err := parseTrustedProxies([]string{"10.0.0.1"})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}
	limiter := newRateLimiter(1, 1, trusted)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if source := limiter.clientSource(req); source != "10.0.0.5" {
		t.Fatalf("expected remote address, got %q", source)
	}

	req.RemoteAddr = "10.0.0.1:1234"
	if source := limiter.clientSource(req); source != "203.0.113.9" {
		t.Fatalf("expected forwarded address from trusted proxy, got %q", source)
	}
}
