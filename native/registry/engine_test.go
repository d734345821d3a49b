package registry

import (
	"errors"
	"strings"
	"testing"

	"rentchain/core/auth/authtest"
	"rentchain/core/events"
	"rentchain/core/state"
	"rentchain/core/types"
	"rentchain/native/common"
	"rentchain/native/contracts"
	"rentchain/storage"
)

func newTestEngine(t *testing.T) (*Engine, *events.Buffer) {
	t.Helper()
	engine := NewEngine(authtest.Program("registry"))
	engine.SetState(state.NewManager(storage.NewMemDB()))
	buf := &events.Buffer{}
	engine.SetEmitter(buf)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, buf
}

func defaultParams() CreateListingParams {
	return CreateListingParams{
		PropertyID:    7,
		RentAmount:    1_000,
		DepositAmount: 5_000,
		LeaseDuration: 31_536_000,
		MetadataURI:   "ipfs://listing",
	}
}

func TestCreateListing(t *testing.T) {
	engine, buf := newTestEngine(t)
	owner := authtest.NewParty(t)

	listing, err := engine.CreateListing(owner.Identity, defaultParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want, bump, err := engine.ListingAddress(owner.Address(), 7)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if listing.Address != want || listing.Bump != bump {
		t.Fatalf("listing stored at %s/%d, want %s/%d", listing.Address.Hex(), listing.Bump, want.Hex(), bump)
	}
	if listing.Status != contracts.ListingAvailable {
		t.Fatalf("expected available status, got %s", listing.Status)
	}
	if listing.CreatedAt != 1_700_000_000 {
		t.Fatalf("unexpected creation time %d", listing.CreatedAt)
	}
	stored, err := engine.Listing(listing.Address)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *stored != *listing {
		t.Fatalf("stored listing mismatch: %+v vs %+v", stored, listing)
	}
	evts := buf.Events()
	if len(evts) != 1 || evts[0].EventType() != EventTypeListingCreated {
		t.Fatalf("unexpected events %+v", evts)
	}

	if _, err := engine.CreateListing(owner.Identity, defaultParams()); !errors.Is(err, ErrListingExists) {
		t.Fatalf("expected ErrListingExists, got %v", err)
	}
}

func TestCreateListingValidation(t *testing.T) {
	engine, buf := newTestEngine(t)
	owner := authtest.NewParty(t)

	cases := []struct {
		name   string
		mutate func(*CreateListingParams)
		want   error
	}{
		{"zero rent", func(p *CreateListingParams) { p.RentAmount = 0 }, ErrInvalidRentAmount},
		{"zero deposit", func(p *CreateListingParams) { p.DepositAmount = 0 }, ErrInvalidDepositAmount},
		{"zero duration", func(p *CreateListingParams) { p.LeaseDuration = 0 }, ErrInvalidLeaseDuration},
		{"negative duration", func(p *CreateListingParams) { p.LeaseDuration = -5 }, ErrInvalidLeaseDuration},
		{"long uri", func(p *CreateListingParams) { p.MetadataURI = strings.Repeat("x", MaxMetadataURILength+1) }, ErrMetadataURITooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultParams()
			tc.mutate(&params)
			if _, err := engine.CreateListing(owner.Identity, params); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	params := defaultParams()
	params.MetadataURI = strings.Repeat("x", MaxMetadataURILength)
	if _, err := engine.CreateListing(owner.Identity, params); err != nil {
		t.Fatalf("uri at limit rejected: %v", err)
	}
	if n := len(buf.Events()); n != 1 {
		t.Fatalf("expected one event, got %d", n)
	}
}

func TestUpdateListingRequiresOwner(t *testing.T) {
	engine, _ := newTestEngine(t)
	owner := authtest.NewParty(t)
	stranger := authtest.NewParty(t)
	listing, err := engine.CreateListing(owner.Identity, defaultParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = engine.UpdateListing(contracts.UpdateListingRequest{
		Listing:   listing.Address,
		Authority: stranger.Identity,
		Patch:     contracts.StatusPatch(contracts.ListingRented),
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	stored, _ := engine.Listing(listing.Address)
	if stored.Status != contracts.ListingAvailable {
		t.Fatalf("status changed by stranger: %s", stored.Status)
	}

	resp, err := engine.UpdateListing(contracts.UpdateListingRequest{
		Listing:   listing.Address,
		Authority: owner.Identity,
		Patch:     contracts.StatusPatch(contracts.ListingRented),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if resp.Status != contracts.ListingRented || resp.Owner != owner.Address() {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Applied) != 1 || resp.Applied[0] != "status" {
		t.Fatalf("unexpected applied fields %v", resp.Applied)
	}
}

func TestUpdateListingSparsePatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	owner := authtest.NewParty(t)
	listing, err := engine.CreateListing(owner.Identity, defaultParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rent := uint64(1_250)
	uri := "ipfs://updated"
	_, err = engine.UpdateListing(contracts.UpdateListingRequest{
		Listing:   listing.Address,
		Authority: owner.Identity,
		Patch:     contracts.ListingPatch{RentAmount: &rent, MetadataURI: &uri},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := engine.Listing(listing.Address)
	if stored.RentAmount != rent || stored.MetadataURI != uri {
		t.Fatalf("patch not applied: %+v", stored)
	}
	if stored.DepositAmount != listing.DepositAmount || stored.Status != listing.Status {
		t.Fatalf("untouched fields changed: %+v", stored)
	}

	zero := uint64(0)
	badStatus := contracts.ListingStatus(9)
	for name, patch := range map[string]contracts.ListingPatch{
		"zero rent":  {RentAmount: &zero},
		"bad status": {Status: &badStatus},
		"empty":      {},
	} {
		_, err := engine.UpdateListing(contracts.UpdateListingRequest{Listing: listing.Address, Authority: owner.Identity, Patch: patch})
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestUpdateListingMissing(t *testing.T) {
	engine, _ := newTestEngine(t)
	owner := authtest.NewParty(t)
	_, err := engine.UpdateListing(contracts.UpdateListingRequest{
		Listing:   types.Address{0x01},
		Authority: owner.Identity,
		Patch:     contracts.StatusPatch(contracts.ListingRented),
	})
	if !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
}

func TestDeactivateAndVerify(t *testing.T) {
	engine, buf := newTestEngine(t)
	owner := authtest.NewParty(t)
	listing, err := engine.CreateListing(owner.Identity, defaultParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := engine.Verify(owner.Identity, listing.Address, VerificationLevel(3), ""); !errors.Is(err, ErrInvalidVerificationLevel) {
		t.Fatalf("expected ErrInvalidVerificationLevel, got %v", err)
	}
	if _, err := engine.Verify(owner.Identity, listing.Address, VerificationFull, strings.Repeat("a", MaxDocumentHashLength+1)); !errors.Is(err, ErrDocumentHashTooLong) {
		t.Fatalf("expected ErrDocumentHashTooLong, got %v", err)
	}
	verified, err := engine.Verify(owner.Identity, listing.Address, VerificationFull, "sha256:abc")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified || verified.DocumentHash != "sha256:abc" {
		t.Fatalf("verification not recorded: %+v", verified)
	}

	stranger := authtest.NewParty(t)
	if _, err := engine.DeactivateListing(stranger.Identity, listing.Address); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	deactivated, err := engine.DeactivateListing(owner.Identity, listing.Address)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Status != contracts.ListingDeactivated || deactivated.Available() {
		t.Fatalf("expected deactivated listing, got %s", deactivated.Status)
	}
	evts := buf.Events()
	if got := evts[len(evts)-1].EventType(); got != EventTypeListingDeactivated {
		t.Fatalf("unexpected last event %s", got)
	}
}

func TestUpdateListingHonoursPause(t *testing.T) {
	engine, buf := newTestEngine(t)
	owner := authtest.NewParty(t)
	listing, err := engine.CreateListing(owner.Identity, defaultParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := len(buf.Events())

	pauses, err := common.NewPauses(common.ModuleRegistry)
	if err != nil {
		t.Fatalf("pauses: %v", err)
	}
	engine.SetPauses(pauses)
	_, err = engine.UpdateListing(contracts.UpdateListingRequest{
		Listing:   listing.Address,
		Authority: owner.Identity,
		Patch:     contracts.StatusPatch(contracts.ListingRented),
	})
	if !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	stored, _ := engine.Listing(listing.Address)
	if stored.Status != contracts.ListingAvailable {
		t.Fatalf("status changed while paused: %s", stored.Status)
	}
	if n := len(buf.Events()); n != before {
		t.Fatalf("paused update emitted events: %d -> %d", before, n)
	}

	engine.SetPauses(nil)
	if _, err := engine.UpdateListing(contracts.UpdateListingRequest{
		Listing:   listing.Address,
		Authority: owner.Identity,
		Patch:     contracts.StatusPatch(contracts.ListingRented),
	}); err != nil {
		t.Fatalf("update after unpause: %v", err)
	}
}
