package registry

import (
	"strconv"
	"strings"

	"rentchain/core/types"
)

const (
	EventTypeListingCreated     = "property.created"
	EventTypeListingUpdated     = "property.updated"
	EventTypeListingDeactivated = "property.deactivated"
	EventTypeListingVerified    = "property.verified"
)

type listingEvent struct {
	evt *types.Event
}

func (e listingEvent) EventType() string { return e.evt.EventType() }

func (e listingEvent) Event() *types.Event { return e.evt }

// NewCreatedEvent returns the payload emitted when a listing is published.
func NewCreatedEvent(l *Listing) *types.Event { return newListingEvent(EventTypeListingCreated, l) }

// NewUpdatedEvent returns the payload emitted after a patch; fields lists the
// names of the overwritten fields.
func NewUpdatedEvent(l *Listing, fields []string) *types.Event {
	evt := newListingEvent(EventTypeListingUpdated, l)
	evt.Attributes["fields"] = strings.Join(fields, ",")
	return evt
}

// NewDeactivatedEvent returns the payload emitted when an owner withdraws a listing.
func NewDeactivatedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingDeactivated, l)
}

// NewVerifiedEvent returns the payload emitted when verification data changes.
func NewVerifiedEvent(l *Listing) *types.Event {
	evt := newListingEvent(EventTypeListingVerified, l)
	evt.Attributes["documentHash"] = l.DocumentHash
	return evt
}

func newListingEvent(kind string, l *Listing) *types.Event {
	attrs := map[string]string{}
	if l != nil {
		attrs["listing"] = l.Address.Hex()
		attrs["owner"] = l.Owner.Hex()
		attrs["propertyId"] = strconv.FormatUint(l.PropertyID, 10)
		attrs["rentAmount"] = strconv.FormatUint(l.RentAmount, 10)
		attrs["depositAmount"] = strconv.FormatUint(l.DepositAmount, 10)
		attrs["leaseDuration"] = strconv.FormatInt(l.LeaseDuration, 10)
		attrs["status"] = l.Status.String()
		attrs["verificationLevel"] = strconv.Itoa(int(l.VerificationLevel))
	}
	return &types.Event{Type: kind, Attributes: attrs}
}
