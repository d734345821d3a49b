package rental

import (
	"strconv"

	"rentchain/core/types"
)

const (
	EventTypeLeaseCreated  = "lease.created"
	EventTypeRentPaid      = "lease.rent_paid"
	EventTypeLeaseEnded    = "lease.ended"
	EventTypeLeaseDisputed = "lease.disputed"
)

type leaseEvent struct {
	evt *types.Event
}

func (e leaseEvent) EventType() string { return e.evt.EventType() }

func (e leaseEvent) Event() *types.Event { return e.evt }

// NewCreatedEvent returns the payload emitted when a lease starts.
func NewCreatedEvent(l *Lease) *types.Event {
	evt := newLeaseEvent(EventTypeLeaseCreated, l)
	evt.Attributes["startDate"] = strconv.FormatInt(l.StartDate, 10)
	evt.Attributes["endDate"] = strconv.FormatInt(l.EndDate, 10)
	evt.Attributes["depositAmount"] = strconv.FormatUint(l.DepositAmount, 10)
	return evt
}

// NewRentPaidEvent returns the payload emitted for a rent payment.
func NewRentPaidEvent(l *Lease) *types.Event {
	evt := newLeaseEvent(EventTypeRentPaid, l)
	evt.Attributes["amount"] = strconv.FormatUint(l.LastPaymentAmount, 10)
	evt.Attributes["paymentNumber"] = strconv.FormatUint(uint64(l.PaymentsMade), 10)
	evt.Attributes["paidAt"] = strconv.FormatInt(l.LastPaymentAt, 10)
	evt.Attributes["totalPaid"] = strconv.FormatUint(l.TotalPaid, 10)
	return evt
}

// NewEndedEvent returns the payload emitted when the landlord ends a lease.
func NewEndedEvent(l *Lease, at int64) *types.Event {
	evt := newLeaseEvent(EventTypeLeaseEnded, l)
	evt.Attributes["endedAt"] = strconv.FormatInt(at, 10)
	evt.Attributes["paymentsMade"] = strconv.FormatUint(uint64(l.PaymentsMade), 10)
	return evt
}

// NewDisputedEvent returns the dispute record for a lease.
func NewDisputedEvent(l *Lease, initiator types.Address, reason string, at int64) *types.Event {
	evt := newLeaseEvent(EventTypeLeaseDisputed, l)
	evt.Attributes["initiator"] = initiator.Hex()
	evt.Attributes["reason"] = reason
	evt.Attributes["disputedAt"] = strconv.FormatInt(at, 10)
	return evt
}

func newLeaseEvent(kind string, l *Lease) *types.Event {
	attrs := map[string]string{}
	if l != nil {
		attrs["lease"] = l.Address.Hex()
		attrs["listing"] = l.Listing.Hex()
		attrs["tenant"] = l.Tenant.Hex()
		attrs["landlord"] = l.Landlord.Hex()
		attrs["rentAmount"] = strconv.FormatUint(l.RentAmount, 10)
	}
	return &types.Event{Type: kind, Attributes: attrs}
}
