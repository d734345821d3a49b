package escrow

import (
	"strconv"

	"rentchain/core/types"
)

const (
	EventTypeEscrowDeposited = "escrow.deposited"
	EventTypeEscrowReleased  = "escrow.released"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string { return e.evt.EventType() }

func (e escrowEvent) Event() *types.Event { return e.evt }

// NewDepositedEvent returns the payload emitted when a deposit is taken into
// custody.
func NewDepositedEvent(e *Escrow) *types.Event {
	evt := newEscrowEvent(EventTypeEscrowDeposited, e)
	evt.Attributes["createdAt"] = strconv.FormatInt(e.CreatedAt, 10)
	return evt
}

// NewReleasedEvent returns the payload for a release. Both legs are recorded
// even when one of them is zero.
func NewReleasedEvent(e *Escrow, s Settlement) *types.Event {
	evt := newEscrowEvent(EventTypeEscrowReleased, e)
	evt.Attributes["kind"] = string(s.Kind)
	evt.Attributes["tenantAmount"] = strconv.FormatUint(s.TenantAmount, 10)
	evt.Attributes["landlordAmount"] = strconv.FormatUint(s.LandlordAmount, 10)
	evt.Attributes["releasedAt"] = strconv.FormatInt(s.ReleasedAt, 10)
	if s.Reason != "" {
		evt.Attributes["reason"] = s.Reason
	}
	return evt
}

func newEscrowEvent(kind string, e *Escrow) *types.Event {
	attrs := make(map[string]string)
	if e == nil {
		return &types.Event{Type: kind, Attributes: attrs}
	}
	attrs["escrow"] = e.Address.Hex()
	attrs["lease"] = e.Lease.Hex()
	attrs["tenant"] = e.Tenant.Hex()
	attrs["landlord"] = e.Landlord.Hex()
	attrs["custody"] = e.Custody.Hex()
	attrs["amount"] = strconv.FormatUint(e.Amount, 10)
	return &types.Event{Type: kind, Attributes: attrs}
}
