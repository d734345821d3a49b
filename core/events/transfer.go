package events

import (
	"strconv"

	"rentchain/core/types"
)

// TypeTransfer is emitted for every non-zero balance movement.
const TypeTransfer = "bank.transfer"

// Transfer kinds.
const (
	TransferToken  = "token"
	TransferNative = "native"
)

type Transfer struct {
	Kind   string
	From   types.Address
	To     types.Address
	Amount uint64
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"kind":   e.Kind,
		"from":   e.From.Hex(),
		"to":     e.To.Hex(),
		"amount": strconv.FormatUint(e.Amount, 10),
	}}
}
