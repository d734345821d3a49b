package rpc

import (
	"errors"
	"net/http"

	"rentchain/core"
	"rentchain/core/auth"
	"rentchain/core/state"
	"rentchain/native/bank"
	"rentchain/native/common"
	"rentchain/native/escrow"
	"rentchain/native/registry"
	"rentchain/native/rental"
)

var (
	invalidErrs = []error{
		core.ErrInvalidPayload,
		core.ErrChainIDMismatch,
		core.ErrUnknownMethod,
		registry.ErrInvalidRentAmount,
		registry.ErrInvalidDepositAmount,
		registry.ErrInvalidLeaseDuration,
		registry.ErrMetadataURITooLong,
		registry.ErrDocumentHashTooLong,
		registry.ErrInvalidVerificationLevel,
		registry.ErrInvalidStatus,
		registry.ErrEmptyPatch,
		rental.ErrInvalidRentAmount,
		rental.ErrInvalidDepositAmount,
		rental.ErrInvalidLeaseDuration,
		rental.ErrReasonTooLong,
		rental.ErrDurationOverflow,
		escrow.ErrInvalidAmount,
		escrow.ErrReasonTooLong,
	}
	unauthorizedErrs = []error{
		auth.ErrInvalidSignature,
		auth.ErrMissingSigner,
	}
	forbiddenErrs = []error{
		registry.ErrUnauthorized,
		rental.ErrUnauthorized,
		escrow.ErrUnauthorized,
		escrow.ErrLeaseMismatch,
		bank.ErrUnauthorized,
	}
	notFoundErrs = []error{
		registry.ErrListingNotFound,
		rental.ErrLeaseNotFound,
	}
	conflictErrs = []error{
		state.ErrNonceMismatch,
		registry.ErrListingExists,
		rental.ErrLeaseAlreadyExists,
		rental.ErrLeaseNotActive,
		rental.ErrLeaseExpired,
		rental.ErrPaymentNotDue,
		escrow.ErrEscrowAlreadyInitialized,
		escrow.ErrEscrowNotInitialized,
		escrow.ErrEscrowAlreadyReleased,
		escrow.ErrInsufficientFunds,
		bank.ErrInsufficientBalance,
		bank.ErrBalanceOverflow,
	}
)

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// chainError maps an error returned by the node onto a JSON-RPC error. The
// message is a stable category; the data carries the underlying error text.
func chainError(err error) *RPCError {
	data := err.Error()
	switch {
	case matches(err, invalidErrs):
		return newError(http.StatusBadRequest, codeInvalidParams, "invalid_params", data)
	case matches(err, unauthorizedErrs):
		return newError(http.StatusUnauthorized, codeUnauthorized, "unauthorized", data)
	case matches(err, forbiddenErrs):
		return newError(http.StatusForbidden, codeForbidden, "forbidden", data)
	case matches(err, notFoundErrs):
		return newError(http.StatusNotFound, codeNotFound, "not_found", data)
	case matches(err, conflictErrs):
		return newError(http.StatusConflict, codeConflict, "conflict", data)
	case errors.Is(err, common.ErrModulePaused):
		return newError(http.StatusServiceUnavailable, codeModulePaused, "module_paused", data)
	default:
		return newError(http.StatusInternalServerError, codeServerError, "internal_error", data)
	}
}
