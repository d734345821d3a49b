package escrow

import "errors"

var (
	ErrInvalidAmount            = errors.New("escrow: invalid amount")
	ErrEscrowAlreadyInitialized = errors.New("escrow: escrow already initialized")
	ErrEscrowNotInitialized     = errors.New("escrow: escrow not initialized")
	ErrEscrowAlreadyReleased    = errors.New("escrow: escrow already released")
	ErrInsufficientFunds        = errors.New("escrow: insufficient funds in escrow")
	ErrReasonTooLong            = errors.New("escrow: reason is too long (max 500 characters)")
	ErrUnauthorized             = errors.New("escrow: unauthorized")
	ErrLeaseMismatch            = errors.New("escrow: lease parties do not match")
)
