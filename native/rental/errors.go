package rental

import "errors"

var (
	ErrInvalidRentAmount    = errors.New("rental: rent amount must be greater than 0")
	ErrInvalidDepositAmount = errors.New("rental: deposit amount must be greater than 0")
	ErrInvalidLeaseDuration = errors.New("rental: lease duration must be greater than 0")
	ErrLeaseNotActive       = errors.New("rental: lease is not active")
	ErrLeaseExpired         = errors.New("rental: lease has expired")
	ErrPaymentNotDue        = errors.New("rental: payment is not yet due")
	ErrReasonTooLong        = errors.New("rental: reason is too long (max 500 characters)")
	ErrLeaseAlreadyExists   = errors.New("rental: lease already exists")
	ErrLeaseNotFound        = errors.New("rental: lease not found")
	ErrUnauthorized         = errors.New("rental: unauthorized")
	ErrDurationOverflow     = errors.New("rental: lease end overflows")
)
