package common

import "errors"

var (
	// repository specific errors
	ErrNotFound = errors.New("not found")

	// request errors
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// checkout security checks
	ErrOrderOwnership   = errors.New("order does not belong to caller")
	ErrSessionMismatch  = errors.New("payment session does not match order")
	ErrCustomerMismatch = errors.New("payment customer does not match caller")

	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrNotEntitled         = errors.New("purchase required")
	ErrRateLimited         = errors.New("too many requests")

	// upstream errors
	ErrProvider    = errors.New("payment provider error")
	ErrUnavailable = errors.New("service unavailable")
)
