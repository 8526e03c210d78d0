package services

import "errors"

// Validation failures are surfaced to the caller as-is; the caller can
// correct the precondition and retry. GatewayError wraps remote errors.
var (
	ErrInvalidAmount                   = errors.New("amount must be greater than zero")
	ErrDuplicateEnrollment             = errors.New("a completed payment already exists for this learner and course")
	ErrTransactionNotFound             = errors.New("transaction not found")
	ErrAlreadyRefunded                 = errors.New("transaction has already been refunded")
	ErrInstructorNotPayable            = errors.New("instructor has no active payout destination")
	ErrPayoutNotFound                  = errors.New("payout not found")
	ErrInvalidPayoutState              = errors.New("payout is not in a valid state for this transition")
	ErrExistingPendingPayout           = errors.New("instructor already has a pending payout request")
	ErrInsufficientBalance             = errors.New("requested amount exceeds unsettled balance")
	ErrInsufficientBalanceAtSettlement = errors.New("unsettled balance fell below the payout amount before settlement")
	ErrUnauthorized                    = errors.New("not allowed to act on this payout")
)

// GatewayError wraps a failure from the external payment gateway so callers
// can distinguish remote failures from validation failures.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return "gateway " + e.Op + ": " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error { return e.Err }
