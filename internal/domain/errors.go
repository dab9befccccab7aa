// Package domain provides defenitions of all entities.
package domain

import "errors"

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountInactive indicates that the account status does not allow balance changes.
	ErrAccountInactive = errors.New("account is not active")
	// ErrUsernameAlreadyExists indicates that an account for the username already exists.
	ErrUsernameAlreadyExists = errors.New("username already exists")
	// ErrInvalidStatus indicates an unknown account status.
	ErrInvalidStatus = errors.New("invalid account status")

	// ErrInvalidAmount indicates a zero, malformed or too precise amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientFunds indicates that the balance would go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientAvailableFunds indicates that the available balance does not cover the amount.
	ErrInsufficientAvailableFunds = errors.New("insufficient available funds")

	// ErrInvalidEntry indicates that a ledger entry breaks balance_after = balance_before + amount.
	ErrInvalidEntry = errors.New("invalid ledger entry")
	// ErrInvalidEntryType indicates an unknown ledger entry type.
	ErrInvalidEntryType = errors.New("invalid entry type")
	// ErrMetadataTooLarge indicates that the entry metadata exceeds its bounds.
	ErrMetadataTooLarge = errors.New("metadata too large")
	// ErrEntryNotFound indicates that the ledger entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidIdempotencyKey indicates an idempotency key that is too long.
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
	// ErrIdempotencyConflict indicates that the idempotency key was used for a different request.
	ErrIdempotencyConflict = errors.New("idempotency key reused with different parameters")
	// ErrInvalidTimeRange indicates a report interval whose end precedes its start.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrReconciliationMismatch indicates that the account balance differs from its ledger sum.
	ErrReconciliationMismatch = errors.New("balance does not match ledger")
)

var businessErrors = []error{
	ErrAccountNotFound,
	ErrAccountInactive,
	ErrUsernameAlreadyExists,
	ErrInvalidStatus,
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrInsufficientAvailableFunds,
	ErrInvalidEntry,
	ErrInvalidEntryType,
	ErrMetadataTooLarge,
	ErrEntryNotFound,
	ErrInvalidIdempotencyKey,
	ErrIdempotencyConflict,
	ErrInvalidTimeRange,
}

// IsBusinessError reports whether err is a caller-visible business failure as opposed
// to an infrastructure failure.
func IsBusinessError(err error) bool {
	for _, be := range businessErrors {
		if errors.Is(err, be) {
			return true
		}
	}

	return false
}
