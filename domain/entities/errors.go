package entities

import "errors"

// Error kinds surfaced by the ledger. Services wrap them with context, so callers
// should match with errors.Is rather than comparing messages.
var (
	// ErrNotFound is returned when a team or promo code does not exist.
	// Accounts are never missing; they default-initialize on first read.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed quantities, member lists or names
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned for uniqueness violations and for concurrent
	// mutations that kept racing after every retry was spent
	ErrConflict = errors.New("conflict")

	// ErrInvalidState is returned when an operation is not legal in the current lifecycle state
	ErrInvalidState = errors.New("invalid state")

	// ErrExhausted is returned when a promo code is expired or out of uses
	ErrExhausted = errors.New("promo code exhausted")

	// ErrAlreadyUsed is returned when an identity redeems the same promo code twice
	ErrAlreadyUsed = errors.New("promo code already used")

	// ErrUnavailable is returned when a gated feature is switched off
	ErrUnavailable = errors.New("unavailable")

	// ErrInsufficientBalance is returned when a token debit exceeds the balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrVersionMismatch is returned by a keyed store when a staged version no
	// longer matches the stored one. The service layer retries on it.
	ErrVersionMismatch = errors.New("record version mismatch")
)
