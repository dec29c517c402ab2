package models

import "errors"

// Domain errors. Handlers branch on these with errors.Is to pick a status
// code; anything not listed here is treated as an internal storage failure.
var (
	// ErrInvalidIssuerPrefix means BANK_BIN is missing or not exactly five
	// digits. Surfaced the first time account-number generation runs.
	ErrInvalidIssuerPrefix = errors.New("issuer prefix must be exactly 5 digits")

	// ErrInvalidAmount covers zero and negative movement amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrValidation wraps client-caused signup validation failures so the
	// HTTP layer can separate them from server-caused storage failures.
	ErrValidation = errors.New("validation failed")

	// ErrAccountNotFound covers both a missing account and an account that
	// does not belong to the caller.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountNotActive means the account exists but cannot move money.
	ErrAccountNotActive = errors.New("account is not active")

	// ErrInsufficientFunds means the source balance is below the requested
	// amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAccountType means the requested type is outside the closed
	// enumeration of account types.
	ErrInvalidAccountType = errors.New("unknown account type")

	// ErrDuplicateAccount means the user already holds an account of the
	// requested type.
	ErrDuplicateAccount = errors.New("account of this type already exists")

	// ErrAccountNumberTaken means a generated account number collided with
	// an existing one. Never surfaced to callers; the creation loop retries
	// with a fresh candidate.
	ErrAccountNumberTaken = errors.New("account number already taken")

	// ErrInvalidCardNumber means the funding card failed checksum or format
	// validation.
	ErrInvalidCardNumber = errors.New("invalid card number")

	// ErrInvalidCredentials is returned for any login failure without
	// distinguishing unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken means a user with this email already exists.
	ErrEmailTaken = errors.New("user already exists")
)
