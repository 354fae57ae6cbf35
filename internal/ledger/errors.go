package ledger

import "errors"

var (
	// ErrNotAuthenticated means no user record or credential is cached;
	// the caller should send the user back through login.
	ErrNotAuthenticated = errors.New("not authenticated, please login first")

	// ErrInsufficientFunds is the client-side withdraw pre-check. It is a
	// UX shortcut, not a security boundary: the server re-validates every
	// withdrawal it actually receives.
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrInvalidAmount = errors.New("amount must be a positive number")
)
