package web3

import "errors"

// Validation failures below are resolved locally; none of them reach the
// network or the signing wallet.
var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrInvalidAddress     = errors.New("invalid recipient address")
	ErrSelfTransfer       = errors.New("cannot send payment to your own address")
	ErrInvalidAmount      = errors.New("amount must be greater than 0")
	ErrInsufficientFunds  = errors.New("insufficient balance")

	// ErrTxInFlight rejects a second submission while one is still being
	// signed or polled. Only the in-flight action is blocked, not the UI.
	ErrTxInFlight = errors.New("a transaction is already in progress")
)

// Signing errors a wallet implementation reports. Neither is retried
// automatically: the first is an explicit user decision, the second needs
// the user to top up first.
var (
	ErrRejectedByUser  = errors.New("transaction rejected by user")
	ErrInsufficientGas = errors.New("insufficient funds for gas fee")
)
