package web3

import (
	"context"

	"betting-wallet/internal/models"
)

// Signer is the wallet-signing capability: the component that holds the
// private keys and asks the user to approve each transaction (a browser
// extension in the original deployment).
type Signer interface {
	// RequestAccounts prompts the user to connect and returns the unlocked
	// account addresses, primary first.
	RequestAccounts(ctx context.Context) ([]string, error)

	// Accounts returns the already-connected addresses without prompting.
	// An empty slice means no wallet is connected.
	Accounts(ctx context.Context) ([]string, error)

	// SendTransaction asks the wallet to sign and submit the descriptor,
	// returning the transaction hash. Implementations report an explicit
	// user cancellation as ErrRejectedByUser and a fee shortfall as
	// ErrInsufficientGas.
	SendTransaction(ctx context.Context, tx models.TransactionObject) (string, error)
}
