package web3

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"betting-wallet/internal/models"
)

// DevWallet is a headless stand-in for a browser wallet extension, used by
// the CLI against the local chain simulator. It approves everything it is
// asked to sign and fabricates the transaction hash the chain would
// assign.
type DevWallet struct {
	address string

	// ForceFailure makes the next submitted hash one the chain simulator
	// settles as failed.
	ForceFailure bool
}

// NewDevWallet uses the given address, or generates one when empty.
func NewDevWallet(address string) (*DevWallet, error) {
	if address == "" {
		raw := make([]byte, 20)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("failed to generate dev address: %w", err)
		}
		address = "0x" + hex.EncodeToString(raw)
	}
	if !models.IsValidAddress(address) {
		return nil, fmt.Errorf("invalid dev wallet address %q", address)
	}
	return &DevWallet{address: address}, nil
}

func (w *DevWallet) Address() string {
	return w.address
}

func (w *DevWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{w.address}, nil
}

func (w *DevWallet) Accounts(ctx context.Context) ([]string, error) {
	return []string{w.address}, nil
}

func (w *DevWallet) SendTransaction(ctx context.Context, tx models.TransactionObject) (string, error) {
	if !models.SameAddress(tx.From, w.address) {
		return "", fmt.Errorf("transaction sender %s does not match wallet account", tx.From)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate transaction hash: %w", err)
	}

	hash := hex.EncodeToString(raw)
	// The chain simulator fails hashes ending in "ff"; steer clear of it
	// unless a failure was asked for.
	if w.ForceFailure {
		hash = hash[:len(hash)-2] + "ff"
	} else if hash[len(hash)-2:] == "ff" {
		hash = hash[:len(hash)-2] + "fe"
	}
	return "0x" + hash, nil
}
