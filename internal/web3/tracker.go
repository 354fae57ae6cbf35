// Package web3 drives a single outbound payment from user intent to a
// confirmed or failed outcome: validate locally, obtain an unsigned
// descriptor from the transaction service, hand it to the wallet for
// signing, then poll the status endpoint until the chain settles it.
package web3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"betting-wallet/internal/api"
	"betting-wallet/internal/models"
)

type State string

const (
	StateIdle              State = "idle"
	StateEstimating        State = "estimating"
	StateAwaitingSignature State = "awaiting_signature"
	StateSubmitted         State = "submitted"
	StatePolling           State = "polling"
	StateConfirmed         State = "confirmed"
	StateFailed            State = "failed"
	StateTimedOut          State = "timed_out"
)

// Update is pushed to the view on every state transition. Message is the
// single human-readable status line the UI shows; it never contains a raw
// error dump beyond the server's own wording.
type Update struct {
	State       State
	Message     string
	TxHash      string
	BlockNumber int64
}

type Config struct {
	// InitialPollDelay gives the network time to propagate the transaction
	// before the first status query.
	InitialPollDelay time.Duration
	PollInterval     time.Duration
	MaxPollAttempts  int
}

func DefaultConfig() Config {
	return Config{
		InitialPollDelay: 5 * time.Second,
		PollInterval:     10 * time.Second,
		MaxPollAttempts:  30,
	}
}

type Tracker struct {
	api      *api.Client
	signer   Signer
	cfg      Config
	onUpdate func(Update)

	mu         sync.Mutex
	state      State
	account    string
	balance    string
	txHash     string
	pollCancel context.CancelFunc
}

// NewTracker wires the tracker to the transaction service and a signing
// wallet. onUpdate may be nil; otherwise it is invoked (outside the
// tracker's lock) on every transition.
func NewTracker(apiClient *api.Client, signer Signer, cfg Config, onUpdate func(Update)) *Tracker {
	if onUpdate == nil {
		onUpdate = func(Update) {}
	}
	return &Tracker{
		api:      apiClient,
		signer:   signer,
		cfg:      cfg,
		onUpdate: onUpdate,
		state:    StateIdle,
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Account() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.account
}

func (t *Tracker) TxHash() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txHash
}

// Balance returns the last fetched chain balance, if one is known.
func (t *Tracker) Balance() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance, t.balance != ""
}

// Connect prompts the wallet for accounts and adopts the primary one.
func (t *Tracker) Connect(ctx context.Context) (string, error) {
	accounts, err := t.signer.RequestAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to connect wallet: %w", err)
	}
	if len(accounts) == 0 {
		return "", ErrWalletNotConnected
	}

	t.mu.Lock()
	t.account = accounts[0]
	t.mu.Unlock()

	if _, err := t.RefreshBalance(ctx); err != nil {
		log.WithError(err).Warn("Failed to fetch balance after connect")
	}
	return accounts[0], nil
}

// Reconnect silently re-checks for an already-connected wallet, the way a
// freshly loaded page does. No prompt is shown.
func (t *Tracker) Reconnect(ctx context.Context) (string, error) {
	accounts, err := t.signer.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to check wallet connection: %w", err)
	}
	if len(accounts) == 0 {
		return "", ErrWalletNotConnected
	}

	t.mu.Lock()
	t.account = accounts[0]
	t.mu.Unlock()

	if _, err := t.RefreshBalance(ctx); err != nil {
		log.WithError(err).Warn("Failed to fetch balance after reconnect")
	}
	return accounts[0], nil
}

func (t *Tracker) RefreshBalance(ctx context.Context) (string, error) {
	t.mu.Lock()
	account := t.account
	t.mu.Unlock()
	if account == "" {
		return "", ErrWalletNotConnected
	}

	balance, err := t.api.ChainBalance(ctx, account)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.balance = balance
	t.mu.Unlock()
	return balance, nil
}

// EstimateGas asks the service what the transfer would cost. Purely
// advisory: a failure here never blocks a later Send.
func (t *Tracker) EstimateGas(ctx context.Context, recipient, amount string) (string, error) {
	t.mu.Lock()
	account := t.account
	t.mu.Unlock()
	if account == "" {
		return "", ErrWalletNotConnected
	}

	resp, err := t.api.CreateTransaction(ctx, models.CreateTransactionRequest{
		Recipient:     recipient,
		Amount:        amount,
		SenderAddress: account,
	})
	if err != nil {
		return "", err
	}
	return resp.EstimatedGasFee, nil
}

// validate runs the pre-flight checks. All of them are local; a rejected
// attempt makes no network call and never reaches the wallet.
func (t *Tracker) validate(account, balance, recipient, amount string) error {
	if account == "" {
		return ErrWalletNotConnected
	}
	if !models.IsValidAddress(recipient) {
		return ErrInvalidAddress
	}
	if models.SameAddress(recipient, account) {
		return ErrSelfTransfer
	}
	amt, err := models.ParseAmount(amount)
	if err != nil {
		return ErrInvalidAmount
	}
	if balance != "" {
		if bal, err := strconv.ParseFloat(balance, 64); err == nil && amt > bal {
			return ErrInsufficientFunds
		}
	}
	return nil
}

// Send validates the transfer, obtains the unsigned descriptor, has the
// wallet sign and submit it, then starts the confirmation poll in the
// background. It returns the transaction hash as soon as the wallet
// accepts; the terminal outcome arrives through onUpdate.
func (t *Tracker) Send(ctx context.Context, recipient, amount string) (string, error) {
	t.mu.Lock()
	switch t.state {
	case StateEstimating, StateAwaitingSignature, StateSubmitted, StatePolling:
		t.mu.Unlock()
		return "", ErrTxInFlight
	}
	account, balance := t.account, t.balance
	t.mu.Unlock()

	if err := t.validate(account, balance, recipient, amount); err != nil {
		return "", err
	}

	t.transition(StateEstimating, "Preparing transaction...", "")

	created, err := t.api.CreateTransaction(ctx, models.CreateTransactionRequest{
		Recipient:     recipient,
		Amount:        amount,
		SenderAddress: account,
	})
	if err != nil {
		t.transition(StateIdle, userMessage("Payment failed", err), "")
		return "", err
	}

	t.transition(StateAwaitingSignature, "Please confirm the transaction in your wallet...", "")

	txHash, err := t.signer.SendTransaction(ctx, created.TransactionObject)
	if err != nil {
		switch {
		case errors.Is(err, ErrRejectedByUser):
			t.transition(StateIdle, "Transaction rejected by user.", "")
		case errors.Is(err, ErrInsufficientGas):
			t.transition(StateIdle, "Insufficient funds for gas fee.", "")
		default:
			t.transition(StateIdle, userMessage("Payment failed", err), "")
		}
		return "", err
	}

	t.mu.Lock()
	t.txHash = txHash
	if t.pollCancel != nil {
		t.pollCancel()
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	t.pollCancel = cancel
	t.mu.Unlock()

	t.transition(StateSubmitted, "Transaction submitted! Waiting for confirmation...", txHash)

	go t.poll(pollCtx, txHash)
	return txHash, nil
}

// poll queries the status endpoint sequentially: one outstanding request at
// a time, the next scheduled only after the previous resolves. A cancelled
// context stops the loop before it can apply any further update.
func (t *Tracker) poll(ctx context.Context, txHash string) {
	if !sleepCtx(ctx, t.cfg.InitialPollDelay) {
		return
	}
	t.apply(ctx, Update{State: StatePolling, Message: "Waiting for confirmation...", TxHash: txHash})

	for attempt := 1; ; attempt++ {
		status, err := t.api.TransactionStatus(ctx, txHash)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// Unknown outcome, not a definite loss: tell the user to check
			// the hash, same as running out of attempts.
			t.apply(ctx, Update{
				State:   StateTimedOut,
				Message: "Could not verify transaction status. Please check your transaction hash manually.",
				TxHash:  txHash,
			})
			return
		}

		switch status.Status {
		case models.TxStatusSuccess:
			if _, err := t.RefreshBalance(ctx); err != nil {
				log.WithError(err).Warn("Failed to refresh balance after confirmation")
			}
			t.apply(ctx, Update{
				State:       StateConfirmed,
				Message:     fmt.Sprintf("Payment successful! Transaction confirmed in block %d", status.BlockNumber),
				TxHash:      txHash,
				BlockNumber: status.BlockNumber,
			})
			return
		case models.TxStatusFailed:
			t.apply(ctx, Update{
				State:   StateFailed,
				Message: "Transaction failed. Please try again.",
				TxHash:  txHash,
			})
			return
		}

		if attempt >= t.cfg.MaxPollAttempts {
			t.apply(ctx, Update{
				State:   StateTimedOut,
				Message: "Transaction is taking longer than expected. Check your transaction hash manually.",
				TxHash:  txHash,
			})
			return
		}
		if !sleepCtx(ctx, t.cfg.PollInterval) {
			return
		}
	}
}

// HandleAccountsChanged mirrors the wallet's accountsChanged event. An
// empty list means the user disconnected the wallet out from under us.
func (t *Tracker) HandleAccountsChanged(ctx context.Context, accounts []string) {
	if len(accounts) == 0 {
		t.Disconnect()
		return
	}

	t.mu.Lock()
	t.account = accounts[0]
	t.balance = ""
	t.mu.Unlock()

	if _, err := t.RefreshBalance(ctx); err != nil {
		log.WithError(err).Warn("Failed to refresh balance after account change")
	}
}

// HandleChainChanged mirrors the wallet's chainChanged event. Nothing from
// the old chain can be trusted, so the whole context is rebuilt: state
// cleared, any poll cancelled, then a silent reconnect (the page-reload of
// the original).
func (t *Tracker) HandleChainChanged(ctx context.Context) {
	t.Disconnect()
	if _, err := t.Reconnect(ctx); err != nil && !errors.Is(err, ErrWalletNotConnected) {
		log.WithError(err).Warn("Failed to reconnect after chain change")
	}
}

// Disconnect clears the account, balance, and any in-flight status, and
// guarantees no poll scheduled before this point can apply another update.
func (t *Tracker) Disconnect() {
	t.mu.Lock()
	if t.pollCancel != nil {
		t.pollCancel()
		t.pollCancel = nil
	}
	t.account = ""
	t.balance = ""
	t.txHash = ""
	t.state = StateIdle
	t.mu.Unlock()

	t.onUpdate(Update{State: StateIdle})
}

// Close stops any background polling without touching the connection
// state. Call it when the owning view unmounts.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.pollCancel != nil {
		t.pollCancel()
		t.pollCancel = nil
	}
	t.mu.Unlock()
}

// transition applies an unconditional state change from the submission
// path (which is never racing a cancelled poll).
func (t *Tracker) transition(state State, message, txHash string) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
	t.onUpdate(Update{State: state, Message: message, TxHash: txHash})
}

// apply is the polling path's transition: it refuses to touch state once
// its context has been cancelled, so a disconnect or unmount mid-poll
// means no further visible changes.
func (t *Tracker) apply(ctx context.Context, u Update) {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	t.state = u.State
	t.mu.Unlock()
	t.onUpdate(u)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func userMessage(prefix string, err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", prefix, apiErr.Error())
	}
	return fmt.Sprintf("%s: %s", prefix, err.Error())
}
