// Package ledger mediates every balance-changing action through the remote
// ledger authority. The local cache is only ever overwritten wholesale with
// the server's authoritative user record; when two operations race, the
// last response to arrive wins. That is deliberate: the remote API carries
// no version numbers, so there is nothing sounder to order by.
package ledger

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"betting-wallet/internal/api"
	"betting-wallet/internal/models"
	"betting-wallet/internal/store"
)

type Client struct {
	api   *api.Client
	store store.Store
}

func NewClient(apiClient *api.Client, st store.Store) *Client {
	return &Client{api: apiClient, store: st}
}

func (c *Client) Store() store.Store {
	return c.store
}

// session returns the cached identity, or ErrNotAuthenticated when either
// the user record or the credential is missing.
func (c *Client) session() (*models.User, error) {
	user, ok := c.store.User()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if _, ok := c.store.Token(); !ok {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	token, user, err := c.api.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	c.store.SetToken(token)
	c.store.SetUser(user)
	return user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	token, user, err := c.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.store.SetToken(token)
	c.store.SetUser(user)
	return user, nil
}

func (c *Client) Logout() {
	c.store.Clear()
}

// Deposit credits the wallet. On success the whole cached record is
// replaced with the server's response; on any failure the cache keeps its
// last known-good value.
func (c *Client) Deposit(ctx context.Context, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	user, err := c.session()
	if err != nil {
		return nil, err
	}

	updated, err := c.api.Deposit(ctx, user.ID, amount)
	if err != nil {
		return nil, err
	}

	c.store.SetUser(updated)
	log.WithFields(log.Fields{
		"user_id": updated.ID,
		"amount":  amount,
		"balance": updated.Balance,
	}).Info("Deposit accepted")
	return updated, nil
}

// Withdraw debits the wallet. Amounts above the cached balance fail with
// ErrInsufficientFunds before any network round-trip.
func (c *Client) Withdraw(ctx context.Context, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	user, err := c.session()
	if err != nil {
		return nil, err
	}
	if amount > user.Balance {
		return nil, ErrInsufficientFunds
	}

	updated, err := c.api.Withdraw(ctx, user.ID, amount)
	if err != nil {
		return nil, err
	}

	c.store.SetUser(updated)
	log.WithFields(log.Fields{
		"user_id": updated.ID,
		"amount":  amount,
		"balance": updated.Balance,
	}).Info("Withdrawal accepted")
	return updated, nil
}

// SettleBet posts a signed delta together with the bet record. The delta a
// game computed locally is only good for an optimistic message; the balance
// that counts is the one in the server's response, which silently replaces
// whatever the game expected.
func (c *Client) SettleBet(ctx context.Context, delta int64, bet models.Bet) (*models.User, error) {
	user, err := c.session()
	if err != nil {
		return nil, err
	}
	if bet.Time.IsZero() {
		bet.Time = time.Now().UTC()
	}

	updated, err := c.api.UpdateBalance(ctx, user.ID, delta, bet)
	if err != nil {
		return nil, fmt.Errorf("failed to settle bet: %w", err)
	}

	c.store.SetUser(updated)
	log.WithFields(log.Fields{
		"user_id": updated.ID,
		"event":   bet.Event,
		"delta":   delta,
		"balance": updated.Balance,
	}).Info("Bet settled")
	return updated, nil
}

// RefreshFromServer re-fetches the canonical record and overwrites the
// cache. Views call it on mount and whenever the store broadcasts a change.
func (c *Client) RefreshFromServer(ctx context.Context) (*models.User, error) {
	user, err := c.session()
	if err != nil {
		return nil, err
	}

	updated, err := c.api.GetUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	c.store.SetUser(updated)
	return updated, nil
}
