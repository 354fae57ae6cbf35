// Package api is the HTTP client for the remote ledger authority. It owns
// the wire formats; callers get canonical models back (the "_id"/"id"
// naming split between endpoints is resolved here and never leaks out).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"betting-wallet/internal/models"
)

// Error is a rejection from the server: the request reached it and was
// refused. Message carries the server's own wording, shown to the user
// verbatim.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   func() (string, bool)
}

// NewClient builds a client for the given base URL (e.g.
// "http://localhost:5000/api"). token supplies the bearer credential for
// authenticated calls; pass nil for an unauthenticated client.
func NewClient(baseURL string, token func() (string, bool)) *Client {
	if token == nil {
		token = func() (string, bool) { return "", false }
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok, ok := c.token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type authResponse struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (string, *models.User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", nil, err
	}
	user, err := models.NormalizeUser(resp.User)
	if err != nil {
		return "", nil, err
	}
	return resp.Token, user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", nil, err
	}
	user, err := models.NormalizeUser(resp.User)
	if err != nil {
		return "", nil, err
	}
	return resp.Token, user, nil
}

// GetUser fetches the canonical user record. This endpoint serves the
// identifier as "_id"; NormalizeUser hides that.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/users/"+id, nil, &raw); err != nil {
		return nil, err
	}
	return models.NormalizeUser(raw)
}

type userEnvelope struct {
	User json.RawMessage `json:"user"`
}

func (c *Client) userMutation(ctx context.Context, path string, body any) (*models.User, error) {
	var resp userEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return models.NormalizeUser(resp.User)
}

func (c *Client) Deposit(ctx context.Context, userID string, amount int64) (*models.User, error) {
	return c.userMutation(ctx, "/users/deposit", map[string]any{
		"userId": userID,
		"amount": amount,
	})
}

func (c *Client) Withdraw(ctx context.Context, userID string, amount int64) (*models.User, error) {
	return c.userMutation(ctx, "/users/withdraw", map[string]any{
		"userId": userID,
		"amount": amount,
	})
}

// UpdateBalance applies a signed delta and appends the bet record in one
// server-side settlement.
func (c *Client) UpdateBalance(ctx context.Context, userID string, delta int64, bet models.Bet) (*models.User, error) {
	return c.userMutation(ctx, "/users/update-balance", map[string]any{
		"userId": userID,
		"amount": delta,
		"bet":    bet,
	})
}

func (c *Client) ChainBalance(ctx context.Context, address string) (string, error) {
	var resp struct {
		Balance string `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/web3/get-balance/"+address, nil, &resp); err != nil {
		return "", err
	}
	return resp.Balance, nil
}

func (c *Client) CreateTransaction(ctx context.Context, req models.CreateTransactionRequest) (*models.CreateTransactionResponse, error) {
	var resp models.CreateTransactionResponse
	if err := c.do(ctx, http.MethodPost, "/web3/create-transaction", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) TransactionStatus(ctx context.Context, txHash string) (*models.TransactionStatusResponse, error) {
	var resp models.TransactionStatusResponse
	if err := c.do(ctx, http.MethodGet, "/web3/transaction-status/"+txHash, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
