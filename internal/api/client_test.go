package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betting-wallet/internal/api"
)

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"_id":"u1","name":"A","balance":100}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, func() (string, bool) { return "tok-123", true })
	_, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestNoTokenNoHeader(t *testing.T) {
	var gotAuth string
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, hasAuth = r.Header.Get("Authorization"), len(r.Header.Values("Authorization")) > 0
		w.Write([]byte(`{"balance":"5.0"}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, nil)
	balance, err := client.ChainBalance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "5.0", balance)
	assert.False(t, hasAuth, "unexpected Authorization header %q", gotAuth)
}

func TestServerRejectionDecodedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Insufficient balance"}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, nil)
	_, err := client.Withdraw(context.Background(), "u1", 500)
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Insufficient balance", apiErr.Error())
}

func TestRejectionWithoutBodyFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, nil)
	_, err := client.GetUser(context.Background(), "u1")

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "server returned status 502", apiErr.Error())
}

func TestTransportFailureIsNotAServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := api.NewClient(srv.URL, nil)
	_, err := client.GetUser(context.Background(), "u1")
	require.Error(t, err)

	var apiErr *api.Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestLoginReturnsTokenAndNormalizedUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		w.Write([]byte(`{"token":"jwt-abc","user":{"_id":"u42","name":"Player","balance":1000}}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, nil)
	token, user, err := client.Login(context.Background(), "p@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)
	assert.Equal(t, "u42", user.ID)
	assert.Equal(t, int64(1000), user.Balance)
}

func TestMutationUnwrapsUserEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/deposit", r.URL.Path)
		w.Write([]byte(`{"user":{"_id":"u1","name":"Player","balance":1700,"totalDeposits":700}}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, nil)
	user, err := client.Deposit(context.Background(), "u1", 700)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, int64(1700), user.Balance)
	assert.Equal(t, int64(700), user.TotalDeposits)
}
