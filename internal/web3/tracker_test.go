package web3_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betting-wallet/internal/api"
	"betting-wallet/internal/models"
	"betting-wallet/internal/web3"
)

var (
	sender    = "0x" + strings.Repeat("a", 40)
	recipient = "0x" + strings.Repeat("b", 40)
)

type fakeSigner struct {
	accounts []string
	txHash   string
	err      error
	calls    int32
}

func (s *fakeSigner) RequestAccounts(ctx context.Context) ([]string, error) {
	return s.accounts, nil
}

func (s *fakeSigner) Accounts(ctx context.Context) ([]string, error) {
	return s.accounts, nil
}

func (s *fakeSigner) SendTransaction(ctx context.Context, tx models.TransactionObject) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return "", s.err
	}
	return s.txHash, nil
}

// chainStub serves the transaction service: balance, create-transaction,
// and a scripted sequence of status responses.
type chainStub struct {
	mu          sync.Mutex
	balance     string
	statuses    []models.TxStatus
	blockNumber int64

	statusCalls  int32
	createCalls  int32
	balanceCalls int32
}

func (c *chainStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/web3/get-balance/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&c.balanceCalls, 1)
		fmt.Fprintf(w, `{"balance":%q}`, c.balance)
	})
	mux.HandleFunc("/web3/create-transaction", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&c.createCalls, 1)
		fmt.Fprintf(w, `{"transactionObject":{"from":%q,"to":%q,"value":"0x1","gas":"0x5208","gasPrice":"0x4a817c800"},"estimatedGasFee":"0.000420"}`,
			sender, recipient)
	})
	mux.HandleFunc("/web3/transaction-status/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&c.statusCalls, 1)

		c.mu.Lock()
		var status models.TxStatus = models.TxStatusPending
		if int(n) <= len(c.statuses) {
			status = c.statuses[n-1]
		} else if len(c.statuses) > 0 {
			status = c.statuses[len(c.statuses)-1]
		}
		block := c.blockNumber
		c.mu.Unlock()

		if status == models.TxStatusSuccess {
			fmt.Fprintf(w, `{"status":"success","blockNumber":%d}`, block)
			return
		}
		fmt.Fprintf(w, `{"status":%q}`, status)
	})
	return mux
}

type updateLog struct {
	mu      sync.Mutex
	updates []web3.Update
	done    chan web3.Update
}

func newUpdateLog() *updateLog {
	return &updateLog{done: make(chan web3.Update, 1)}
}

func (l *updateLog) record(u web3.Update) {
	l.mu.Lock()
	l.updates = append(l.updates, u)
	l.mu.Unlock()

	switch u.State {
	case web3.StateConfirmed, web3.StateFailed, web3.StateTimedOut:
		select {
		case l.done <- u:
		default:
		}
	}
}

func (l *updateLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.updates)
}

func (l *updateLog) waitTerminal(t *testing.T) web3.Update {
	t.Helper()
	select {
	case u := <-l.done:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("tracker never reached a terminal state")
		return web3.Update{}
	}
}

func fastConfig(maxAttempts int) web3.Config {
	return web3.Config{
		InitialPollDelay: time.Millisecond,
		PollInterval:     time.Millisecond,
		MaxPollAttempts:  maxAttempts,
	}
}

func setupTracker(t *testing.T, stub *chainStub, signer *fakeSigner, cfg web3.Config) (*web3.Tracker, *updateLog) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	log := newUpdateLog()
	tracker := web3.NewTracker(api.NewClient(srv.URL, nil), signer, cfg, log.record)

	_, err := tracker.Connect(context.Background())
	require.NoError(t, err)
	return tracker, log
}

func TestSendRejectsInvalidAddressBeforeAnyCall(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, _ := setupTracker(t, stub, signer, fastConfig(30))

	before := atomic.LoadInt32(&stub.createCalls)

	_, err := tracker.Send(context.Background(), "0xINVALID", "0.5")
	assert.ErrorIs(t, err, web3.ErrInvalidAddress)
	assert.Zero(t, atomic.LoadInt32(&signer.calls), "signer must not see an invalid transfer")
	assert.Equal(t, before, atomic.LoadInt32(&stub.createCalls), "no network call for a local rejection")
	assert.Equal(t, web3.StateIdle, tracker.State())
}

func TestSendRejectsSelfTransfer(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, _ := setupTracker(t, stub, signer, fastConfig(30))

	// Same address, different casing: still a self transfer.
	_, err := tracker.Send(context.Background(), strings.ToUpper(sender[2:]), "0.5")
	assert.ErrorIs(t, err, web3.ErrInvalidAddress, "uppercased without 0x prefix is not even an address")

	mixed := "0x" + strings.ToUpper(sender[2:])
	_, err = tracker.Send(context.Background(), mixed, "0.5")
	assert.ErrorIs(t, err, web3.ErrSelfTransfer)
	assert.Zero(t, atomic.LoadInt32(&signer.calls))
}

func TestSendValidation(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, _ := setupTracker(t, stub, signer, fastConfig(30))

	_, err := tracker.Send(context.Background(), recipient, "0")
	assert.ErrorIs(t, err, web3.ErrInvalidAmount)

	_, err = tracker.Send(context.Background(), recipient, "abc")
	assert.ErrorIs(t, err, web3.ErrInvalidAmount)

	// Cached balance is 10.0, so 50 is an advisory insufficient-funds stop.
	_, err = tracker.Send(context.Background(), recipient, "50")
	assert.ErrorIs(t, err, web3.ErrInsufficientFunds)

	assert.Zero(t, atomic.LoadInt32(&signer.calls))
}

func TestSendWithoutWallet(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: nil}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	tracker := web3.NewTracker(api.NewClient(srv.URL, nil), signer, fastConfig(30), nil)

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	assert.ErrorIs(t, err, web3.ErrWalletNotConnected)
}

// The happy path of the lifecycle: submit, two pending polls, then a
// confirmation that refreshes the balance.
func TestSendConfirmedAfterPendingPolls(t *testing.T) {
	stub := &chainStub{
		balance:     "10.0",
		statuses:    []models.TxStatus{models.TxStatusPending, models.TxStatusPending, models.TxStatusSuccess},
		blockNumber: 123,
	}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, log := setupTracker(t, stub, signer, fastConfig(30))

	balanceCallsBefore := atomic.LoadInt32(&stub.balanceCalls)

	hash, err := tracker.Send(context.Background(), recipient, "0.5")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", hash)

	final := log.waitTerminal(t)
	assert.Equal(t, web3.StateConfirmed, final.State)
	assert.Equal(t, int64(123), final.BlockNumber)
	assert.Equal(t, "0xdeadbeef", final.TxHash)
	assert.Contains(t, final.Message, "block 123")

	assert.Equal(t, int32(3), atomic.LoadInt32(&stub.statusCalls))
	assert.Greater(t, atomic.LoadInt32(&stub.balanceCalls), balanceCallsBefore,
		"confirmation refreshes the balance")
	assert.Equal(t, web3.StateConfirmed, tracker.State())
}

func TestSendFailedStatus(t *testing.T) {
	stub := &chainStub{
		balance:  "10.0",
		statuses: []models.TxStatus{models.TxStatusFailed},
	}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, log := setupTracker(t, stub, signer, fastConfig(30))

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	require.NoError(t, err)

	final := log.waitTerminal(t)
	assert.Equal(t, web3.StateFailed, final.State)
	assert.Equal(t, web3.StateFailed, tracker.State())
}

// Thirty pendings in a row is a timeout, not a failure, and polling stops.
func TestPollingTimesOutAfterMaxAttempts(t *testing.T) {
	stub := &chainStub{balance: "10.0"} // no script: always pending
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, log := setupTracker(t, stub, signer, fastConfig(30))

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	require.NoError(t, err)

	final := log.waitTerminal(t)
	assert.Equal(t, web3.StateTimedOut, final.State)
	assert.NotEqual(t, web3.StateFailed, final.State)
	assert.Contains(t, final.Message, "Check your transaction hash")

	polls := atomic.LoadInt32(&stub.statusCalls)
	assert.Equal(t, int32(30), polls)

	// No further polls get scheduled after the terminal state.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, polls, atomic.LoadInt32(&stub.statusCalls))
}

// Disconnecting mid-poll stops the loop and suppresses every update it
// might still have applied.
func TestDisconnectCancelsPolling(t *testing.T) {
	stub := &chainStub{balance: "10.0"} // always pending
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	cfg := web3.Config{
		InitialPollDelay: time.Millisecond,
		PollInterval:     5 * time.Millisecond,
		MaxPollAttempts:  10000,
	}
	tracker, log := setupTracker(t, stub, signer, cfg)

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	require.NoError(t, err)

	// Let a few polls happen, then pull the plug.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&stub.statusCalls) >= 2
	}, time.Second, time.Millisecond)

	tracker.Disconnect()
	assert.Equal(t, web3.StateIdle, tracker.State())
	assert.Equal(t, "", tracker.Account())
	assert.Equal(t, "", tracker.TxHash())

	seen := log.count()
	polls := atomic.LoadInt32(&stub.statusCalls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, log.count(), "no visible updates after disconnect")
	assert.LessOrEqual(t, atomic.LoadInt32(&stub.statusCalls), polls+1,
		"at most the already in-flight poll may finish")
	assert.Equal(t, web3.StateIdle, tracker.State())
}

func TestUserRejectionReturnsToIdle(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: []string{sender}, err: web3.ErrRejectedByUser}
	tracker, log := setupTracker(t, stub, signer, fastConfig(30))

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	assert.ErrorIs(t, err, web3.ErrRejectedByUser)
	assert.Equal(t, web3.StateIdle, tracker.State())

	log.mu.Lock()
	last := log.updates[len(log.updates)-1]
	log.mu.Unlock()
	assert.Equal(t, "Transaction rejected by user.", last.Message)
	assert.Zero(t, atomic.LoadInt32(&stub.statusCalls), "a rejected signing never polls")
}

func TestGasShortfallReturnsToIdle(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: []string{sender}, err: web3.ErrInsufficientGas}
	tracker, log := setupTracker(t, stub, signer, fastConfig(30))

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	assert.ErrorIs(t, err, web3.ErrInsufficientGas)
	assert.Equal(t, web3.StateIdle, tracker.State())

	log.mu.Lock()
	last := log.updates[len(log.updates)-1]
	log.mu.Unlock()
	assert.Equal(t, "Insufficient funds for gas fee.", last.Message)
}

func TestSecondSendWhileInFlight(t *testing.T) {
	stub := &chainStub{balance: "10.0"} // always pending
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	cfg := web3.Config{
		InitialPollDelay: 50 * time.Millisecond,
		PollInterval:     50 * time.Millisecond,
		MaxPollAttempts:  100,
	}
	tracker, _ := setupTracker(t, stub, signer, cfg)
	defer tracker.Close()

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	require.NoError(t, err)

	_, err = tracker.Send(context.Background(), recipient, "0.5")
	assert.ErrorIs(t, err, web3.ErrTxInFlight)
}

func TestAccountsChangedToEmptyDisconnects(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, _ := setupTracker(t, stub, signer, fastConfig(30))

	require.Equal(t, sender, tracker.Account())

	tracker.HandleAccountsChanged(context.Background(), nil)
	assert.Equal(t, "", tracker.Account())
	_, ok := tracker.Balance()
	assert.False(t, ok)
}

func TestAccountsChangedAdoptsNewAccount(t *testing.T) {
	stub := &chainStub{balance: "3.5"}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, _ := setupTracker(t, stub, signer, fastConfig(30))

	other := "0x" + strings.Repeat("c", 40)
	tracker.HandleAccountsChanged(context.Background(), []string{other})
	assert.Equal(t, other, tracker.Account())

	balance, ok := tracker.Balance()
	require.True(t, ok)
	assert.Equal(t, "3.5", balance)
}

func TestChainChangedRebuildsContext(t *testing.T) {
	stub := &chainStub{balance: "10.0"} // always pending
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	cfg := web3.Config{
		InitialPollDelay: time.Millisecond,
		PollInterval:     5 * time.Millisecond,
		MaxPollAttempts:  10000,
	}
	tracker, log := setupTracker(t, stub, signer, cfg)

	_, err := tracker.Send(context.Background(), recipient, "0.5")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&stub.statusCalls) >= 1
	}, time.Second, time.Millisecond)

	tracker.HandleChainChanged(context.Background())

	// Reconnected to the same wallet, but nothing of the old transaction
	// survives and no timed-out/failed verdict ever lands.
	assert.Equal(t, sender, tracker.Account())
	assert.Equal(t, "", tracker.TxHash())

	seen := log.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, log.count())
}

func TestEstimateGasAdvisory(t *testing.T) {
	stub := &chainStub{balance: "10.0"}
	signer := &fakeSigner{accounts: []string{sender}, txHash: "0xdeadbeef"}
	tracker, _ := setupTracker(t, stub, signer, fastConfig(30))

	fee, err := tracker.EstimateGas(context.Background(), recipient, "0.5")
	require.NoError(t, err)
	assert.Equal(t, "0.000420", fee)
	assert.Equal(t, web3.StateIdle, tracker.State(), "estimation does not advance the lifecycle")
}
