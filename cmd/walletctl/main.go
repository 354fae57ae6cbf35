// walletctl is a command-line stand-in for the wallet pages of the
// dashboard: account, deposit/withdraw, the betting mini-games, and the
// Web3 payment flow, all against a running walletd.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"betting-wallet/internal/api"
	"betting-wallet/internal/games"
	"betting-wallet/internal/ledger"
	"betting-wallet/internal/models"
	"betting-wallet/internal/store"
	"betting-wallet/internal/web3"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	apiURL := envOr("WALLET_API_URL", "http://localhost:8080/api")
	statePath := envOr("WALLET_STATE_FILE", ".wallet-state.db")

	st, err := store.OpenSQLite(statePath)
	if err != nil {
		log.Fatalf("Failed to open local state: %v", err)
	}
	defer st.Close()

	client := ledger.NewClient(api.NewClient(apiURL, st.Token), st)
	ctx := context.Background()

	if err := run(ctx, client, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *ledger.Client, cmd string, args []string) error {
	switch cmd {
	case "register":
		if len(args) != 3 {
			return fmt.Errorf("usage: walletctl register NAME EMAIL PASSWORD")
		}
		user, err := client.Register(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s, balance PKR %d\n", user.Name, user.Balance)
		return nil

	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: walletctl login EMAIL PASSWORD")
		}
		user, err := client.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s, balance PKR %d\n", user.Name, user.Balance)
		return nil

	case "logout":
		client.Logout()
		fmt.Println("Logged out")
		return nil

	case "account":
		user, err := client.RefreshFromServer(ctx)
		if err != nil {
			return err
		}
		printAccount(user)
		return nil

	case "history":
		user, err := client.RefreshFromServer(ctx)
		if err != nil {
			return err
		}
		if len(user.GameHistory) == 0 {
			fmt.Println("No bets yet")
			return nil
		}
		for _, bet := range user.GameHistory {
			fmt.Printf("%s  %-16s PKR %-6d %s\n",
				bet.Time.Format("2006-01-02 15:04"), bet.Event, bet.Amount, bet.Status)
		}
		return nil

	case "deposit", "withdraw":
		if len(args) != 1 {
			return fmt.Errorf("usage: walletctl %s AMOUNT", cmd)
		}
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		var user *models.User
		if cmd == "deposit" {
			user, err = client.Deposit(ctx, amount)
		} else {
			user, err = client.Withdraw(ctx, amount)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Done. Balance: PKR %d\n", user.Balance)
		return nil

	case "evenodd":
		if len(args) != 1 {
			return fmt.Errorf("usage: walletctl evenodd even|odd")
		}
		result, err := games.NewEvenOdd(client).Play(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		fmt.Printf("Balance: PKR %d\n", result.Balance)
		return nil

	case "lottery":
		if len(args) != 1 {
			return fmt.Errorf("usage: walletctl lottery NUMBER")
		}
		pick, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid number %q", args[0])
		}
		result, err := games.NewLottery(client).Play(ctx, pick)
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		fmt.Printf("Balance: PKR %d\n", result.Balance)
		return nil

	case "send", "estimate":
		return runWeb3(ctx, cmd, args)

	case "watch":
		return runWatch(ctx, client)

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runWeb3(ctx context.Context, cmd string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: walletctl %s RECIPIENT AMOUNT", cmd)
	}
	recipient, amount := args[0], args[1]

	wallet, err := web3.NewDevWallet(os.Getenv("WALLET_DEV_ADDRESS"))
	if err != nil {
		return err
	}
	wallet.ForceFailure = len(args) > 2 && args[2] == "--fail"

	apiURL := envOr("WALLET_API_URL", "http://localhost:8080/api")

	updates := make(chan web3.Update, 16)
	tracker := web3.NewTracker(api.NewClient(apiURL, nil), wallet, web3.DefaultConfig(), func(u web3.Update) {
		updates <- u
	})

	if _, err := tracker.Connect(ctx); err != nil {
		return err
	}
	if balance, ok := tracker.Balance(); ok {
		fmt.Printf("Connected %s (balance %s ETH)\n", wallet.Address(), balance)
	}

	if cmd == "estimate" {
		fee, err := tracker.EstimateGas(ctx, recipient, amount)
		if err != nil {
			return err
		}
		fmt.Printf("Estimated gas fee: %s ETH\n", fee)
		return nil
	}

	if _, err := tracker.Send(ctx, recipient, amount); err != nil {
		return err
	}

	for u := range updates {
		if u.Message != "" {
			fmt.Println(u.Message)
		}
		switch u.State {
		case web3.StateConfirmed, web3.StateFailed, web3.StateTimedOut:
			if balance, ok := tracker.Balance(); ok {
				fmt.Printf("Balance: %s ETH\n", balance)
			}
			return nil
		}
	}
	return nil
}

// runWatch keeps the account view live: it re-renders on every store
// broadcast while a background watcher follows the server's change feed.
func runWatch(ctx context.Context, client *ledger.Client) error {
	wsURL := envOr("WALLET_WS_URL", "ws://localhost:8080/api/ws")

	user, err := client.RefreshFromServer(ctx)
	if err != nil {
		return err
	}
	printAccount(user)

	changes, cancel := client.Store().Subscribe()
	defer cancel()

	go func() {
		if err := client.Watch(ctx, wsURL); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Change feed stopped")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			if u, ok := client.Store().User(); ok {
				fmt.Println("---")
				printAccount(u)
			}
		}
	}
}

func printAccount(user *models.User) {
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	fmt.Printf("Balance: PKR %d\n", user.Balance)
	fmt.Printf("Deposits: PKR %d  Withdrawals: PKR %d\n", user.TotalDeposits, user.TotalWithdrawals)
	fmt.Printf("Bets: %d (%d won)\n", user.TotalBets, user.BetsWon)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: walletctl COMMAND [args]

  register NAME EMAIL PASSWORD
  login EMAIL PASSWORD
  logout
  account
  history
  watch
  deposit AMOUNT
  withdraw AMOUNT
  evenodd even|odd
  lottery NUMBER
  estimate RECIPIENT AMOUNT
  send RECIPIENT AMOUNT [--fail]`)
}
