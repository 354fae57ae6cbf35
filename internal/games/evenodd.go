package games

import (
	"context"
	"fmt"
	"strings"
	"time"

	"betting-wallet/internal/ledger"
	"betting-wallet/internal/models"
)

const (
	evenOddEvent  = "Even/Odd Game"
	evenOddStake  = 100
	evenOddReward = 200
)

type EvenOdd struct {
	ledger *ledger.Client
	roll   func() int
}

func NewEvenOdd(l *ledger.Client) *EvenOdd {
	return &EvenOdd{ledger: l, roll: defaultRoll()}
}

// NewEvenOddWithRoll takes a custom number source (1-10). Used by tests.
func NewEvenOddWithRoll(l *ledger.Client, roll func() int) *EvenOdd {
	return &EvenOdd{ledger: l, roll: roll}
}

// Play draws a number 1-10 and wins if its parity matches the choice
// ("even" or "odd"). The round is settled server-side before the result is
// returned.
func (g *EvenOdd) Play(ctx context.Context, choice string) (*Result, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if choice != "even" && choice != "odd" {
		return nil, fmt.Errorf("please select even or odd")
	}

	number := g.roll()
	parity := "odd"
	if number%2 == 0 {
		parity = "even"
	}
	won := choice == parity

	var message string
	var delta int64
	if won {
		delta = evenOddReward
		message = fmt.Sprintf("You won! Number was %d (%s) (+PKR %d)", number, strings.ToUpper(parity), evenOddReward)
	} else {
		delta = -evenOddStake
		message = fmt.Sprintf("You lost! Number was %d (%s) (-PKR %d)", number, strings.ToUpper(parity), evenOddStake)
	}

	status := models.BetStatusLost
	if won {
		status = models.BetStatusWon
	}

	user, err := g.ledger.SettleBet(ctx, delta, models.Bet{
		Event:  evenOddEvent,
		Number: number,
		Amount: evenOddStake,
		Status: status,
		Time:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Event:   evenOddEvent,
		Number:  number,
		Won:     won,
		Message: message,
		Balance: user.Balance,
		User:    user,
	}, nil
}
