package games

import (
	"context"
	"fmt"
	"time"

	"betting-wallet/internal/ledger"
	"betting-wallet/internal/models"
)

const (
	lotteryEvent = "Lottery Draw"
	lotteryStake = 100
	lotteryPrize = 500
)

type Lottery struct {
	ledger *ledger.Client
	roll   func() int
}

func NewLottery(l *ledger.Client) *Lottery {
	return &Lottery{ledger: l, roll: defaultRoll()}
}

func NewLotteryWithRoll(l *ledger.Client, roll func() int) *Lottery {
	return &Lottery{ledger: l, roll: roll}
}

// Play wins when the picked number (1-10) matches the draw exactly.
func (g *Lottery) Play(ctx context.Context, pick int) (*Result, error) {
	if pick < 1 || pick > 10 {
		return nil, fmt.Errorf("please enter a number between 1 and 10")
	}

	winning := g.roll()
	won := pick == winning

	var message string
	var delta int64
	if won {
		delta = lotteryPrize
		message = fmt.Sprintf("You won! The winning number was %d (+PKR %d)", winning, lotteryPrize)
	} else {
		delta = -lotteryStake
		message = fmt.Sprintf("You lost. The winning number was %d (-PKR %d)", winning, lotteryStake)
	}

	status := models.BetStatusLost
	if won {
		status = models.BetStatusWon
	}

	user, err := g.ledger.SettleBet(ctx, delta, models.Bet{
		Event:  lotteryEvent,
		Number: winning,
		Amount: lotteryStake,
		Status: status,
		Time:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Event:   lotteryEvent,
		Number:  winning,
		Won:     won,
		Message: message,
		Balance: user.Balance,
		User:    user,
	}, nil
}
