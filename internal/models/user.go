package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type BetStatus string

const (
	BetStatusWon     BetStatus = "Won"
	BetStatusLost    BetStatus = "Lost"
	BetStatusPending BetStatus = "Pending"
)

// Bet is a single entry in a user's game history. Records are appended by
// the ledger authority at settlement time and never edited afterwards.
type Bet struct {
	Event  string    `json:"event" redis:"event"`
	Number int       `json:"number,omitempty" redis:"number"`
	Amount int64     `json:"amount" redis:"amount"`
	Status BetStatus `json:"status" redis:"status"`
	Time   time.Time `json:"time" redis:"time"`
}

type User struct {
	ID    string `json:"id,omitempty" redis:"id"`
	Name  string `json:"name" redis:"name"`
	Email string `json:"email" redis:"email"`
	Role  string `json:"role,omitempty" redis:"role"`

	Balance          int64 `json:"balance" redis:"balance"`
	TotalDeposits    int64 `json:"totalDeposits" redis:"total_deposits"`
	TotalWithdrawals int64 `json:"totalWithdrawals" redis:"total_withdrawals"`
	TotalBets        int64 `json:"totalBets" redis:"total_bets"`
	BetsWon          int64 `json:"betsWon" redis:"bets_won"`

	GameHistory []Bet `json:"gameHistory" redis:"game_history"`

	CreatedAt time.Time `json:"createdAt" redis:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" redis:"updated_at"`
}

// NormalizeUser decodes a user record from the wire into the canonical
// shape. Different endpoints name the identifier "_id" or "id"; whichever
// arrives, only ID leaves this boundary. Game history is ordered
// newest-first regardless of how the server returned it.
func NormalizeUser(raw json.RawMessage) (*User, error) {
	var wire struct {
		User
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}

	user := wire.User
	if user.ID == "" {
		user.ID = wire.MongoID
	}
	if user.ID == "" {
		return nil, fmt.Errorf("user record has no id field")
	}

	SortBetsNewestFirst(user.GameHistory)
	return &user, nil
}

// Aliased renders a user the way the legacy user-fetch endpoint does,
// with the identifier under "_id" instead of "id".
func Aliased(u *User) any {
	c := *u
	c.ID = ""
	return struct {
		MongoID string `json:"_id"`
		User
	}{MongoID: u.ID, User: c}
}

func SortBetsNewestFirst(bets []Bet) {
	sort.SliceStable(bets, func(i, j int) bool {
		return bets[i].Time.After(bets[j].Time)
	})
}
