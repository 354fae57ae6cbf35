// Package games implements the betting mini-games. A game decides the
// outcome locally and builds an optimistic message from it, but the money
// only moves through the ledger settlement call; whatever balance the
// server returns is the one displayed, even when it disagrees with the
// locally computed delta.
package games

import (
	"math/rand"
	"time"

	"betting-wallet/internal/models"
)

// Result is what a view renders after a round: the optimistic message plus
// the authoritative balance from the settlement response.
type Result struct {
	Event   string
	Number  int
	Won     bool
	Message string
	Balance int64
	User    *models.User
}

func defaultRoll() func() int {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() int {
		return rng.Intn(10) + 1
	}
}
