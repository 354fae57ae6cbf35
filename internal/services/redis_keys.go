package services

import "time"

const (
	KeyUserRecord   = "user:%s:record"
	KeyUserBets     = "user:%s:bets"
	KeyUserAuth     = "auth:email:%s"
	KeyChainAccount = "chain:account:%s"
	KeyChainTxPolls = "chain:tx:%s:polls"

	TTLChainTx = 24 * time.Hour

	// Bet history is capped the way transactions were: newest 50 kept.
	MaxBetHistory = 50
)
