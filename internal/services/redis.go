package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"betting-wallet/internal/config"
	"betting-wallet/internal/models"
)

// RedisService owns every Redis access the ledger authority makes. User
// records are JSON blobs; bet history lives in a capped list next to the
// record; balance mutations go through Lua scripts so the funds check and
// the write are one atomic step.
type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

var ErrInsufficientBalance = fmt.Errorf("insufficient balance")
var ErrEmailTaken = fmt.Errorf("email already registered")

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{client: client, ctx: ctx}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

type credentials struct {
	UserID       string `json:"user_id"`
	PasswordHash string `json:"password_hash"`
}

func (s *RedisService) CreateUser(user *models.User, passwordHash string) error {
	authKey := fmt.Sprintf(KeyUserAuth, strings.ToLower(user.Email))

	creds, err := json.Marshal(credentials{UserID: user.ID, PasswordHash: passwordHash})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %v", err)
	}

	ok, err := s.client.SetNX(s.ctx, authKey, creds, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store credentials: %v", err)
	}
	if !ok {
		return ErrEmailTaken
	}

	return s.SaveUser(user)
}

func (s *RedisService) GetCredentials(email string) (userID, passwordHash string, err error) {
	authKey := fmt.Sprintf(KeyUserAuth, strings.ToLower(email))

	data, err := s.client.Get(s.ctx, authKey).Result()
	if err == redis.Nil {
		return "", "", fmt.Errorf("unknown email")
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to get credentials: %v", err)
	}

	var creds credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return "", "", fmt.Errorf("failed to unmarshal credentials: %v", err)
	}
	return creds.UserID, creds.PasswordHash, nil
}

// SaveUser persists the record itself. Game history is not part of the
// blob; it lives in its own list (see AppendBet).
func (s *RedisService) SaveUser(user *models.User) error {
	record := *user
	record.GameHistory = nil

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %v", err)
	}

	key := fmt.Sprintf(KeyUserRecord, user.ID)
	return s.client.Set(s.ctx, key, data, 0).Err()
}

func (s *RedisService) GetUser(userID string) (*models.User, error) {
	key := fmt.Sprintf(KeyUserRecord, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}

	bets, err := s.getBets(userID)
	if err != nil {
		return nil, err
	}
	user.GameHistory = bets

	return &user, nil
}

func (s *RedisService) getBets(userID string) ([]models.Bet, error) {
	key := fmt.Sprintf(KeyUserBets, userID)

	entries, err := s.client.LRange(s.ctx, key, 0, MaxBetHistory-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bet history: %v", err)
	}

	bets := make([]models.Bet, 0, len(entries))
	for _, entry := range entries {
		var bet models.Bet
		if err := json.Unmarshal([]byte(entry), &bet); err != nil {
			continue
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

var depositScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("user not found")
	end

	local user = cjson.decode(data)

	user.balance = user.balance + amount
	user.totalDeposits = (user.totalDeposits or 0) + amount

	redis.call("SET", key, cjson.encode(user))
	return user.balance
`)

func (s *RedisService) Deposit(userID string, amount int64) (*models.User, error) {
	key := fmt.Sprintf(KeyUserRecord, userID)
	if err := depositScript.Run(s.ctx, s.client, []string{key}, amount).Err(); err != nil {
		return nil, fmt.Errorf("failed to apply deposit: %v", err)
	}
	return s.GetUser(userID)
}

var withdrawScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("user not found")
	end

	local user = cjson.decode(data)

	if user.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	user.balance = user.balance - amount
	user.totalWithdrawals = (user.totalWithdrawals or 0) + amount

	redis.call("SET", key, cjson.encode(user))
	return user.balance
`)

func (s *RedisService) Withdraw(userID string, amount int64) (*models.User, error) {
	key := fmt.Sprintf(KeyUserRecord, userID)
	if err := withdrawScript.Run(s.ctx, s.client, []string{key}, amount).Err(); err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to apply withdrawal: %v", err)
	}
	return s.GetUser(userID)
}

var settleScript = redis.NewScript(`
	local key = KEYS[1]
	local delta = tonumber(ARGV[1])
	local won = ARGV[2] == "true"

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("user not found")
	end

	local user = cjson.decode(data)

	if user.balance + delta < 0 then
		return redis.error_reply("insufficient balance")
	end

	user.balance = user.balance + delta
	user.totalBets = (user.totalBets or 0) + 1
	if won then
		user.betsWon = (user.betsWon or 0) + 1
	end

	redis.call("SET", key, cjson.encode(user))
	return user.balance
`)

// SettleBet applies the signed delta and prepends the bet record. The
// balance change is the atomic part; the history append follows it.
func (s *RedisService) SettleBet(userID string, delta int64, bet models.Bet) (*models.User, error) {
	key := fmt.Sprintf(KeyUserRecord, userID)
	won := bet.Status == models.BetStatusWon

	if err := settleScript.Run(s.ctx, s.client, []string{key}, delta, won).Err(); err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to settle bet: %v", err)
	}

	if err := s.AppendBet(userID, bet); err != nil {
		return nil, err
	}
	return s.GetUser(userID)
}

func (s *RedisService) AppendBet(userID string, bet models.Bet) error {
	if bet.Time.IsZero() {
		bet.Time = time.Now().UTC()
	}

	data, err := json.Marshal(bet)
	if err != nil {
		return fmt.Errorf("failed to marshal bet: %v", err)
	}

	key := fmt.Sprintf(KeyUserBets, userID)
	if err := s.client.LPush(s.ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append bet: %v", err)
	}
	s.client.LTrim(s.ctx, key, 0, MaxBetHistory-1)

	return nil
}

func (s *RedisService) ChainBalance(address, seed string) (string, error) {
	key := fmt.Sprintf(KeyChainAccount, strings.ToLower(address))

	balance, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		if err := s.client.Set(s.ctx, key, seed, 0).Err(); err != nil {
			return "", fmt.Errorf("failed to seed chain account: %v", err)
		}
		return seed, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get chain balance: %v", err)
	}
	return balance, nil
}

func (s *RedisService) IncrTxPolls(txHash string) (int64, error) {
	key := fmt.Sprintf(KeyChainTxPolls, strings.ToLower(txHash))

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to track transaction polls: %v", err)
	}
	if count == 1 {
		s.client.Expire(s.ctx, key, TTLChainTx)
	}
	return count, nil
}

func (s *RedisService) DeleteUser(userID, email string) error {
	if err := s.client.Del(s.ctx,
		fmt.Sprintf(KeyUserRecord, userID),
		fmt.Sprintf(KeyUserBets, userID),
		fmt.Sprintf(KeyUserAuth, strings.ToLower(email)),
	).Err(); err != nil {
		return fmt.Errorf("failed to delete user: %v", err)
	}
	return nil
}
