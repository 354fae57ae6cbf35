package services

import (
	"fmt"
	"math/big"
	"strings"

	"betting-wallet/internal/config"
	"betting-wallet/internal/models"
)

// ChainService simulates just enough of a chain for the payment flow to be
// exercised end to end: it builds unsigned transaction descriptors, quotes
// a gas fee, serves per-address balances, and settles a submitted hash as
// pending for a configured number of polls before confirming it. Hashes
// ending in "ff" settle as failed instead, for exercising that path.
type ChainService struct {
	redis        *RedisService
	confirmPolls int
	gasPriceGwei int64
	seedBalance  string
}

const txGasLimit = 21000

func NewChainService(redis *RedisService, cfg *config.Config) *ChainService {
	return &ChainService{
		redis:        redis,
		confirmPolls: cfg.ChainConfirmPolls,
		gasPriceGwei: cfg.ChainGasPriceGwei,
		seedBalance:  cfg.ChainSeedBalance,
	}
}

func (s *ChainService) Balance(address string) (string, error) {
	if !models.IsValidAddress(address) {
		return "", fmt.Errorf("invalid address")
	}
	return s.redis.ChainBalance(address, s.seedBalance)
}

func (s *ChainService) CreateTransaction(req models.CreateTransactionRequest) (*models.CreateTransactionResponse, error) {
	if !models.IsValidAddress(req.SenderAddress) {
		return nil, fmt.Errorf("invalid sender address")
	}
	if !models.IsValidAddress(req.Recipient) {
		return nil, fmt.Errorf("invalid recipient address")
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	wei := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e18))
	weiInt, _ := wei.Int(nil)

	gasPriceWei := new(big.Int).Mul(big.NewInt(s.gasPriceGwei), big.NewInt(1e9))
	feeWei := new(big.Int).Mul(gasPriceWei, big.NewInt(txGasLimit))
	feeEth := new(big.Float).Quo(new(big.Float).SetInt(feeWei), big.NewFloat(1e18))

	return &models.CreateTransactionResponse{
		TransactionObject: models.TransactionObject{
			From:     req.SenderAddress,
			To:       req.Recipient,
			Value:    fmt.Sprintf("0x%x", weiInt),
			Gas:      fmt.Sprintf("0x%x", txGasLimit),
			GasPrice: fmt.Sprintf("0x%x", gasPriceWei),
		},
		EstimatedGasFee: feeEth.Text('f', 6),
	}, nil
}

func (s *ChainService) TransactionStatus(txHash string) (*models.TransactionStatusResponse, error) {
	if txHash == "" || !strings.HasPrefix(txHash, "0x") {
		return nil, fmt.Errorf("invalid transaction hash")
	}

	polls, err := s.redis.IncrTxPolls(txHash)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(strings.ToLower(txHash), "ff") {
		return &models.TransactionStatusResponse{Status: models.TxStatusFailed}, nil
	}
	if polls < int64(s.confirmPolls) {
		return &models.TransactionStatusResponse{Status: models.TxStatusPending}, nil
	}
	return &models.TransactionStatusResponse{
		Status:      models.TxStatusSuccess,
		BlockNumber: 19_000_000 + polls,
	}, nil
}
