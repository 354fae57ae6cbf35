package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// StartingBalance is credited to every new wallet at registration.
	StartingBalance int64

	// ChainConfirmPolls is how many status queries a simulated transaction
	// stays pending before it confirms.
	ChainConfirmPolls int
	ChainGasPriceGwei int64
	ChainSeedBalance  string

	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		RedisURL:          getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:         getEnv("REDIS_PASSWORD", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		ChainSeedBalance:  getEnv("CHAIN_SEED_BALANCE", "10.0"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	sb, err := getEnvInt("STARTING_BALANCE", 1000)
	if err != nil {
		return nil, err
	}
	cfg.StartingBalance = int64(sb)
	if cfg.ChainConfirmPolls, err = getEnvInt("CHAIN_CONFIRM_POLLS", 3); err != nil {
		return nil, err
	}
	gp, err := getEnvInt("CHAIN_GAS_PRICE_GWEI", 20)
	if err != nil {
		return nil, err
	}
	cfg.ChainGasPriceGwei = int64(gp)

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}
