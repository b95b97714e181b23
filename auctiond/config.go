package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emilyhon/project-auctionable-nfts/core"
)

// serverConfig is the daemon's runtime configuration, loaded from the
// environment.
type serverConfig struct {
	listenAddr     string
	maxWorkers     int
	operatorAddr   core.Address
	operatorToken  string
	snapshotPath   string
	settleInterval time.Duration
	logLevel       string
	ledger         core.Config
}

// loadConfig reads the daemon configuration from environment variables.
// AUCTION_MAX_WORKERS and AUCTION_OPERATOR_ADDR are required; everything else
// has a default. The auction economics default to production values and can
// be overridden individually.
func loadConfig() (serverConfig, error) {
	cfg := serverConfig{
		listenAddr:    envOr("AUCTION_LISTEN_ADDR", ":5000"),
		logLevel:      envOr("AUCTION_LOG_LEVEL", "info"),
		snapshotPath:  os.Getenv("AUCTION_SNAPSHOT_PATH"),
		operatorToken: os.Getenv("AUCTION_OPERATOR_TOKEN"),
		ledger:        core.DefaultConfig(),
	}

	maxWorkers, err := requiredEnvInt("AUCTION_MAX_WORKERS")
	if err != nil {
		return serverConfig{}, err
	}
	cfg.maxWorkers = maxWorkers

	operator, err := requiredEnv("AUCTION_OPERATOR_ADDR")
	if err != nil {
		return serverConfig{}, err
	}
	cfg.operatorAddr = core.Address(operator)

	if err := envDecimal("AUCTION_MINT_PRICE", &cfg.ledger.MintPrice); err != nil {
		return serverConfig{}, err
	}
	if err := envDecimal("AUCTION_MIN_BID_INCREMENT", &cfg.ledger.MinBidIncrement); err != nil {
		return serverConfig{}, err
	}
	if err := envDuration("AUCTION_DURATION", &cfg.ledger.AuctionDuration); err != nil {
		return serverConfig{}, err
	}
	if err := envInt("AUCTION_CAPACITY", &cfg.ledger.Capacity); err != nil {
		return serverConfig{}, err
	}
	if err := envDuration("AUCTION_SETTLE_INTERVAL", &cfg.settleInterval); err != nil {
		return serverConfig{}, err
	}

	return cfg, nil
}

func requiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func requiredEnvInt(key string) (int, error) {
	raw, err := requiredEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (must be an integer)", key, raw)
	}
	return value, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, out *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q (must be an integer)", key, raw)
	}
	*out = value
	return nil
}

func envDecimal(key string, out *decimal.Decimal) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q (must be a decimal)", key, raw)
	}
	*out = value
	return nil
}

func envDuration(key string, out *time.Duration) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q (must be a duration like 48h)", key, raw)
	}
	*out = value
	return nil
}
