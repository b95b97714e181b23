// Command auctiond runs the sequential timed auction: a ledger of listings,
// bids, and withdrawal credits served over a small TCP API, with in-memory
// asset registry, metadata store, and payment rail alongside.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emilyhon/project-auctionable-nfts/clock"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.logLevel); err == nil {
		logger = logger.Level(level)
	}

	if cfg.operatorToken == "" {
		cfg.operatorToken = uuid.NewString()
		logger.Info().Str("operator_token", cfg.operatorToken).Msg("generated operator token")
	}

	server, err := NewLedgerServer(cfg, clock.NewSystem(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build server")
	}

	if cfg.snapshotPath != "" {
		if _, err := os.Stat(cfg.snapshotPath); err == nil {
			if err := server.loadSnapshot(cfg.snapshotPath); err != nil {
				logger.Fatal().Err(err).Str("path", cfg.snapshotPath).Msg("load snapshot")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.settleInterval > 0 {
		go server.runSettlementWatcher(ctx, cfg.settleInterval)
	}

	// Persist state on shutdown.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		if cfg.snapshotPath != "" {
			if err := server.saveSnapshot(cfg.snapshotPath); err != nil {
				logger.Error().Err(err).Msg("save snapshot on shutdown")
			}
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
