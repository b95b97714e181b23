// Command auction-watch is the external settlement trigger: it polls the
// daemon's readiness predicate and invokes settlement whenever an auction has
// become due, oldest first.
package main

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/emilyhon/project-auctionable-nfts/client"
	"github.com/emilyhon/project-auctionable-nfts/ledgerapi"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "auctiond address")
	interval := flag.Duration("interval", 30*time.Second, "poll interval")
	once := flag.Bool("once", false, "settle everything due, then exit")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	c := client.New(*addr)
	if _, err := c.Ping(); err != nil {
		logger.Fatal().Err(err).Str("addr", *addr).Msg("daemon unreachable")
	}
	logger.Info().Str("addr", *addr).Dur("interval", *interval).Msg("watching for due settlements")

	for {
		settleDue(c, logger)
		if *once {
			return
		}
		time.Sleep(*interval)
	}
}

func settleDue(c *client.Client, logger zerolog.Logger) {
	for {
		ready, err := c.Ready()
		if err != nil {
			logger.Error().Err(err).Msg("readiness query failed")
			return
		}
		if !ready {
			return
		}

		itemID, winner, err := c.Settle()
		if err != nil {
			// Another trigger may have settled it between poll and call.
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Code == ledgerapi.CodeSettlementNotDue {
				return
			}
			logger.Error().Err(err).Msg("settle failed")
			return
		}
		logger.Info().Uint64("item_id", itemID).Str("winner", winner).Msg("auction settled")
	}
}
