package main

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/emilyhon/project-auctionable-nfts/core"
)

// logSink publishes auction notifications to the structured log.
type logSink struct {
	log zerolog.Logger
}

func (s logSink) BidAccepted(id core.ItemID, bidder core.Address, amount decimal.Decimal) {
	s.log.Info().
		Uint64("item_id", uint64(id)).
		Str("bidder", string(bidder)).
		Str("amount", amount.String()).
		Msg("bid accepted")
}

func (s logSink) AuctionEnded(id core.ItemID, winner core.Address) {
	s.log.Info().
		Uint64("item_id", uint64(id)).
		Str("winner", string(winner)).
		Msg("auction ended")
}
