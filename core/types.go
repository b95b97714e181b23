package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address identifies an account. The zero value marks an unminted listing
// slot and is never a valid caller.
type Address string

// IsZero reports whether the address is the empty sentinel.
func (a Address) IsZero() bool {
	return a == ""
}

// ItemID indexes a listing. IDs are assigned sequentially at mint time and
// double as the settlement order.
type ItemID uint64

// Listing is the mutable record of an item's current winning bidder, stake,
// and deadline. Expiry is fixed at mint time and never moves on later bids.
type Listing struct {
	Holder    Address
	BidAmount decimal.Decimal
	Expiry    time.Time
}

// Config carries the auction economics. Values are fixed for the lifetime of
// a ledger.
type Config struct {
	// MintPrice is the minimum payment to mint a new item.
	MintPrice decimal.Decimal

	// MinBidIncrement is the amount a bid must exceed the current stake by.
	MinBidIncrement decimal.Decimal

	// AuctionDuration is how long bidding stays open after mint.
	AuctionDuration time.Duration

	// Capacity bounds the total number of items that can ever be minted.
	Capacity int

	// Custodian holds every item between mint and settlement.
	Custodian Address
}

// DefaultConfig returns the production auction economics.
func DefaultConfig() Config {
	return Config{
		MintPrice:       decimal.RequireFromString("0.1"),
		MinBidIncrement: decimal.RequireFromString("0.01"),
		AuctionDuration: 48 * time.Hour,
		Capacity:        1000,
		Custodian:       Address("auction-vault"),
	}
}

// BidQuoteStatus classifies the answer to a minimum-bid query.
type BidQuoteStatus int

const (
	// BidQuoteOpen means the item accepts bids; Minimum is the lowest that
	// would be accepted.
	BidQuoteOpen BidQuoteStatus = iota

	// BidQuoteNotMinted means the item does not exist yet.
	BidQuoteNotMinted

	// BidQuoteExpired means the item's bidding period has lapsed.
	BidQuoteExpired
)

// BidQuote is the tagged result of MinimumBidFor. Non-biddable items are
// reported by status; Minimum is only meaningful when Status is BidQuoteOpen.
type BidQuote struct {
	Status  BidQuoteStatus
	Minimum decimal.Decimal
}

// Snapshot is a full copy of ledger state, used for persistence and restore.
type Snapshot struct {
	Listings    []Listing
	Credits     map[Address]decimal.Decimal
	CreditTotal decimal.Decimal
	Balance     decimal.Decimal
	Cursor      ItemID
}
