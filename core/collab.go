package core

import "github.com/shopspring/decimal"

// AssetRegistry owns item custody. Both calls are assumed atomic with the
// enclosing ledger operation; an error aborts and unwinds that operation.
type AssetRegistry interface {
	// MintTo creates item id in the registry, held by custodian.
	MintTo(custodian Address, id ItemID) error

	// Transfer moves custody of item id from one holder to another.
	Transfer(from, to Address, id ItemID) error
}

// MetadataStore keeps the opaque descriptor attached to each item. Its
// contents are irrelevant to auction correctness.
type MetadataStore interface {
	Set(id ItemID, ref string) error
	Get(id ItemID) (string, error)
}

// AccessControl resolves the privileged operator.
type AccessControl interface {
	IsOperator(caller Address) bool
}

// PaymentSender delivers funds out of the ledger. A false return means the
// recipient could not be paid; the ledger unwinds the enclosing operation
// rather than swallow the failure.
type PaymentSender interface {
	Pay(to Address, amount decimal.Decimal) bool
}

// EventSink receives auction notifications. Implementations must not call
// back into the ledger.
type EventSink interface {
	BidAccepted(id ItemID, bidder Address, amount decimal.Decimal)
	AuctionEnded(id ItemID, winner Address)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) BidAccepted(ItemID, Address, decimal.Decimal) {}

func (NopSink) AuctionEnded(ItemID, Address) {}
