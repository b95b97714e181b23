package ledgerapi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emilyhon/project-auctionable-nfts/core"
)

// SnapshotVersion is bumped whenever the snapshot layout changes
// incompatibly.
const SnapshotVersion = 1

// Snapshot is the CBOR persistence format for a full daemon state: the ledger
// plus the in-memory collaborators that live alongside it. Amounts are
// decimal strings so the file stays independent of any library's binary
// encoding.
type Snapshot struct {
	Version     int               `cbor:"version"`
	SavedAtUnix int64             `cbor:"saved_at_unix"`
	Listings    []SnapshotListing `cbor:"listings"`
	Credits     map[string]string `cbor:"credits"`
	CreditTotal string            `cbor:"credit_total"`
	Balance     string            `cbor:"balance"`
	Cursor      uint64            `cbor:"cursor"`

	// Collaborator state owned by auctiond, not the ledger.
	Wallets  map[string]string `cbor:"wallets,omitempty"`
	Custody  map[uint64]string `cbor:"custody,omitempty"`
	Metadata map[uint64]string `cbor:"metadata,omitempty"`
}

// SnapshotListing is the wire form of one listing.
type SnapshotListing struct {
	Holder     string `cbor:"holder"`
	BidAmount  string `cbor:"bid_amount"`
	ExpiryUnix int64  `cbor:"expiry_unix"`
}

// EncodeLedger converts core ledger state into the snapshot wire form.
func EncodeLedger(s core.Snapshot, savedAt time.Time) Snapshot {
	listings := make([]SnapshotListing, len(s.Listings))
	for i, l := range s.Listings {
		listings[i] = SnapshotListing{
			Holder:     string(l.Holder),
			BidAmount:  l.BidAmount.String(),
			ExpiryUnix: l.Expiry.Unix(),
		}
	}
	credits := make(map[string]string, len(s.Credits))
	for addr, amount := range s.Credits {
		credits[string(addr)] = amount.String()
	}
	return Snapshot{
		Version:     SnapshotVersion,
		SavedAtUnix: savedAt.Unix(),
		Listings:    listings,
		Credits:     credits,
		CreditTotal: s.CreditTotal.String(),
		Balance:     s.Balance.String(),
		Cursor:      uint64(s.Cursor),
	}
}

// DecodeLedger converts the wire form back into core ledger state. All
// decimal strings are validated; the ledger's own Restore performs the
// invariant checks.
func (s Snapshot) DecodeLedger() (core.Snapshot, error) {
	if s.Version != SnapshotVersion {
		return core.Snapshot{}, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}

	listings := make([]core.Listing, len(s.Listings))
	for i, l := range s.Listings {
		amount, err := decimal.NewFromString(l.BidAmount)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("listing %d bid amount: %w", i, err)
		}
		listings[i] = core.Listing{
			Holder:    core.Address(l.Holder),
			BidAmount: amount,
			Expiry:    time.Unix(l.ExpiryUnix, 0).UTC(),
		}
	}

	credits := make(map[core.Address]decimal.Decimal, len(s.Credits))
	for addr, raw := range s.Credits {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("credit for %s: %w", addr, err)
		}
		credits[core.Address(addr)] = amount
	}

	creditTotal, err := decimal.NewFromString(s.CreditTotal)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("credit total: %w", err)
	}
	balance, err := decimal.NewFromString(s.Balance)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("balance: %w", err)
	}

	return core.Snapshot{
		Listings:    listings,
		Credits:     credits,
		CreditTotal: creditTotal,
		Balance:     balance,
		Cursor:      core.ItemID(s.Cursor),
	}, nil
}
