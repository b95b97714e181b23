package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/emilyhon/project-auctionable-nfts/clock"
)

const (
	alice    = Address("alice")
	bob      = Address("bob")
	carol    = Address("carol")
	operator = Address("operator")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeRegistry struct {
	custody      map[ItemID]Address
	failMint     bool
	failTransfer bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{custody: make(map[ItemID]Address)}
}

func (r *fakeRegistry) MintTo(custodian Address, id ItemID) error {
	if r.failMint {
		return errors.New("registry unavailable")
	}
	if _, ok := r.custody[id]; ok {
		return fmt.Errorf("item %d already exists", id)
	}
	r.custody[id] = custodian
	return nil
}

func (r *fakeRegistry) Transfer(from, to Address, id ItemID) error {
	if r.failTransfer {
		return errors.New("registry unavailable")
	}
	if r.custody[id] != from {
		return fmt.Errorf("item %d not held by %s", id, from)
	}
	r.custody[id] = to
	return nil
}

type fakeMeta map[ItemID]string

func (m fakeMeta) Set(id ItemID, ref string) error {
	m[id] = ref
	return nil
}

func (m fakeMeta) Get(id ItemID) (string, error) {
	ref, ok := m[id]
	if !ok {
		return "", fmt.Errorf("no metadata for item %d", id)
	}
	return ref, nil
}

type fakeGate struct {
	operator Address
}

func (g fakeGate) IsOperator(caller Address) bool {
	return caller == g.operator
}

type fakeSender struct {
	paid map[Address]decimal.Decimal
	fail map[Address]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		paid: make(map[Address]decimal.Decimal),
		fail: make(map[Address]bool),
	}
}

func (s *fakeSender) Pay(to Address, amount decimal.Decimal) bool {
	if s.fail[to] {
		return false
	}
	s.paid[to] = s.paid[to].Add(amount)
	return true
}

type recordSink struct {
	bids []string
	ends []string
}

func (s *recordSink) BidAccepted(id ItemID, bidder Address, amount decimal.Decimal) {
	s.bids = append(s.bids, fmt.Sprintf("%d/%s/%s", id, bidder, amount))
}

func (s *recordSink) AuctionEnded(id ItemID, winner Address) {
	s.ends = append(s.ends, fmt.Sprintf("%d/%s", id, winner))
}

type fixture struct {
	ledger   *Ledger
	clk      *clock.Manual
	registry *fakeRegistry
	meta     fakeMeta
	sender   *fakeSender
	sink     *recordSink
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		clk:      clock.NewManual(time.Unix(1_700_000_000, 0)),
		registry: newFakeRegistry(),
		meta:     make(fakeMeta),
		sender:   newFakeSender(),
		sink:     &recordSink{},
	}
	ledger, err := NewLedger(cfg, f.clk, f.registry, f.meta, fakeGate{operator: operator}, f.sender, f.sink)
	assert.Nil(t, err)
	f.ledger = ledger
	return f
}

func newDefaultFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, DefaultConfig())
}

func TestMint_CreatesListing(t *testing.T) {
	f := newDefaultFixture(t)
	t0 := f.clk.Now()

	id, err := f.ledger.Mint(alice, dec("0.1"), "ipfs://item-0")
	assert.Nil(t, err)
	check.Equal(t, ItemID(0), id)

	listing, ok := f.ledger.GetListing(0)
	assert.True(t, ok)
	check.Equal(t, alice, listing.Holder)
	check.Equal(t, dec("0.1"), listing.BidAmount)
	check.Equal(t, t0.Add(48*time.Hour), listing.Expiry)

	check.Equal(t, 1, f.ledger.MintCount())
	check.Equal(t, dec("0.1"), f.ledger.Balance())

	// The item goes to the custodian, not the minter.
	check.Equal(t, Address("auction-vault"), f.registry.custody[0])

	ref, err := f.meta.Get(0)
	assert.Nil(t, err)
	check.Equal(t, "ipfs://item-0", ref)
}

func TestMint_OverpaymentKeptAsStartingBid(t *testing.T) {
	f := newDefaultFixture(t)

	_, err := f.ledger.Mint(alice, dec("0.25"), "")
	assert.Nil(t, err)

	listing, _ := f.ledger.GetListing(0)
	check.Equal(t, dec("0.25"), listing.BidAmount)
	check.Equal(t, dec("0.25"), f.ledger.Balance())
}

func TestMint_Underpayment(t *testing.T) {
	f := newDefaultFixture(t)

	_, err := f.ledger.Mint(alice, dec("0.09"), "")
	check.True(t, errors.Is(err, ErrNotEnoughFunds))
	check.Equal(t, 0, f.ledger.MintCount())
	check.Equal(t, decimal.Zero, f.ledger.Balance())
}

func TestMint_SoldOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 2
	f := newFixture(t, cfg)

	for i := 0; i < 2; i++ {
		_, err := f.ledger.Mint(alice, dec("0.1"), "")
		assert.Nil(t, err)
	}
	_, err := f.ledger.Mint(bob, dec("0.1"), "")
	check.True(t, errors.Is(err, ErrSoldOut))
	check.Equal(t, 2, f.ledger.MintCount())
}

func TestMint_RegistryFailureUnwinds(t *testing.T) {
	f := newDefaultFixture(t)
	f.registry.failMint = true

	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	check.NotNil(t, err)
	check.Equal(t, 0, f.ledger.MintCount())
	check.Equal(t, decimal.Zero, f.ledger.Balance())
}

func TestMint_ExpiryIndependentPerItem(t *testing.T) {
	f := newDefaultFixture(t)

	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	f.clk.Advance(100 * time.Second)
	_, err = f.ledger.Mint(bob, dec("0.1"), "")
	assert.Nil(t, err)

	first, _ := f.ledger.GetListing(0)
	second, _ := f.ledger.GetListing(1)
	check.Equal(t, first.Expiry.Add(100*time.Second), second.Expiry)
}

func TestBid_BelowMinimumRejected(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)

	err = f.ledger.Bid(bob, 0, dec("0.109"))
	var tooLow *BidTooLowError
	assert.True(t, errors.As(err, &tooLow))
	check.Equal(t, dec("0.11"), tooLow.MinRequired)

	// Exactly the minimum is accepted.
	err = f.ledger.Bid(bob, 0, dec("0.11"))
	check.Nil(t, err)
}

func TestBid_ExpiryBoundaryInclusive(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)

	// Exactly at expiry: still accepted.
	f.clk.Advance(48 * time.Hour)
	err = f.ledger.Bid(bob, 0, dec("0.11"))
	check.Nil(t, err)

	// One second past expiry: rejected.
	f.clk.Advance(time.Second)
	err = f.ledger.Bid(carol, 0, dec("0.12"))
	check.True(t, errors.Is(err, ErrAuctionExpired))
}

func TestBid_ExpiryUnchangedByBids(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	before, _ := f.ledger.GetListing(0)

	f.clk.Advance(time.Hour)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	after, _ := f.ledger.GetListing(0)
	check.Equal(t, before.Expiry, after.Expiry)
}

func TestBid_DisplacementCreditsConserveValue(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	check.Equal(t, dec("0.1"), f.ledger.PendingCredit(alice))
	check.Equal(t, dec("0.1"), f.ledger.PendingCreditTotal())
	check.Equal(t, dec("0.21"), f.ledger.Balance())

	listing, _ := f.ledger.GetListing(0)
	check.Equal(t, bob, listing.Holder)
	check.Equal(t, dec("0.11"), listing.BidAmount)
}

func TestBid_DisplacementCreditsAccumulate(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))
	assert.Nil(t, f.ledger.Bid(alice, 0, dec("0.12")))
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.13")))

	// alice: displaced at 0.1 and again at 0.12.
	check.Equal(t, dec("0.22"), f.ledger.PendingCredit(alice))
	check.Equal(t, dec("0.11"), f.ledger.PendingCredit(bob))
	check.Equal(t, dec("0.33"), f.ledger.PendingCreditTotal())
}

func TestBid_SelfOutbidRoutesThroughCredit(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	// bob outbids himself; his prior stake is credited, never netted.
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.12")))
	check.Equal(t, dec("0.11"), f.ledger.PendingCredit(bob))
	check.Equal(t, dec("0.33"), f.ledger.Balance())
}

func TestBid_UnmintedItem(t *testing.T) {
	f := newDefaultFixture(t)
	err := f.ledger.Bid(bob, 7, dec("1"))
	check.True(t, errors.Is(err, ErrUnmintedItem))
}

func TestItemID_HugeValuesRejectedNotPanicking(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)

	// Ids past 2^63 arrive straight off the wire; they must reject like any
	// other unminted id, not wrap negative in the bounds check.
	huge := ItemID(1) << 63
	err = f.ledger.Bid(bob, huge, dec("1"))
	check.True(t, errors.Is(err, ErrUnmintedItem))

	check.Equal(t, BidQuoteNotMinted, f.ledger.MinimumBidFor(huge).Status)

	_, ok := f.ledger.GetListing(huge)
	check.False(t, ok)

	snap := f.ledger.Snapshot()
	snap.Cursor = huge
	check.NotNil(t, newDefaultFixture(t).ledger.Restore(snap))
}

func TestWithdraw_NoDoubleWithdrawal(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	amount, err := f.ledger.Withdraw(alice)
	assert.Nil(t, err)
	check.Equal(t, dec("0.1"), amount)
	check.Equal(t, dec("0.1"), f.sender.paid[alice])
	check.Equal(t, decimal.Zero, f.ledger.PendingCredit(alice))
	check.Equal(t, decimal.Zero, f.ledger.PendingCreditTotal())
	check.Equal(t, dec("0.11"), f.ledger.Balance())

	// Second withdrawal pays out nothing.
	amount, err = f.ledger.Withdraw(alice)
	assert.Nil(t, err)
	check.True(t, amount.IsZero())
	check.Equal(t, dec("0.1"), f.sender.paid[alice])
}

func TestWithdraw_ZeroCreditIsNoop(t *testing.T) {
	f := newDefaultFixture(t)

	// No outbound transfer happens for a zero credit, so even an account
	// that refuses payments withdraws successfully.
	f.sender.fail[carol] = true
	amount, err := f.ledger.Withdraw(carol)
	check.Nil(t, err)
	check.True(t, amount.IsZero())
	_, paid := f.sender.paid[carol]
	check.False(t, paid)
}

func TestWithdraw_TransferFailureUnwinds(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	f.sender.fail[alice] = true
	_, err = f.ledger.Withdraw(alice)
	check.True(t, errors.Is(err, ErrTransferFailed))

	// The credit survives a failed payout; nothing is silently destroyed.
	check.Equal(t, dec("0.1"), f.ledger.PendingCredit(alice))
	check.Equal(t, dec("0.1"), f.ledger.PendingCreditTotal())
	check.Equal(t, dec("0.21"), f.ledger.Balance())

	f.sender.fail[alice] = false
	amount, err := f.ledger.Withdraw(alice)
	assert.Nil(t, err)
	check.Equal(t, dec("0.1"), amount)
}

func TestSettle_FIFOAndNotDue(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	// Not due until item 0's expiry.
	check.False(t, f.ledger.ReadyForSettlement())
	check.True(t, errors.Is(f.ledger.Settle(), ErrSettlementNotDue))
	check.Equal(t, ItemID(0), f.ledger.SettlementCursor())

	f.clk.Advance(48*time.Hour + time.Second)
	check.True(t, f.ledger.ReadyForSettlement())
	assert.Nil(t, f.ledger.Settle())
	check.Equal(t, bob, f.registry.custody[0])
	check.Equal(t, ItemID(1), f.ledger.SettlementCursor())

	// Nothing else is due.
	check.True(t, errors.Is(f.ledger.Settle(), ErrSettlementNotDue))
}

func TestSettle_StrictMintOrder(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	f.clk.Advance(time.Hour)
	_, err = f.ledger.Mint(bob, dec("0.1"), "")
	assert.Nil(t, err)

	f.clk.Advance(50 * time.Hour) // both auctions lapsed
	assert.Nil(t, f.ledger.Settle())
	check.Equal(t, alice, f.registry.custody[0])
	check.Equal(t, Address("auction-vault"), f.registry.custody[1])

	assert.Nil(t, f.ledger.Settle())
	check.Equal(t, bob, f.registry.custody[1])
	check.Equal(t, ItemID(2), f.ledger.SettlementCursor())
}

func TestSettle_RegistryFailureLeavesCursor(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	f.clk.Advance(49 * time.Hour)

	f.registry.failTransfer = true
	check.NotNil(t, f.ledger.Settle())
	check.Equal(t, ItemID(0), f.ledger.SettlementCursor())
	check.Equal(t, Address("auction-vault"), f.registry.custody[0])

	f.registry.failTransfer = false
	assert.Nil(t, f.ledger.Settle())
	check.Equal(t, ItemID(1), f.ledger.SettlementCursor())
}

func TestReadyForSettlement_BlockedByZeroBalance(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	f.clk.Advance(49 * time.Hour)
	check.True(t, f.ledger.ReadyForSettlement())

	// Sweep the whole balance. Settlement moves no funds, but the literal
	// positive-balance gate now blocks it.
	assert.Nil(t, f.ledger.OperatorWithdraw(operator, dec("0.1")))
	check.Equal(t, decimal.Zero, f.ledger.Balance())
	check.False(t, f.ledger.ReadyForSettlement())
}

func TestOperatorWithdraw_CappedByLiability(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	// Balance 0.21, liability 0.1: one unit over the cap fails.
	err = f.ledger.OperatorWithdraw(operator, dec("0.12"))
	check.True(t, errors.Is(err, ErrExceededWithdrawalLimit))

	assert.Nil(t, f.ledger.OperatorWithdraw(operator, dec("0.11")))
	check.Equal(t, dec("0.11"), f.sender.paid[operator])
	check.Equal(t, dec("0.1"), f.ledger.Balance())
	check.Equal(t, decimal.Zero, f.ledger.UncommittedBalance())
}

func TestOperatorWithdraw_Unauthorized(t *testing.T) {
	f := newDefaultFixture(t)
	err := f.ledger.OperatorWithdraw(alice, dec("0.01"))
	check.True(t, errors.Is(err, ErrNotAuthorized))
}

func TestOperatorWithdraw_TransferFailureUnwinds(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)

	f.sender.fail[operator] = true
	err = f.ledger.OperatorWithdraw(operator, dec("0.1"))
	check.True(t, errors.Is(err, ErrTransferFailed))
	check.Equal(t, dec("0.1"), f.ledger.Balance())
}

func TestMinimumBidFor_TaggedStatuses(t *testing.T) {
	f := newDefaultFixture(t)

	check.Equal(t, BidQuoteNotMinted, f.ledger.MinimumBidFor(0).Status)

	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	quote := f.ledger.MinimumBidFor(0)
	check.Equal(t, BidQuoteOpen, quote.Status)
	check.Equal(t, dec("0.11"), quote.Minimum)

	f.clk.Advance(48*time.Hour + time.Second)
	check.Equal(t, BidQuoteExpired, f.ledger.MinimumBidFor(0).Status)
}

func TestEvents_Emitted(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))
	f.clk.Advance(49 * time.Hour)
	assert.Nil(t, f.ledger.Settle())

	check.Equal(t, []string{"0/bob/0.11"}, f.sink.bids)
	check.Equal(t, []string{"0/bob"}, f.sink.ends)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))
	_, err = f.ledger.Mint(carol, dec("0.2"), "")
	assert.Nil(t, err)

	snap := f.ledger.Snapshot()

	g := newDefaultFixture(t)
	assert.Nil(t, g.ledger.Restore(snap))
	check.Equal(t, f.ledger.MintCount(), g.ledger.MintCount())
	check.Equal(t, f.ledger.SettlementCursor(), g.ledger.SettlementCursor())
	check.Equal(t, f.ledger.Balance(), g.ledger.Balance())
	check.Equal(t, f.ledger.PendingCreditTotal(), g.ledger.PendingCreditTotal())
	check.Equal(t, f.ledger.PendingCredit(alice), g.ledger.PendingCredit(alice))

	first, ok := g.ledger.GetListing(0)
	assert.True(t, ok)
	check.Equal(t, bob, first.Holder)
	check.Equal(t, dec("0.11"), first.BidAmount)
}

func TestSnapshotRestore_RejectsBrokenInvariants(t *testing.T) {
	f := newDefaultFixture(t)
	_, err := f.ledger.Mint(alice, dec("0.1"), "")
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(bob, 0, dec("0.11")))

	// Credit total out of step with the individual credits.
	snap := f.ledger.Snapshot()
	snap.CreditTotal = snap.CreditTotal.Add(dec("1"))
	check.NotNil(t, newDefaultFixture(t).ledger.Restore(snap))

	// Balance promising less than the liability.
	snap = f.ledger.Snapshot()
	snap.Balance = dec("0.05")
	check.NotNil(t, newDefaultFixture(t).ledger.Restore(snap))

	// Cursor past the mint count.
	snap = f.ledger.Snapshot()
	snap.Cursor = 5
	check.NotNil(t, newDefaultFixture(t).ledger.Restore(snap))
}

func TestNewLedger_RejectsBadConfig(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	registry := newFakeRegistry()
	meta := make(fakeMeta)
	sender := newFakeSender()
	gate := fakeGate{operator: operator}

	cfg := DefaultConfig()
	cfg.Capacity = 0
	_, err := NewLedger(cfg, clk, registry, meta, gate, sender, nil)
	check.NotNil(t, err)

	cfg = DefaultConfig()
	cfg.Custodian = ""
	_, err = NewLedger(cfg, clk, registry, meta, gate, sender, nil)
	check.NotNil(t, err)

	_, err = NewLedger(DefaultConfig(), nil, registry, meta, gate, sender, nil)
	check.NotNil(t, err)
}
