package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Every rejection is deterministic and side-effect free: an operation that
// returns one of these errors has not touched ledger state, with the single
// exception of ErrTransferFailed, whose operation is fully unwound before the
// error is returned.
var (
	ErrNotEnoughFunds          = errors.New("payment below mint price")
	ErrSoldOut                 = errors.New("collection sold out")
	ErrUnmintedItem            = errors.New("bidding on unminted item")
	ErrAuctionExpired          = errors.New("auction expired")
	ErrSettlementNotDue        = errors.New("settlement not due")
	ErrNotAuthorized           = errors.New("caller is not the operator")
	ErrExceededWithdrawalLimit = errors.New("amount exceeds uncommitted balance")
	ErrTransferFailed          = errors.New("outbound transfer failed")
)

// BidTooLowError rejects a bid below the current minimum and carries the
// minimum that would have been accepted.
type BidTooLowError struct {
	MinRequired decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: minimum required is %s", e.MinRequired)
}
