// Package ledgerapi defines the wire types spoken between auctiond and its
// clients, and the CBOR snapshot format used for state persistence.
package ledgerapi

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/emilyhon/project-auctionable-nfts/core"
)

// Request type discriminators. Every request carries one in its "type" field.
const (
	TypePing             = "ping"
	TypeMintRequest      = "mint_request"
	TypeBidRequest       = "bid_request"
	TypeWithdrawRequest  = "withdraw_request"
	TypeOperatorWithdraw = "operator_withdraw_request"
	TypeDepositRequest   = "deposit_request"
	TypeSettleRequest    = "settle_request"
	TypeQueryRequest     = "query_request"
)

// Response type discriminators.
const (
	TypePong                     = "pong"
	TypeMintResponse             = "mint_response"
	TypeBidResponse              = "bid_response"
	TypeWithdrawResponse         = "withdraw_response"
	TypeOperatorWithdrawResponse = "operator_withdraw_response"
	TypeDepositResponse          = "deposit_response"
	TypeSettleResponse           = "settle_response"
	TypeQueryResponse            = "query_response"
	TypeErrorResponse            = "error"
)

// Query selectors for QueryRequest.
const (
	QueryListing            = "listing"
	QueryMinimumBid         = "minimum_bid"
	QueryPendingCredit      = "pending_credit"
	QueryPendingCreditTotal = "pending_credit_total"
	QueryReady              = "ready"
	QueryStatus             = "status"
	QueryWalletBalance      = "wallet_balance"
)

// NoCeiling is the legacy "not biddable" sentinel: the minimum-bid query
// reports this maximal value for unminted or expired items instead of a
// distinct error. Kept for compatibility with the original numeric contract.
var NoCeiling = decimal.New(1, 36)

// BaseRequest is the envelope every request shares. RequestID is an optional
// caller-chosen correlation id (clients send a UUID) echoed back verbatim.
type BaseRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// MintRequest creates a new listing. Payment is a decimal string; any amount
// above the mint price is kept as the starting bid.
type MintRequest struct {
	BaseRequest
	Caller      string `json:"caller"`
	Payment     string `json:"payment"`
	MetadataRef string `json:"metadata_ref,omitempty"`
}

// BidRequest places a bid on an existing listing.
type BidRequest struct {
	BaseRequest
	Caller  string `json:"caller"`
	ItemID  uint64 `json:"item_id"`
	Payment string `json:"payment"`
}

// WithdrawRequest claims the caller's entire pending credit.
type WithdrawRequest struct {
	BaseRequest
	Caller string `json:"caller"`
}

// OperatorWithdrawRequest sweeps uncommitted revenue. OperatorToken is the
// bearer token issued to the operator at daemon startup.
type OperatorWithdrawRequest struct {
	BaseRequest
	Caller        string `json:"caller"`
	Amount        string `json:"amount"`
	OperatorToken string `json:"operator_token"`
}

// DepositRequest funds an external wallet account. Operator-gated: the rail
// is in-memory, so only the operator may conjure spendable balance.
type DepositRequest struct {
	BaseRequest
	Account       string `json:"account"`
	Amount        string `json:"amount"`
	OperatorToken string `json:"operator_token"`
}

// SettleRequest finalizes the oldest unsettled auction.
type SettleRequest struct {
	BaseRequest
}

// QueryRequest reads ledger state without side effects. Query selects what to
// read; ItemID and Account qualify it where relevant. The pending-credit
// total is operator-only and requires OperatorToken.
type QueryRequest struct {
	BaseRequest
	Query         string `json:"query"`
	ItemID        uint64 `json:"item_id,omitempty"`
	Account       string `json:"account,omitempty"`
	OperatorToken string `json:"operator_token,omitempty"`
}

// ResponseHeader is the envelope every response shares. ErrorCode is a stable
// machine-readable code, set only when Success is false.
type ResponseHeader struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// PingResponse answers a ping.
type PingResponse struct {
	ResponseHeader
	Timestamp int64 `json:"timestamp"`
}

// MintResponse reports the id assigned to a freshly minted item.
type MintResponse struct {
	ResponseHeader
	ItemID uint64 `json:"item_id"`
}

// BidResponse acknowledges an accepted bid.
type BidResponse struct {
	ResponseHeader
	ItemID uint64 `json:"item_id"`
	Bidder string `json:"bidder,omitempty"`
	Amount string `json:"amount,omitempty"`
}

// WithdrawResponse reports the amount paid out.
type WithdrawResponse struct {
	ResponseHeader
	Amount string `json:"amount"`
}

// OperatorWithdrawResponse acknowledges an operator sweep.
type OperatorWithdrawResponse struct {
	ResponseHeader
	Amount string `json:"amount,omitempty"`
}

// DepositResponse acknowledges a wallet deposit.
type DepositResponse struct {
	ResponseHeader
	Account string `json:"account,omitempty"`
	Balance string `json:"balance,omitempty"`
}

// SettleResponse reports the settled item and its winner.
type SettleResponse struct {
	ResponseHeader
	ItemID uint64 `json:"item_id"`
	Winner string `json:"winner,omitempty"`
}

// ListingPayload is the wire form of a listing.
type ListingPayload struct {
	Holder     string `json:"holder"`
	BidAmount  string `json:"bid_amount"`
	ExpiryUnix int64  `json:"expiry_unix"`
}

// StatusPayload bundles the counters and static constants.
type StatusPayload struct {
	MintCount           int    `json:"mint_count"`
	SettlementCursor    uint64 `json:"settlement_cursor"`
	ReadyForSettlement  bool   `json:"ready_for_settlement"`
	MintPrice           string `json:"mint_price"`
	MinBidIncrement     string `json:"min_bid_increment"`
	AuctionDurationSecs int64  `json:"auction_duration_secs"`
	Capacity            int    `json:"capacity"`
}

// QueryResponse carries the answer to a QueryRequest; exactly one payload
// field is set on success, matching the query selector.
type QueryResponse struct {
	ResponseHeader
	Listing    *ListingPayload `json:"listing,omitempty"`
	Amount     string          `json:"amount,omitempty"`
	MinimumBid string          `json:"minimum_bid,omitempty"`
	Ready      *bool           `json:"ready,omitempty"`
	Status     *StatusPayload  `json:"status,omitempty"`
}

// Stable error codes for ResponseHeader.ErrorCode.
const (
	CodeNotEnoughFunds          = "not_enough_funds"
	CodeSoldOut                 = "sold_out"
	CodeUnmintedItem            = "unminted_item"
	CodeBidTooLow               = "bid_too_low"
	CodeAuctionExpired          = "auction_expired"
	CodeSettlementNotDue        = "settlement_not_due"
	CodeNotAuthorized           = "not_authorized"
	CodeExceededWithdrawalLimit = "exceeded_withdrawal_limit"
	CodeTransferFailed          = "transfer_failed"
	CodeBadRequest              = "bad_request"
	CodeInternal                = "internal"
)

// ErrorCode maps a ledger error to its wire code.
func ErrorCode(err error) string {
	var tooLow *core.BidTooLowError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrNotEnoughFunds):
		return CodeNotEnoughFunds
	case errors.Is(err, core.ErrSoldOut):
		return CodeSoldOut
	case errors.Is(err, core.ErrUnmintedItem):
		return CodeUnmintedItem
	case errors.As(err, &tooLow):
		return CodeBidTooLow
	case errors.Is(err, core.ErrAuctionExpired):
		return CodeAuctionExpired
	case errors.Is(err, core.ErrSettlementNotDue):
		return CodeSettlementNotDue
	case errors.Is(err, core.ErrNotAuthorized):
		return CodeNotAuthorized
	case errors.Is(err, core.ErrExceededWithdrawalLimit):
		return CodeExceededWithdrawalLimit
	case errors.Is(err, core.ErrTransferFailed):
		return CodeTransferFailed
	default:
		return CodeInternal
	}
}

// SentinelMinimum renders a bid quote for the wire, mapping the non-biddable
// statuses to the NoCeiling sentinel.
func SentinelMinimum(q core.BidQuote) string {
	if q.Status != core.BidQuoteOpen {
		return NoCeiling.String()
	}
	return q.Minimum.String()
}
