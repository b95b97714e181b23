// Package client is a Go client for the auctiond TCP API: one JSON request
// per connection, half-close after writing, one JSON response back.
package client

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/emilyhon/project-auctionable-nfts/ledgerapi"
)

const defaultTimeout = 30 * time.Second

// APIError is a rejection reported by the daemon, carrying the stable wire
// code alongside the human-readable message.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client talks to one auctiond instance. Safe for concurrent use; every call
// opens its own connection.
type Client struct {
	addr    string
	timeout time.Duration
}

// New returns a client for the daemon at addr.
func New(addr string) *Client {
	return &Client{addr: addr, timeout: defaultTimeout}
}

func (c *Client) roundTrip(req, resp any) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	// The server reads until EOF, so close the write side to flush.
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return fmt.Errorf("close write side: %w", err)
		}
	}

	if err := json.NewDecoder(conn).Decode(resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}

func checkHeader(h ledgerapi.ResponseHeader) error {
	if h.Success {
		return nil
	}
	return &APIError{Code: h.ErrorCode, Message: h.Message}
}

func base(reqType string) ledgerapi.BaseRequest {
	return ledgerapi.BaseRequest{Type: reqType, RequestID: uuid.NewString()}
}

// Ping checks the daemon is alive and returns its clock reading.
func (c *Client) Ping() (int64, error) {
	var resp ledgerapi.PingResponse
	if err := c.roundTrip(base(ledgerapi.TypePing), &resp); err != nil {
		return 0, err
	}
	return resp.Timestamp, checkHeader(resp.ResponseHeader)
}

// Mint creates a new listing and returns the assigned item id.
func (c *Client) Mint(caller, payment, metadataRef string) (uint64, error) {
	req := ledgerapi.MintRequest{
		BaseRequest: base(ledgerapi.TypeMintRequest),
		Caller:      caller,
		Payment:     payment,
		MetadataRef: metadataRef,
	}
	var resp ledgerapi.MintResponse
	if err := c.roundTrip(req, &resp); err != nil {
		return 0, err
	}
	return resp.ItemID, checkHeader(resp.ResponseHeader)
}

// Bid places a bid on an existing listing.
func (c *Client) Bid(caller string, itemID uint64, payment string) error {
	req := ledgerapi.BidRequest{
		BaseRequest: base(ledgerapi.TypeBidRequest),
		Caller:      caller,
		ItemID:      itemID,
		Payment:     payment,
	}
	var resp ledgerapi.BidResponse
	if err := c.roundTrip(req, &resp); err != nil {
		return err
	}
	return checkHeader(resp.ResponseHeader)
}

// Withdraw claims the caller's pending credit and returns the amount paid.
func (c *Client) Withdraw(caller string) (string, error) {
	req := ledgerapi.WithdrawRequest{
		BaseRequest: base(ledgerapi.TypeWithdrawRequest),
		Caller:      caller,
	}
	var resp ledgerapi.WithdrawResponse
	if err := c.roundTrip(req, &resp); err != nil {
		return "", err
	}
	return resp.Amount, checkHeader(resp.ResponseHeader)
}

// OperatorWithdraw sweeps uncommitted revenue to the operator.
func (c *Client) OperatorWithdraw(caller, amount, operatorToken string) error {
	req := ledgerapi.OperatorWithdrawRequest{
		BaseRequest:   base(ledgerapi.TypeOperatorWithdraw),
		Caller:        caller,
		Amount:        amount,
		OperatorToken: operatorToken,
	}
	var resp ledgerapi.OperatorWithdrawResponse
	if err := c.roundTrip(req, &resp); err != nil {
		return err
	}
	return checkHeader(resp.ResponseHeader)
}

// Deposit funds an external wallet account (operator-gated).
func (c *Client) Deposit(account, amount, operatorToken string) (string, error) {
	req := ledgerapi.DepositRequest{
		BaseRequest:   base(ledgerapi.TypeDepositRequest),
		Account:       account,
		Amount:        amount,
		OperatorToken: operatorToken,
	}
	var resp ledgerapi.DepositResponse
	if err := c.roundTrip(req, &resp); err != nil {
		return "", err
	}
	return resp.Balance, checkHeader(resp.ResponseHeader)
}

// Settle finalizes the oldest due auction and reports the item and winner.
func (c *Client) Settle() (uint64, string, error) {
	var resp ledgerapi.SettleResponse
	if err := c.roundTrip(ledgerapi.SettleRequest{BaseRequest: base(ledgerapi.TypeSettleRequest)}, &resp); err != nil {
		return 0, "", err
	}
	return resp.ItemID, resp.Winner, checkHeader(resp.ResponseHeader)
}

func (c *Client) query(req ledgerapi.QueryRequest) (ledgerapi.QueryResponse, error) {
	req.BaseRequest = base(ledgerapi.TypeQueryRequest)
	var resp ledgerapi.QueryResponse
	if err := c.roundTrip(req, &resp); err != nil {
		return resp, err
	}
	return resp, checkHeader(resp.ResponseHeader)
}

// Ready reports whether the oldest unsettled auction is due.
func (c *Client) Ready() (bool, error) {
	resp, err := c.query(ledgerapi.QueryRequest{Query: ledgerapi.QueryReady})
	if err != nil || resp.Ready == nil {
		return false, err
	}
	return *resp.Ready, nil
}

// Listing returns the wire form of one listing.
func (c *Client) Listing(itemID uint64) (ledgerapi.ListingPayload, error) {
	resp, err := c.query(ledgerapi.QueryRequest{Query: ledgerapi.QueryListing, ItemID: itemID})
	if err != nil || resp.Listing == nil {
		return ledgerapi.ListingPayload{}, err
	}
	return *resp.Listing, nil
}

// MinimumBid quotes the lowest acceptable bid, using the legacy "no ceiling"
// sentinel for items that cannot be bid on.
func (c *Client) MinimumBid(itemID uint64) (string, error) {
	resp, err := c.query(ledgerapi.QueryRequest{Query: ledgerapi.QueryMinimumBid, ItemID: itemID})
	return resp.MinimumBid, err
}

// PendingCredit returns the amount owed to an account.
func (c *Client) PendingCredit(account string) (string, error) {
	resp, err := c.query(ledgerapi.QueryRequest{Query: ledgerapi.QueryPendingCredit, Account: account})
	return resp.Amount, err
}

// PendingCreditTotal returns the aggregate liability (operator-only).
func (c *Client) PendingCreditTotal(operatorToken string) (string, error) {
	resp, err := c.query(ledgerapi.QueryRequest{Query: ledgerapi.QueryPendingCreditTotal, OperatorToken: operatorToken})
	return resp.Amount, err
}

// WalletBalance returns an account's spendable funds on the payment rail.
func (c *Client) WalletBalance(account string) (string, error) {
	resp, err := c.query(ledgerapi.QueryRequest{Query: ledgerapi.QueryWalletBalance, Account: account})
	return resp.Amount, err
}

// Status returns the counters and static auction constants.
func (c *Client) Status() (ledgerapi.StatusPayload, error) {
	resp, err := c.query(ledgerapi.QueryRequest{Query: ledgerapi.QueryStatus})
	if err != nil || resp.Status == nil {
		return ledgerapi.StatusPayload{}, err
	}
	return *resp.Status, nil
}
