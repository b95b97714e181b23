package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/emilyhon/project-auctionable-nfts/core"
	"github.com/emilyhon/project-auctionable-nfts/ledgerapi"
)

func okHeader(typ, requestID string) ledgerapi.ResponseHeader {
	return ledgerapi.ResponseHeader{Type: typ, RequestID: requestID, Success: true}
}

func failHeader(typ, requestID, code, message string) ledgerapi.ResponseHeader {
	return ledgerapi.ResponseHeader{
		Type:      typ,
		RequestID: requestID,
		Success:   false,
		Message:   message,
		ErrorCode: code,
	}
}

// dispatch decodes one raw request and routes it to its handler. The returned
// value is always JSON-encodable.
func (s *LedgerServer) dispatch(raw []byte) any {
	var base ledgerapi.BaseRequest
	if err := json.Unmarshal(raw, &base); err != nil {
		s.log.Error().Err(err).Msg("decode request envelope")
		return failHeader(ledgerapi.TypeErrorResponse, "", ledgerapi.CodeBadRequest, fmt.Sprintf("malformed request: %v", err))
	}

	s.log.Debug().Str("type", base.Type).Str("request_id", base.RequestID).Msg("request received")

	switch base.Type {
	case ledgerapi.TypePing:
		return ledgerapi.PingResponse{
			ResponseHeader: okHeader(ledgerapi.TypePong, base.RequestID),
			Timestamp:      s.clk.Now().Unix(),
		}
	case ledgerapi.TypeMintRequest:
		return s.handleMint(raw, base.RequestID)
	case ledgerapi.TypeBidRequest:
		return s.handleBid(raw, base.RequestID)
	case ledgerapi.TypeWithdrawRequest:
		return s.handleWithdraw(raw, base.RequestID)
	case ledgerapi.TypeOperatorWithdraw:
		return s.handleOperatorWithdraw(raw, base.RequestID)
	case ledgerapi.TypeDepositRequest:
		return s.handleDeposit(raw, base.RequestID)
	case ledgerapi.TypeSettleRequest:
		return s.handleSettle(base.RequestID)
	case ledgerapi.TypeQueryRequest:
		return s.handleQuery(raw, base.RequestID)
	default:
		return failHeader(ledgerapi.TypeErrorResponse, base.RequestID, ledgerapi.CodeBadRequest, fmt.Sprintf("unknown request type %q", base.Type))
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad amount %q: %w", raw, err)
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %s", amount)
	}
	return amount, nil
}

func (s *LedgerServer) handleMint(raw []byte, requestID string) any {
	var req ledgerapi.MintRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failHeader(ledgerapi.TypeMintResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}
	caller := core.Address(req.Caller)
	if caller.IsZero() {
		return failHeader(ledgerapi.TypeMintResponse, requestID, ledgerapi.CodeBadRequest, "caller is required")
	}
	payment, err := parseAmount(req.Payment)
	if err != nil {
		return failHeader(ledgerapi.TypeMintResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wallet.Debit(caller, payment); err != nil {
		return failHeader(ledgerapi.TypeMintResponse, requestID, ledgerapi.CodeNotEnoughFunds, err.Error())
	}
	id, err := s.ledger.Mint(caller, payment, req.MetadataRef)
	if err != nil {
		// Hand the payment back: the ledger rejected without effect.
		if cerr := s.wallet.Credit(caller, payment); cerr != nil {
			s.log.Error().Err(cerr).Str("caller", req.Caller).Msg("refund after failed mint")
		}
		return failHeader(ledgerapi.TypeMintResponse, requestID, ledgerapi.ErrorCode(err), err.Error())
	}

	s.log.Info().Uint64("item_id", uint64(id)).Str("caller", req.Caller).Str("payment", payment.String()).Msg("item minted")
	return ledgerapi.MintResponse{
		ResponseHeader: okHeader(ledgerapi.TypeMintResponse, requestID),
		ItemID:         uint64(id),
	}
}

func (s *LedgerServer) handleBid(raw []byte, requestID string) any {
	var req ledgerapi.BidRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failHeader(ledgerapi.TypeBidResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}
	caller := core.Address(req.Caller)
	if caller.IsZero() {
		return failHeader(ledgerapi.TypeBidResponse, requestID, ledgerapi.CodeBadRequest, "caller is required")
	}
	payment, err := parseAmount(req.Payment)
	if err != nil {
		return failHeader(ledgerapi.TypeBidResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wallet.Debit(caller, payment); err != nil {
		return failHeader(ledgerapi.TypeBidResponse, requestID, ledgerapi.CodeNotEnoughFunds, err.Error())
	}
	if err := s.ledger.Bid(caller, core.ItemID(req.ItemID), payment); err != nil {
		if cerr := s.wallet.Credit(caller, payment); cerr != nil {
			s.log.Error().Err(cerr).Str("caller", req.Caller).Msg("refund after failed bid")
		}
		return failHeader(ledgerapi.TypeBidResponse, requestID, ledgerapi.ErrorCode(err), err.Error())
	}

	return ledgerapi.BidResponse{
		ResponseHeader: okHeader(ledgerapi.TypeBidResponse, requestID),
		ItemID:         req.ItemID,
		Bidder:         req.Caller,
		Amount:         payment.String(),
	}
}

func (s *LedgerServer) handleWithdraw(raw []byte, requestID string) any {
	var req ledgerapi.WithdrawRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failHeader(ledgerapi.TypeWithdrawResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}
	caller := core.Address(req.Caller)
	if caller.IsZero() {
		return failHeader(ledgerapi.TypeWithdrawResponse, requestID, ledgerapi.CodeBadRequest, "caller is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.ledger.Withdraw(caller)
	if err != nil {
		return failHeader(ledgerapi.TypeWithdrawResponse, requestID, ledgerapi.ErrorCode(err), err.Error())
	}

	s.log.Info().Str("caller", req.Caller).Str("amount", amount.String()).Msg("credit withdrawn")
	return ledgerapi.WithdrawResponse{
		ResponseHeader: okHeader(ledgerapi.TypeWithdrawResponse, requestID),
		Amount:         amount.String(),
	}
}

func (s *LedgerServer) handleOperatorWithdraw(raw []byte, requestID string) any {
	var req ledgerapi.OperatorWithdrawRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failHeader(ledgerapi.TypeOperatorWithdrawResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}
	if !s.gate.CheckToken(req.OperatorToken) {
		return failHeader(ledgerapi.TypeOperatorWithdrawResponse, requestID, ledgerapi.CodeNotAuthorized, "bad operator token")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return failHeader(ledgerapi.TypeOperatorWithdrawResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.OperatorWithdraw(core.Address(req.Caller), amount); err != nil {
		return failHeader(ledgerapi.TypeOperatorWithdrawResponse, requestID, ledgerapi.ErrorCode(err), err.Error())
	}

	s.log.Info().Str("caller", req.Caller).Str("amount", amount.String()).Msg("operator withdrawal")
	return ledgerapi.OperatorWithdrawResponse{
		ResponseHeader: okHeader(ledgerapi.TypeOperatorWithdrawResponse, requestID),
		Amount:         amount.String(),
	}
}

func (s *LedgerServer) handleDeposit(raw []byte, requestID string) any {
	var req ledgerapi.DepositRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failHeader(ledgerapi.TypeDepositResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}
	if !s.gate.CheckToken(req.OperatorToken) {
		return failHeader(ledgerapi.TypeDepositResponse, requestID, ledgerapi.CodeNotAuthorized, "bad operator token")
	}
	account := core.Address(req.Account)
	if account.IsZero() {
		return failHeader(ledgerapi.TypeDepositResponse, requestID, ledgerapi.CodeBadRequest, "account is required")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return failHeader(ledgerapi.TypeDepositResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wallet.Credit(account, amount); err != nil {
		return failHeader(ledgerapi.TypeDepositResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}
	return ledgerapi.DepositResponse{
		ResponseHeader: okHeader(ledgerapi.TypeDepositResponse, requestID),
		Account:        req.Account,
		Balance:        s.wallet.Balance(account).String(),
	}
}

func (s *LedgerServer) handleSettle(requestID string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ledger.SettlementCursor()
	if err := s.ledger.Settle(); err != nil {
		return failHeader(ledgerapi.TypeSettleResponse, requestID, ledgerapi.ErrorCode(err), err.Error())
	}

	listing, _ := s.ledger.GetListing(id)
	return ledgerapi.SettleResponse{
		ResponseHeader: okHeader(ledgerapi.TypeSettleResponse, requestID),
		ItemID:         uint64(id),
		Winner:         string(listing.Holder),
	}
}

func (s *LedgerServer) handleQuery(raw []byte, requestID string) any {
	var req ledgerapi.QueryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failHeader(ledgerapi.TypeQueryResponse, requestID, ledgerapi.CodeBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := ledgerapi.QueryResponse{ResponseHeader: okHeader(ledgerapi.TypeQueryResponse, requestID)}
	switch req.Query {
	case ledgerapi.QueryListing:
		listing, ok := s.ledger.GetListing(core.ItemID(req.ItemID))
		if !ok {
			return failHeader(ledgerapi.TypeQueryResponse, requestID, ledgerapi.CodeUnmintedItem, fmt.Sprintf("item %d not minted", req.ItemID))
		}
		resp.Listing = &ledgerapi.ListingPayload{
			Holder:     string(listing.Holder),
			BidAmount:  listing.BidAmount.String(),
			ExpiryUnix: listing.Expiry.Unix(),
		}
	case ledgerapi.QueryMinimumBid:
		resp.MinimumBid = ledgerapi.SentinelMinimum(s.ledger.MinimumBidFor(core.ItemID(req.ItemID)))
	case ledgerapi.QueryPendingCredit:
		if req.Account == "" {
			return failHeader(ledgerapi.TypeQueryResponse, requestID, ledgerapi.CodeBadRequest, "account is required")
		}
		resp.Amount = s.ledger.PendingCredit(core.Address(req.Account)).String()
	case ledgerapi.QueryPendingCreditTotal:
		if !s.gate.CheckToken(req.OperatorToken) {
			return failHeader(ledgerapi.TypeQueryResponse, requestID, ledgerapi.CodeNotAuthorized, "pending credit total is operator-only")
		}
		resp.Amount = s.ledger.PendingCreditTotal().String()
	case ledgerapi.QueryWalletBalance:
		if req.Account == "" {
			return failHeader(ledgerapi.TypeQueryResponse, requestID, ledgerapi.CodeBadRequest, "account is required")
		}
		resp.Amount = s.wallet.Balance(core.Address(req.Account)).String()
	case ledgerapi.QueryReady:
		ready := s.ledger.ReadyForSettlement()
		resp.Ready = &ready
	case ledgerapi.QueryStatus:
		cfg := s.ledger.Config()
		resp.Status = &ledgerapi.StatusPayload{
			MintCount:           s.ledger.MintCount(),
			SettlementCursor:    uint64(s.ledger.SettlementCursor()),
			ReadyForSettlement:  s.ledger.ReadyForSettlement(),
			MintPrice:           cfg.MintPrice.String(),
			MinBidIncrement:     cfg.MinBidIncrement.String(),
			AuctionDurationSecs: int64(cfg.AuctionDuration.Seconds()),
			Capacity:            cfg.Capacity,
		}
	default:
		return failHeader(ledgerapi.TypeQueryResponse, requestID, ledgerapi.CodeBadRequest, fmt.Sprintf("unknown query %q", req.Query))
	}
	return resp
}
