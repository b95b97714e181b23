package main

import (
	"context"
	"time"
)

// runSettlementWatcher is the in-process external trigger: every interval it
// settles whatever auctions have become due, oldest first. Deployments that
// prefer an out-of-process trigger run the auction-watch tool instead.
func (s *LedgerServer) runSettlementWatcher(ctx context.Context, interval time.Duration) {
	s.log.Info().Dur("interval", interval).Msg("settlement watcher started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("settlement watcher stopped")
			return
		case <-ticker.C:
			s.settleDue()
		}
	}
}

// settleDue finalizes every auction currently due, in FIFO order, and returns
// how many were settled. Stops on the first error so a failing registry does
// not spin.
func (s *LedgerServer) settleDue() int {
	settled := 0
	for {
		s.mu.Lock()
		if !s.ledger.ReadyForSettlement() {
			s.mu.Unlock()
			return settled
		}
		err := s.ledger.Settle()
		s.mu.Unlock()
		if err != nil {
			s.log.Error().Err(err).Msg("settlement failed")
			return settled
		}
		settled++
	}
}
