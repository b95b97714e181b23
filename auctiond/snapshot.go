package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/emilyhon/project-auctionable-nfts/ledgerapi"
)

// saveSnapshot writes the full daemon state (ledger + collaborators) to path
// as CBOR, atomically via a temp file rename.
func (s *LedgerServer) saveSnapshot(path string) error {
	s.mu.Lock()
	snap := ledgerapi.EncodeLedger(s.ledger.Snapshot(), s.clk.Now())
	snap.Wallets = s.wallet.snapshotBalances()
	snap.Custody = s.registry.snapshotCustody()
	snap.Metadata = s.metadata.snapshotRefs()
	s.mu.Unlock()

	data, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.log.Info().Str("path", filepath.Clean(path)).Int("bytes", len(data)).Msg("snapshot saved")
	return nil
}

// loadSnapshot restores daemon state from a CBOR snapshot file. The ledger's
// restore validates the conservation invariants before anything is replaced.
func (s *LedgerServer) loadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap ledgerapi.Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	state, err := snap.DecodeLedger()
	if err != nil {
		return fmt.Errorf("decode ledger state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.Restore(state); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	if err := s.wallet.restoreBalances(snap.Wallets); err != nil {
		return fmt.Errorf("restore wallets: %w", err)
	}
	s.registry.restoreCustody(snap.Custody)
	s.metadata.restoreRefs(snap.Metadata)

	s.log.Info().Str("path", filepath.Clean(path)).Int("listings", len(snap.Listings)).Msg("snapshot loaded")
	return nil
}
