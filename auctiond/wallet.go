package main

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/emilyhon/project-auctionable-nfts/core"
)

// memWallet is the in-memory payment rail: per-account spendable balances
// outside the ledger. Mint and bid payments are debited from here before the
// ledger sees them; withdrawals and operator sweeps are credited back through
// Pay. Accounts listed in rejecting refuse incoming payments, which exercises
// the ledger's transfer-failure unwinding.
type memWallet struct {
	mu        sync.Mutex
	balances  map[core.Address]decimal.Decimal
	rejecting map[core.Address]bool
}

func newMemWallet() *memWallet {
	return &memWallet{
		balances:  make(map[core.Address]decimal.Decimal),
		rejecting: make(map[core.Address]bool),
	}
}

// Pay implements core.PaymentSender.
func (w *memWallet) Pay(to core.Address, amount decimal.Decimal) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rejecting[to] {
		return false
	}
	w.balances[to] = w.balances[to].Add(amount)
	return true
}

// Debit removes spendable funds from an account, failing when the balance is
// insufficient.
func (w *memWallet) Debit(from core.Address, amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount.IsNegative() {
		return fmt.Errorf("negative debit of %s", amount)
	}
	if w.balances[from].LessThan(amount) {
		return fmt.Errorf("account %s holds %s, needs %s", from, w.balances[from], amount)
	}
	w.balances[from] = w.balances[from].Sub(amount)
	return nil
}

// Credit adds spendable funds to an account.
func (w *memWallet) Credit(to core.Address, amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount.IsNegative() {
		return fmt.Errorf("negative credit of %s", amount)
	}
	w.balances[to] = w.balances[to].Add(amount)
	return nil
}

// Balance returns an account's spendable funds.
func (w *memWallet) Balance(addr core.Address) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[addr]
}

// SetRejecting marks or unmarks an account as refusing payments.
func (w *memWallet) SetRejecting(addr core.Address, reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejecting[addr] = reject
}

// snapshotBalances copies all balances for persistence.
func (w *memWallet) snapshotBalances() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.balances))
	for addr, amount := range w.balances {
		out[string(addr)] = amount.String()
	}
	return out
}

// restoreBalances replaces all balances from a snapshot.
func (w *memWallet) restoreBalances(in map[string]string) error {
	restored := make(map[core.Address]decimal.Decimal, len(in))
	for addr, raw := range in {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("wallet balance for %s: %w", addr, err)
		}
		restored[core.Address(addr)] = amount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances = restored
	return nil
}
