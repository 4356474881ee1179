// Package accounts maintains account balances derived by replaying the
// entries recorded in the chain.
package accounts

import (
	"sort"
	"sync"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
)

// Accounts manages the balances of the accounts who have transacted on
// the blockchain.
type Accounts struct {
	balances map[string]float64
	mu       sync.RWMutex
}

// New replays the specified blocks and returns the resulting balances.
// Every account starts at zero.
func New(blocks []database.Block) *Accounts {
	return NewWithBalances(nil, blocks)
}

// NewWithBalances replays the specified blocks on top of a set of starting
// balances. The genesis block is never replayed.
func NewWithBalances(start map[string]float64, blocks []database.Block) *Accounts {
	accts := Accounts{
		balances: make(map[string]float64, len(start)),
	}

	for addr, balance := range start {
		accts.balances[addr] = balance
	}

	for _, block := range blocks {
		accts.ApplyBlock(block)
	}

	return &accts
}

// Balance is a helper that replays the blocks and returns the balance for
// the specified address.
func Balance(blocks []database.Block, address string) float64 {
	return New(blocks).Balance(address)
}

// =============================================================================

// Copy makes a copy of the current balance for all accounts.
func (act *Accounts) Copy() map[string]float64 {
	act.mu.RLock()
	defer act.mu.RUnlock()

	balances := make(map[string]float64, len(act.balances))
	for addr, balance := range act.balances {
		balances[addr] = balance
	}
	return balances
}

// Addresses returns the sorted list of every address the accounts know.
func (act *Accounts) Addresses() []string {
	act.mu.RLock()
	defer act.mu.RUnlock()

	addrs := make([]string, 0, len(act.balances))
	for addr := range act.balances {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	return addrs
}

// Balance returns the balance for the specified address. Unknown addresses
// have a zero balance.
func (act *Accounts) Balance(address string) float64 {
	act.mu.RLock()
	defer act.mu.RUnlock()

	return act.balances[address]
}

// =============================================================================

// ApplyBlock applies every recognized entry in the block's data. The
// genesis block carries no entries and is skipped.
func (act *Accounts) ApplyBlock(block database.Block) {
	if block.IsGenesis() {
		return
	}

	for _, entry := range database.ParseEntries(block.Data) {
		act.Apply(entry)
	}
}

// Apply performs the business logic for applying an entry to the balances.
// Transfers move the amount between the two accounts, rewards credit the
// recipient. Balances are allowed to go negative.
func (act *Accounts) Apply(entry database.Entry) {
	act.mu.Lock()
	defer act.mu.Unlock()

	switch entry.Kind {
	case database.KindTransfer:
		act.balances[entry.From] -= entry.Amount
		act.balances[entry.To] += entry.Amount

	case database.KindReward:
		act.balances[entry.To] += entry.Amount
	}
}
