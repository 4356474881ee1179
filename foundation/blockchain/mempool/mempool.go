// Package mempool maintains the pool of transactions waiting to be mined.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/mempool/selector"
)

// ErrInsufficientFunds is returned when the sender can't cover the amount
// plus the fee of a transaction.
var ErrInsufficientFunds = errors.New("insufficient funds")

// BalanceFunc returns the current balance for the specified address.
type BalanceFunc func(address string) float64

// pooled keeps the arrival sequence next to the transaction.
type pooled struct {
	tx  database.Tx
	seq uint64
}

// Mempool represents a cache of transactions organized by transaction id.
type Mempool struct {
	pool      map[string]pooled
	seq       uint64
	mu        sync.RWMutex
	balanceFn BalanceFunc
	selectFn  selector.Func
}

// New constructs a new mempool using the fee sort strategy. When balanceFn
// is not nil, transactions the sender can't pay for are rejected.
func New(balanceFn BalanceFunc) (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFee, balanceFn)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string, balanceFn BalanceFunc) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:      make(map[string]pooled),
		balanceFn: balanceFn,
		selectFn:  selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool. The sender must be
// able to pay for this transaction on top of what it already has pooled.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	id := tx.ID()

	if mp.balanceFn != nil {
		var pooledCost float64
		for key, p := range mp.pool {
			if key != id && p.tx.From == tx.From {
				pooledCost += p.tx.Cost()
			}
		}

		balance := mp.balanceFn(tx.From)
		if balance-pooledCost < tx.Cost() {
			return 0, fmt.Errorf("%w: %s has %v available, needs %v", ErrInsufficientFunds, tx.From, balance-pooledCost, tx.Cost())
		}
	}

	seq := mp.seq
	if p, exists := mp.pool[id]; exists {
		seq = p.seq
	} else {
		mp.seq++
	}

	mp.pool[id] = pooled{tx: tx, seq: seq}

	return len(mp.pool), nil
}

// Delete removed a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]pooled)
}

// Copy returns every transaction in the pool in arrival order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.arrivals()
}

// PickBest uses the configured sort strategy to return the next set of
// transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	txs := mp.arrivals()
	mp.mu.RUnlock()

	return mp.selectFn(txs, howMany)
}

// arrivals must be called while holding a lock.
func (mp *Mempool) arrivals() []database.Tx {
	list := make([]pooled, 0, len(mp.pool))
	for _, p := range mp.pool {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	txs := make([]database.Tx, len(list))
	for i, p := range list {
		txs[i] = p.tx
	}
	return txs
}
