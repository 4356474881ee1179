// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFee     = "fee"
	StrategyArrival = "arrival"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee:     feeSelect,
	StrategyArrival: arrivalSelect,
}

// Func defines a function that takes the pooled transactions in arrival
// order and selects howMany of them in an order based on the functions
// strategy. Receiving -1 for howMany must return all the transactions in
// the strategies ordering.
type Func func(transactions []database.Tx, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// feeSelect returns the transactions with the best fee first. Transactions
// with the same fee keep their arrival order.
var feeSelect = func(txs []database.Tx, howMany int) []database.Tx {
	final := append([]database.Tx(nil), txs...)
	sort.Stable(byFee(final))

	return limit(final, howMany)
}

// arrivalSelect returns the transactions in the order they arrived.
var arrivalSelect = func(txs []database.Tx, howMany int) []database.Tx {
	final := append([]database.Tx(nil), txs...)

	return limit(final, howMany)
}

func limit(txs []database.Tx, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(txs) {
		return txs
	}
	return txs[:howMany]
}

// =============================================================================

// byFee provides sorting support by the transaction fee value.
type byFee []database.Tx

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in decending order to pick the
// transactions that provide the best reward.
func (bf byFee) Less(i, j int) bool {
	return bf[i].Fee > bf[j].Fee
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
