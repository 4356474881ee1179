package selector_test

import (
	"testing"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestSelect(t *testing.T) {
	txs := []database.Tx{
		{From: "User1", To: "User2", Amount: 20, Fee: 2, TimeStamp: 1},
		{From: "User2", To: "User3", Amount: 10, Fee: 1.5, TimeStamp: 2},
		{From: "User3", To: "User1", Amount: 5, Fee: 3, TimeStamp: 3},
		{From: "User4", To: "User1", Amount: 5, Fee: 2, TimeStamp: 4},
	}

	type test struct {
		name     string
		strategy string
		howMany  int
		best     []uint64
	}

	tt := []test{
		{name: "fee-all", strategy: selector.StrategyFee, howMany: -1, best: []uint64{3, 1, 4, 2}},
		{name: "fee-two", strategy: selector.StrategyFee, howMany: 2, best: []uint64{3, 1}},
		{name: "fee-more", strategy: selector.StrategyFee, howMany: 10, best: []uint64{3, 1, 4, 2}},
		{name: "arrival-all", strategy: selector.StrategyArrival, howMany: -1, best: []uint64{1, 2, 3, 4}},
		{name: "arrival-one", strategy: selector.StrategyArrival, howMany: 1, best: []uint64{1}},
	}

	t.Log("Given the need to select the transactions for the next block.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen using the %s strategy.", testID, tst.name)
			{
				f := func(t *testing.T) {
					fn, err := selector.Retrieve(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the strategy: %v", failed, testID, err)
					}

					got := fn(txs, tst.howMany)
					if len(got) != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould get %d transactions, got %d.", failed, testID, len(tst.best), len(got))
					}

					for i, ts := range tst.best {
						if got[i].TimeStamp != ts {
							t.Fatalf("\t%s\tTest %d:\tShould get transaction %d at position %d, got %d.", failed, testID, ts, i, got[i].TimeStamp)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get the transactions in the right order.", success, testID)

					if txs[0].TimeStamp != 1 || txs[2].TimeStamp != 3 {
						t.Fatalf("\t%s\tTest %d:\tShould leave the input untouched.", failed, testID)
					}
				}

				t.Run(tst.name, f)
			}
		}

		t.Logf("\tTest %d:\tWhen asking for an unknown strategy.", len(tt))
		{
			if _, err := selector.Retrieve("tip"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould get an error.", failed, len(tt))
			}
			t.Logf("\t%s\tTest %d:\tShould get an error.", success, len(tt))
		}
	}
}
