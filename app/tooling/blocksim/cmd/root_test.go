package cmd

import (
	"testing"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestParseTransfer(t *testing.T) {
	type table struct {
		name   string
		input  string
		from   string
		to     string
		amount float64
		fee    float64
		err    bool
	}

	tt := []table{
		{name: "amount", input: "Alice:Bob:50", from: "Alice", to: "Bob", amount: 50},
		{name: "fee", input: "Alice:Bob:2.5:0.5", from: "Alice", to: "Bob", amount: 2.5, fee: 0.5},
		{name: "missing", input: "Alice:Bob", err: true},
		{name: "amount-nan", input: "Alice:Bob:lots", err: true},
		{name: "fee-nan", input: "Alice:Bob:1:lots", err: true},
		{name: "sender-space", input: "Bob Smith:Alice:10", err: true},
		{name: "recipient-pipe", input: "Alice:B | C:10", err: true},
		{name: "recipient-words", input: "Alice:Mary Ann:10", from: "Alice", to: "Mary Ann", amount: 10},
	}

	t.Log("Given the need to parse transfers from the command line.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				from, to, amount, fee, err := parseTransfer(tst.input)
				if tst.err {
					if err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject %q.", failed, testID, tst.input)
					}
					t.Logf("\t%s\tTest %d:\tShould reject %q.", success, testID, tst.input)
					return
				}

				if err != nil || from != tst.from || to != tst.to || amount != tst.amount || fee != tst.fee {
					t.Fatalf("\t%s\tTest %d:\tShould parse %q: %s %s %v %v %v", failed, testID, tst.input, from, to, amount, fee, err)
				}
				t.Logf("\t%s\tTest %d:\tShould parse %q.", success, testID, tst.input)
			}

			t.Run(tst.name, f)
		}
	}
}

func TestShorten(t *testing.T) {
	t.Log("Given the need to fit values into table cells.")
	{
		if got := shorten("abc", 5); got != "abc" {
			t.Fatalf("\t%s\tShould keep short values, got %q.", failed, got)
		}
		if got := shorten("h\u00e9llo world", 5); got != "h\u00e9llo..." {
			t.Fatalf("\t%s\tShould cut on runes, got %q.", failed, got)
		}
		t.Logf("\t%s\tShould shorten long values.", success)
	}
}

func TestMineNothingPending(t *testing.T) {
	t.Log("Given the need to mine when nothing is pending.")
	{
		db, err := database.New(t.Context(), database.Config{Difficulty: 1, MiningReward: 100})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a chain: %v", failed, err)
		}

		_, ok := mine("Mining pending entries", func() (database.Block, error) {
			return db.FlushPending(t.Context(), "Miner")
		})
		if ok {
			t.Fatalf("\t%s\tShould report there was nothing to mine.", failed)
		}
		t.Logf("\t%s\tShould report there was nothing to mine.", success)

		if db.Length() != 1 {
			t.Fatalf("\t%s\tShould leave the chain alone, got %d blocks.", failed, db.Length())
		}
		t.Logf("\t%s\tShould leave the chain alone.", success)
	}
}
