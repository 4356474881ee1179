package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/blocksim/blocksim/business/core/session"
	"github.com/blocksim/blocksim/business/sys/validate"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newRegistry() *session.Registry {
	gen := genesis.Default()
	gen.Difficulty = 1

	return session.NewRegistry(session.Config{Genesis: gen})
}

func TestRegistry(t *testing.T) {
	t.Log("Given the need to work with multiple chains.")
	{
		ctx := context.Background()
		reg := newRegistry()

		t.Logf("\tTest 0:\tWhen creating sessions.")
		{
			def, err := reg.Create(ctx, session.DefaultID)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create the default session: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to create the default session.", success)

			if _, err := reg.Create(ctx, session.DefaultID); !errors.Is(err, session.ErrExists) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrExists: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrExists.", success)

			other, err := reg.Create(ctx, "")
			if err != nil || other.ID == "" {
				t.Fatalf("\t%s\tTest 0:\tShould generate an id: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould generate an id.", success)

			if _, err := def.DB.AppendDirect(ctx, "only in default"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to append: %v", failed, err)
			}

			if other.DB.Length() != 1 || def.DB.Length() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the chains apart.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the chains apart.", success)

			if list := reg.List(); len(list) != 2 || list[0].ID != session.DefaultID {
				t.Fatalf("\t%s\tTest 0:\tShould list sessions by creation: %+v", failed, list)
			}
			t.Logf("\t%s\tTest 0:\tShould list sessions by creation.", success)
		}

		t.Logf("\tTest 1:\tWhen loading the demo.")
		{
			s, err := reg.Demo(ctx, session.DefaultID)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load the demo: %v", failed, err)
			}

			stats := s.Stats()
			if stats.TotalBlocks != 3 || !stats.Valid || stats.Pending != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould have a valid chain of 3 blocks: %+v", failed, stats)
			}
			t.Logf("\t%s\tTest 1:\tShould have a valid chain of 3 blocks.", success)

			accts := s.Accounts()
			exp := map[string]float64{"Alice": -50, "Bob": 25, "Charlie": 15, "Diana": 5, "Eve": 5, "Miner1": 100, "Miner2": 100}
			for addr, balance := range exp {
				if got := accts.Balance(addr); got != balance {
					t.Fatalf("\t%s\tTest 1:\tShould get %v for %s, got %v.", failed, balance, addr, got)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould derive the demo balances.", success)
		}

		t.Logf("\tTest 2:\tWhen importing a tampered chain.")
		{
			s, err := reg.Get(session.DefaultID)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to get the session: %v", failed, err)
			}
			if err := s.DB.Tamper(1, "Alice sends 1 coins to Bob"); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to tamper: %v", failed, err)
			}

			imported, err := reg.Import(session.DefaultID, s.DB.Records())
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to import: %v", failed, err)
			}

			if imported.DB == s.DB || imported.Stats().Valid || imported.Created != s.Created {
				t.Fatalf("\t%s\tTest 2:\tShould replace the chain and keep it tampered.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould replace the chain and keep it tampered.", success)

			if _, err := reg.Import(session.DefaultID, nil); !errors.Is(err, database.ErrMalformedRecord) {
				t.Fatalf("\t%s\tTest 2:\tShould get ErrMalformedRecord: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get ErrMalformedRecord.", success)
		}

		t.Logf("\tTest 3:\tWhen resetting and deleting.")
		{
			s, err := reg.Reset(ctx, session.DefaultID)
			if err != nil || s.DB.Length() != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould reset to a genesis block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould reset to a genesis block.", success)

			if err := reg.Delete(session.DefaultID); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to delete: %v", failed, err)
			}

			if _, err := reg.Get(session.DefaultID); !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("\t%s\tTest 3:\tShould get ErrNotFound: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get ErrNotFound.", success)
		}
	}
}

func TestConcurrentCreate(t *testing.T) {
	t.Log("Given the need to create sessions from many requests at once.")
	{
		t.Logf("\tTest 0:\tWhen the same id is created concurrently.")
		{
			reg := newRegistry()

			const callers = 8
			results := make([]error, callers)

			var wg sync.WaitGroup
			wg.Add(callers)
			for i := range callers {
				go func() {
					defer wg.Done()
					_, results[i] = reg.Create(context.Background(), "dup")
				}()
			}
			wg.Wait()

			var created int
			for _, err := range results {
				switch {
				case err == nil:
					created++
				case !errors.Is(err, session.ErrExists):
					t.Fatalf("\t%s\tTest 0:\tShould only get ErrExists: %v", failed, err)
				}
			}

			if created != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould create the session once, got %d.", failed, created)
			}
			t.Logf("\t%s\tTest 0:\tShould create the session once.", success)

			if list := reg.List(); len(list) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould hold one session, got %d.", failed, len(list))
			}
			t.Logf("\t%s\tTest 0:\tShould hold one session.", success)
		}

		t.Logf("\tTest 1:\tWhen the id can't be used in a path.")
		{
			reg := newRegistry()

			if _, err := reg.Create(context.Background(), "a/b"); !errors.Is(err, validate.ErrInvalidID) {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrInvalidID: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get ErrInvalidID.", success)
		}
	}
}
