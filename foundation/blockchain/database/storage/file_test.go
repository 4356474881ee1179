package storage_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/database/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestFile(t *testing.T) {
	t.Log("Given the need to store a chain on disk.")
	{
		cfg := database.Config{Difficulty: 1, MiningReward: 100}

		db, err := database.New(context.Background(), cfg)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a chain: %v", failed, err)
		}
		db.QueueEntry("Alice sends 10 coins to Bob")
		if _, err := db.FlushPending(context.Background(), "Miner"); err != nil {
			t.Fatalf("\t%s\tShould be able to flush: %v", failed, err)
		}
		if err := db.Tamper(1, "Alice sends 1000 coins to Bob"); err != nil {
			t.Fatalf("\t%s\tShould be able to tamper: %v", failed, err)
		}

		file := storage.NewFile(filepath.Join(t.TempDir(), "chains", "chain.json"))

		t.Logf("\tTest 0:\tWhen saving a tampered chain.")
		{
			if file.Exists() {
				t.Fatalf("\t%s\tTest 0:\tShould not have a file yet.", failed)
			}

			if err := file.Save(db.Records()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to save: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to save.", success)

			content, err := os.ReadFile(file.Path())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the file: %v", failed, err)
			}

			if !strings.HasPrefix(string(content), "[\n  {\n    \"index\": 0,") {
				t.Fatalf("\t%s\tTest 0:\tShould write an indented array, got %s.", failed, content)
			}
			t.Logf("\t%s\tTest 0:\tShould write an indented array.", success)
		}

		t.Logf("\tTest 1:\tWhen loading the chain back.")
		{
			records, err := file.Load()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load: %v", failed, err)
			}

			loaded, err := database.Load(cfg, records)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct the chain: %v", failed, err)
			}

			if !reflect.DeepEqual(loaded.Blocks(), db.Blocks()) {
				t.Fatalf("\t%s\tTest 1:\tShould get identical blocks.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get identical blocks.", success)

			if loaded.Validate() {
				t.Fatalf("\t%s\tTest 1:\tShould still be tampered.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould still be tampered.", success)
		}

		t.Logf("\tTest 2:\tWhen the file holds a malformed chain.")
		{
			bad := filepath.Join(t.TempDir(), "bad.json")
			if err := os.WriteFile(bad, []byte(`[{"index": 0}]`), 0600); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to write the file: %v", failed, err)
			}

			if _, err := storage.NewFile(bad).Load(); !errors.Is(err, database.ErrMalformedRecord) {
				t.Fatalf("\t%s\tTest 2:\tShould get ErrMalformedRecord: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get ErrMalformedRecord.", success)
		}
	}
}

func TestFileCompatibility(t *testing.T) {
	t.Log("Given the need to read chains written by other tools.")
	{
		t.Logf("\tTest 0:\tWhen reading a chain with ASCII escaped data.")
		{
			rec := database.BlockData{
				Index:     1,
				Timestamp: 1700000000.25,
				Data:      "Café sends 1 coins to Zoë",
				PrevHash:  "0",
				Nonce:     7,
			}
			rec.Hash = database.ToBlock(rec).CalculateHash()

			doc := `[{"index": 1, "timestamp": 1700000000.25, "data": "Caf\u00e9 sends 1 coins to Zo\u00eb", "previous_hash": "0", "hash": "` + rec.Hash + `", "nonce": 7}]`

			records, err := database.DecodeRecords(strings.NewReader(doc))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to decode: %v", failed, err)
			}

			if records[0] != rec {
				t.Fatalf("\t%s\tTest 0:\tShould decode identical fields, got %+v.", failed, records[0])
			}
			t.Logf("\t%s\tTest 0:\tShould decode identical fields.", success)

			var buf bytes.Buffer
			if err := storage.Write(&buf, records); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write: %v", failed, err)
			}

			if !strings.Contains(buf.String(), `"timestamp": 1700000000.25`) {
				t.Fatalf("\t%s\tTest 0:\tShould keep the timestamp formatting, got %s.", failed, buf.String())
			}
			t.Logf("\t%s\tTest 0:\tShould keep the timestamp formatting.", success)
		}
	}
}
