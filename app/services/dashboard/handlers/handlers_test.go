package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/blocksim/blocksim/app/services/dashboard/handlers"
	"github.com/blocksim/blocksim/app/services/dashboard/handlers/v1/ledgergrp"
	"github.com/blocksim/blocksim/business/core/session"
	"github.com/blocksim/blocksim/business/web/errs"
	"github.com/blocksim/blocksim/foundation/blockchain/genesis"
	"github.com/blocksim/blocksim/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newMux(t *testing.T) http.Handler {
	t.Helper()

	gen := genesis.Default()
	gen.Difficulty = 1

	registry := session.NewRegistry(session.Config{Genesis: gen})
	if _, err := registry.Create(context.Background(), session.DefaultID); err != nil {
		t.Fatalf("\t%s\tShould be able to create the default session: %v", failed, err)
	}

	return handlers.APIMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		Registry: registry,
		Evts:     events.New(),
	})
}

func call(mux http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestLedger(t *testing.T) {
	t.Log("Given the need to work with a chain over the api.")
	{
		mux := newMux(t)

		t.Logf("\tTest 0:\tWhen queuing and mining a transfer.")
		{
			w := call(mux, http.MethodPost, "/v1/sessions/default/tx/add", `{"from":"Alice","to":"Bob","amount":10}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the transaction: %d %s", failed, w.Code, w.Body)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to add the transaction.", success)

			w = call(mux, http.MethodPost, "/v1/sessions/default/mine", `{"miner_address":"Miner"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine: %d %s", failed, w.Code, w.Body)
			}

			var mined struct {
				NewBlockIndex uint64 `json:"new_block_index"`
				Hash          string `json:"hash"`
			}
			if err := json.NewDecoder(w.Body).Decode(&mined); err != nil || mined.NewBlockIndex != 1 || !strings.HasPrefix(mined.Hash, "0") {
				t.Fatalf("\t%s\tTest 0:\tShould mine block 1: %+v %v", failed, mined, err)
			}
			t.Logf("\t%s\tTest 0:\tShould mine block 1.", success)

			w = call(mux, http.MethodGet, "/v1/sessions/default/balances/Bob", "")
			var resp struct {
				Balances []struct {
					Address string  `json:"address"`
					Balance float64 `json:"balance"`
				} `json:"balances"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || len(resp.Balances) != 1 || resp.Balances[0].Balance != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould credit Bob: %+v %v", failed, resp, err)
			}
			t.Logf("\t%s\tTest 0:\tShould credit Bob.", success)

			w = call(mux, http.MethodPost, "/v1/sessions/default/mine", "")
			var m struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.NewDecoder(w.Body).Decode(&m); err != nil || w.Code != http.StatusOK || m.Success || m.Message != ledgergrp.NothingToMine {
				t.Fatalf("\t%s\tTest 0:\tShould treat mining an empty queue as a no-op: %d %+v %v", failed, w.Code, m, err)
			}

			w = call(mux, http.MethodGet, "/v1/sessions/default/stats", "")
			var st struct {
				TotalBlocks int `json:"total_blocks"`
			}
			if err := json.NewDecoder(w.Body).Decode(&st); err != nil || st.TotalBlocks != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the chain alone: %+v %v", failed, st, err)
			}
			t.Logf("\t%s\tTest 0:\tShould treat mining an empty queue as a no-op.", success)
		}

		t.Logf("\tTest 1:\tWhen a block is tampered with.")
		{
			w := call(mux, http.MethodPost, "/v1/sessions/default/tamper", `{"index":1,"data":"Alice sends 1000 coins to Mallory"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 1:\tShould be able to tamper: %d %s", failed, w.Code, w.Body)
			}

			w = call(mux, http.MethodGet, "/v1/sessions/default/validate", "")
			var v struct {
				Valid      bool `json:"valid"`
				Violations []struct {
					Index int    `json:"index"`
					Kind  string `json:"kind"`
				} `json:"violations"`
			}
			if err := json.NewDecoder(w.Body).Decode(&v); err != nil || v.Valid || len(v.Violations) != 1 || v.Violations[0].Index != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould report block 1: %+v %v", failed, v, err)
			}
			t.Logf("\t%s\tTest 1:\tShould report block 1.", success)

			w = call(mux, http.MethodPost, "/v1/sessions/default/tamper", `{"index":9,"data":"x"}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 1:\tShould reject an out of range index: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould reject an out of range index.", success)
		}

		t.Logf("\tTest 2:\tWhen exporting and importing the chain.")
		{
			w := call(mux, http.MethodGet, "/v1/sessions/default/export", "")
			if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Disposition"), "default.json") {
				t.Fatalf("\t%s\tTest 2:\tShould be able to export: %d", failed, w.Code)
			}
			doc := w.Body.String()

			w = call(mux, http.MethodPost, "/v1/sessions", `{"id":"copy"}`)
			if w.Code != http.StatusCreated {
				t.Fatalf("\t%s\tTest 2:\tShould be able to create a session: %d %s", failed, w.Code, w.Body)
			}

			w = call(mux, http.MethodPost, "/v1/sessions/copy/import", doc)
			var st struct {
				TotalBlocks int  `json:"total_blocks"`
				IsValid     bool `json:"is_valid"`
			}
			if err := json.NewDecoder(w.Body).Decode(&st); err != nil || st.TotalBlocks != 2 || st.IsValid {
				t.Fatalf("\t%s\tTest 2:\tShould import the tampered chain as is: %+v %v", failed, st, err)
			}
			t.Logf("\t%s\tTest 2:\tShould import the tampered chain as is.", success)

			w = call(mux, http.MethodPost, "/v1/sessions/copy/import", `[{"index":0}]`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 2:\tShould reject a malformed document: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a malformed document.", success)
		}

		t.Logf("\tTest 3:\tWhen the request is bad.")
		{
			w := call(mux, http.MethodGet, "/v1/sessions/missing/stats", "")
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest 3:\tShould get a 404 for a missing session: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 3:\tShould get a 404 for a missing session.", success)

			w = call(mux, http.MethodPost, "/v1/sessions/default/tx/add", `{"from":"Alice","amount":-1}`)
			var er errs.Response
			if err := json.NewDecoder(w.Body).Decode(&er); err != nil || w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 3:\tShould get a 400: %d %v", failed, w.Code, err)
			}
			if _, exists := er.Fields["to"]; !exists {
				t.Fatalf("\t%s\tTest 3:\tShould name the missing field: %+v", failed, er)
			}
			if _, exists := er.Fields["amount"]; !exists {
				t.Fatalf("\t%s\tTest 3:\tShould name the bad amount: %+v", failed, er)
			}
			t.Logf("\t%s\tTest 3:\tShould name the bad fields.", success)

			w = call(mux, http.MethodPost, "/v1/sessions/default/tx/add", `{"from":"Bob Smith","to":"B | C","amount":1}`)
			er = errs.Response{}
			if err := json.NewDecoder(w.Body).Decode(&er); err != nil || w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 3:\tShould get a 400 for unreadable names: %d %v", failed, w.Code, err)
			}
			if _, exists := er.Fields["from"]; !exists {
				t.Fatalf("\t%s\tTest 3:\tShould reject the sender: %+v", failed, er)
			}
			if _, exists := er.Fields["to"]; !exists {
				t.Fatalf("\t%s\tTest 3:\tShould reject the recipient: %+v", failed, er)
			}
			t.Logf("\t%s\tTest 3:\tShould reject unreadable names.", success)

			w = call(mux, http.MethodPost, "/v1/sessions/default/mine", `{"miner_address":"A|B"}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 3:\tShould reject the miner address: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 3:\tShould reject the miner address.", success)

			w = call(mux, http.MethodPost, "/v1/sessions", `{"id":" padded"}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 3:\tShould reject a malformed session id: %d %s", failed, w.Code, w.Body)
			}
			t.Logf("\t%s\tTest 3:\tShould reject a malformed session id.", success)
		}

		t.Logf("\tTest 4:\tWhen loading the demo.")
		{
			w := call(mux, http.MethodPost, "/v1/sessions/default/demo", "")
			var st struct {
				TotalBlocks int  `json:"total_blocks"`
				IsValid     bool `json:"is_valid"`
			}
			if err := json.NewDecoder(w.Body).Decode(&st); err != nil || st.TotalBlocks != 3 || !st.IsValid {
				t.Fatalf("\t%s\tTest 4:\tShould load a valid chain of 3 blocks: %+v %v", failed, st, err)
			}
			t.Logf("\t%s\tTest 4:\tShould load a valid chain of 3 blocks.", success)
		}
	}
}
