// Package ledgergrp maintains the group of handlers for working with the
// chain held by each session.
package ledgergrp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blocksim/blocksim/business/core/session"
	"github.com/blocksim/blocksim/business/sys/metrics"
	"github.com/blocksim/blocksim/business/sys/validate"
	"github.com/blocksim/blocksim/business/web/errs"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/database/storage"
	"github.com/blocksim/blocksim/foundation/web"
	"go.uber.org/zap"
)

// DefaultMiner is credited with the reward when a mine request doesn't
// name a miner.
const DefaultMiner = "Web Miner"

// NothingToMine is the message returned when a mine request finds no
// pending entries.
const NothingToMine = "No pending transactions to mine!"

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	Registry *session.Registry
}

// CreateSession constructs a new chain. The id is optional.
func (h Handlers) CreateSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ns newSession
	if err := web.Decode(r, &ns); err != nil && !errors.Is(err, io.EOF) {
		return errs.BadRequest(err)
	}

	if err := validate.Check(ns); err != nil {
		return err
	}

	s, err := h.Registry.Create(ctx, ns.ID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrExists):
			return errs.NewTrusted(err, http.StatusConflict)
		case errors.Is(err, validate.ErrInvalidID):
			return errs.BadRequest(err)
		}
		return fmt.Errorf("create session: %w", err)
	}

	return web.Respond(ctx, w, toSessionInfo(s), http.StatusCreated)
}

// ListSessions returns every session in the order they were created.
func (h Handlers) ListSessions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	list := h.Registry.List()

	infos := make([]sessionInfo, len(list))
	for i, s := range list {
		infos[i] = toSessionInfo(s)
	}

	return web.Respond(ctx, w, infos, http.StatusOK)
}

// DeleteSession removes the session and its chain.
func (h Handlers) DeleteSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.Registry.Delete(web.Param(r, "id")); err != nil {
		return errs.NotFound(err)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Stats returns a summary of the session's chain.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.session(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toStats(s), http.StatusOK)
}

// Blocks returns every block of the session's chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.session(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, s.DB.Records(), http.StatusOK)
}

// AppendBlock mines a block holding the specified data directly onto the
// session's chain.
func (h Handlers) AppendBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	s, err := h.session(r)
	if err != nil {
		return err
	}

	var nb newBlock
	if err := web.Decode(r, &nb); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(nb); err != nil {
		return err
	}

	h.Log.Infow("append block", "traceid", v.TraceID, "session", s.ID)

	block, err := s.DB.AppendDirect(ctx, nb.Data)
	if err != nil {
		return fmt.Errorf("append block: %w", err)
	}
	metrics.AddBlocks(ctx)

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusCreated)
}

// Balances returns the balance of every address found in the chain.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.session(r)
	if err != nil {
		return err
	}

	accts := s.Accounts()

	var addresses []string
	if address := web.Param(r, "address"); address != "" {
		addresses = []string{address}
	} else {
		addresses = accts.Addresses()
	}

	resp := balances{
		LatestBlock: s.DB.LatestBlock().Hash,
		Balances:    make([]balance, len(addresses)),
	}
	for i, address := range addresses {
		resp.Balances[i] = balance{
			Address: address,
			Balance: accts.Balance(address),
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Pending returns the entries waiting to be mined.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.session(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, s.DB.Pending(), http.StatusOK)
}

// AddTransaction queues a transfer entry to be mined.
func (h Handlers) AddTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	s, err := h.session(r)
	if err != nil {
		return err
	}

	var tx newTx
	if err := web.Decode(r, &tx); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(tx); err != nil {
		return err
	}

	entry := database.Transfer(tx.From, tx.To, tx.Amount).String()
	s.DB.QueueEntry(entry)

	h.Log.Infow("add tran", "traceid", v.TraceID, "session", s.ID, "entry", entry)

	resp := queued{
		Entry:   entry,
		Pending: len(s.DB.Pending()),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine flushes the pending entries into a new block, crediting the miner
// with the reward. An empty queue is answered with success false and
// changes nothing.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	s, err := h.session(r)
	if err != nil {
		return err
	}

	var mr mineRequest
	if err := web.Decode(r, &mr); err != nil && !errors.Is(err, io.EOF) {
		return errs.BadRequest(err)
	}

	if err := validate.Check(mr); err != nil {
		return err
	}

	miner := mr.MinerAddress
	if miner == "" {
		miner = DefaultMiner
	}

	h.Log.Infow("mine", "traceid", v.TraceID, "session", s.ID, "miner", miner)

	start := time.Now()
	block, err := s.DB.FlushPending(ctx, miner)
	if err != nil {
		if errors.Is(err, database.ErrEmptyPending) {
			return web.Respond(ctx, w, mined{Message: NothingToMine}, http.StatusOK)
		}
		return fmt.Errorf("mine: %w", err)
	}
	metrics.AddBlocks(ctx)

	resp := mined{
		Success:       true,
		Message:       fmt.Sprintf("Block %d mined successfully", block.Index),
		NewBlockIndex: block.Index,
		Hash:          block.Hash,
		Nonce:         block.Nonce,
		Elapsed:       time.Since(start).String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Validate checks the chain and reports every violation found.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.session(r)
	if err != nil {
		return err
	}

	resp := validation{
		Valid:      true,
		Message:    "Blockchain is valid",
		Violations: s.DB.Audit(),
	}
	if len(resp.Violations) > 0 {
		resp.Valid = false
		resp.Message = "Blockchain is invalid"
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Tamper replaces the data of a block without touching its hash.
func (h Handlers) Tamper(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	s, err := h.session(r)
	if err != nil {
		return err
	}

	var tr tamperRequest
	if err := web.Decode(r, &tr); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(tr); err != nil {
		return err
	}

	if err := s.DB.Tamper(*tr.Index, tr.Data); err != nil {
		if errors.Is(err, database.ErrOutOfRange) {
			return errs.BadRequest(err)
		}
		return fmt.Errorf("tamper: %w", err)
	}
	metrics.AddTampers(ctx)

	h.Log.Infow("tamper", "traceid", v.TraceID, "session", s.ID, "index", *tr.Index)

	block, err := s.DB.Block(*tr.Index)
	if err != nil {
		return errs.BadRequest(err)
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// Reset replaces the session's chain with a fresh genesis block.
func (h Handlers) Reset(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.Registry.Reset(ctx, web.Param(r, "id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return errs.NotFound(err)
		}
		return fmt.Errorf("reset: %w", err)
	}

	return web.Respond(ctx, w, toStats(s), http.StatusOK)
}

// Demo resets the session's chain and loads the demo walkthrough.
func (h Handlers) Demo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.Registry.Demo(ctx, web.Param(r, "id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return errs.NotFound(err)
		}
		return fmt.Errorf("demo: %w", err)
	}

	return web.Respond(ctx, w, toStats(s), http.StatusOK)
}

// Export returns the chain as the JSON document the command line tool
// reads and writes.
func (h Handlers) Export(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := h.session(r)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := storage.Write(&buf, s.DB.Records()); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.ID+".json"))

	return web.RespondRaw(ctx, w, buf.Bytes(), "application/json", http.StatusOK)
}

// Import replaces the session's chain with the blocks in the request body.
// The blocks are kept as is, they are not validated.
func (h Handlers) Import(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	records, err := database.DecodeRecords(r.Body)
	if err != nil {
		return errs.BadRequest(err)
	}

	s, err := h.Registry.Import(id, records)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			return errs.NotFound(err)
		case errors.Is(err, database.ErrMalformedRecord):
			return errs.BadRequest(err)
		}
		return fmt.Errorf("import: %w", err)
	}

	return web.Respond(ctx, w, toStats(s), http.StatusOK)
}

// =============================================================================

func (h Handlers) session(r *http.Request) (session.Session, error) {
	s, err := h.Registry.Get(web.Param(r, "id"))
	if err != nil {
		return session.Session{}, errs.NotFound(err)
	}
	return s, nil
}
