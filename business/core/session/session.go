// Package session provides the business access to the set of chains the
// dashboard is working with. Each session owns one chain.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blocksim/blocksim/business/sys/validate"
	"github.com/blocksim/blocksim/foundation/blockchain/accounts"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/genesis"
)

// DefaultID is the id of the session created when the service starts.
const DefaultID = "default"

// Set of error variables for CRUD operations.
var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

// EventHandler returns the function the chain of the specified session
// reports its events to.
type EventHandler func(id string) database.EventHandler

// Config represents the settings required to construct a registry.
type Config struct {
	Genesis   genesis.Genesis
	EvHandler EventHandler
}

// Session represents a chain being worked on.
type Session struct {
	ID      string
	Created time.Time
	DB      *database.Database
}

// Stats represents a summary of the chain held by a session.
type Stats struct {
	TotalBlocks int
	Difficulty  int
	Pending     int
	Valid       bool
	Latest      database.Block
}

// =============================================================================

// Registry manages the set of sessions.
type Registry struct {
	mu        sync.RWMutex
	genesis   genesis.Genesis
	evHandler EventHandler
	sessions  map[string]Session
	reserved  map[string]struct{}
}

// NewRegistry constructs a registry for use.
func NewRegistry(cfg Config) *Registry {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string) database.EventHandler { return nil }
	}

	return &Registry{
		genesis:   cfg.Genesis,
		evHandler: ev,
		sessions:  make(map[string]Session),
		reserved:  make(map[string]struct{}),
	}
}

// Genesis returns the settings new chains are created with.
func (r *Registry) Genesis() genesis.Genesis {
	return r.genesis
}

// Create constructs a new chain under the specified id. When the id is empty
// a new one is generated. The id is reserved while the genesis block is
// mined so a concurrent create of the same id gets ErrExists.
func (r *Registry) Create(ctx context.Context, id string) (Session, error) {
	if id == "" {
		id = validate.GenerateID()
	}

	if err := validate.CheckID(id); err != nil {
		return Session{}, fmt.Errorf("%w: %q", err, id)
	}

	if err := r.reserve(id); err != nil {
		return Session{}, err
	}
	defer r.release(id)

	db, err := database.New(ctx, r.genesis.Config(r.evHandler(id)))
	if err != nil {
		return Session{}, fmt.Errorf("create: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := Session{
		ID:      id,
		Created: time.Now().UTC(),
		DB:      db,
	}
	r.sessions[id] = s

	return s, nil
}

// Get returns the session for the specified id.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return s, nil
}

// List returns every session ordered by creation time.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Created.Before(list[j].Created) })

	return list
}

// Delete removes the session for the specified id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(r.sessions, id)
	return nil
}

// Reset replaces the chain of the session with a new chain holding only
// a genesis block.
func (r *Registry) Reset(ctx context.Context, id string) (Session, error) {
	if _, err := r.Get(id); err != nil {
		return Session{}, err
	}

	db, err := database.New(ctx, r.genesis.Config(r.evHandler(id)))
	if err != nil {
		return Session{}, fmt.Errorf("reset: %w", err)
	}

	return r.replace(id, db)
}

// Import replaces the chain of the session with the specified records. The
// records are kept as is, a tampered chain stays tampered.
func (r *Registry) Import(id string, records []database.BlockData) (Session, error) {
	if _, err := r.Get(id); err != nil {
		return Session{}, err
	}

	db, err := database.Load(r.genesis.Config(r.evHandler(id)), records)
	if err != nil {
		return Session{}, fmt.Errorf("import: %w", err)
	}

	return r.replace(id, db)
}

// Demo resets the session and loads the demo walkthrough: two mined blocks
// each holding two transfers.
func (r *Registry) Demo(ctx context.Context, id string) (Session, error) {
	s, err := r.Reset(ctx, id)
	if err != nil {
		return Session{}, err
	}

	rounds := []struct {
		miner     string
		transfers []database.Entry
	}{
		{
			miner: "Miner1",
			transfers: []database.Entry{
				database.Transfer("Alice", "Bob", 50),
				database.Transfer("Bob", "Charlie", 25),
			},
		},
		{
			miner: "Miner2",
			transfers: []database.Entry{
				database.Transfer("Charlie", "Diana", 10),
				database.Transfer("Diana", "Eve", 5),
			},
		},
	}

	for _, round := range rounds {
		for _, entry := range round.transfers {
			s.DB.QueueEntry(entry.String())
		}

		if _, err := s.DB.FlushPending(ctx, round.miner); err != nil {
			return Session{}, fmt.Errorf("demo: %w", err)
		}
	}

	return s, nil
}

// =============================================================================

// Stats returns a summary of the session's chain.
func (s Session) Stats() Stats {
	return Stats{
		TotalBlocks: s.DB.Length(),
		Difficulty:  s.DB.Difficulty(),
		Pending:     len(s.DB.Pending()),
		Valid:       s.DB.Validate(),
		Latest:      s.DB.LatestBlock(),
	}
}

// Accounts returns the balances derived from the session's chain.
func (s Session) Accounts() *accounts.Accounts {
	return accounts.New(s.DB.Blocks())
}

// =============================================================================

func (r *Registry) reserve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.sessions[id]
	_, reserved := r.reserved[id]
	if exists || reserved {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}

	r.reserved[id] = struct{}{}
	return nil
}

func (r *Registry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.reserved, id)
}

// replace swaps the chain of an existing session. A session deleted while
// its new chain was being built stays deleted.
func (r *Registry) replace(id string, db *database.Database) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[id]
	if !exists {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.DB = db
	r.sessions[id] = s

	return s, nil
}
