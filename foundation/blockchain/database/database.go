// Package database handles the chain of sealed blocks, the queue of pending
// entries and the validation of the links between blocks.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Set of errors returned by the database.
var (
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrOutOfRange        = errors.New("block index out of range")
	ErrEmptyPending      = errors.New("no pending entries to mine")
	ErrMalformedRecord   = errors.New("malformed import record")
	ErrBlockRejected     = errors.New("block rejected")
)

// Difficulty limits supported by the database.
const (
	MinDifficulty = 1
	MaxDifficulty = 6
)

// DefaultGenesisData is the data stored in the genesis block when none
// is configured.
const DefaultGenesisData = "Genesis Block - The beginning of BlockSim"

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the settings required to construct a chain.
type Config struct {
	Difficulty   int
	MiningReward float64
	GenesisData  string
	EvHandler    EventHandler
}

// Database manages the chain of blocks and the entries waiting to be mined.
type Database struct {
	wmu sync.Mutex
	mu  sync.RWMutex

	difficulty   int
	miningReward float64
	genesisData  string
	evHandler    EventHandler

	blocks  []Block
	pending []string
}

// New constructs a new chain and mines the genesis block at the configured
// difficulty. The context can be used to cancel the genesis mining.
func New(ctx context.Context, cfg Config) (*Database, error) {
	db, err := newDatabase(cfg)
	if err != nil {
		return nil, err
	}

	db.evHandler("database: New: create genesis block")

	genesis, err := POW(ctx, NewBlock(0, db.genesisData, GenesisPrevHash), db.difficulty, db.evHandler)
	if err != nil {
		return nil, fmt.Errorf("mining genesis block: %w", err)
	}
	db.blocks = []Block{genesis}

	return db, nil
}

// Load constructs a chain from a set of records. The records are used as is,
// including stored hashes that no longer match the block contents, so a
// tampered chain loads as tampered.
func Load(cfg Config, records []BlockData) (*Database, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no blocks to load: %w", ErrMalformedRecord)
	}

	db, err := newDatabase(cfg)
	if err != nil {
		return nil, err
	}

	db.blocks = make([]Block, len(records))
	for i, record := range records {
		db.blocks[i] = ToBlock(record)
	}

	db.evHandler("database: Load: loaded blocks[%d]", len(db.blocks))

	return db, nil
}

func newDatabase(cfg Config) (*Database, error) {
	if cfg.Difficulty < MinDifficulty || cfg.Difficulty > MaxDifficulty {
		return nil, fmt.Errorf("%w: got %d, exp %d..%d", ErrInvalidDifficulty, cfg.Difficulty, MinDifficulty, MaxDifficulty)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	genesisData := cfg.GenesisData
	if genesisData == "" {
		genesisData = DefaultGenesisData
	}

	db := Database{
		difficulty:   cfg.Difficulty,
		miningReward: cfg.MiningReward,
		genesisData:  genesisData,
		evHandler:    ev,
	}

	return &db, nil
}

// =============================================================================

// QueueEntry adds an entry to the set of entries waiting to be mined. The
// entry is not validated.
func (db *Database) QueueEntry(entry string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.pending = append(db.pending, entry)
	db.evHandler("database: QueueEntry: entry[%s]: pending[%d]", entry, len(db.pending))
}

// AppendDirect mines a new block holding the specified data and adds it to
// the end of the chain.
func (db *Database) AppendDirect(ctx context.Context, data string) (Block, error) {
	db.wmu.Lock()
	defer db.wmu.Unlock()

	return db.mineAndAppend(ctx, data, 0)
}

// FlushPending packs all the pending entries plus a mining reward for the
// specified address into a new block. The entries that were packed are
// removed from the queue in the same step the block is added to the chain.
// If there is nothing pending, ErrEmptyPending is returned and nothing
// changes. Callers treat it as a no-op.
func (db *Database) FlushPending(ctx context.Context, rewardAddress string) (Block, error) {
	db.wmu.Lock()
	defer db.wmu.Unlock()

	entries := db.Pending()
	if len(entries) == 0 {
		db.evHandler("database: FlushPending: no pending entries")
		return Block{}, ErrEmptyPending
	}

	if err := CheckRecipient(rewardAddress); err != nil {
		return Block{}, err
	}

	reward := Reward(rewardAddress, db.miningReward)
	data := JoinEntries(append(entries, reward.String()))

	db.evHandler("database: FlushPending: entries[%d]: reward[%s]", len(entries), reward)

	return db.mineAndAppend(ctx, data, len(entries))
}

// mineAndAppend must be called while holding the writer lock. The block is
// mined without holding the chain lock so readers are not blocked.
func (db *Database) mineAndAppend(ctx context.Context, data string, flushed int) (Block, error) {
	db.mu.RLock()
	index := uint64(len(db.blocks))
	prevHash := db.blocks[len(db.blocks)-1].Hash
	db.mu.RUnlock()

	block, err := POW(ctx, NewBlock(index, data, prevHash), db.difficulty, db.evHandler)
	if err != nil {
		return Block{}, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = append(db.blocks, block)
	db.pending = append([]string(nil), db.pending[flushed:]...)

	db.evHandler("database: mineAndAppend: blk[%d] added: pending[%d]", block.Index, len(db.pending))

	return block, nil
}

// AcceptBlock adds a sealed block proposed by another node. The block is
// accepted only if it is the next block for this chain, it links to the
// current latest block and its hash matches its contents.
func (db *Database) AcceptBlock(block Block) error {
	db.wmu.Lock()
	defer db.wmu.Unlock()

	db.mu.Lock()
	defer db.mu.Unlock()

	latest := db.blocks[len(db.blocks)-1]

	switch {
	case block.Index != uint64(len(db.blocks)):
		return fmt.Errorf("%w: not the next number, got %d, exp %d", ErrBlockRejected, block.Index, len(db.blocks))

	case block.PrevHash != latest.Hash:
		return fmt.Errorf("%w: previous hash doesn't match latest block, got %s, exp %s", ErrBlockRejected, block.PrevHash, latest.Hash)

	case block.Hash != block.CalculateHash():
		return fmt.Errorf("%w: hash doesn't match block contents", ErrBlockRejected)
	}

	db.blocks = append(db.blocks, block)
	db.evHandler("database: AcceptBlock: blk[%d] added", block.Index)

	return nil
}

// Tamper overwrites the data of the specified block without recomputing
// its hash. The chain will no longer validate.
func (db *Database) Tamper(index int, data string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if index < 0 || index >= len(db.blocks) {
		return fmt.Errorf("%w: got %d, chain length %d", ErrOutOfRange, index, len(db.blocks))
	}

	db.evHandler("database: Tamper: blk[%d]: original[%s]: modified[%s]", index, db.blocks[index].Data, data)
	db.blocks[index].Data = data

	return nil
}

// =============================================================================

// Blocks returns a copy of the blocks in the chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return append([]Block(nil), db.blocks...)
}

// Block returns the block at the specified index.
func (db *Database) Block(index int) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if index < 0 || index >= len(db.blocks) {
		return Block{}, fmt.Errorf("%w: got %d, chain length %d", ErrOutOfRange, index, len(db.blocks))
	}

	return db.blocks[index], nil
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1]
}

// Length returns the number of blocks in the chain.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Pending returns a copy of the entries waiting to be mined.
func (db *Database) Pending() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return append([]string(nil), db.pending...)
}

// Difficulty returns the number of leading zeros required to seal a block.
func (db *Database) Difficulty() int {
	return db.difficulty
}

// MiningReward returns the amount credited to the miner of a flushed block.
func (db *Database) MiningReward() float64 {
	return db.miningReward
}

// GenesisData returns the data the genesis block was created with.
func (db *Database) GenesisData() string {
	return db.genesisData
}

// =============================================================================

// Records returns the serialized form of every block in the chain.
func (db *Database) Records() []BlockData {
	blocks := db.Blocks()

	records := make([]BlockData, len(blocks))
	for i, block := range blocks {
		records[i] = NewBlockData(block)
	}

	return records
}

// DecodeRecords reads a JSON array of block records. Every record must
// carry all of the block fields.
func DecodeRecords(r io.Reader) ([]BlockData, error) {
	var raw []struct {
		Index     *uint64    `json:"index"`
		Timestamp *Timestamp `json:"timestamp"`
		Data      *string    `json:"data"`
		PrevHash  *string    `json:"previous_hash"`
		Hash      *string    `json:"hash"`
		Nonce     *uint64    `json:"nonce"`
	}

	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no blocks", ErrMalformedRecord)
	}

	records := make([]BlockData, len(raw))
	for i, rec := range raw {
		var missing string
		switch {
		case rec.Index == nil:
			missing = "index"
		case rec.Timestamp == nil:
			missing = "timestamp"
		case rec.Data == nil:
			missing = "data"
		case rec.PrevHash == nil:
			missing = "previous_hash"
		case rec.Hash == nil:
			missing = "hash"
		case rec.Nonce == nil:
			missing = "nonce"
		}

		if missing != "" {
			return nil, fmt.Errorf("%w: record %d: missing field %q", ErrMalformedRecord, i, missing)
		}

		records[i] = BlockData{
			Index:     *rec.Index,
			Timestamp: *rec.Timestamp,
			Data:      *rec.Data,
			PrevHash:  *rec.PrevHash,
			Hash:      *rec.Hash,
			Nonce:     *rec.Nonce,
		}
	}

	return records, nil
}
