// Package network simulates a set of nodes, each with its own chain, that
// share mined blocks by passing messages inside a single process.
package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/blocksim/blocksim/foundation/blockchain/accounts"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/genesis"
	"github.com/blocksim/blocksim/foundation/blockchain/mempool"
)

// Set of errors returned by the network.
var (
	ErrNothingToMine = errors.New("nothing to mine")
	ErrUnknownNode   = errors.New("unknown node")
	ErrNodeExists    = errors.New("node already exists")
)

// EventHandler defines a function that is called when events
// occur in the network.
type EventHandler func(v string, args ...any)

// Config represents the settings required to construct a network.
type Config struct {
	Genesis   genesis.Genesis
	Seed      int64
	EvHandler EventHandler
}

// NodeStatus represents what is known about a node at a point in time.
type NodeStatus struct {
	ID         string  `json:"id"`
	Stake      float64 `json:"stake"`
	Online     bool    `json:"online"`
	Blocks     int     `json:"blocks"`
	Peers      int     `json:"peers"`
	LatestHash string  `json:"latest_hash"`
	Valid      bool    `json:"valid"`
}

// Round represents the outcome of a mining round.
type Round struct {
	Miner    string         `json:"miner"`
	Block    database.Block `json:"-"`
	Txs      []database.Tx  `json:"txs"`
	Accepted []string       `json:"accepted"`
	Rejected []string       `json:"rejected"`
}

// =============================================================================

// Network manages the set of nodes and the pool of transactions waiting
// to be mined. The nodes form a full mesh.
type Network struct {
	roundMu sync.Mutex
	mu      sync.Mutex
	genesis genesis.Genesis
	records []database.BlockData
	nodes   []*Node
	rnd     *rand.Rand
	pool    *mempool.Mempool
	ev      func(v string, args ...any)
}

// New constructs a network and mines the genesis block every node will
// start from.
func New(ctx context.Context, cfg Config) (*Network, error) {
	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	db, err := database.New(ctx, cfg.Genesis.Config(ev))
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	nw := Network{
		genesis: cfg.Genesis,
		records: db.Records(),
		rnd:     rand.New(rand.NewSource(seed)),
		ev:      ev,
	}

	pool, err := mempool.New(nw.balance)
	if err != nil {
		return nil, err
	}
	nw.pool = pool

	return &nw, nil
}

// Shutdown terminates every node's goroutine.
func (nw *Network) Shutdown() {
	nw.ev("network: shutdown: started")
	defer nw.ev("network: shutdown: completed")

	nw.mu.Lock()
	nodes := nw.nodes
	nw.nodes = nil
	nw.mu.Unlock()

	for _, node := range nodes {
		node.shutdown()
	}
}

// =============================================================================

// AddNode starts a new node and connects it to every other node. The node
// starts from the shared genesis block and catches up from an online peer.
// The id is written into the blocks the node mines so it must be a single
// word.
func (nw *Network) AddNode(id string, stake float64) (*Node, error) {
	if err := database.CheckSender(id); err != nil {
		return nil, fmt.Errorf("node id: %w", err)
	}

	nw.mu.Lock()
	defer nw.mu.Unlock()

	for _, node := range nw.nodes {
		if node.id == id {
			return nil, fmt.Errorf("%w: %s", ErrNodeExists, id)
		}
	}

	records := nw.records
	for _, peer := range nw.nodes {
		if !peer.Online() {
			continue
		}

		peerRecords, err := peer.records()
		if err != nil {
			continue
		}

		if len(peerRecords) > len(records) && database.ValidateBlocks(toBlocks(peerRecords)) {
			nw.ev("network: AddNode: node[%s]: synced blocks[%d] from node[%s]", id, len(peerRecords), peer.id)
			records = peerRecords
		}
		break
	}

	db, err := database.Load(nw.genesis.Config(nw.ev), records)
	if err != nil {
		return nil, err
	}

	node := startNode(id, stake, db, nw.ev)
	nw.nodes = append(nw.nodes, node)

	nw.ev("network: AddNode: node[%s] joined: peers[%d]", id, len(nw.nodes)-1)

	return node, nil
}

// Node returns the node for the specified id.
func (nw *Network) Node(id string) (*Node, error) {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	return nw.find(id)
}

// SetOnline takes a node on or off the network. An offline node keeps its
// chain but is skipped by mining rounds and broadcasts.
func (nw *Network) SetOnline(id string, online bool) error {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	node, err := nw.find(id)
	if err != nil {
		return err
	}

	node.online.Store(online)
	nw.ev("network: SetOnline: node[%s]: online[%v]", id, online)

	return nil
}

// =============================================================================

// SimulateTransaction adds a transaction to the pool. The sender must be
// able to pay for the amount and fee based on the starting balances and
// the chain of the first online node.
func (nw *Network) SimulateTransaction(from string, to string, amount float64, fee float64) (database.Tx, error) {
	tx, err := database.NewTx(from, to, amount, fee)
	if err != nil {
		return database.Tx{}, err
	}

	if _, err := nw.pool.Upsert(tx); err != nil {
		return database.Tx{}, err
	}

	nw.ev("network: SimulateTransaction: tx[%s]", tx)

	return tx, nil
}

// Pending returns the transactions waiting to be mined.
func (nw *Network) Pending() []database.Tx {
	return nw.pool.Copy()
}

// RandomMiningRound selects a random online node to mine the best pooled
// transactions. The mined block is broadcast to every other online node and
// the mined transactions leave the pool. Rounds run one at a time so a
// pooled transaction is mined once.
func (nw *Network) RandomMiningRound(ctx context.Context) (Round, error) {
	nw.roundMu.Lock()
	defer nw.roundMu.Unlock()

	txs := nw.pool.PickBest(nw.genesis.TransPerBlock)
	if len(txs) == 0 {
		return Round{}, fmt.Errorf("%w: no pooled transactions", ErrNothingToMine)
	}

	online := nw.online()
	if len(online) == 0 {
		return Round{}, fmt.Errorf("%w: no online nodes", ErrNothingToMine)
	}

	nw.mu.Lock()
	miner := online[nw.rnd.Intn(len(online))]
	nw.mu.Unlock()

	nw.ev("network: RandomMiningRound: node[%s] selected: txs[%d]", miner.id, len(txs))

	entries := make([]string, 0, len(txs)*2+1)
	for _, tx := range txs {
		entries = append(entries, tx.Entry().String())
		if tx.Fee > 0 {
			entries = append(entries, database.Transfer(tx.From, miner.id, tx.Fee).String())
		}
	}
	entries = append(entries, database.Reward(miner.id, nw.genesis.MiningReward).String())

	data := fmt.Sprintf("[%s] %s", miner.id, database.JoinEntries(entries))

	block, err := miner.mine(ctx, data)
	if err != nil {
		return Round{}, err
	}

	for _, tx := range txs {
		nw.pool.Delete(tx)
	}

	round := Round{
		Miner: miner.id,
		Block: block,
		Txs:   txs,
	}

	for _, peer := range online {
		if peer == miner {
			continue
		}

		if err := peer.propose(block); err != nil {
			round.Rejected = append(round.Rejected, peer.id)
			continue
		}
		round.Accepted = append(round.Accepted, peer.id)
	}

	nw.ev("network: RandomMiningRound: blk[%d]: accepted[%d]: rejected[%d]", block.Index, len(round.Accepted), len(round.Rejected))

	return round, nil
}

// =============================================================================

// Status returns the status of every node in the order they joined.
func (nw *Network) Status() []NodeStatus {
	nw.mu.Lock()
	nodes := append([]*Node(nil), nw.nodes...)
	nw.mu.Unlock()

	var onlineCount int
	for _, node := range nodes {
		if node.Online() {
			onlineCount++
		}
	}

	status := make([]NodeStatus, 0, len(nodes))
	for _, node := range nodes {
		blocks, err := node.Blocks()
		if err != nil {
			continue
		}

		peers := onlineCount
		if node.Online() {
			peers--
		}

		ns := NodeStatus{
			ID:     node.id,
			Stake:  node.stake,
			Online: node.Online(),
			Blocks: len(blocks),
			Peers:  peers,
			Valid:  database.ValidateBlocks(blocks),
		}
		if len(blocks) > 0 {
			ns.LatestHash = blocks[len(blocks)-1].Hash
		}

		status = append(status, ns)
	}

	return status
}

// Consensus reports if every online node holds a chain of the same length
// ending in the same block.
func (nw *Network) Consensus() bool {
	var ref *NodeStatus
	for _, ns := range nw.Status() {
		if !ns.Online {
			continue
		}

		if ref == nil {
			ref = &ns
			continue
		}

		if ns.Blocks != ref.Blocks || ns.LatestHash != ref.LatestHash {
			return false
		}
	}

	return true
}

// Balances returns the balances derived from the starting balances and the
// chain of the first online node.
func (nw *Network) Balances() map[string]float64 {
	return nw.accounts().Copy()
}

// =============================================================================

// balance is used by the pool to check the sender can pay.
func (nw *Network) balance(address string) float64 {
	return nw.accounts().Balance(address)
}

func (nw *Network) accounts() *accounts.Accounts {
	var blocks []database.Block
	if online := nw.online(); len(online) > 0 {
		blocks, _ = online[0].Blocks()
	}

	return accounts.NewWithBalances(nw.genesis.Balances, blocks)
}

func (nw *Network) online() []*Node {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	var online []*Node
	for _, node := range nw.nodes {
		if node.Online() {
			online = append(online, node)
		}
	}
	return online
}

// find must be called while holding the lock.
func (nw *Network) find(id string) (*Node, error) {
	for _, node := range nw.nodes {
		if node.id == id {
			return node, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
}

func toBlocks(records []database.BlockData) []database.Block {
	blocks := make([]database.Block, len(records))
	for i, record := range records {
		blocks[i] = database.ToBlock(record)
	}
	return blocks
}
