package network

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
)

// ErrNodeStopped is returned when a message is sent to a node that has
// been shut down.
var ErrNodeStopped = errors.New("node stopped")

// Set of messages a node processes from its inbox. Every message carries
// the channel the node replies on.
type (
	proposal struct {
		block database.Block
		reply chan error
	}

	syncRequest struct {
		reply chan []database.BlockData
	}

	mineRequest struct {
		ctx   context.Context
		data  string
		reply chan mineResult
	}

	blocksRequest struct {
		reply chan []database.Block
	}
)

type mineResult struct {
	block database.Block
	err   error
}

// =============================================================================

// Node represents a participant in the simulated network. The node's chain
// is only ever touched by the node's own goroutine.
type Node struct {
	id     string
	stake  float64
	online atomic.Bool
	db     *database.Database
	inbox  chan any
	shut   chan struct{}
	wg     sync.WaitGroup
	ev     func(v string, args ...any)
}

// startNode constructs a node around the chain and starts the goroutine
// processing its inbox.
func startNode(id string, stake float64, db *database.Database, ev func(v string, args ...any)) *Node {
	n := Node{
		id:    id,
		stake: stake,
		db:    db,
		inbox: make(chan any),
		shut:  make(chan struct{}),
		ev:    ev,
	}
	n.online.Store(true)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.run()
	}()

	return &n
}

// ID returns the node's identifier.
func (n *Node) ID() string {
	return n.id
}

// Stake returns the stake the node joined with.
func (n *Node) Stake() float64 {
	return n.stake
}

// Online reports if the node takes part in mining rounds and broadcasts.
func (n *Node) Online() bool {
	return n.online.Load()
}

// Blocks returns a copy of the node's chain.
func (n *Node) Blocks() ([]database.Block, error) {
	req := blocksRequest{reply: make(chan []database.Block, 1)}
	if err := n.send(req); err != nil {
		return nil, err
	}

	return <-req.reply, nil
}

// =============================================================================

// propose asks the node to accept a block mined by a peer.
func (n *Node) propose(block database.Block) error {
	req := proposal{block: block, reply: make(chan error, 1)}
	if err := n.send(req); err != nil {
		return err
	}

	return <-req.reply
}

// records asks the node for a snapshot of its chain.
func (n *Node) records() ([]database.BlockData, error) {
	req := syncRequest{reply: make(chan []database.BlockData, 1)}
	if err := n.send(req); err != nil {
		return nil, err
	}

	return <-req.reply, nil
}

// mine asks the node to mine a block on top of its chain.
func (n *Node) mine(ctx context.Context, data string) (database.Block, error) {
	req := mineRequest{ctx: ctx, data: data, reply: make(chan mineResult, 1)}
	if err := n.send(req); err != nil {
		return database.Block{}, err
	}

	res := <-req.reply
	return res.block, res.err
}

// send delivers the message unless the node has been shut down.
func (n *Node) send(msg any) error {
	select {
	case n.inbox <- msg:
		return nil
	case <-n.shut:
		return ErrNodeStopped
	}
}

// shutdown terminates the node's goroutine.
func (n *Node) shutdown() {
	close(n.shut)
	n.wg.Wait()
}

// run processes the inbox until the node is shut down.
func (n *Node) run() {
	n.ev("network: node[%s]: started", n.id)
	defer n.ev("network: node[%s]: completed", n.id)

	for {
		select {
		case msg := <-n.inbox:
			n.handle(msg)
		case <-n.shut:
			return
		}
	}
}

func (n *Node) handle(msg any) {
	switch req := msg.(type) {
	case proposal:
		err := n.db.AcceptBlock(req.block)
		if err != nil {
			n.ev("network: node[%s]: blk[%d] rejected: %s", n.id, req.block.Index, err)
		} else {
			n.ev("network: node[%s]: blk[%d] accepted", n.id, req.block.Index)
		}
		req.reply <- err

	case syncRequest:
		req.reply <- n.db.Records()

	case mineRequest:
		block, err := n.db.AppendDirect(req.ctx, req.data)
		req.reply <- mineResult{block: block, err: err}

	case blocksRequest:
		req.reply <- n.db.Blocks()
	}
}
