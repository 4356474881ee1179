package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blocksim/blocksim/foundation/blockchain/digest"
)

// GenesisPrevHash is the previous hash value carried by the genesis block.
const GenesisPrevHash = "0"

// =============================================================================

// Timestamp represents the time a block was created in seconds since the
// epoch. It marshals using the same number formatting the digest uses.
type Timestamp float64

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp(float64(time.Now().UnixNano()) / float64(time.Second))
}

// Time converts the timestamp into a time value.
func (ts Timestamp) Time() time.Time {
	sec := int64(ts)
	nsec := int64((float64(ts) - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// MarshalJSON implements the json.Marshaler interface.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(digest.FormatFloat(float64(ts))), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*ts = Timestamp(f)
	return nil
}

// =============================================================================

// Block represents a sealed unit of data in the chain.
type Block struct {
	Index     uint64
	Timestamp Timestamp
	Data      string
	PrevHash  string
	Nonce     uint64
	Hash      string
}

// NewBlock constructs a block for the specified position in the chain. The
// hash is computed from the initial field values, the block is not sealed
// until it goes through POW.
func NewBlock(index uint64, data string, prevHash string) Block {
	b := Block{
		Index:     index,
		Timestamp: Now(),
		Data:      data,
		PrevHash:  prevHash,
	}
	b.Hash = b.CalculateHash()

	return b
}

// CalculateHash recomputes the digest over the block's current field values.
func (b Block) CalculateHash() string {
	return digest.Hash(b.fields())
}

// IsGenesis reports if this is the first block of a chain.
func (b Block) IsGenesis() bool {
	return b.Index == 0
}

func (b Block) fields() digest.Fields {
	return digest.Fields{
		Index:     b.Index,
		Timestamp: float64(b.Timestamp),
		Data:      b.Data,
		PrevHash:  b.PrevHash,
		Nonce:     b.Nonce,
	}
}

// =============================================================================

// POW performs the work to find the smallest nonce, starting from zero, that
// solves the cryptographic POW puzzle for the specified block. The sealed
// block is returned and the block passed in is left unchanged. There is no
// limit on the number of attempts, only the context can stop the search.
func POW(ctx context.Context, block Block, difficulty int, evHandler func(v string, args ...any)) (Block, error) {
	nb := block
	if err := nb.performPOW(ctx, difficulty, evHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for the block.
// Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, difficulty int, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]", b.Index)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Index)

	if ctx.Err() != nil {
		ev("database: PerformPOW: MINING: CANCELLED")
		return ctx.Err()
	}

	start := time.Now()

	// Everything but the nonce is fixed for the search.
	tmpl := digest.NewTemplate(b.fields())

	b.Nonce = 0
	hash := tmpl.Hash(b.Nonce)

	var attempts uint64
	for !IsHashSolved(difficulty, hash) {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)

			if ctx.Err() != nil {
				ev("database: PerformPOW: MINING: CANCELLED")
				return ctx.Err()
			}
		}

		b.Nonce++
		hash = tmpl.Hash(b.Nonce)
	}
	b.Hash = hash

	ev("database: PerformPOW: MINING: SOLVED: blk[%d]: hash[%s]: nonce[%d]: duration[%v]", b.Index, b.Hash, b.Nonce, time.Since(start))

	return nil
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's.
func IsHashSolved(difficulty int, hash string) bool {
	if difficulty < 0 || len(hash) < difficulty {
		return false
	}

	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// =============================================================================

// BlockData represents what is written to an export file for each block.
type BlockData struct {
	Index     uint64    `json:"index"`
	Timestamp Timestamp `json:"timestamp"`
	Data      string    `json:"data"`
	PrevHash  string    `json:"previous_hash"`
	Hash      string    `json:"hash"`
	Nonce     uint64    `json:"nonce"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Index:     block.Index,
		Timestamp: block.Timestamp,
		Data:      block.Data,
		PrevHash:  block.PrevHash,
		Hash:      block.Hash,
		Nonce:     block.Nonce,
	}
}

// ToBlock converts a BlockData into a Block. The stored hash is kept as is
// and not recomputed.
func ToBlock(blockData BlockData) Block {
	return Block{
		Index:     blockData.Index,
		Timestamp: blockData.Timestamp,
		Data:      blockData.Data,
		PrevHash:  blockData.PrevHash,
		Nonce:     blockData.Nonce,
		Hash:      blockData.Hash,
	}
}
