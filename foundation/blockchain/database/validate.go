package database

import "fmt"

// Set of violation kinds reported by Audit.
const (
	ViolationHash     = "hash"
	ViolationLink     = "link"
	ViolationGenesis  = "genesis"
	ViolationSequence = "sequence"
)

// Violation describes a single broken rule found in the chain.
type Violation struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// String implements the fmt.Stringer interface.
func (v Violation) String() string {
	return fmt.Sprintf("blk[%d]: %s: %s", v.Index, v.Kind, v.Reason)
}

// Validate reports if every block's hash matches its contents and every
// block links to the block before it. The chain is not modified.
func (db *Database) Validate() bool {
	return len(audit(db.Blocks(), true)) == 0
}

// Audit checks the entire chain and returns every violation found.
func (db *Database) Audit() []Violation {
	return audit(db.Blocks(), false)
}

// ValidateBlocks performs the same checks as Validate over a set of blocks.
func ValidateBlocks(blocks []Block) bool {
	return len(audit(blocks, true)) == 0
}

// audit walks the blocks and collects violations. When stopFirst is set
// the walk ends at the first violation.
func audit(blocks []Block, stopFirst bool) []Violation {
	var violations []Violation
	add := func(index int, kind string, format string, args ...any) bool {
		violations = append(violations, Violation{Index: index, Kind: kind, Reason: fmt.Sprintf(format, args...)})
		return stopFirst
	}

	if len(blocks) == 0 {
		add(0, ViolationGenesis, "chain has no blocks")
		return violations
	}

	genesis := blocks[0]

	if genesis.Index != 0 {
		if add(0, ViolationGenesis, "genesis index is %d", genesis.Index) {
			return violations
		}
	}

	if genesis.PrevHash != GenesisPrevHash {
		if add(0, ViolationGenesis, "genesis previous hash is %q, exp %q", genesis.PrevHash, GenesisPrevHash) {
			return violations
		}
	}

	if hash := genesis.CalculateHash(); genesis.Hash != hash {
		if add(0, ViolationHash, "stored hash %s doesn't match calculated %s", genesis.Hash, hash) {
			return violations
		}
	}

	for i := 1; i < len(blocks); i++ {
		current := blocks[i]
		previous := blocks[i-1]

		if hash := current.CalculateHash(); current.Hash != hash {
			if add(i, ViolationHash, "stored hash %s doesn't match calculated %s", current.Hash, hash) {
				return violations
			}
		}

		if current.PrevHash != previous.Hash {
			if add(i, ViolationLink, "previous hash %s doesn't match block %d hash %s", current.PrevHash, i-1, previous.Hash) {
				return violations
			}
		}

		if current.Index != uint64(i) {
			if add(i, ViolationSequence, "block index is %d, exp %d", current.Index, i) {
				return violations
			}
		}
	}

	return violations
}
