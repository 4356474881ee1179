// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time          `json:"date"`
	Data          string             `json:"data"`            // The data stored in the genesis block.
	Difficulty    int                `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
	MiningReward  float64            `json:"mining_reward"`   // Reward for mining a block.
	TransPerBlock int                `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Balances      map[string]float64 `json:"balances"`        // Starting balances used by the transaction pool.
}

// Default returns the settings used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Data:          database.DefaultGenesisData,
		Difficulty:    2,
		MiningReward:  100,
		TransPerBlock: 10,
		Balances: map[string]float64{
			"Alice":   1000,
			"Bob":     500,
			"Charlie": 250,
			"Diana":   100,
		},
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// take their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	genesis.Balances = nil

	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the settings can be used to construct a chain.
func (g Genesis) Validate() error {
	if g.Difficulty < database.MinDifficulty || g.Difficulty > database.MaxDifficulty {
		return fmt.Errorf("%w: got %d, exp %d..%d", database.ErrInvalidDifficulty, g.Difficulty, database.MinDifficulty, database.MaxDifficulty)
	}

	if g.MiningReward < 0 {
		return fmt.Errorf("mining reward can't be negative, got %v", g.MiningReward)
	}

	if g.TransPerBlock < 1 {
		return fmt.Errorf("trans per block must be at least 1, got %d", g.TransPerBlock)
	}

	return nil
}

// Config returns the database settings described by the genesis.
func (g Genesis) Config(evHandler database.EventHandler) database.Config {
	return database.Config{
		Difficulty:   g.Difficulty,
		MiningReward: g.MiningReward,
		GenesisData:  g.Data,
		EvHandler:    evHandler,
	}
}
