package cmd

import (
	"fmt"
	"time"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var maxDifficulty int

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure the time to mine a block at increasing difficulties.",
	Run: func(cmd *cobra.Command, args []string) {
		if maxDifficulty < database.MinDifficulty || maxDifficulty > database.MaxDifficulty {
			pterm.Fatal.Printfln("max difficulty must be between %d and %d", database.MinDifficulty, database.MaxDifficulty)
		}

		gen := settings()

		data := pterm.TableData{{"Difficulty", "Nonce", "Hash", "Elapsed"}}
		for d := database.MinDifficulty; d <= maxDifficulty; d++ {
			gen.Difficulty = d

			db, err := database.New(cmd.Context(), gen.Config(evHandler()))
			if err != nil {
				pterm.Fatal.Println(err)
			}

			start := time.Now()
			block, _ := mine(fmt.Sprintf("Mining at difficulty %d", d), func() (database.Block, error) {
				return db.AppendDirect(cmd.Context(), fmt.Sprintf("Benchmark block at difficulty %d", d))
			})

			data = append(data, []string{
				fmt.Sprint(d),
				fmt.Sprint(block.Nonce),
				shorten(block.Hash, 16),
				time.Since(start).Round(time.Millisecond).String(),
			})
		}

		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			pterm.Error.Println(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&maxDifficulty, "max", 3, "Highest difficulty to measure.")
}
