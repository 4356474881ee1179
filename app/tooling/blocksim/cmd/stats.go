package cmd

import (
	"fmt"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a summary of the chain.",
	Run: func(cmd *cobra.Command, args []string) {
		db, _ := openChain()

		blocks := db.Blocks()

		var entries int
		for _, block := range blocks {
			if !block.IsGenesis() {
				entries += len(database.SplitEntries(block.Data))
			}
		}

		valid := pterm.LightGreen("yes")
		if !db.Validate() {
			valid = pterm.LightRed("no")
		}

		latest := db.LatestBlock()

		data := pterm.TableData{
			{"Total Blocks", fmt.Sprint(len(blocks))},
			{"Mining Difficulty", fmt.Sprint(db.Difficulty())},
			{"Mining Reward", database.FormatAmount(db.MiningReward())},
			{"Chain Valid", valid},
			{"Total Entries", fmt.Sprint(entries)},
			{"Latest Block Hash", shorten(latest.Hash, 20)},
			{"Latest Block Time", latest.Timestamp.Time().Format("2006-01-02 15:04:05")},
		}

		if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
			pterm.Error.Println(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
