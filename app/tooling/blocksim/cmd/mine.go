package cmd

import (
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	transfers []string
	entries   []string
	miner     string
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Queue the entries and mine them into a block with a reward for the miner.",
	Run: func(cmd *cobra.Command, args []string) {
		db, file := openChain()

		for _, transfer := range transfers {
			from, to, amount, _, err := parseTransfer(transfer)
			if err != nil {
				pterm.Fatal.Println(err)
			}
			db.QueueEntry(database.Transfer(from, to, amount).String())
		}

		for _, entry := range entries {
			db.QueueEntry(entry)
		}

		for _, entry := range db.Pending() {
			pterm.Info.Printfln("Queued: %s", entry)
		}

		block, ok := mine("Mining pending entries", func() (database.Block, error) {
			return db.FlushPending(cmd.Context(), miner)
		})
		if !ok {
			return
		}
		pterm.Info.Printfln("Block data: %s", block.Data)

		saveChain(db, file)
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringArrayVarP(&transfers, "tx", "t", nil, "Transfer written as from:to:amount, repeatable.")
	mineCmd.Flags().StringArrayVarP(&entries, "entry", "e", nil, "Raw entry text, repeatable.")
	mineCmd.Flags().StringVarP(&miner, "miner", "m", "Miner", "Address credited with the mining reward.")
}
