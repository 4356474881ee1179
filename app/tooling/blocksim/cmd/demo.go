package cmd

import (
	"github.com/blocksim/blocksim/foundation/blockchain/accounts"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/database/storage"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/spf13/cobra"
)

// demoCmd represents the demo command
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through building, validating and tampering with a chain.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		if err := pterm.DefaultBigText.WithLetters(putils.LettersFromString("BlockSim")).Render(); err != nil {
			pterm.Error.Println(err)
		}

		db := newChain(ctx)

		pterm.DefaultSection.Println("Mining queued entries")
		db.QueueEntry(database.Transfer("Alice", "Bob", 50).String())
		db.QueueEntry(database.Transfer("Bob", "Charlie", 25).String())
		mine("Mining for Miner1", func() (database.Block, error) {
			return db.FlushPending(ctx, "Miner1")
		})

		pterm.DefaultSection.Println("Adding blocks directly")
		for _, entry := range []database.Entry{
			database.Transfer("Charlie", "Diana", 10),
			database.Transfer("Diana", "Eve", 5),
		} {
			mine("Mining "+entry.String(), func() (database.Block, error) {
				return db.AppendDirect(ctx, entry.String())
			})
		}

		db.QueueEntry(database.Transfer("Eve", "Alice", 3).String())
		db.QueueEntry(database.Transfer("Alice", "Frank", 20).String())
		mine("Mining for Miner2", func() (database.Block, error) {
			return db.FlushPending(ctx, "Miner2")
		})

		pterm.DefaultSection.Println("Chain")
		renderBlocks(db.Blocks())

		pterm.DefaultSection.Println("Balances")
		renderBalances(accounts.New(db.Blocks()))

		pterm.DefaultSection.Println("Validation")
		renderValidation(db.Audit())

		pterm.DefaultSection.Println("Tampering")
		if err := db.Tamper(2, "HACKED: All coins belong to Hacker!"); err != nil {
			pterm.Fatal.Println(err)
		}
		pterm.Warning.Println("Block 2 data replaced")
		renderValidation(db.Audit())

		saveChain(db, storage.NewFile(chainPath))
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
