package cmd

import (
	"strconv"
	"strings"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// tamperCmd represents the tamper command
var tamperCmd = &cobra.Command{
	Use:   "tamper <index> <data>",
	Short: "Replace a block's data without updating its hash.",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			pterm.Fatal.Printfln("index %q is not a number", args[0])
		}

		db, file := openChain()

		if err := db.Tamper(index, strings.Join(args[1:], " ")); err != nil {
			pterm.Fatal.Println(err)
		}
		pterm.Warning.Printfln("Block %d tampered with", index)

		renderBlocks([]database.Block{mustBlock(db, index)})
		renderValidation(db.Audit())

		saveChain(db, file)
	},
}

func init() {
	rootCmd.AddCommand(tamperCmd)
}

func mustBlock(db *database.Database, index int) database.Block {
	block, err := db.Block(index)
	if err != nil {
		pterm.Fatal.Println(err)
	}
	return block
}
