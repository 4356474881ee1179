package cmd

import (
	"strings"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

// directCmd represents the direct command
var directCmd = &cobra.Command{
	Use:   "direct <data>",
	Short: "Mine a block holding the data directly onto the chain.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, file := openChain()

		data := strings.Join(args, " ")
		mine("Mining", func() (database.Block, error) {
			return db.AppendDirect(cmd.Context(), data)
		})

		saveChain(db, file)
	},
}

func init() {
	rootCmd.AddCommand(directCmd)
}
