package cmd

import (
	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every block of the chain.",
	Run: func(cmd *cobra.Command, args []string) {
		db, _ := openChain()
		renderBlocks(db.Blocks())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
