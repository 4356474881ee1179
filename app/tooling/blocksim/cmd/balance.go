package cmd

import (
	"github.com/blocksim/blocksim/foundation/blockchain/accounts"
	"github.com/spf13/cobra"
)

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance [address...]",
	Short: "Print the balances derived from the chain.",
	Run: func(cmd *cobra.Command, args []string) {
		db, _ := openChain()
		renderBalances(accounts.New(db.Blocks()), args...)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
