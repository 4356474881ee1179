package cmd

import (
	"fmt"

	"github.com/blocksim/blocksim/foundation/blockchain/accounts"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/mempool"
	"github.com/blocksim/blocksim/foundation/blockchain/mempool/selector"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	poolTxs  []string
	strategy string
	pick     int
)

// poolCmd represents the pool command
var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Pool transactions against the genesis balances and show the mining order.",
	Run: func(cmd *cobra.Command, args []string) {
		gen := settings()
		accts := accounts.NewWithBalances(gen.Balances, nil)

		mp, err := mempool.NewWithStrategy(strategy, accts.Balance)
		if err != nil {
			pterm.Fatal.Println(err)
		}

		for _, s := range poolTxs {
			from, to, amount, fee, err := parseTransfer(s)
			if err != nil {
				pterm.Fatal.Println(err)
			}

			tx, err := database.NewTx(from, to, amount, fee)
			if err != nil {
				pterm.Warning.Printfln("Rejected %s: %s", s, err)
				continue
			}

			if _, err := mp.Upsert(tx); err != nil {
				pterm.Warning.Printfln("Rejected %s: %s", tx, err)
				continue
			}
			pterm.Info.Printfln("Pooled %s", tx)
		}

		howMany := pick
		if howMany <= 0 {
			howMany = gen.TransPerBlock
		}

		data := pterm.TableData{{"ID", "From", "To", "Amount", "Fee"}}
		for _, tx := range mp.PickBest(howMany) {
			data = append(data, []string{
				tx.ID(),
				tx.From,
				tx.To,
				database.FormatAmount(tx.Amount),
				database.FormatAmount(tx.Fee),
			})
		}

		pterm.DefaultSection.Println(fmt.Sprintf("Next block, %s strategy", strategy))
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			pterm.Error.Println(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(poolCmd)
	poolCmd.Flags().StringArrayVarP(&poolTxs, "tx", "t", nil, "Transaction written as from:to:amount:fee, repeatable.")
	poolCmd.Flags().StringVarP(&strategy, "strategy", "s", selector.StrategyFee, "Selection strategy: fee or arrival.")
	poolCmd.Flags().IntVarP(&pick, "count", "c", 0, "Transactions to select, the genesis setting is used when zero.")
}
