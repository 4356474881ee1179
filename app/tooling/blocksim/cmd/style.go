package cmd

import (
	"fmt"

	"github.com/blocksim/blocksim/foundation/blockchain/accounts"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/pterm/pterm"
)

// renderBlocks prints the blocks as a table. Long values are shortened.
func renderBlocks(blocks []database.Block) {
	data := pterm.TableData{{"Index", "Timestamp", "Data", "Previous Hash", "Hash", "Nonce"}}
	for _, block := range blocks {
		data = append(data, []string{
			fmt.Sprint(block.Index),
			block.Timestamp.Time().Format("2006-01-02 15:04:05"),
			shorten(block.Data, 60),
			shorten(block.PrevHash, 16),
			shorten(block.Hash, 16),
			fmt.Sprint(block.Nonce),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

// renderBalances prints the balance of every address.
func renderBalances(accts *accounts.Accounts, addresses ...string) {
	if len(addresses) == 0 {
		addresses = accts.Addresses()
	}

	data := pterm.TableData{{"Address", "Balance"}}
	for _, address := range addresses {
		balance := accts.Balance(address)

		amount := database.FormatAmount(balance)
		switch {
		case balance < 0:
			amount = pterm.LightRed(amount)
		case balance > 0:
			amount = pterm.LightGreen(amount)
		}

		data = append(data, []string{address, amount})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

// renderValidation prints the outcome of auditing the chain.
func renderValidation(violations []database.Violation) {
	if len(violations) == 0 {
		pterm.Success.Println("Chain is valid")
		return
	}

	pterm.Error.Printfln("Chain is invalid, %d violation(s) found", len(violations))

	items := make([]pterm.BulletListItem, len(violations))
	for i, v := range violations {
		items[i] = pterm.BulletListItem{Level: 1, Text: v.String()}
	}

	if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
