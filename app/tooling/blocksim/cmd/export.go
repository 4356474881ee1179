package cmd

import (
	"os"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/database/storage"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the chain as JSON to the path or to stdout.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, _ := openChain()

		if len(args) == 0 {
			if err := storage.Write(os.Stdout, db.Records()); err != nil {
				pterm.Fatal.Println(err)
			}
			return
		}

		if err := storage.NewFile(args[0]).Save(db.Records()); err != nil {
			pterm.Fatal.Println(err)
		}
		pterm.Success.Printfln("Chain exported to %s", args[0])
	},
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Replace the chain with the blocks exported to the path.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		records, err := storage.NewFile(args[0]).Load()
		if err != nil {
			pterm.Fatal.Println(err)
		}

		db, err := database.Load(settings().Config(evHandler()), records)
		if err != nil {
			pterm.Fatal.Println(err)
		}
		pterm.Success.Printfln("Imported %d blocks from %s", db.Length(), args[0])

		renderValidation(db.Audit())
		saveChain(db, storage.NewFile(chainPath))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
