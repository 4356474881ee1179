package cmd

import (
	"github.com/blocksim/blocksim/foundation/blockchain/database/storage"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var force bool

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new chain holding only a genesis block.",
	Run: func(cmd *cobra.Command, args []string) {
		file := storage.NewFile(chainPath)
		if file.Exists() && !force {
			pterm.Fatal.Printfln("A chain already exists at %s, use --force to replace it.", chainPath)
		}

		db := newChain(cmd.Context())
		renderBlocks(db.Blocks())
		saveChain(db, file)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().BoolVar(&force, "force", false, "Replace an existing chain.")
}
