package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every block's hash and link.",
	Run: func(cmd *cobra.Command, args []string) {
		db, _ := openChain()

		violations := db.Audit()
		renderValidation(violations)

		if len(violations) > 0 {
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
