// Package cmd contains the blocksim command line tool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/database/storage"
	"github.com/blocksim/blocksim/foundation/blockchain/genesis"
	"github.com/blocksim/blocksim/foundation/logger"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	chainPath   string
	genesisPath string
	difficulty  int
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blocksim",
	Short: "Build, mine and inspect a proof of work ledger.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&chainPath, "file", "f", "zblock/blockchain.json", "Path to the chain file.")
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "", "Path to a genesis file, the defaults are used when empty.")
	rootCmd.PersistentFlags().IntVarP(&difficulty, "difficulty", "d", 0, "Mining difficulty, overrides the genesis setting when set.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log the chain events.")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// =============================================================================

// settings returns the genesis settings with the flag overrides applied.
func settings() genesis.Genesis {
	gen := genesis.Default()
	if genesisPath != "" {
		var err error
		if gen, err = genesis.Load(genesisPath); err != nil {
			pterm.Fatal.Println(err)
		}
	}

	if difficulty != 0 {
		gen.Difficulty = difficulty
		if err := gen.Validate(); err != nil {
			pterm.Fatal.Println(err)
		}
	}

	return gen
}

// evHandler returns the handler chain events are logged to. Events are only
// logged in verbose mode and go to stderr to keep them apart from the output.
func evHandler() database.EventHandler {
	if !verbose {
		return nil
	}

	log, err := logger.New("BLOCKSIM", "stderr")
	if err != nil {
		pterm.Fatal.Println(err)
	}

	return func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}
}

// newChain constructs a chain holding only a genesis block.
func newChain(ctx context.Context) *database.Database {
	spinner, _ := pterm.DefaultSpinner.Start("Mining the genesis block")

	db, err := database.New(ctx, settings().Config(evHandler()))
	if err != nil {
		spinner.Fail(err)
		os.Exit(1)
	}
	spinner.Success("Genesis block mined")

	return db
}

// openChain loads the chain stored in the chain file.
func openChain() (*database.Database, *storage.File) {
	file := storage.NewFile(chainPath)
	if !file.Exists() {
		pterm.Fatal.Printfln("No chain found at %s, run the create command first.", chainPath)
	}

	records, err := file.Load()
	if err != nil {
		pterm.Fatal.Println(err)
	}

	db, err := database.Load(settings().Config(evHandler()), records)
	if err != nil {
		pterm.Fatal.Println(err)
	}

	return db, file
}

// saveChain writes the chain to the chain file.
func saveChain(db *database.Database, file *storage.File) {
	if err := file.Save(db.Records()); err != nil {
		pterm.Fatal.Println(err)
	}
	pterm.Info.Printfln("Chain saved to %s", file.Path())
}

// nothingToMine is reported when a flush finds no pending entries.
const nothingToMine = "No pending transactions to mine!"

// mine runs the mining function behind a spinner. It reports false when
// there was nothing pending to mine, which is not a failure.
func mine(title string, fn func() (database.Block, error)) (database.Block, bool) {
	spinner, _ := pterm.DefaultSpinner.Start(title)

	block, err := fn()
	switch {
	case errors.Is(err, database.ErrEmptyPending):
		spinner.Info(nothingToMine)
		return database.Block{}, false

	case err != nil:
		spinner.Fail(err)
		os.Exit(1)
	}
	spinner.Success(fmt.Sprintf("Block %d mined: nonce[%d] hash[%s]", block.Index, block.Nonce, block.Hash))

	return block, true
}

// parseTransfer parses a transfer written as from:to:amount with an
// optional :fee suffix.
func parseTransfer(s string) (from string, to string, amount float64, fee float64, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return "", "", 0, 0, fmt.Errorf("transfer %q must be written as from:to:amount[:fee]", s)
	}

	if amount, err = strconv.ParseFloat(parts[2], 64); err != nil {
		return "", "", 0, 0, fmt.Errorf("transfer %q: amount: %w", s, err)
	}

	if len(parts) == 4 {
		if fee, err = strconv.ParseFloat(parts[3], 64); err != nil {
			return "", "", 0, 0, fmt.Errorf("transfer %q: fee: %w", s, err)
		}
	}

	if err := database.CheckSender(parts[0]); err != nil {
		return "", "", 0, 0, fmt.Errorf("transfer %q: %w", s, err)
	}

	if err := database.CheckRecipient(parts[1]); err != nil {
		return "", "", 0, 0, fmt.Errorf("transfer %q: %w", s, err)
	}

	return parts[0], parts[1], amount, fee, nil
}
