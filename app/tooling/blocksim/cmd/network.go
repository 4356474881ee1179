package cmd

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/blocksim/blocksim/foundation/blockchain/mempool"
	"github.com/blocksim/blocksim/foundation/blockchain/network"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	nodeCount int
	rounds    int
	txsPerRnd int
	seed      int64
)

// networkCmd represents the network command
var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Simulate nodes sharing mined blocks, a node going offline and a late joiner.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		if nodeCount < 2 {
			pterm.Fatal.Println("the simulation needs at least 2 nodes")
		}

		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rnd := rand.New(rand.NewSource(seed))
		pterm.Info.Printfln("Seed %d", seed)

		gen := settings()

		nw, err := network.New(ctx, network.Config{
			Genesis:   gen,
			Seed:      seed,
			EvHandler: network.EventHandler(evHandler()),
		})
		if err != nil {
			pterm.Fatal.Println(err)
		}
		defer nw.Shutdown()

		for i := range nodeCount {
			id := fmt.Sprintf("Node%d", i+1)
			if _, err := nw.AddNode(id, float64(rnd.Intn(100)+1)); err != nil {
				pterm.Fatal.Println(err)
			}
		}
		renderStatus(nw)

		addresses := make([]string, 0, len(gen.Balances))
		for address := range gen.Balances {
			addresses = append(addresses, address)
		}
		sort.Strings(addresses)

		offline := fmt.Sprintf("Node%d", nodeCount)

		for r := 1; r <= rounds; r++ {
			pterm.DefaultSection.Printfln("Round %d", r)

			if r == rounds/2+1 {
				if err := nw.SetOnline(offline, false); err != nil {
					pterm.Fatal.Println(err)
				}
				pterm.Warning.Printfln("%s went offline", offline)
			}

			for range txsPerRnd {
				from := addresses[rnd.Intn(len(addresses))]
				to := addresses[rnd.Intn(len(addresses))]
				if from == to {
					continue
				}

				amount := float64(rnd.Intn(20) + 1)
				fee := float64(rnd.Intn(3))

				tx, err := nw.SimulateTransaction(from, to, amount, fee)
				if err != nil {
					if errors.Is(err, mempool.ErrInsufficientFunds) {
						pterm.Warning.Printfln("%s can't pay %v plus %v", from, amount, fee)
						continue
					}
					pterm.Fatal.Println(err)
				}
				pterm.Info.Printfln("Pooled %s", tx)
			}

			round, err := nw.RandomMiningRound(ctx)
			if err != nil {
				if errors.Is(err, network.ErrNothingToMine) {
					pterm.Warning.Println(err)
					continue
				}
				pterm.Fatal.Println(err)
			}

			pterm.Success.Printfln("%s mined block %d with %d transaction(s), accepted by %v", round.Miner, round.Block.Index, len(round.Txs), round.Accepted)
			if len(round.Rejected) > 0 {
				pterm.Error.Printfln("Rejected by %v", round.Rejected)
			}
		}

		if err := nw.SetOnline(offline, true); err != nil {
			pterm.Fatal.Println(err)
		}
		pterm.Info.Printfln("%s is back online", offline)

		late := fmt.Sprintf("Node%d", nodeCount+1)
		if _, err := nw.AddNode(late, float64(rnd.Intn(100)+1)); err != nil {
			pterm.Fatal.Println(err)
		}
		pterm.Info.Printfln("%s joined late", late)

		pterm.DefaultSection.Println("Network")
		renderStatus(nw)

		if nw.Consensus() {
			pterm.Success.Println("Every online node holds the same chain")
		} else {
			pterm.Warning.Println("The online nodes disagree on the chain")
		}

		pterm.DefaultSection.Println("Balances")
		balances := nw.Balances()
		names := make([]string, 0, len(balances))
		for name := range balances {
			names = append(names, name)
		}
		sort.Strings(names)

		data := pterm.TableData{{"Address", "Balance"}}
		for _, name := range names {
			data = append(data, []string{name, fmt.Sprint(balances[name])})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			pterm.Error.Println(err)
		}

		if pending := nw.Pending(); len(pending) > 0 {
			pterm.Info.Printfln("%d transaction(s) still pooled", len(pending))
		}
	},
}

func init() {
	rootCmd.AddCommand(networkCmd)
	networkCmd.Flags().IntVarP(&nodeCount, "nodes", "n", 4, "Number of nodes to start with.")
	networkCmd.Flags().IntVarP(&rounds, "rounds", "r", 4, "Number of mining rounds.")
	networkCmd.Flags().IntVar(&txsPerRnd, "txs", 3, "Transactions simulated per round.")
	networkCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the simulation, random when zero.")
}

func renderStatus(nw *network.Network) {
	data := pterm.TableData{{"Node", "Stake", "Online", "Blocks", "Peers", "Latest Hash", "Valid"}}
	for _, ns := range nw.Status() {
		online := pterm.LightGreen("yes")
		if !ns.Online {
			online = pterm.LightRed("no")
		}

		data = append(data, []string{
			ns.ID,
			fmt.Sprint(ns.Stake),
			online,
			fmt.Sprint(ns.Blocks),
			fmt.Sprint(ns.Peers),
			shorten(ns.LatestHash, 16),
			fmt.Sprint(ns.Valid),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}
