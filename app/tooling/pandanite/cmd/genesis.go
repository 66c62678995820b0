package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ardanlabs/pandanite/foundation/blockchain/genesis"
	"github.com/ardanlabs/pandanite/foundation/blockchain/state"
	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var (
	allocPath     string
	genesisPath   string
	minDifficulty uint32
)

// genesisCmd represents the genesis command
var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Mine a genesis block from an allocation document",
	RunE: func(cmd *cobra.Command, args []string) error {
		founder, err := wallet.Load(keyPath)
		if err != nil {
			return err
		}

		alloc, err := genesis.LoadAllocation(allocPath)
		if err != nil {
			return err
		}

		params := state.MainnetParams()
		params.MinDifficulty = minDifficulty

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		block, err := genesis.Build(ctx, alloc, founder.PrivateKey(), params)
		if err != nil {
			return err
		}

		if err := genesis.Save(genesisPath, block); err != nil {
			return err
		}

		fmt.Printf("genesis block %s written to %s\n", block.Hash(), genesisPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	genesisCmd.Flags().StringVarP(&allocPath, "alloc", "a", "zblock/allocation.json", "Path to the allocation document.")
	genesisCmd.Flags().StringVarP(&genesisPath, "out", "o", "zblock/genesis.json", "Path to write the genesis block.")
	genesisCmd.Flags().Uint32VarP(&minDifficulty, "difficulty", "m", 16, "Difficulty of the genesis block.")
}
