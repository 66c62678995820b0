package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage/backend"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// blockCmd represents the block command
var blockCmd = &cobra.Command{
	Use:   "block [id]",
	Short: "Export a block as JSON, the tip when no id is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := backend.Open(storageKind, dbPath, zap.NewNop().Sugar())
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.NumBlocks()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			if id, err = strconv.ParseUint(args[0], 10, 64); err != nil {
				return err
			}
		}

		block, err := db.GetBlock(id)
		if err != nil {
			return err
		}

		return printJSON(block)
	},
}

// txCmd represents the tx command
var txCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Export a committed transaction as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		txID, err := signature.ToHash(args[0])
		if err != nil {
			return err
		}

		db, err := backend.Open(storageKind, dbPath, zap.NewNop().Sugar())
		if err != nil {
			return err
		}
		defer db.Close()

		blockID, found, err := db.FindBlockForTransaction(txID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("tx %s: %w", txID, storage.ErrNotFound)
		}

		block, err := db.GetBlock(blockID)
		if err != nil {
			return err
		}

		for _, tx := range block.Trans {
			if tx.Hash() == txID {
				return printJSON(struct {
					BlockID     uint64               `json:"blockId"`
					Transaction database.Transaction `json:"transaction"`
				}{blockID, tx})
			}
		}

		return fmt.Errorf("tx %s: %w", txID, storage.ErrNotFound)
	},
}

func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(txCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
