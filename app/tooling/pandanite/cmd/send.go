package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
	fee    uint64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transaction and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := wallet.Load(keyPath)
		if err != nil {
			return err
		}

		toAddr, err := database.ToAddress(to)
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}

		tx, err := user.Send(toAddr, amount, fee, uint64(time.Now().Unix()))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tx)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Wallet address to send to.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "Amount to send in base units.")
	sendCmd.Flags().Uint64VarP(&fee, "fee", "f", 0, "Fee paid to the miner in base units.")
}
