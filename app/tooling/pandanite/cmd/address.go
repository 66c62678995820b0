package cmd

import (
	"fmt"

	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

// addressCmd represents the address command
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print address for the specific wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := wallet.Load(keyPath)
		if err != nil {
			return err
		}

		fmt.Println(user.Address())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
