package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage/backend"
	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
	"github.com/ardanlabs/pandanite/foundation/nameservice"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var accounts []string

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print balances from the storage of a stopped node.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var addrs []database.Address

		for _, account := range accounts {
			addr, err := database.ToAddress(account)
			if err != nil {
				return fmt.Errorf("account %s: %w", account, err)
			}
			addrs = append(addrs, addr)
		}

		if len(addrs) == 0 {
			user, err := wallet.Load(keyPath)
			if err != nil {
				return err
			}
			addrs = append(addrs, user.Address())
		}

		db, err := backend.Open(storageKind, dbPath, zap.NewNop().Sugar())
		if err != nil {
			return err
		}
		defer db.Close()

		lastHash, err := db.LastHash()
		if err != nil {
			return err
		}
		fmt.Printf("LastBlockHash: %s\n\n", lastHash)

		bals, err := db.Wallets(addrs)
		if err != nil {
			return err
		}

		ns, err := nameservice.New(filepath.Dir(keyPath))
		if err != nil {
			return err
		}

		for _, addr := range addrs {
			fmt.Printf("Wallet: %s  Name: %s  Balance: %d\n", addr, ns.Lookup(addr), bals[addr])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringSliceVarP(&accounts, "account", "a", nil, "Wallet addresses to report, defaults to the key file wallet.")
}
