package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var force bool

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(keyPath); err == nil && !force {
			return fmt.Errorf("%s already exists", keyPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		user, err := wallet.New()
		if err != nil {
			return err
		}

		if err := user.Save(keyPath); err != nil {
			return err
		}

		fmt.Println(user.Address())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing key file.")
}
