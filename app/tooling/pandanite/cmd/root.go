// Package cmd contains the pandanite tooling app.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	keyPath     string
	storageKind string
	dbPath      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pandanite",
	Short: "Keys, transactions and chain inspection for pandanite",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&keyPath, "keys", "k", "zblock/keys/miner.json", "Path to the key file.")
	rootCmd.PersistentFlags().StringVarP(&storageKind, "storage", "s", "bolt", "Storage of the node: bolt, badger or memory.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "zblock/blocks.db", "Path to the storage of the node.")
}
