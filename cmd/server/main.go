// Command server runs the personal banking ledger and its maintenance tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Personal banking ledger with transaction categorization",
	Long: `ledger records deposits, withdrawals and transfers between accounts,
keeps balances consistent under concurrent use, and labels every committed
transaction with a spending category.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./config.yaml or $HOME/.ledger/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(categorizeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(accountCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
