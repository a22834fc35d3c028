// Package cli implements the walletguard command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "walletguard",
	Short: "Request lifecycle engine for dApp wallet interactions",
	Long:  "Mediates between web pages and wallet accounts: validates bridge messages,\nqueues requests for human approval, decodes transaction payloads into risk\nviews, and keeps a hash-chained audit trail of every decision.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to walletguard.yaml (default ~/.walletguard/walletguard.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
