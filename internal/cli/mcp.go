package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	walletmcp "github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP approval surface for agent integration",
	Long:  "Runs walletguard as an MCP (Model Context Protocol) server over stdio.\nExposes the approval workflow as tools: wallet_pending, wallet_approve,\nwallet_reject, wallet_decode.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openStack(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer s.Close()

	srv := walletmcp.New(s.orch, s.queue, s.decoder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "walletguard MCP server running on stdio")
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
