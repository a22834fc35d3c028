package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pendingCmd)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending wallet requests",
	Long:  "Shows all requests awaiting a decision with their origin, decoded\nsummary, risk level, and time until expiry.",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	s, err := openStack(cfgFile)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.queue.Pending()
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No pending requests.")
		return nil
	}

	now := time.Now().UTC()
	fmt.Printf("%-14s %-28s %-12s %-40s %-6s %s\n", "ID", "ORIGIN", "KIND", "SUMMARY", "RISK", "EXPIRES")
	for _, r := range list {
		decoded := s.orch.Decode(r)
		fmt.Printf("%-14s %-28s %-12s %-40s %-6s %s\n",
			r.ID,
			truncate(r.Origin, 28),
			r.ApprovalKind,
			truncate(decoded.Summary, 40),
			decoded.Risk,
			r.ExpiresAt.Sub(now).Round(time.Second),
		)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
