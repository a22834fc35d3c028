package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/orchestrator"
)

var rejectReason string

func init() {
	rootCmd.AddCommand(rejectCmd)
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Reason returned to the requesting site")
}

var rejectCmd = &cobra.Command{
	Use:   "reject <request-id>",
	Short: "Reject a pending wallet request",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

func runReject(cmd *cobra.Command, args []string) error {
	s, err := openStack(cfgFile)
	if err != nil {
		return err
	}
	defer s.Close()

	id := args[0]
	err = s.orch.ResolveApproval(cmd.Context(), id, orchestrator.Decision{
		Approve: false,
		Reason:  rejectReason,
	})
	if err != nil {
		return fmt.Errorf("failed to reject %s: %w", id, err)
	}

	fmt.Printf("%s: rejected\n", id)
	return nil
}
