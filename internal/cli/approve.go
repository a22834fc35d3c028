package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/orchestrator"
)

var (
	approveAccounts []string
	approveRemember bool
)

func init() {
	rootCmd.AddCommand(approveCmd)
	approveCmd.Flags().StringSliceVar(&approveAccounts, "accounts", nil, "Accounts to expose on a connect approval")
	approveCmd.Flags().BoolVar(&approveRemember, "remember", false, "Auto-approve future connects from this site")
}

var approveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending wallet request",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

func runApprove(cmd *cobra.Command, args []string) error {
	s, err := openStack(cfgFile)
	if err != nil {
		return err
	}
	defer s.Close()

	id := args[0]
	err = s.orch.ResolveApproval(cmd.Context(), id, orchestrator.Decision{
		Approve:  true,
		Accounts: approveAccounts,
		Remember: approveRemember,
	})
	if err != nil {
		return fmt.Errorf("failed to approve %s: %w", id, err)
	}

	// The handler can still reject an approved verdict, for example
	// when signing fails, so report the state the queue reached.
	r, ok, _ := s.queue.Get(id)
	if ok {
		fmt.Printf("%s: %s\n", id, r.Status)
	} else {
		fmt.Printf("%s: resolved\n", id)
	}
	return nil
}
