package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

var (
	permsRevoke    string
	permsChain     string
	permsRevokeAll bool
	permsPurgeIdle bool
)

func init() {
	rootCmd.AddCommand(permissionsCmd)
	permissionsCmd.Flags().StringVar(&permsRevoke, "revoke", "", "Revoke the permission for this origin")
	permissionsCmd.Flags().StringVar(&permsChain, "chain", "", "Chain kind for --revoke (evm or ledger; default both)")
	permissionsCmd.Flags().BoolVar(&permsRevokeAll, "revoke-all", false, "Revoke every site permission")
	permissionsCmd.Flags().BoolVar(&permsPurgeIdle, "purge-idle", false, "Drop permissions idle past the auto-revoke window")
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List or revoke site permissions",
	Long:  "Shows which origins are connected, the accounts they see, and when\nthey last made a request. Revocation takes effect on the site's next call.",
	RunE:  runPermissions,
}

func runPermissions(cmd *cobra.Command, args []string) error {
	s, err := openStack(cfgFile)
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case permsRevokeAll:
		if err := s.perms.RevokeAll(); err != nil {
			return fmt.Errorf("failed to revoke permissions: %w", err)
		}
		fmt.Println("All site permissions revoked.")
		return nil

	case permsRevoke != "":
		kinds := []model.ChainKind{model.ChainEVM, model.ChainLedger}
		if permsChain != "" {
			kind, ok := model.ParseChainKind(permsChain)
			if !ok {
				return fmt.Errorf("unknown chain kind %q", permsChain)
			}
			kinds = []model.ChainKind{kind}
		}
		for _, kind := range kinds {
			if err := s.perms.Revoke(permsRevoke, kind); err != nil {
				return fmt.Errorf("failed to revoke %s for %s: %w", string(kind), permsRevoke, err)
			}
		}
		fmt.Printf("Revoked %s.\n", permsRevoke)
		return nil

	case permsPurgeIdle:
		n, err := s.perms.PurgeIdle()
		if err != nil {
			return fmt.Errorf("failed to purge idle permissions: %w", err)
		}
		fmt.Printf("Purged %d idle permission(s).\n", n)
		return nil
	}

	list, err := s.perms.List()
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No connected sites.")
		return nil
	}

	fmt.Printf("%-32s %-8s %-28s %-9s %s\n", "ORIGIN", "CHAIN", "ACCOUNTS", "REMEMBER", "LAST ACCESS")
	for _, p := range list {
		fmt.Printf("%-32s %-8s %-28s %-9v %s\n",
			truncate(p.Origin, 32),
			p.ChainKind,
			truncate(strings.Join(p.Accounts, ","), 28),
			p.Remember,
			p.LastAccessed.Format("2006-01-02 15:04:05"),
		)
	}
	return nil
}
