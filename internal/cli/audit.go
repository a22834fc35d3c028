package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/audit"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/config"
)

var (
	auditOrigin string
	auditJSON   bool
	auditVerify bool
	auditFile   string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditOrigin, "origin", "", "Only show decisions for this origin")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output entries as JSON")
	auditCmd.Flags().BoolVar(&auditVerify, "verify", false, "Verify the hash chain instead of printing entries")
	auditCmd.Flags().StringVar(&auditFile, "file", "", "Audit log path (overrides config)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show or verify the decision audit trail",
	Long:  "Prints the hash-chained record of approval decisions as a timeline,\nor verifies that the chain has not been tampered with.",
	RunE:  runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	path := auditFile
	if path == "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		path = cfg.AuditLog
	}

	if auditVerify {
		result := audit.Verify(path)
		if !result.Valid {
			return fmt.Errorf("audit chain broken at line %d: %s", result.ErrorLine, result.Error)
		}
		fmt.Printf("Audit chain intact: %d entries verified.\n", result.Lines)
		return nil
	}

	result, err := audit.Read(path, auditOrigin)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if auditJSON {
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	fmt.Print(audit.FormatTimeline(result))
	return nil
}
