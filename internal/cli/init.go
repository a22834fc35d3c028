package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/config"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/denylist"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap walletguard configuration",
	Long:  "Creates ~/.walletguard with a default walletguard.yaml and the\nstarter denylist. Existing files are left alone unless --force is given.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var created []string

	cfgPath := filepath.Join(configDir, "walletguard.yaml")
	cfgContent, err := config.DefaultYAML()
	if err != nil {
		return fmt.Errorf("generate default config: %w", err)
	}
	if wrote, err := writeIfMissing(cfgPath, cfgContent); err != nil {
		return err
	} else if wrote {
		created = append(created, cfgPath)
	}

	denyPath := filepath.Join(configDir, "denylist.yaml")
	denyContent, err := defaultDenylistYAML()
	if err != nil {
		return fmt.Errorf("generate default denylist: %w", err)
	}
	if wrote, err := writeIfMissing(denyPath, denyContent); err != nil {
		return err
	} else if wrote {
		created = append(created, denyPath)
	}

	fmt.Println("walletguard init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
	}
	fmt.Println()
	fmt.Println("Start the bridge:")
	fmt.Println("  walletguard serve")
	return nil
}

func initConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".walletguard"), nil
}

// writeIfMissing writes content unless the file exists and --force was
// not given. Returns whether it wrote.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// defaultDenylistYAML renders the built-in blocklist as a starting
// denylist.yaml. File entries extend the embedded defaults, so the
// scaffold mostly documents the format.
func defaultDenylistYAML() (string, error) {
	data, err := yaml.Marshal(denylist.DefaultPatterns)
	if err != nil {
		return "", err
	}
	header := "# walletguard denylist\n" +
		"# Origins are glob-style host patterns; addresses match exactly.\n" +
		"# Entries here extend the built-in defaults.\n"
	return header + string(data), nil
}
