package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/config"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/decode"
)

var (
	decodeTo      string
	decodeValue   string
	decodeData    string
	decodeChainID string
)

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeTo, "to", "", "Destination address (empty for contract creation)")
	decodeCmd.Flags().StringVar(&decodeValue, "value", "", "Hex value in wei")
	decodeCmd.Flags().StringVar(&decodeData, "data", "", "Hex calldata")
	decodeCmd.Flags().StringVar(&decodeChainID, "chain-id", "0x1", "Hex chain id")
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a transaction payload",
	Long:  "Classifies a raw transaction without queueing it and prints the\ndecoded call, parameters, and risk warnings as JSON.",
	RunE:  runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	tables, err := decode.LoadTables()
	if err != nil {
		return fmt.Errorf("failed to load signature tables: %w", err)
	}
	if cfg.Decode.ContractsFile != "" {
		if err := tables.LoadContractsFile(cfg.Decode.ContractsFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: contracts file ignored: %v\n", err)
		}
	}
	dec, err := decode.New(decode.WithTables(tables))
	if err != nil {
		return err
	}

	r := dec.DecodeEVM(decode.EVMTx{
		To:      decodeTo,
		Value:   decodeValue,
		Data:    decodeData,
		ChainID: decodeChainID,
	})
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
