package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexFlags struct {
	vaultPath string
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index every markdown note under the vault",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexFlags.vaultPath, "vault", "", "Vault directory (overrides config)")
}

func runIndex(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	vaultPath := indexFlags.vaultPath
	if vaultPath == "" {
		vaultPath = a.cfg.VaultPath
	}

	stats, err := a.indexer.IndexVault(cmd.Context(), vaultPath)
	if err != nil {
		return fmt.Errorf("index vault: %w", err)
	}
	fmt.Printf("Indexed %d note(s) as %d chunk(s) from %s\n", stats.TotalNotes, stats.TotalChunks, vaultPath)
	return nil
}
