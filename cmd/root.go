package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andes-audit/concilia/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "concilia",
	Short: "Ledger reconciliation and audit workbench",
	Long: "Reconciles a Softland purchase-ledger export against a manually kept " +
		"budget-control register, flags documents missing from the control side, " +
		"and supports auditors confirming or dismissing each discrepancy.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
