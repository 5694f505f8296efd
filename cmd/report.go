package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andes-audit/concilia/internal/engine"
	"github.com/andes-audit/concilia/internal/ingest"
	"github.com/andes-audit/concilia/internal/mapper"
	"github.com/andes-audit/concilia/internal/mapping"
	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/report"
	"github.com/andes-audit/concilia/pkg/anthropic"
)

var (
	reportSoftlandPath string
	reportControlPath  string
	reportMappingPath  string
	reportEntity       string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Reconcile and generate a prose report via Claude",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic key is required (CONCILIA_ANTHROPIC_KEY)")
		}

		profile, err := mapping.Load(reportMappingPath)
		if err != nil {
			return err
		}

		var softlandTable, controlTable *ingest.Table
		g, _ := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			t, err := ingest.FromFile(reportSoftlandPath)
			softlandTable = t
			return eris.Wrapf(err, "softland source %s", reportSoftlandPath)
		})
		g.Go(func() error {
			t, err := ingest.FromFile(reportControlPath)
			controlTable = t
			return eris.Wrapf(err, "control source %s", reportControlPath)
		})
		if err := g.Wait(); err != nil {
			return err
		}

		softland := mapper.MapAndFilter(softlandTable.Rows, profile.Softland, model.SourceSoftland)
		control := mapper.MapAndFilter(controlTable.Rows, profile.Control, model.SourceControl)
		result := engine.Reconcile(softland, control)

		gen := report.NewGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		summary := report.BuildSummary(result, nil, reportEntity, cfg.Report.TopN)

		text, err := gen.Generate(cmd.Context(), summary)
		if err != nil {
			// The collaborator failing never loses the reconciliation: print
			// the numbers and surface the error inline.
			printSummary(result, nil)
			fmt.Printf("\ninforme no disponible: %v\n", err)
			return nil
		}

		fmt.Println(text)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportSoftlandPath, "softland", "", "path to the Softland export (required)")
	reportCmd.Flags().StringVar(&reportControlPath, "control", "", "path to the control register (required)")
	reportCmd.Flags().StringVar(&reportMappingPath, "mapping", "", "path to the column-mapping profile YAML (required)")
	reportCmd.Flags().StringVar(&reportEntity, "entity", "", "entity name used in the report text")
	_ = reportCmd.MarkFlagRequired("softland")
	_ = reportCmd.MarkFlagRequired("control")
	_ = reportCmd.MarkFlagRequired("mapping")
	rootCmd.AddCommand(reportCmd)
}
