package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andes-audit/concilia/internal/audit"
	"github.com/andes-audit/concilia/internal/engine"
	"github.com/andes-audit/concilia/internal/export"
	"github.com/andes-audit/concilia/internal/ingest"
	"github.com/andes-audit/concilia/internal/mapper"
	"github.com/andes-audit/concilia/internal/mapping"
	"github.com/andes-audit/concilia/internal/model"
)

var (
	reconcileSoftlandPath string
	reconcileControlPath  string
	reconcileMappingPath  string
	reconcileOutPath      string
	reconcileAuto         bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a Softland export against a control register",
	RunE: func(cmd *cobra.Command, _ []string) error {
		profile, err := mapping.Load(reconcileMappingPath)
		if err != nil {
			return err
		}

		// The two sources load independently; a parse failure on one is
		// reported without touching the other.
		var softlandTable, controlTable *ingest.Table
		g, _ := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			t, err := ingest.FromFile(reconcileSoftlandPath)
			if err != nil {
				return eris.Wrapf(err, "softland source %s", reconcileSoftlandPath)
			}
			softlandTable = t
			return nil
		})
		g.Go(func() error {
			t, err := ingest.FromFile(reconcileControlPath)
			if err != nil {
				return eris.Wrapf(err, "control source %s", reconcileControlPath)
			}
			controlTable = t
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		softland := mapper.MapAndFilter(softlandTable.Rows, profile.Softland, model.SourceSoftland)
		control := mapper.MapAndFilter(controlTable.Rows, profile.Control, model.SourceControl)
		result := engine.Reconcile(softland, control)

		state := model.AuditState{}
		if reconcileAuto {
			keys := make([]string, len(result.Missing))
			for i, rec := range result.Missing {
				keys[i] = rec.Key
			}
			state = audit.AutoReconcile(state, keys, result.Control, result.Missing)
		}

		printSummary(result, state)

		if reconcileOutPath != "" {
			if err := export.WriteMissingCSVFile(reconcileOutPath, result.Missing, state); err != nil {
				return err
			}
			zap.L().Info("export written",
				zap.String("path", reconcileOutPath),
				zap.Int("rows", len(result.Missing)),
			)
		}
		return nil
	},
}

func printSummary(result *model.AnalysisResult, state model.AuditState) {
	fmt.Printf("Softland:   %d documentos válidos\n", result.SoftlandTotal)
	fmt.Printf("Control:    %d documentos válidos\n", result.ControlTotal)
	fmt.Printf("Coinciden:  %d\n", result.MatchedCount)
	fmt.Printf("Faltantes:  %d por $%d\n", result.MissingCount, result.MissingAmount)

	m := audit.ComputeMetrics(state, result.Missing)
	if m.VerifiedCount+m.FailedCount > 0 {
		fmt.Printf("Verificados: %d  Falsos positivos: %d  Faltantes reales: %d por $%d\n",
			m.VerifiedCount, m.FailedCount, m.RealMissingCount, m.RealMissingAmount)
	}

	for _, b := range engine.AggregateByMonth(result.Missing) {
		fmt.Printf("  %s: %d documentos, $%d\n", b.Month, b.Count, b.Total)
	}
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileSoftlandPath, "softland", "", "path to the Softland export (.xlsx/.csv, required)")
	reconcileCmd.Flags().StringVar(&reconcileControlPath, "control", "", "path to the control register (.xlsx/.csv, required)")
	reconcileCmd.Flags().StringVar(&reconcileMappingPath, "mapping", "", "path to the column-mapping profile YAML (required)")
	reconcileCmd.Flags().StringVar(&reconcileOutPath, "out", "", "write the missing-record list to this CSV file")
	reconcileCmd.Flags().BoolVar(&reconcileAuto, "auto", false, "run the invoice-only auto-reconcile pass before printing")
	_ = reconcileCmd.MarkFlagRequired("softland")
	_ = reconcileCmd.MarkFlagRequired("control")
	_ = reconcileCmd.MarkFlagRequired("mapping")
	rootCmd.AddCommand(reconcileCmd)
}
