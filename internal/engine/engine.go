// Package engine computes the set-difference between two canonical record
// sets by matching key and aggregates discrepancies for reporting.
package engine

import (
	"go.uber.org/zap"

	"github.com/andes-audit/concilia/internal/model"
)

// Reconcile computes which softland records are absent from the control
// set, by matching key alone. Key equality is the entire pre-audit matching
// criterion; finer-grained comparison (amount, date, name similarity) is
// deferred to human review. Duplicate keys within one source are not
// deduplicated: every row independently tests membership.
//
// O(n+m): one pass to build the control key set, one pass to filter.
func Reconcile(softland, control []model.Record) *model.AnalysisResult {
	controlKeys := make(map[string]struct{}, len(control))
	for _, rec := range control {
		controlKeys[rec.Key] = struct{}{}
	}

	var missing []model.Record
	var missingAmount int64
	for _, rec := range softland {
		if _, ok := controlKeys[rec.Key]; ok {
			continue
		}
		missing = append(missing, rec)
		missingAmount += rec.Monto
	}

	result := &model.AnalysisResult{
		SoftlandTotal: int64(len(softland)),
		ControlTotal:  int64(len(control)),
		MatchedCount:  int64(len(softland) - len(missing)),
		MissingCount:  int64(len(missing)),
		MissingAmount: missingAmount,
		Missing:       missing,
		Softland:      softland,
		Control:       control,
	}

	zap.L().Info("reconciliation complete",
		zap.Int64("softland_total", result.SoftlandTotal),
		zap.Int64("control_total", result.ControlTotal),
		zap.Int64("matched", result.MatchedCount),
		zap.Int64("missing", result.MissingCount),
		zap.Int64("missing_amount", result.MissingAmount),
	)
	return result
}
