// Package report builds a structured summary of a reconciliation run and
// turns it into prose through the external text-generation collaborator.
package report

import (
	"sort"

	"github.com/andes-audit/concilia/internal/audit"
	"github.com/andes-audit/concilia/internal/engine"
	"github.com/andes-audit/concilia/internal/model"
)

// DefaultTopN bounds how many missing records, ordered by amount, are
// quoted in the report prompt.
const DefaultTopN = 10

// Summary is the structured input handed to the report collaborator.
type Summary struct {
	Entity string `json:"entity"`

	SoftlandTotal int64 `json:"softland_total"`
	ControlTotal  int64 `json:"control_total"`
	MatchedCount  int64 `json:"matched_count"`
	MissingCount  int64 `json:"missing_count"`
	MissingAmount int64 `json:"missing_amount"`

	Audit audit.Metrics `json:"audit"`

	TopMissing []model.Record      `json:"top_missing"`
	Months     []model.MonthBucket `json:"months"`
}

// BuildSummary condenses an analysis plus the current audit state into a
// Summary. topN <= 0 uses DefaultTopN.
func BuildSummary(result *model.AnalysisResult, state model.AuditState, entity string, topN int) Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}

	top := make([]model.Record, len(result.Missing))
	copy(top, result.Missing)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Monto > top[j].Monto
	})
	if len(top) > topN {
		top = top[:topN]
	}

	return Summary{
		Entity:        entity,
		SoftlandTotal: result.SoftlandTotal,
		ControlTotal:  result.ControlTotal,
		MatchedCount:  result.MatchedCount,
		MissingCount:  result.MissingCount,
		MissingAmount: result.MissingAmount,
		Audit:         audit.ComputeMetrics(state, result.Missing),
		TopMissing:    top,
		Months:        engine.AggregateByMonth(result.Missing),
	}
}
