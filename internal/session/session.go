// Package session models one auditor session against a pair of ledgers.
// State is an immutable snapshot: every transition returns a fresh value
// and the current snapshot is replaced wholesale, so any reader observes a
// fully formed, consistent state, never a partial update.
package session

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/andes-audit/concilia/internal/audit"
	"github.com/andes-audit/concilia/internal/engine"
	"github.com/andes-audit/concilia/internal/mapper"
	"github.com/andes-audit/concilia/internal/model"
)

// SourceState holds the loaded rows and mapping for one ledger.
type SourceState struct {
	FileName string              `json:"file_name"`
	Headers  []string            `json:"headers"`
	Rows     []model.RawRow      `json:"rows"`
	Mapping  model.ColumnMapping `json:"mapping"`
}

// State is one session snapshot, keyed by entity (e.g. a school).
type State struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	CreatedAt time.Time `json:"created_at"`

	Softland SourceState `json:"softland"`
	Control  SourceState `json:"control"`

	Analysis *model.AnalysisResult `json:"analysis,omitempty"`
	Audit    model.AuditState      `json:"audit,omitempty"`
	Report   string                `json:"report,omitempty"`
}

// New returns an empty session for an entity.
func New(id, entity string) State {
	return State{ID: id, Entity: entity, CreatedAt: time.Now().UTC()}
}

// source needs a pointer receiver: the returned *SourceState must point
// into the snapshot being built, not into a receiver copy.
func (s *State) source(src model.Source) *SourceState {
	if src == model.SourceControl {
		return &s.Control
	}
	return &s.Softland
}

// WithRows replaces one source's row set. Loading new data invalidates the
// previous analysis and audit decisions.
func (s State) WithRows(src model.Source, fileName string, headers []string, rows []model.RawRow) State {
	next := s
	st := next.source(src)
	st.FileName = fileName
	st.Headers = headers
	st.Rows = rows
	next.Analysis = nil
	next.Audit = nil
	next.Report = ""
	return next
}

// WithMapping replaces one source's column mapping.
func (s State) WithMapping(src model.Source, m model.ColumnMapping) State {
	next := s
	next.source(src).Mapping = m
	return next
}

// CanAnalyze reports whether both sources have rows and complete mappings.
// Analysis is simply unavailable until then; this is a precondition, not a
// runtime failure.
func (s State) CanAnalyze() bool {
	return len(s.Softland.Rows) > 0 && s.Softland.Mapping.Complete() &&
		len(s.Control.Rows) > 0 && s.Control.Mapping.Complete()
}

// ErrNotReady is returned when analysis is requested before both sources
// are loaded and fully mapped.
var ErrNotReady = eris.New("session: both sources must be loaded and mapped")

// Analyze maps, filters, and reconciles both sources, replacing any
// previous analysis and clearing audit decisions.
func (s State) Analyze() (State, error) {
	if !s.CanAnalyze() {
		return s, ErrNotReady
	}

	softland := mapper.MapAndFilter(s.Softland.Rows, s.Softland.Mapping, model.SourceSoftland)
	control := mapper.MapAndFilter(s.Control.Rows, s.Control.Mapping, model.SourceControl)

	next := s
	next.Analysis = engine.Reconcile(softland, control)
	next.Audit = nil
	next.Report = ""
	return next, nil
}

// ErrNoAnalysis is returned when an audit transition or derived view is
// requested before any analysis has run.
var ErrNoAnalysis = eris.New("session: no analysis available")

// WithAuditStatus records one audit decision.
func (s State) WithAuditStatus(key string, status model.AuditStatus) State {
	next := s
	next.Audit = audit.SetStatus(s.Audit, key, status)
	return next
}

// WithAuditBulk records one decision for many keys.
func (s State) WithAuditBulk(keys []string, status model.AuditStatus) State {
	next := s
	next.Audit = audit.SetStatusBulk(s.Audit, keys, status)
	return next
}

// WithAutoReconcile runs the invoice-only heuristic over the given keys.
func (s State) WithAutoReconcile(keys []string) (State, error) {
	if s.Analysis == nil {
		return s, ErrNoAnalysis
	}
	next := s
	next.Audit = audit.AutoReconcile(s.Audit, keys, s.Analysis.Control, s.Analysis.Missing)
	return next, nil
}

// WithReport attaches generated prose to the snapshot.
func (s State) WithReport(text string) State {
	next := s
	next.Report = text
	return next
}

// Metrics computes the derived audit counters for the current snapshot.
func (s State) Metrics() (audit.Metrics, error) {
	if s.Analysis == nil {
		return audit.Metrics{}, ErrNoAnalysis
	}
	return audit.ComputeMetrics(s.Audit, s.Analysis.Missing), nil
}

// Reset discards all loaded data and decisions, keeping the identity.
func (s State) Reset() State {
	return State{ID: s.ID, Entity: s.Entity, CreatedAt: s.CreatedAt}
}
