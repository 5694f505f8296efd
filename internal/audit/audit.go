// Package audit tracks per-record human review decisions over the
// discrepancy set. All transitions are pure: the input state is never
// mutated, a fresh state is returned.
package audit

import (
	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/normalize"
)

// SetStatus overwrites the status for one key. No membership check is made
// against the current discrepancy set, which permits re-labeling after the
// underlying data changes.
func SetStatus(state model.AuditState, key string, status model.AuditStatus) model.AuditState {
	next := clone(state)
	next[key] = status
	return next
}

// SetStatusBulk applies SetStatus for each key. Last write per key wins;
// keys are assumed distinct within one call.
func SetStatusBulk(state model.AuditState, keys []string, status model.AuditStatus) model.AuditState {
	next := clone(state)
	for _, key := range keys {
		next[key] = status
	}
	return next
}

// AutoReconcile is a heuristic bulk-resolution pass. For each key, the
// corresponding missing record is located; if any control record shares its
// normalized invoice number, regardless of RUT or amount, the discrepancy
// is marked failed ("it does exist somewhere in Control"), otherwise
// verified. This deliberately relaxes the engine's strict RUT+invoice key
// down to invoice-number-only, to catch miskeyed RUTs with trustworthy
// invoice numbers. Keys with no missing record are silently skipped.
func AutoReconcile(state model.AuditState, keys []string, control, missing []model.Record) model.AuditState {
	byKey := make(map[string]model.Record, len(missing))
	for _, rec := range missing {
		if _, ok := byKey[rec.Key]; !ok {
			byKey[rec.Key] = rec
		}
	}

	controlInvoices := make(map[string]struct{}, len(control))
	for _, rec := range control {
		controlInvoices[normalize.InvoiceNumber(rec.Factura)] = struct{}{}
	}

	next := clone(state)
	for _, key := range keys {
		rec, ok := byKey[key]
		if !ok {
			continue
		}
		invoice := normalize.InvoiceNumber(rec.Factura)
		if _, found := controlInvoices[invoice]; found {
			next[key] = model.AuditFailed
		} else {
			next[key] = model.AuditVerified
		}
	}
	return next
}

// Metrics are derived read-only counters over the current audit state.
// Always computed fresh, never cached.
type Metrics struct {
	VerifiedCount     int64 `json:"verified_count"`
	FailedCount       int64 `json:"failed_count"`
	RealMissingCount  int64 `json:"real_missing_count"`
	RealMissingAmount int64 `json:"real_missing_amount"`
}

// ComputeMetrics tallies audit decisions against the missing-record set.
// RealMissing excludes discrepancies a human dismissed as false positives.
func ComputeMetrics(state model.AuditState, missing []model.Record) Metrics {
	var m Metrics
	for _, status := range state {
		switch status {
		case model.AuditVerified:
			m.VerifiedCount++
		case model.AuditFailed:
			m.FailedCount++
		}
	}
	m.RealMissingCount = int64(len(missing)) - m.FailedCount
	for _, rec := range missing {
		if state.Get(rec.Key) != model.AuditFailed {
			m.RealMissingAmount += rec.Monto
		}
	}
	return m
}

func clone(state model.AuditState) model.AuditState {
	next := make(model.AuditState, len(state)+1)
	for k, v := range state {
		next[k] = v
	}
	return next
}
