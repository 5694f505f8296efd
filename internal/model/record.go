// Package model defines the core types shared across the reconciliation
// pipeline: raw rows, column mappings, canonical records, and analysis
// results.
package model

// RawRow is one spreadsheet or CSV line as produced by ingestion: a mapping
// from column name to cell text. Immutable once produced.
type RawRow map[string]string

// Source identifies which ledger a record came from.
type Source string

const (
	SourceSoftland Source = "softland"
	SourceControl  Source = "control"
)

// Canonical field names a ColumnMapping must cover.
const (
	FieldFactura = "factura"
	FieldRUT     = "rut"
	FieldMonto   = "monto"
	FieldNombre  = "nombre"
	FieldFecha   = "fecha"
	FieldTipo    = "tipo"
)

// RequiredFields are the mapping entries without which analysis cannot run.
// Tipo is optional: not every register carries a document-type column.
var RequiredFields = []string{FieldFactura, FieldRUT, FieldMonto, FieldNombre, FieldFecha}

// ColumnMapping maps canonical field names to source column names.
// Supplied by the user per data source.
type ColumnMapping map[string]string

// Complete reports whether every required field is mapped to a non-empty
// column name. An incomplete mapping blocks analysis; it is a precondition,
// not an error.
func (m ColumnMapping) Complete() bool {
	for _, f := range RequiredFields {
		if m[f] == "" {
			return false
		}
	}
	return true
}

// MissingFields returns the required fields that are not yet mapped.
func (m ColumnMapping) MissingFields() []string {
	var missing []string
	for _, f := range RequiredFields {
		if m[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Record is a canonical record: a raw row after column mapping and
// derived-field computation. Created once per reconciliation run and never
// mutated.
type Record struct {
	// Raw carries every original column forward for later display and
	// deep-comparison lookups.
	Raw RawRow `json:"raw"`

	Factura  string `json:"factura"`
	RUT      string `json:"rut"`
	Monto    int64  `json:"monto"`
	MontoRaw string `json:"monto_raw"`
	Nombre   string `json:"nombre"`
	Fecha    string `json:"fecha"`
	Tipo     string `json:"tipo,omitempty"`

	// Key is normalized-RUT + "_" + normalized-invoice-number: the sole
	// identity used for cross-source comparison.
	Key string `json:"key"`
}

// AnalysisResult is the output of one reconciliation run. Immutable;
// replaced wholesale on re-run.
type AnalysisResult struct {
	SoftlandTotal int64 `json:"softland_total"`
	ControlTotal  int64 `json:"control_total"`
	MatchedCount  int64 `json:"matched_count"`
	MissingCount  int64 `json:"missing_count"`

	// MissingAmount is the total monetary amount over Missing.
	MissingAmount int64 `json:"missing_amount"`

	Missing []Record `json:"missing"`

	// Full per-source record lists, retained for deep-comparison lookups
	// and the audit heuristics.
	Softland []Record `json:"softland"`
	Control  []Record `json:"control"`
}

// AuditStatus is the human-assigned disposition of a discrepancy.
type AuditStatus string

const (
	// AuditPending is the default for any key without an explicit decision.
	AuditPending AuditStatus = "pending"
	// AuditVerified means a human confirmed the document is genuinely
	// missing from the control source.
	AuditVerified AuditStatus = "verified"
	// AuditFailed means a human determined the flagged discrepancy is a
	// false positive.
	AuditFailed AuditStatus = "failed"
)

// Label returns the localized export label for a status.
func (s AuditStatus) Label() string {
	switch s {
	case AuditVerified:
		return "Verificado"
	case AuditFailed:
		return "Falso positivo"
	default:
		return "Pendiente"
	}
}

// AuditState maps matching key to audit status. Keys without an entry are
// pending. Session-scoped; cleared on reset.
type AuditState map[string]AuditStatus

// Get returns the status for key, defaulting to pending.
func (st AuditState) Get(key string) AuditStatus {
	if s, ok := st[key]; ok {
		return s
	}
	return AuditPending
}

// MonthBucket is one month's worth of discrepancy records.
type MonthBucket struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
	Total int64  `json:"total"`
}
