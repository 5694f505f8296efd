// Package mapper applies a user-supplied column mapping to raw rows,
// producing canonical records with a derived matching key.
package mapper

import (
	"go.uber.org/zap"

	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/normalize"
	"github.com/andes-audit/concilia/internal/validate"
)

// MapRows converts raw rows into canonical records via direct mapping
// lookups. Every original column is carried forward for later display; a
// missing mapping yields an empty derived field, never an error. The source
// name is diagnostic only.
func MapRows(rows []model.RawRow, m model.ColumnMapping, source model.Source) []model.Record {
	records := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapRow(row, m))
	}
	zap.L().Debug("mapped rows",
		zap.String("source", string(source)),
		zap.Int("rows", len(rows)),
	)
	return records
}

// MapAndFilter composes map-then-filter: rows are mapped, then records
// failing validation are dropped from the canonical set entirely. Rejection
// counts are observable only through logging.
func MapAndFilter(rows []model.RawRow, m model.ColumnMapping, source model.Source) []model.Record {
	mapped := MapRows(rows, m, source)

	kept := make([]model.Record, 0, len(mapped))
	rejected := make(map[string]int)
	for _, rec := range mapped {
		if reason := validate.Reason(rec); reason != "" {
			rejected[reason]++
			continue
		}
		kept = append(kept, rec)
	}

	if len(rejected) > 0 {
		fields := []zap.Field{
			zap.String("source", string(source)),
			zap.Int("kept", len(kept)),
		}
		for reason, n := range rejected {
			fields = append(fields, zap.Int("rejected_"+reason, n))
		}
		zap.L().Info("filtered rows", fields...)
	}
	return kept
}

func mapRow(row model.RawRow, m model.ColumnMapping) model.Record {
	lookup := func(field string) string {
		col, ok := m[field]
		if !ok {
			return ""
		}
		return row[col]
	}

	montoRaw := lookup(model.FieldMonto)
	rut := lookup(model.FieldRUT)
	factura := lookup(model.FieldFactura)

	return model.Record{
		Raw:      row,
		Factura:  factura,
		RUT:      rut,
		Monto:    normalize.Amount(montoRaw),
		MontoRaw: montoRaw,
		Nombre:   lookup(model.FieldNombre),
		Fecha:    lookup(model.FieldFecha),
		Tipo:     lookup(model.FieldTipo),
		Key:      normalize.Key(rut, factura),
	}
}
