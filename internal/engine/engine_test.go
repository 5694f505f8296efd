package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/normalize"
)

func rec(rut, factura string, monto int64) model.Record {
	return model.Record{
		Factura: factura,
		RUT:     rut,
		Monto:   monto,
		Key:     normalize.Key(rut, factura),
	}
}

func TestReconcileSetDifferenceByKey(t *testing.T) {
	softland := []model.Record{
		rec("12345678-5", "1", 1000),
		rec("12345678-5", "2", 2000),
		rec("98765432-1", "7", 7000),
	}
	control := []model.Record{
		rec("12.345.678-5", "002", 2000), // same key as softland[1] after normalization
	}

	result := Reconcile(softland, control)

	require.Len(t, result.Missing, 2)
	assert.Equal(t, "123456785_1", result.Missing[0].Key)
	assert.Equal(t, "987654321_7", result.Missing[1].Key)
	assert.Equal(t, int64(3), result.SoftlandTotal)
	assert.Equal(t, int64(1), result.ControlTotal)
	assert.Equal(t, int64(1), result.MatchedCount)
	assert.Equal(t, int64(2), result.MissingCount)
	assert.Equal(t, int64(8000), result.MissingAmount)

	// Invariants.
	assert.Equal(t, result.MissingCount, int64(len(result.Missing)))
	assert.Equal(t, result.SoftlandTotal, result.MatchedCount+result.MissingCount)
}

func TestReconcileEmptyControl(t *testing.T) {
	softland := []model.Record{rec("12345678-5", "1", 10000)}

	result := Reconcile(softland, nil)

	assert.Equal(t, int64(1), result.MissingCount)
	assert.Equal(t, int64(0), result.MatchedCount)
	assert.Equal(t, int64(10000), result.MissingAmount)
}

func TestReconcileDuplicateKeysNotDeduplicated(t *testing.T) {
	// Duplicate invoices in softland each independently test membership.
	softland := []model.Record{
		rec("12345678-5", "1", 1000),
		rec("12345678-5", "1", 1000),
	}

	missing := Reconcile(softland, nil)
	assert.Equal(t, int64(2), missing.MissingCount)
	assert.Equal(t, int64(2000), missing.MissingAmount)

	matched := Reconcile(softland, []model.Record{rec("12345678-5", "1", 1000)})
	assert.Equal(t, int64(0), matched.MissingCount)
	assert.Equal(t, int64(2), matched.MatchedCount)
}

func TestReconcileIdempotent(t *testing.T) {
	softland := []model.Record{
		rec("12345678-5", "1", 1000),
		rec("98765432-1", "9", 9000),
	}
	control := []model.Record{rec("98765432-1", "9", 9000)}

	first := Reconcile(softland, control)
	second := Reconcile(softland, control)
	assert.Equal(t, first, second)
}

func TestMonthKey(t *testing.T) {
	tests := []struct {
		fecha, expected string
	}{
		{"15/03/2024", "2024-03"},
		{"2024-03-15", "2024-03"},
		{"2024/03/15", "2024-03"},
		{"1/3/2024", "2024-03"},
		{"15-03-2024", "2024-03"},
		{"marzo 2024", UnknownMonth},
		{"", UnknownMonth},
		{"15/03", UnknownMonth},
		// Empty segments are not parts: no "2024-" bucket.
		{"2024--", UnknownMonth},
		{"//2024", UnknownMonth},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MonthKey(tt.fecha), "fecha: %q", tt.fecha)
	}
}

func TestAggregateByMonth(t *testing.T) {
	records := []model.Record{
		{Fecha: "15/03/2024", Monto: 1000},
		{Fecha: "20/03/2024", Monto: 2000},
		{Fecha: "02/01/2024", Monto: 500},
		{Fecha: "sin fecha", Monto: 1},
	}

	buckets := AggregateByMonth(records)

	require.Len(t, buckets, 3)
	assert.Equal(t, model.MonthBucket{Month: "2024-01", Count: 1, Total: 500}, buckets[0])
	assert.Equal(t, model.MonthBucket{Month: "2024-03", Count: 2, Total: 3000}, buckets[1])
	assert.Equal(t, model.MonthBucket{Month: UnknownMonth, Count: 1, Total: 1}, buckets[2])
}
