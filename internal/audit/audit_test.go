package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

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

func TestSetStatusDoesNotMutateInput(t *testing.T) {
	state := model.AuditState{"a_1": model.AuditVerified}

	next := SetStatus(state, "b_2", model.AuditFailed)

	assert.Equal(t, model.AuditFailed, next["b_2"])
	assert.Equal(t, model.AuditVerified, next["a_1"])
	assert.NotContains(t, state, "b_2")
}

func TestSetStatusOverwrites(t *testing.T) {
	state := model.AuditState{"a_1": model.AuditVerified}
	next := SetStatus(state, "a_1", model.AuditFailed)
	assert.Equal(t, model.AuditFailed, next["a_1"])
}

func TestSetStatusAcceptsUnknownKey(t *testing.T) {
	// No membership check against the discrepancy set.
	next := SetStatus(model.AuditState{}, "nonexistent_99", model.AuditVerified)
	assert.Equal(t, model.AuditVerified, next["nonexistent_99"])
}

func TestSetStatusBulk(t *testing.T) {
	next := SetStatusBulk(nil, []string{"a_1", "b_2", "c_3"}, model.AuditVerified)
	assert.Len(t, next, 3)
	for _, key := range []string{"a_1", "b_2", "c_3"} {
		assert.Equal(t, model.AuditVerified, next[key])
	}
}

func TestAutoReconcileInvoiceOnlyMatch(t *testing.T) {
	// The control record carries a different RUT and a zero-padded invoice;
	// the invoice-only relaxed match still classifies the discrepancy as a
	// false positive.
	missing := []model.Record{rec("12345678-5", "100", 1000)}
	control := []model.Record{rec("99999999-9", "0100", 5000)}

	next := AutoReconcile(nil, []string{missing[0].Key}, control, missing)

	assert.Equal(t, model.AuditFailed, next[missing[0].Key])
}

func TestAutoReconcileVerifiesWhenInvoiceAbsent(t *testing.T) {
	missing := []model.Record{rec("12345678-5", "100", 1000)}
	control := []model.Record{rec("99999999-9", "200", 5000)}

	next := AutoReconcile(nil, []string{missing[0].Key}, control, missing)

	assert.Equal(t, model.AuditVerified, next[missing[0].Key])
}

func TestAutoReconcileSkipsUnknownKeys(t *testing.T) {
	missing := []model.Record{rec("12345678-5", "100", 1000)}

	next := AutoReconcile(nil, []string{"no_such_key"}, nil, missing)

	assert.NotContains(t, next, "no_such_key")
	assert.Empty(t, next)
}

func TestComputeMetrics(t *testing.T) {
	missing := []model.Record{
		rec("11111111-1", "1", 1000),
		rec("22222222-2", "2", 2000),
		rec("33333333-3", "3", 4000),
	}
	state := model.AuditState{
		missing[0].Key: model.AuditVerified,
		missing[1].Key: model.AuditFailed,
	}

	m := ComputeMetrics(state, missing)

	assert.Equal(t, int64(1), m.VerifiedCount)
	assert.Equal(t, int64(1), m.FailedCount)
	assert.Equal(t, int64(2), m.RealMissingCount)
	// Pending and verified both count toward the real missing amount.
	assert.Equal(t, int64(5000), m.RealMissingAmount)
}

func TestComputeMetricsEmptyState(t *testing.T) {
	missing := []model.Record{rec("11111111-1", "1", 1000)}
	m := ComputeMetrics(nil, missing)
	assert.Equal(t, int64(0), m.VerifiedCount)
	assert.Equal(t, int64(1), m.RealMissingCount)
	assert.Equal(t, int64(1000), m.RealMissingAmount)
}
