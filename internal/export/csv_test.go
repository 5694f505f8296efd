package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andes-audit/concilia/internal/model"
)

func TestWriteMissingCSV(t *testing.T) {
	missing := []model.Record{
		{
			Factura: "1045",
			RUT:     "12.345.678-5",
			Monto:   10000,
			Nombre:  "ACME SPA",
			Fecha:   "01/01/2024",
			Key:     "123456785_1045",
		},
		{
			Factura: "7",
			RUT:     "98.765.432-1",
			Monto:   5000,
			Nombre:  "PROVEEDOR SUR LTDA",
			Fecha:   "02/01/2024",
			Key:     "987654321_7",
		},
	}
	state := model.AuditState{
		"123456785_1045": model.AuditVerified,
		"987654321_7":    model.AuditFailed,
	}

	var b strings.Builder
	require.NoError(t, WriteMissingCSV(&b, missing, state))

	rows, err := csv.NewReader(strings.NewReader(b.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Estado", "Fecha", "Factura", "RUT", "Proveedor", "Monto"}, rows[0])
	assert.Equal(t, []string{"Verificado", "01/01/2024", "1045", "12.345.678-5", "ACME SPA", "10000"}, rows[1])
	assert.Equal(t, []string{"Falso positivo", "02/01/2024", "7", "98.765.432-1", "PROVEEDOR SUR LTDA", "5000"}, rows[2])
}

func TestWriteMissingCSVDefaultsToPending(t *testing.T) {
	missing := []model.Record{{Factura: "1", Key: "x_1", Monto: 1}}

	var b strings.Builder
	require.NoError(t, WriteMissingCSV(&b, missing, nil))

	assert.Contains(t, b.String(), "Pendiente")
}
