package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andes-audit/concilia/internal/model"
)

const goodProfile = `
softland:
  factura: "Nro. Documento"
  rut: "RUT Proveedor"
  monto: "Total"
  nombre: "Razon Social"
  fecha: "Fecha"
  tipo: "Tipo Doc"
control:
  factura: "N Factura"
  rut: "Rut"
  monto: "Monto"
  nombre: "Proveedor"
  fecha: "Fecha Doc"
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCompleteProfile(t *testing.T) {
	p, err := Load(writeProfile(t, goodProfile))
	require.NoError(t, err)

	assert.Equal(t, "Nro. Documento", p.Softland[model.FieldFactura])
	assert.Equal(t, "Proveedor", p.Control[model.FieldNombre])
	assert.True(t, p.Softland.Complete())
	assert.True(t, p.Control.Complete())

	// Tipo is optional for the control register.
	assert.Equal(t, "", p.Control[model.FieldTipo])
}

func TestLoadIncompleteProfile(t *testing.T) {
	incomplete := `
softland:
  factura: "Doc"
control:
  factura: "N Factura"
`
	_, err := Load(writeProfile(t, incomplete))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestLoadUnparseable(t *testing.T) {
	_, err := Load(writeProfile(t, "softland: [not a mapping"))
	assert.Error(t, err)
}

func TestGuess(t *testing.T) {
	headers := []string{"Fecha", "Nro. Documento", "RUT Proveedor", "Razón Social", "Tipo Doc", "Monto Total"}

	m := Guess(headers)

	assert.Equal(t, "Nro. Documento", m[model.FieldFactura])
	assert.Equal(t, "RUT Proveedor", m[model.FieldRUT])
	assert.Equal(t, "Monto Total", m[model.FieldMonto])
	assert.Equal(t, "Razón Social", m[model.FieldNombre])
	assert.Equal(t, "Fecha", m[model.FieldFecha])
	assert.Equal(t, "Tipo Doc", m[model.FieldTipo])
	assert.True(t, m.Complete())
}

func TestGuessPartialHeaders(t *testing.T) {
	m := Guess([]string{"Fecha", "Glosa"})
	assert.Equal(t, "Fecha", m[model.FieldFecha])
	assert.False(t, m.Complete())
}
