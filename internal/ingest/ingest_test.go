package ingest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestDetectHeaderRow(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected int
	}{
		{
			name: "header first",
			rows: [][]string{
				{"Fecha", "Factura", "RUT", "Monto"},
				{"01/01/2024", "1", "12345678-5", "1000"},
			},
			expected: 0,
		},
		{
			name: "title banner above header",
			rows: [][]string{
				{"Libro de Compras"},
				{"Colegio San Andrés"},
				{""},
				{"Fecha", "Nro Documento", "RUT Proveedor", "Total"},
				{"01/01/2024", "1", "12345678-5", "1000"},
			},
			expected: 3,
		},
		{
			name: "accented headers",
			rows: [][]string{
				{"Resumen mensual"},
				{"Número", "Proveedor", "Monto"},
			},
			expected: 1,
		},
		{
			name: "single keyword is not enough",
			rows: [][]string{
				{"Total general", "x"},
				{"a", "b"},
			},
			expected: 0,
		},
		{
			name:     "no rows",
			rows:     nil,
			expected: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectHeaderRow(tt.rows))
		})
	}
}

func TestReadCSVCommaDelimited(t *testing.T) {
	input := "Fecha,Factura,RUT,Monto\n01/01/2024,1,12345678-5,1000\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Fecha", "Factura", "RUT", "Monto"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "12345678-5", table.Rows[0]["RUT"])
}

func TestReadCSVSemicolonSniffed(t *testing.T) {
	input := "Fecha;Factura;RUT;Monto\n01/01/2024;1;12345678-5;10.000\n02/01/2024;2;98765432-1;5.000\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "10.000", table.Rows[0]["Monto"])
}

func TestReadCSVSkipsBannerAndEmptyRows(t *testing.T) {
	input := strings.Join([]string{
		"Libro de Compras,,,",
		",,,",
		"Fecha,Factura,RUT,Monto",
		"01/01/2024,1,12345678-5,1000",
		",,,",
	}, "\n")

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, "1", table.Rows[0]["Factura"])
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func createTestXLSX(t *testing.T, sheets []string, rowsBySheet map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rowsBySheet[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSXConsolidatesSheets(t *testing.T) {
	path := createTestXLSX(t,
		[]string{"Enero", "Febrero"},
		map[string][][]string{
			"Enero": {
				{"Libro de Compras Enero"},
				{"Fecha", "Factura", "RUT", "Monto"},
				{"05/01/2024", "1", "12345678-5", "1000"},
			},
			"Febrero": {
				{"Fecha", "Factura", "RUT", "Monto"},
				{"10/02/2024", "2", "98765432-1", "2000"},
				{"11/02/2024", "3", "98765432-1", "3000"},
			},
		})

	table, err := ReadXLSX(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Fecha", "Factura", "RUT", "Monto"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "1", table.Rows[0]["Factura"])
	assert.Equal(t, "3", table.Rows[2]["Factura"])
}

func TestReadXLSXEmptyWorkbook(t *testing.T) {
	path := createTestXLSX(t, []string{"Hoja1"}, map[string][][]string{"Hoja1": nil})
	_, err := ReadXLSX(path)
	assert.Error(t, err)
}

func TestFromFileUnsupportedExtension(t *testing.T) {
	_, err := FromFile("ledger.pdf")
	assert.Error(t, err)
}
