package ingest

import (
	"strings"

	"github.com/andes-audit/concilia/internal/normalize"
)

// headerKeywords are the column-name fragments that identify a header row
// in an accounting export or budget-control register.
var headerKeywords = []string{
	"fecha",
	"factura",
	"documento",
	"numero",
	"rut",
	"proveedor",
	"monto",
	"total",
	"debe",
	"haber",
	"tipo",
}

// headerScanWindow bounds how deep the header search looks. Register
// exports routinely open with title and period banners, never more than a
// handful of rows of them.
const headerScanWindow = 20

// DetectHeaderRow scans the first rows of a cell grid and returns the index
// of the first row whose text matches at least two header keywords
// (case-insensitive substring). Defaults to row 0 if none qualifies.
func DetectHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > headerScanWindow {
		limit = headerScanWindow
	}

	for i := 0; i < limit; i++ {
		if scoreHeaderRow(rows[i]) >= 2 {
			return i
		}
	}
	return 0
}

func scoreHeaderRow(row []string) int {
	text := normalize.Fold(strings.Join(row, " "))
	score := 0
	for _, kw := range headerKeywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	return score
}
