// Package ingest parses delimited-text and spreadsheet files into raw row
// sets, with heuristic header-row detection and multi-sheet consolidation.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/andes-audit/concilia/internal/model"
)

// Table is the ingestion output for one source: the detected header plus
// every data row keyed by column name.
type Table struct {
	Headers []string
	Rows    []model.RawRow
}

// FromFile parses path by extension: .csv/.txt as delimited text, .xlsx as
// a spreadsheet. Unsupported extensions are a format error surfaced to the
// user; a failure on one source never affects the other.
func FromFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return ReadCSVFile(path)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// buildTable turns a cell grid into a Table using the detected header row.
// Rows above the header and fully empty rows are dropped. Unnamed columns
// are ignored.
func buildTable(cells [][]string) *Table {
	headerIdx := DetectHeaderRow(cells)
	if headerIdx >= len(cells) {
		return &Table{}
	}

	headers := make([]string, len(cells[headerIdx]))
	for i, h := range cells[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	t := &Table{Headers: headers}
	for _, row := range cells[headerIdx+1:] {
		if emptyRow(row) {
			continue
		}
		raw := make(model.RawRow, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			raw[h] = row[i]
		}
		t.Rows = append(t.Rows, raw)
	}
	return t
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func mergeHeaders(dst []string, src []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, h := range dst {
		seen[h] = struct{}{}
	}
	for _, h := range src {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		dst = append(dst, h)
	}
	return dst
}
