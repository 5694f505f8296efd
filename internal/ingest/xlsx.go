package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// ReadXLSX reads a spreadsheet and consolidates every sheet into one row
// set. Each sheet gets its own heuristic header detection, so a workbook
// split by month still yields a single table; headers are merged in
// first-seen order.
func ReadXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	out := &Table{}
	for _, sheet := range f.Sheets {
		cells := sheetCells(sheet)
		if len(cells) == 0 {
			continue
		}
		t := buildTable(cells)
		out.Headers = mergeHeaders(out.Headers, t.Headers)
		out.Rows = append(out.Rows, t.Rows...)
		zap.L().Debug("consolidated sheet",
			zap.String("sheet", sheet.Name),
			zap.Int("rows", len(t.Rows)),
		)
	}

	if len(out.Rows) == 0 {
		return nil, eris.New("xlsx: workbook has no data rows")
	}
	return out, nil
}

func sheetCells(sheet *xlsx.Sheet) [][]string {
	cells := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		line := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			line[j] = cell.String()
		}
		cells = append(cells, line)
	}
	return cells
}
