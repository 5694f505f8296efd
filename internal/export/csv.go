// Package export serializes the discrepancy list, with the auditor's
// decisions, as a tabular file.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/andes-audit/concilia/internal/model"
)

// columns are the fixed export columns, with localized labels.
var columns = []string{
	"Estado",
	"Fecha",
	"Factura",
	"RUT",
	"Proveedor",
	"Monto",
}

// WriteMissingCSV writes the missing-record list with its audit labels.
// This is a pure serialization of records + state: a failed or interrupted
// export leaves reconciliation state untouched and can simply be retried.
func WriteMissingCSV(w io.Writer, missing []model.Record, state model.AuditState) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, rec := range missing {
		row := []string{
			state.Get(rec.Key).Label(),
			rec.Fecha,
			rec.Factura,
			rec.RUT,
			rec.Nombre,
			strconv.FormatInt(rec.Monto, 10),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// WriteMissingCSVFile writes the export to a file on disk.
func WriteMissingCSVFile(path string, missing []model.Record, state model.AuditState) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	return WriteMissingCSV(f, missing, state)
}
