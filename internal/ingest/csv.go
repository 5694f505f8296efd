package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSVFile parses a delimited-text file from disk.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses delimited text into a Table. The delimiter is sniffed from
// the first line (Chilean exports commonly use semicolons), variable field
// counts are allowed, and the header row is located heuristically.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	delim, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	var cells [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		cells = append(cells, record)
	}

	if len(cells) == 0 {
		return nil, eris.New("csv: file has no rows")
	}
	return buildTable(cells), nil
}

// sniffDelimiter peeks at the first line and picks ';' when it outnumbers
// ',', otherwise ','.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	peek, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, eris.Wrap(err, "csv: peek first line")
	}
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';', nil
	}
	return ',', nil
}
