package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM makes spreadsheet applications detect the encoding of Hangul text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes comma separated values prefixed with a UTF-8 BOM.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return ".csv" }

func (CSVWriter) ContentType() string { return "text/csv" }

func (CSVWriter) Write(w io.Writer, records []Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write byte order mark: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
