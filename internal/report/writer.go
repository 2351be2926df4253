package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported report format")

// Writer serializes records with the Columns header.
type Writer interface {
	Write(w io.Writer, records []Record) error
	// Extension is the file extension including the dot.
	Extension() string
	// ContentType is the MIME type of the output.
	ContentType() string
}

// NewWriter returns the writer for format ("xlsx" or "csv").
func NewWriter(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "xlsx":
		return XLSXWriter{}, nil
	case "csv":
		return CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
