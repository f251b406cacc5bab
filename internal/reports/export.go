package reports

import (
	"fmt"
	"io"

	"property-manager/internal/common"
	"property-manager/internal/storage/parquet"
)

// Format is an export file format
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts "csv" (the default when empty) and "parquet"
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	}
	return "", common.ErrInvalidInputf("unsupported format %q", s)
}

// ContentType is the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv; charset=utf-8"
}

// Filename names a download of the report
func (f Format) Filename(report string) string {
	return fmt.Sprintf("%s.%s", report, f)
}

// Write renders the table in the given format
func Write(w io.Writer, t Table, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatParquet:
		return WriteParquet(w, t)
	}
	return common.ErrInvalidInputf("unsupported format %q", format)
}

// WriteParquet writes the table as a Parquet file of nullable string columns.
// A table without rows or headers still produces a file with a single
// placeholder column so readers accept it.
func WriteParquet(w io.Writer, t Table) error {
	headers := t.Headers
	if len(headers) == 0 {
		headers = []string{"empty"}
	}
	cells, valid := t.Cells()
	return parquet.NewWriter(parquet.DefaultConfig()).WriteTable(w, headers, cells, valid)
}
