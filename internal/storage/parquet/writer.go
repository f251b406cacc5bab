// Package parquet writes and reads flat tables of nullable string columns as
// Parquet files.
package parquet

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// Config holds configuration for the Parquet writer
type Config struct {
	Compression  compress.Compression
	RowGroupSize int64
}

// DefaultConfig uses snappy compression
func DefaultConfig() Config {
	return Config{
		Compression:  compress.Codecs.Snappy,
		RowGroupSize: 64 * 1024,
	}
}

// Writer writes string tables to Parquet
type Writer struct {
	config    Config
	allocator memory.Allocator
}

// NewWriter creates a new Parquet writer
func NewWriter(config Config) *Writer {
	return &Writer{
		config:    config,
		allocator: memory.NewGoAllocator(),
	}
}

// Schema builds the Arrow schema of a table with nullable string columns
func Schema(columns []string) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteTable writes the rows as one Parquet file. cells[i][j] is the value of
// column j in row i; valid[i][j] false stores a null. A nil valid marks every
// cell as present.
func (w *Writer) WriteTable(out io.Writer, columns []string, cells [][]string, valid [][]bool) error {
	if len(columns) == 0 {
		return fmt.Errorf("table has no columns")
	}
	schema := Schema(columns)

	builder := array.NewRecordBuilder(w.allocator, schema)
	defer builder.Release()

	for i, row := range cells {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
		for j, value := range row {
			col := builder.Field(j).(*array.StringBuilder)
			if valid != nil && !valid[i][j] {
				col.AppendNull()
				continue
			}
			col.Append(value)
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(w.config.Compression),
		parquet.WithMaxRowGroupLength(w.config.RowGroupSize),
	)
	pqWriter, err := pqarrow.NewFileWriter(schema, out, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	if err := pqWriter.Write(record); err != nil {
		pqWriter.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := pqWriter.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}
