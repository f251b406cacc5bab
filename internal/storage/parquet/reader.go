package parquet

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// Table is a Parquet file read back into memory. A nil cell is a null.
type Table struct {
	Columns []string
	Rows    [][]*string
}

// ReadTable reads every row of a file written by WriteTable
func ReadTable(ctx context.Context, src parquet.ReaderAtSeeker) (*Table, error) {
	pqFile, err := file.NewParquetReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet reader: %w", err)
	}
	defer pqFile.Close()

	pqReader, err := pqarrow.NewFileReader(pqFile, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	table, err := pqReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer table.Release()

	out := &Table{Rows: make([][]*string, table.NumRows())}
	for i := range out.Rows {
		out.Rows[i] = make([]*string, table.NumCols())
	}

	for j := 0; j < int(table.NumCols()); j++ {
		col := table.Column(j)
		out.Columns = append(out.Columns, col.Name())

		row := 0
		for _, chunk := range col.Data().Chunks() {
			strs, ok := chunk.(*array.String)
			if !ok {
				return nil, fmt.Errorf("column %s is %s, want string", col.Name(), chunk.DataType())
			}
			for k := 0; k < strs.Len(); k++ {
				if strs.IsValid(k) {
					v := strs.Value(k)
					out.Rows[row][j] = &v
				}
				row++
			}
		}
	}
	return out, nil
}
