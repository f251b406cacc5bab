// Package datasets keeps CSV datasets in blob storage and answers preview
// and count queries over them with DuckDB.
package datasets

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Engine runs DuckDB queries over local CSV files
type Engine struct {
	db *sql.DB
}

// NewEngine opens an in-memory DuckDB database
func NewEngine() (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	return &Engine{db: db}, nil
}

// Close releases the database
func (e *Engine) Close() error {
	return e.db.Close()
}

// Health runs a trivial query
func (e *Engine) Health(ctx context.Context) error {
	var one int
	return e.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Preview is the head of a CSV file with DuckDB's inferred column types
type Preview struct {
	Columns []string                 `json:"columns"`
	Types   []string                 `json:"types"`
	Rows    []map[string]interface{} `json:"rows"`
	Total   int64                    `json:"total"`
}

// Preview returns the first limit rows of the CSV file at path and the total row count
func (e *Engine) Preview(ctx context.Context, path string, limit int) (*Preview, error) {
	source := csvSource(path)

	total, err := e.count(ctx, source)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", source, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	p := &Preview{Columns: columns, Types: make([]string, len(colTypes)), Rows: []map[string]interface{}{}, Total: total}
	for i, ct := range colTypes {
		p.Types[i] = ct.DatabaseTypeName()
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, name := range columns {
			row[name] = jsonValue(values[i])
		}
		p.Rows = append(p.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return p, nil
}

// Count returns the number of data rows in the CSV file at path
func (e *Engine) Count(ctx context.Context, path string) (int64, error) {
	return e.count(ctx, csvSource(path))
}

func (e *Engine) count(ctx context.Context, source string) (int64, error) {
	var n int64
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+source).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dataset rows: %w", err)
	}
	return n, nil
}

// csvSource quotes path as a SQL string literal inside read_csv_auto
func csvSource(path string) string {
	return fmt.Sprintf("read_csv_auto('%s', header = true)", strings.ReplaceAll(path, "'", "''"))
}

func jsonValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return v
}
