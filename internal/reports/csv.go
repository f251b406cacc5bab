// Package reports turns records into tabular exports (CSV and Parquet).
package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one line of a report keyed by column name
type Row map[string]interface{}

// Table is a set of rows with a fixed header order
type Table struct {
	Headers []string
	Rows    []Row
}

// NewTable collects the union of keys across rows as headers. Keys named in
// preferred come first in that order when at least one row has them; the
// rest follow sorted.
func NewTable(rows []Row, preferred ...string) Table {
	seen := map[string]bool{}
	for _, row := range rows {
		for key := range row {
			seen[key] = true
		}
	}

	headers := make([]string, 0, len(seen))
	for _, key := range preferred {
		if seen[key] {
			headers = append(headers, key)
			delete(seen, key)
		}
	}
	rest := make([]string, 0, len(seen))
	for key := range seen {
		rest = append(rest, key)
	}
	sort.Strings(rest)

	return Table{Headers: append(headers, rest...), Rows: rows}
}

// Cells renders every row as strings in header order. Missing keys and nil
// values become empty strings; ok reports which cells held a value.
func (t Table) Cells() (cells [][]string, ok [][]bool) {
	cells = make([][]string, len(t.Rows))
	ok = make([][]bool, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = make([]string, len(t.Headers))
		ok[i] = make([]bool, len(t.Headers))
		for j, h := range t.Headers {
			v, present := row[h]
			if !present || v == nil {
				continue
			}
			cells[i][j] = FormatValue(v)
			ok[i][j] = true
		}
	}
	return cells, ok
}

// WriteCSV writes the table as RFC 4180 CSV with CRLF line endings. An empty
// table writes nothing.
func WriteCSV(w io.Writer, t Table) error {
	if len(t.Rows) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	cells, _ := t.Cells()
	if err := cw.WriteAll(cells); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// BuildCSV renders rows to CSV in memory
func BuildCSV(rows []Row, preferred ...string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, NewTable(rows, preferred...)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatValue renders a single cell
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.RFC3339)
	case *time.Time:
		if x == nil || x.IsZero() {
			return ""
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
		return FormatValue(rv.Elem().Interface())
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// RowsOf converts structs to rows keyed by their JSON field names. The
// returned header order follows the struct's field order. Fields tagged
// "-" are skipped, as are omitempty fields holding a zero value.
func RowsOf[T any](records []T) ([]Row, []string) {
	var zero T
	order := jsonFields(reflect.TypeOf(zero))

	rows := make([]Row, 0, len(records))
	for i := range records {
		rv := reflect.ValueOf(records[i])
		row := Row{}
		for _, f := range order {
			fv := rv.FieldByIndex(f.index)
			if f.omitEmpty && fv.IsZero() {
				continue
			}
			row[f.name] = fv.Interface()
		}
		rows = append(rows, row)
	}

	names := make([]string, len(order))
	for i, f := range order {
		names[i] = f.name
	}
	return rows, names
}

type jsonField struct {
	name      string
	index     []int
	omitEmpty bool
}

func jsonFields(t reflect.Type) []jsonField {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var fields []jsonField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" || !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
			for _, inner := range jsonFields(sf.Type) {
				inner.index = append([]int{i}, inner.index...)
				fields = append(fields, inner)
			}
			continue
		}
		if name == "" {
			name = sf.Name
		}
		fields = append(fields, jsonField{
			name:      name,
			index:     []int{i},
			omitEmpty: strings.Contains(opts, "omitempty"),
		})
	}
	return fields
}
