package parquet

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTable_ReadBack(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(DefaultConfig())

	columns := []string{"id", "amount", "note"}
	cells := [][]string{
		{"t1", "950.00", "first, with comma"},
		{"t2", "1200.50", ""},
	}
	valid := [][]bool{
		{true, true, true},
		{true, true, false},
	}
	require.NoError(t, w.WriteTable(&buf, columns, cells, valid))

	table, err := ReadTable(context.Background(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, columns, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "first, with comma", *table.Rows[0][2])
	assert.Equal(t, "1200.50", *table.Rows[1][1])
	assert.Nil(t, table.Rows[1][2])
}

func TestWriteTable_Rejects(t *testing.T) {
	w := NewWriter(DefaultConfig())

	assert.Error(t, w.WriteTable(&bytes.Buffer{}, nil, nil, nil))
	assert.Error(t, w.WriteTable(&bytes.Buffer{}, []string{"a", "b"}, [][]string{{"only-one"}}, nil))
}
