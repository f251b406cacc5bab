package datasets

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"property-manager/internal/common"
	"property-manager/internal/reports"
	"property-manager/internal/storage/block"
	"property-manager/internal/storage/jsonfile"
	"property-manager/internal/store"
)

type fakeReports struct {
	table reports.Table
	err   error
}

func (f fakeReports) Build(ctx context.Context, name, month string) (reports.Table, error) {
	return f.table, f.err
}

func newService(t *testing.T, src ReportSource) *Service {
	t.Helper()
	dir := t.TempDir()

	s, err := store.Open(filepath.Join(dir, "data"))
	require.NoError(t, err)
	blobs, err := block.NewLocalFS(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	engine, err := NewEngine()
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return NewService(s, blobs, engine, src, zap.NewNop())
}

const sample = "unit,tenant,rent\n1A,Ada,1000.50\n2B,Grace,900\n3C,\"Hopper, G\",750\n"

func TestInspect(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		columns []string
		rows    int
		wantErr bool
	}{
		{"sample", sample, []string{"unit", "tenant", "rent"}, 3, false},
		{"header only", "a,b\n", []string{"a", "b"}, 0, false},
		{"bom and spaces", "\ufeff a ,b\n1,2\n", []string{"a", "b"}, 1, false},
		{"empty", "", nil, 0, true},
		{"blank column", "a,,c\n", nil, 0, true},
		{"duplicate column", "a,b,a\n", nil, 0, true},
		{"ragged row", "a,b\n1,2,3\n", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, rows, err := Inspect(strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.columns, cols)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestUpload_PreviewAndCount(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	ds, err := svc.Upload(ctx, " March units ", "", strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, "March units", ds.Name)
	assert.Equal(t, "upload", ds.Source)
	assert.Equal(t, []string{"unit", "tenant", "rent"}, ds.Columns)
	assert.Equal(t, 3, ds.RowCount)
	assert.Equal(t, int64(len(sample)), ds.Size)

	n, err := svc.Count(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	p, err := svc.Preview(ctx, ds.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"unit", "tenant", "rent"}, p.Columns)
	assert.Equal(t, int64(3), p.Total)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, "1A", p.Rows[0]["unit"])
	assert.Equal(t, "Ada", p.Rows[0]["tenant"])

	_, rc, err := svc.Open(ctx, ds.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, sample, string(body))
}

func TestUpload_RejectsInvalid(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Upload(context.Background(), "", "", strings.NewReader(sample))
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))

	_, err = svc.Upload(context.Background(), "bad", "", strings.NewReader("a,a\n"))
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))

	list, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	table := reports.NewTable([]reports.Row{
		{"id": "p1", "name": "Harbour View"},
		{"id": "p2", "name": "Quay, North"},
	}, "id", "name")
	svc := newService(t, fakeReports{table: table})

	ds, err := svc.Snapshot(ctx, reports.Properties, "2024-03", "")
	require.NoError(t, err)
	assert.Equal(t, "properties 2024-03", ds.Name)
	assert.Equal(t, "snapshot:properties", ds.Source)
	assert.Equal(t, []string{"id", "name"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount)

	empty := newService(t, fakeReports{table: reports.Table{}})
	_, err = empty.Snapshot(ctx, reports.Properties, "", "")
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	ds, err := svc.Upload(ctx, "units", "", strings.NewReader(sample))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ds.ID))

	_, err = svc.Get(ds.ID)
	assert.ErrorIs(t, err, jsonfile.ErrNotFound)
	_, err = svc.blobs.Stat(ctx, ds.StorageKey)
	assert.True(t, block.IsNotFound(err))

	assert.ErrorIs(t, svc.Delete(ctx, ds.ID), jsonfile.ErrNotFound)
}
