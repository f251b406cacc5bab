package block

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_PutReadStat(t *testing.T) {
	ctx := context.Background()
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	key := DocumentKey("tenant", "t1", "d1")
	meta, err := fs.Put(ctx, key, strings.NewReader("lease scan"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(10), meta.Size)
	assert.NotEmpty(t, meta.ETag)

	r, err := fs.Reader(ctx, key)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "lease scan", string(data))

	stat, err := fs.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stat.Size)
}

func TestLocalFS_MissingKeys(t *testing.T) {
	ctx := context.Background()
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Reader(ctx, "datasets/missing.csv")
	assert.True(t, IsNotFound(err))

	_, err = fs.Stat(ctx, "datasets/missing.csv")
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(fs.Delete(ctx, "datasets/missing.csv")))
}

func TestLocalFS_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{DatasetKey("b"), DatasetKey("a"), DocumentKey("org", "o1", "x")} {
		_, err := fs.Put(ctx, key, strings.NewReader("x"), "")
		require.NoError(t, err)
	}

	items, err := fs.List(ctx, "datasets")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "datasets/a.csv", items[0].Key)
	assert.Equal(t, "datasets/b.csv", items[1].Key)

	require.NoError(t, fs.Delete(ctx, DatasetKey("a")))
	items, err = fs.List(ctx, "datasets")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	empty, err := fs.List(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.NoError(t, fs.Health(ctx))
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"datasets/a.csv", true},
		{"documents/tenant/t1/d1", true},
		{"", false},
		{"/etc/passwd", false},
		{"documents/../../secret", false},
		{"documents//x", false},
		{`documents\x`, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
}

func TestLocalFS_CancelledPut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Put(ctx, "datasets/x.csv", strings.NewReader("a,b\n"), "text/csv")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = fs.Stat(context.Background(), "datasets/x.csv")
	assert.True(t, IsNotFound(err))
}
