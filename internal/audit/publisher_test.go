package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFilePublisher_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")

	p, err := NewFilePublisher(path)
	require.NoError(t, err)
	for _, subject := range []string{"tenant/1", "tenant/2", "tenant/3"} {
		require.NoError(t, p.Publish(ctx, Event{Action: ActionCreate, Actor: "admin", Subject: subject}))
	}

	events, err := p.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "tenant/3", events[0].Subject)
	assert.Equal(t, "tenant/2", events[1].Subject)
	assert.False(t, events[0].Timestamp.IsZero())

	require.NoError(t, p.Close())
	assert.Error(t, p.Publish(ctx, Event{Action: ActionCreate}))

	// reopening appends
	p, err = NewFilePublisher(path)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Publish(ctx, Event{Action: ActionDelete, Subject: "tenant/1"}))

	events, err = Read(path, 0)
	require.NoError(t, err)
	assert.Len(t, events, 4)
	assert.Equal(t, ActionDelete, events[0].Action)
}

func TestRead_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	content := `{"timestamp":"2024-03-01T10:00:00Z","action":"create","actor":"a","subject":"s1"}
not json
{"foo":"bar"}

{"timestamp":"2024-03-01T11:00:00Z","action":"delete","actor":"a","subject":"s1"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := Read(path, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "delete", events[0].Action)
	assert.Equal(t, "create", events[1].Action)
}

func TestRead_MissingFile(t *testing.T) {
	events, err := Read(filepath.Join(t.TempDir(), "none.jsonl"), 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecorder_Memory(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryPublisher()
	r := NewRecorder(mem, zap.NewNop())

	r.Record(ctx, ActionLogin, "alice", "user/alice", nil)
	r.Record(ctx, ActionStatusChange, "alice", "tenant/t1", map[string]interface{}{"to": "on_hold"})

	all := mem.Events()
	require.Len(t, all, 2)
	assert.Equal(t, ActionLogin, all[0].Action)
	assert.Equal(t, "on_hold", all[1].Details["to"])

	recent, err := r.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, ActionStatusChange, recent[0].Action)
}
