package eventlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJSONLStoreAppendAndQuery(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONLStore(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Append(ctx, Record{Timestamp: now, Kind: "session_started", SessionID: "session_1"}))
	require.NoError(t, store.Append(ctx, Record{Timestamp: now.Add(time.Minute), Kind: "session_stopped", SessionID: "session_1"}))
	require.NoError(t, store.Append(ctx, Record{Timestamp: now.Add(time.Minute), Kind: "session_started", SessionID: "session_2"}))

	all, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byKind, err := store.Query(ctx, Query{Kind: "session_started"})
	require.NoError(t, err)
	require.Len(t, byKind, 2)

	bySession, err := store.Query(ctx, Query{SessionID: "session_1"})
	require.NoError(t, err)
	require.Len(t, bySession, 2)
}
