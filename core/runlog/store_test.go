package runlog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{RunID: "r1", Timestamp: base, Status: StatusOK, Year: 2025, Sources: 2, TotalCost: "10.50"},
		{RunID: "r2", Timestamp: base.Add(time.Hour), Status: StatusConflict, Stage: "simulate", Error: "demand conflict"},
		{RunID: "r3", Timestamp: base.Add(2 * time.Hour), Status: StatusOK},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].RunID)
	assert.Equal(t, "10.50", all[0].TotalCost)

	ok, err := store.Query(ctx, Query{Status: StatusOK})
	require.NoError(t, err)
	assert.Len(t, ok, 2)

	window, err := store.Query(ctx, Query{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "simulate", window[0].Stage)

	last, err := store.Query(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "r3", last[0].RunID)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestJSONLStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0644))
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), Record{RunID: "x", Timestamp: time.Now()}))
	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].RunID)
}

func TestRotatingJSONLStore(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "hist", "runs.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	rec := Record{RunID: "big", Timestamp: time.Now(), Error: strings.Repeat("x", 300*1024)}
	for i := 0; i < 8; i++ {
		require.NoError(t, store.Append(context.Background(), rec))
	}
	files, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "runs*"))
	assert.Greater(t, len(files), 1)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore("file:runlog_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg  Config
		want any
	}{
		{Config{Backend: BackendNone}, NopStore{}},
		{Config{Backend: BackendJSONL, Path: filepath.Join(dir, "a.jsonl")}, &JSONLStore{}},
		{Config{Backend: BackendRotating, Path: filepath.Join(dir, "b.jsonl")}, &RotatingJSONLStore{}},
		{Config{Backend: BackendSQLite, Path: filepath.Join(dir, "c.db")}, &SQLiteStore{}},
	}
	for _, tt := range tests {
		s, err := Open(tt.cfg)
		require.NoError(t, err, tt.cfg.Backend)
		assert.IsType(t, tt.want, s)
		_ = s.Close()
	}
	_, err := Open(Config{Backend: "etcd"})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, BackendJSONL, c.Backend)
	assert.Equal(t, "plan_runs.jsonl", c.Path)

	c = Config{Backend: BackendSQLite}
	c.SetDefaults()
	assert.Equal(t, "plan_runs.db", c.Path)
}

func TestRecord_JSON(t *testing.T) {
	data, err := json.Marshal(Record{RunID: "r", Timestamp: time.Unix(0, 0)})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"run_id", "timestamp", "status", "total_production", "duration_ms"} {
		assert.Contains(t, m, k)
	}
	assert.NotContains(t, m, "error")
}
