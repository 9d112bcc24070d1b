package runstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/actimerge/schema"
)

func TestRunStore_NoneBackend(t *testing.T) {
	store, err := NewRunStore(schema.NoneBackend, "")
	require.NoError(t, err)
	require.NotNil(t, store)

	runID, err := store.BeginRun(time.Now(), map[string]any{"test": "value"})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)

	assert.NoError(t, store.RecordExport(1, schema.ExportSummary{}))
	assert.NoError(t, store.EndRun(1, time.Now(), 10))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)

	assert.NoError(t, store.Close())
}

func TestRunStore_SQLite(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	runID, err := store.BeginRun(start, map[string]any{"scale": 1000.0, "format": "csv"})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	first := time.Date(2013, 11, 14, 14, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordExport(runID, schema.ExportSummary{
		Variant:        schema.ImputedVariant,
		Path:           "out/p01_imputed.csv",
		Rows:           120,
		ImputedRows:    30,
		UnmatchedRows:  2,
		FirstTimestamp: first,
		LastTimestamp:  first.Add(10 * time.Minute),
	}))
	require.NoError(t, store.RecordExport(runID, schema.ExportSummary{
		Variant: schema.OriginalVariant,
		Path:    "out/p01_orig.csv",
		Rows:    0,
	}))
	require.NoError(t, store.EndRun(runID, start.Add(1500*time.Millisecond), 120))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, runID, status.LastRunID)
	assert.True(t, start.Equal(status.LastRunTime))
	assert.Equal(t, int64(120), status.TotalRows)
	assert.Equal(t, int64(2), status.TableSizes[exportsTable])

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	require.NotNil(t, runs[0].EndTime)
	require.NotNil(t, runs[0].RunDurationMs)
	assert.Equal(t, int32(1500), *runs[0].RunDurationMs)
	assert.Equal(t, int32(120), runs[0].SignalRows)
	require.NotNil(t, runs[0].ConfigParams)
	assert.Contains(t, *runs[0].ConfigParams, `"format":"csv"`)

	exports, err := store.GetAllExports()
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, "imputed", exports[0].Variant)
	assert.Equal(t, int32(30), exports[0].ImputedCount)
	require.NotNil(t, exports[0].FirstTimestamp)
	assert.True(t, first.Equal(*exports[0].FirstTimestamp))
	assert.Equal(t, "orig", exports[1].Variant)
	assert.Nil(t, exports[1].FirstTimestamp)
}

func TestRunStore_DuplicateExport(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	export := schema.ExportSummary{Variant: schema.ImputedVariant, Path: "a.csv"}
	require.NoError(t, store.RecordExport(runID, export))
	assert.Error(t, store.RecordExport(runID, export))
}

func TestRunStore_EndUnknownRun(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	err = store.EndRun(42, time.Now(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get start_time for run 42")
}

func TestRunStore_UnsupportedBackend(t *testing.T) {
	_, err := NewRunStore(schema.DatabaseBackend("oracle"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported run backend")
}

func TestClearRuns_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewRunStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	require.NoError(t, ClearRuns(schema.SQLiteBackend, dbPath, ""))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine
	assert.NoError(t, ClearRuns(schema.SQLiteBackend, dbPath, ""))
	assert.Error(t, ClearRuns(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearRuns(schema.NoneBackend, "", ""))
}

func TestPrintRunStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintRunStatus(&buf, schema.RunStatus{
		Backend:       "sqlite",
		Connected:     true,
		TotalRuns:     2,
		LastRunID:     2,
		LastRunTime:   time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		OldestRunTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		TotalRows:     240,
		TableSizes:    map[string]int64{exportsTable: 4, runsTable: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Run Backend: sqlite")
	assert.Contains(t, out, "Last Run: 2024-05-02 10:00:00")
	assert.Contains(t, out, "Total Signal Rows: 240")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(exportsTable)), bytes.Index(buf.Bytes(), []byte(runsTable+":")))

	buf.Reset()
	PrintRunStatus(&buf, schema.RunStatus{Backend: "none"})
	assert.Equal(t, "Run Backend: none\nConnected: false\n", buf.String())
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`actimerge_runs`", quoteTableName(runsTable, schema.MySQLBackend))
	assert.Equal(t, `"actimerge_runs"`, quoteTableName(runsTable, schema.PostgreSQLBackend))
	assert.Equal(t, `"actimerge_runs"`, quoteTableName(runsTable, schema.SQLiteBackend))

	assert.NoError(t, validateTableName(runsTable))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("runs; DROP TABLE x"))

	assert.Equal(t, "$3", placeholder(schema.PostgreSQLBackend, 3))
	assert.Equal(t, "?", placeholder(schema.MySQLBackend, 3))
}
