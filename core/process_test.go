package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/internal/rdata/rdatatest"
	"github.com/huangsam/actimerge/internal/runstore"
	"github.com/huangsam/actimerge/schema"
)

const expectedHeader = "acceleration (mg) - 2013-11-14 15:00:00 - 2013-11-14 15:00:15 - sampleRate = 5 seconds"

// writeFixtures writes a small participant: four 5-second epochs, two
// coarse epochs flagged 0 then 1, and a pre-imputed CSV with one extra
// row before the first flag.
func writeFixtures(t *testing.T) schema.Inputs {
	t.Helper()
	dir := t.TempDir()

	meta := rdatatest.MetaWorkspace(
		[]string{
			"2013-11-14T15:00:00+0100",
			"2013-11-14T15:00:05+0100",
			"2013-11-14T15:00:10+0100",
			"2013-11-14T15:00:15+0100",
		},
		[]float64{0.002, 0, 0.25, 0.5},
		[]string{"2013-11-14T15:00:00+0100", "2013-11-14T15:00:10+0100"},
	)
	ms2 := rdatatest.MS2Workspace([]float64{0, 1}, []float64{0, 0})

	inputs := schema.Inputs{
		MetaPath:     filepath.Join(dir, "meta_p01.csv.RData"),
		MS2Path:      filepath.Join(dir, "p01.csv.RData"),
		CSVPath:      filepath.Join(dir, "p01.csv"),
		OutputPrefix: filepath.Join(dir, "p01_"),
	}
	meta.Compress(rdatatest.Gzip).WriteFile(t, inputs.MetaPath)
	ms2.Compress(rdatatest.Gzip).WriteFile(t, inputs.MS2Path)

	csv := "timestamp,anglez,ENMO\n" +
		"2013-11-14T14:59:55+0100,1.5,0.5\n" +
		"2013-11-14T15:00:00+0100,1.5,0.004\n" +
		"2013-11-14T15:00:05+0100,1.5,0.001\n" +
		"2013-11-14T15:00:10+0100,1.5,NA\n" +
		"2013-11-14T15:00:15+0100,1.5,0.5\n"
	require.NoError(t, os.WriteFile(inputs.CSVPath, []byte(csv), 0o644))
	return inputs
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestProcessFiles(t *testing.T) {
	inputs := writeFixtures(t)
	cfg := contract.DefaultConfig()

	summary, err := ProcessFiles(context.Background(), inputs, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, expectedHeader, summary.Header)
	assert.Equal(t, 4, summary.SignalRows)
	assert.Equal(t, 2, summary.FlagRows)
	assert.Zero(t, summary.RunID)
	require.Len(t, summary.Exports, 2)

	imputed := readFile(t, inputs.OutputPrefix+"imputed.csv")
	assert.Equal(t, expectedHeader+",imputed\n"+
		"500.0,\n"+
		"4.0,0\n"+
		"1.0,0\n"+
		",1\n"+
		"500.0,1\n", imputed)

	orig := readFile(t, inputs.OutputPrefix+"orig.csv")
	assert.Equal(t, expectedHeader+",imputed\n"+
		"2.0,0\n"+
		"0.0,0\n"+
		"250.0,1\n"+
		"500.0,1\n", orig)

	assert.Equal(t, schema.ImputedVariant, summary.Exports[0].Variant)
	assert.Equal(t, 5, summary.Exports[0].Rows)
	assert.Equal(t, 2, summary.Exports[0].ImputedRows)
	assert.Equal(t, 1, summary.Exports[0].UnmatchedRows)
	assert.Equal(t, schema.OriginalVariant, summary.Exports[1].Variant)
	assert.Equal(t, 0, summary.Exports[1].UnmatchedRows)
}

func TestProcessFilesParquet(t *testing.T) {
	inputs := writeFixtures(t)
	cfg := contract.DefaultConfig()
	cfg.Format = schema.ParquetFormat

	summary, err := ProcessFiles(context.Background(), inputs, cfg, nil)
	require.NoError(t, err)
	for _, e := range summary.Exports {
		assert.Equal(t, ".parquet", filepath.Ext(e.Path))
		_, err := os.Stat(e.Path)
		assert.NoError(t, err)
	}
}

func TestProcessFilesTracksRun(t *testing.T) {
	inputs := writeFixtures(t)
	cfg := contract.DefaultConfig()

	store := &runstore.MockRunStore{}
	store.On("BeginRun", mock.Anything, mock.MatchedBy(func(p map[string]any) bool {
		return p["meta_path"] == inputs.MetaPath && p["scale"] == 1000.0
	})).Return(int64(7), nil)
	store.On("RecordExport", int64(7), mock.MatchedBy(func(e schema.ExportSummary) bool {
		return e.Rows > 0
	})).Return(nil).Twice()
	store.On("EndRun", int64(7), mock.Anything, 4).Return(nil)

	ctx := WithRunStore(context.Background(), store)
	summary, err := ProcessFiles(ctx, inputs, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.RunID)
	store.AssertExpectations(t)
}

func TestProcessFilesClosesFailedRun(t *testing.T) {
	inputs := writeFixtures(t)
	require.NoError(t, os.WriteFile(inputs.CSVPath, []byte("timestamp,anglez\n2013-11-14T15:00:00+0100,1\n"), 0o644))

	store := &runstore.MockRunStore{}
	store.On("BeginRun", mock.Anything, mock.Anything).Return(int64(9), nil)
	store.On("EndRun", int64(9), mock.Anything, mock.Anything).Return(nil).Once()

	ctx := WithRunStore(context.Background(), store)
	_, err := ProcessFiles(ctx, inputs, contract.DefaultConfig(), nil)
	require.Error(t, err)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "RecordExport", mock.Anything, mock.Anything)
}

func TestProcessFilesLedgerFailureDoesNotFailRun(t *testing.T) {
	inputs := writeFixtures(t)

	store := &runstore.MockRunStore{}
	store.On("BeginRun", mock.Anything, mock.Anything).Return(int64(0), assert.AnError)

	ctx := WithRunStore(context.Background(), store)
	summary, err := ProcessFiles(ctx, inputs, contract.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.RunID)
	store.AssertNotCalled(t, "RecordExport", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessFilesErrors(t *testing.T) {
	t.Run("missing workspace", func(t *testing.T) {
		inputs := writeFixtures(t)
		inputs.MetaPath = filepath.Join(t.TempDir(), "missing.RData")

		_, err := ProcessFiles(context.Background(), inputs, contract.DefaultConfig(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, schema.ErrNotFound))

		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, LoaderStage, se.Stage)
		assert.Equal(t, inputs.MetaPath, se.Input)
	})

	t.Run("missing signal column", func(t *testing.T) {
		inputs := writeFixtures(t)
		require.NoError(t, os.WriteFile(inputs.CSVPath, []byte("timestamp,anglez\n2013-11-14T15:00:00+0100,1\n"), 0o644))

		_, err := ProcessFiles(context.Background(), inputs, contract.DefaultConfig(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, schema.ErrInvalidInput))
	})

	t.Run("indicator row mismatch", func(t *testing.T) {
		inputs := writeFixtures(t)
		rdatatest.MS2Workspace([]float64{0}, []float64{0}).WriteFile(t, inputs.MS2Path)

		_, err := ProcessFiles(context.Background(), inputs, contract.DefaultConfig(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, schema.ErrInvalidInput))
	})

	t.Run("unwritable output", func(t *testing.T) {
		inputs := writeFixtures(t)
		inputs.OutputPrefix = filepath.Join(t.TempDir(), "missing", "p01_")

		_, err := ProcessFiles(context.Background(), inputs, contract.DefaultConfig(), nil)
		require.Error(t, err)
		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, WriterStage, se.Stage)
	})

	t.Run("empty inputs", func(t *testing.T) {
		_, err := ProcessFiles(context.Background(), schema.Inputs{}, contract.DefaultConfig(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, schema.ErrInvalidInput))
	})

	t.Run("cancelled", func(t *testing.T) {
		inputs := writeFixtures(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := ProcessFiles(ctx, inputs, contract.DefaultConfig(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		_, statErr := os.Stat(inputs.OutputPrefix + "imputed.csv")
		assert.True(t, os.IsNotExist(statErr))
	})
}
