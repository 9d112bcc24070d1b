package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/actimerge/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetColorLabel(t *testing.T) {
	tests := []struct {
		name  string
		share float64
		label string
	}{
		{"clean", 1, schema.CleanLabel},
		{"light", 10, schema.LightLabel},
		{"heavy", 30, schema.HeavyLabel},
		{"critical", 90, schema.CriticalLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetColorLabel(tt.share)
			// Should contain the plain label
			assert.Contains(t, result, tt.label)
		})
	}
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestExportPath(t *testing.T) {
	assert.Equal(t, "out/p01_imputed.csv", ExportPath("out/p01_", schema.ImputedVariant, schema.CSVFormat))
	assert.Equal(t, "orig.parquet", ExportPath("", schema.OriginalVariant, schema.ParquetFormat))
}

func TestGetRunDBFilePath(t *testing.T) {
	path := GetRunDBFilePath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, ".actimerge_runs.db")

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, homeDir), "path %s should start with home dir %s", path, homeDir)
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "short.csv", TruncatePath("short.csv", 20))
	assert.Equal(t, "...ort.csv", TruncatePath("a/very/short.csv", 10))
	assert.Equal(t, "abcdef", TruncatePath("abcdef", 3), "too narrow to truncate")
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1), "debug enabled when verbose")

	logger, err = NewLogger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0), "info disabled when quiet")

	assert.NotNil(t, LoggerOrNop(nil))
}
