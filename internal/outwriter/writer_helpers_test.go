package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	type entry struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name: "simple object",
			data: entry{Name: "test", Value: 42},
			expected: `{
  "name": "test",
  "value": 42
}
`,
		},
		{
			name: "array",
			data: []string{"a", "b", "c"},
			expected: `[
  "a",
  "b",
  "c"
]
`,
		},
		{
			name:     "string",
			data:     "hello",
			expected: `"hello"` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeJSON(&buf, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		expected string
	}{
		{
			name:   "simple csv",
			header: []string{"value", "imputed"},
			rows: [][]string{
				{"2.0", "1"},
				{"", ""},
			},
			expected: "value,imputed\n2.0,1\n,\n",
		},
		{
			name:     "empty rows",
			header:   []string{"col1", "col2"},
			rows:     [][]string{},
			expected: "col1,col2\n",
		},
		{
			name:   "header with commas",
			header: []string{"a, b", "imputed"},
			rows: [][]string{
				{"1.0", "0"},
			},
			expected: "\"a, b\",imputed\n1.0,0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, tt.header, func(w *csv.Writer) error {
				for _, row := range tt.rows {
					if err := w.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteCSVWithHeaderError(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"col"}, func(_ *csv.Writer) error {
		return assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFileActualFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.txt")

	err := writeWithFile(tmpFile, func(w io.Writer) error {
		_, err := w.Write([]byte("test content"))
		return err
	}, "Test message")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "test content", string(content))
}

func TestWriteWithFileError(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.txt")

	err := writeWithFile(tmpFile, func(_ io.Writer) error {
		return assert.AnError
	}, "Test message")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWriteWithFileInvalidPath(t *testing.T) {
	err := writeWithFile("/nonexistent/path/file.txt", func(_ io.Writer) error {
		return nil
	}, "Test message")
	require.Error(t, err)
}

func TestWriteJSONIntegration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.json")

	err := writeWithFile(tmpFile, func(w io.Writer) error {
		return writeJSON(w, map[string]any{"name": "integration test", "count": 123})
	}, "Wrote JSON")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, sonic.Unmarshal(content, &result))
	assert.Equal(t, "integration test", result["name"])
	assert.Equal(t, float64(123), result["count"])
}

func TestWriteCSVIntegration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.csv")

	err := writeWithFile(tmpFile, func(w io.Writer) error {
		return writeCSVWithHeader(w, []string{"name", "score"}, func(cw *csv.Writer) error {
			return cw.WriteAll([][]string{{"Alice", "95"}, {"Bob", "87"}})
		})
	}, "Wrote CSV")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Equal(t, []string{"name,score", "Alice,95", "Bob,87"}, lines)
}
