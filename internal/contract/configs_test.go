package contract

import (
	"testing"
	"time"

	"github.com/huangsam/actimerge/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		check       func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "timestamp", cfg.TimestampColumn)
				assert.Equal(t, "ENMO", cfg.SignalColumn)
				assert.Equal(t, []string{"r1", "r3"}, cfg.IndicatorColumns)
				assert.Equal(t, 1000.0, cfg.Scale)
				assert.Equal(t, "5 seconds", cfg.SampleRate)
				assert.Equal(t, time.UTC, cfg.Location)
				assert.Equal(t, schema.CSVFormat, cfg.Format)
				assert.Equal(t, schema.TextSummary, cfg.Summary)
				assert.Equal(t, schema.NoneBackend, cfg.RunBackend)
				assert.True(t, cfg.UseColors)
			},
		},
		{
			name: "positional paths are copied",
			mutate: func(in *ConfigRawInput) {
				in.MetaPath, in.MS2Path, in.CSVPath, in.OutputPrefix = "a.RData", "b.RData", "c.csv", "out/"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.Inputs{MetaPath: "a.RData", MS2Path: "b.RData", CSVPath: "c.csv", OutputPrefix: "out/"}, cfg.Inputs)
			},
		},
		{
			name:   "indicator list is trimmed",
			mutate: func(in *ConfigRawInput) { in.IndicatorColumns = " r1, ,r2 ,r5" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"r1", "r2", "r5"}, cfg.IndicatorColumns)
			},
		},
		{
			name:   "format is case insensitive",
			mutate: func(in *ConfigRawInput) { in.Format = "PARQUET" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.ParquetFormat, cfg.Format)
			},
		},
		{
			name:   "empty backend means none",
			mutate: func(in *ConfigRawInput) { in.RunBackend = "" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.NoneBackend, cfg.RunBackend)
			},
		},
		{name: "empty indicators", mutate: func(in *ConfigRawInput) { in.IndicatorColumns = " , " }, expectError: true},
		{name: "empty timestamp column", mutate: func(in *ConfigRawInput) { in.TimestampColumn = "" }, expectError: true},
		{name: "signal equals timestamp", mutate: func(in *ConfigRawInput) { in.SignalColumn = "timestamp" }, expectError: true},
		{name: "zero scale", mutate: func(in *ConfigRawInput) { in.Scale = 0 }, expectError: true},
		{name: "bad timezone", mutate: func(in *ConfigRawInput) { in.Timezone = "Nowhere/Special" }, expectError: true},
		{name: "bad format", mutate: func(in *ConfigRawInput) { in.Format = "xlsx" }, expectError: true},
		{name: "bad summary", mutate: func(in *ConfigRawInput) { in.Summary = "yaml" }, expectError: true},
		{name: "bad color", mutate: func(in *ConfigRawInput) { in.Color = "sometimes" }, expectError: true},
		{name: "bad backend", mutate: func(in *ConfigRawInput) { in.RunBackend = "redis" }, expectError: true},
		{
			name: "mysql without connection string",
			mutate: func(in *ConfigRawInput) {
				in.RunBackend = "mysql"
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := DefaultRawInput()
			if tt.mutate != nil {
				tt.mutate(input)
			}
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidateInputs(t *testing.T) {
	ok := schema.Inputs{MetaPath: "m", MS2Path: "i", CSVPath: "c"}
	assert.NoError(t, ValidateInputs(ok))

	missing := ok
	missing.MS2Path = " "
	err := ValidateInputs(missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
	assert.Contains(t, err.Error(), "ms2_path")
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name        string
		backend     schema.DatabaseBackend
		connStr     string
		expectError bool
	}{
		{"sqlite empty ok", schema.SQLiteBackend, "", false},
		{"none ok", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/runs", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/runs", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 user=u dbname=runs", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost user=u", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigCloneAndParams(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.IndicatorColumns[0] = "r9"
	assert.Equal(t, "r1", cfg.IndicatorColumns[0])

	params := cfg.Params()
	assert.Equal(t, "UTC", params["timezone"])
	assert.Equal(t, "csv", params["format"])
}
