package contract

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/huangsam/actimerge/schema"
)

// Default values for configuration.
const (
	DefaultScale      = 1000.0
	DefaultSampleRate = "5 seconds"
	DefaultTimezone   = "UTC"
)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a merge run.
// This struct is the "final, validated" config.
type Config struct {
	Inputs schema.Inputs

	TimestampColumn  string
	SignalColumn     string
	IndicatorColumns []string
	Scale            float64
	SampleRate       string
	Location         *time.Location

	Format    schema.ExportFormat
	Summary   schema.SummaryMode
	UseColors bool // Enable colored labels in the summary table
	Width     int  // Terminal width override (0 = auto-detect)
	Verbose   bool

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from positional args, so no tag
	MetaPath     string
	MS2Path      string
	CSVPath      string
	OutputPrefix string

	// --- Fields from rootCmd.PersistentFlags() ---
	TimestampColumn  string  `mapstructure:"timestamp-column"`
	SignalColumn     string  `mapstructure:"signal-column"`
	IndicatorColumns string  `mapstructure:"indicator-columns"`
	Scale            float64 `mapstructure:"scale"`
	SampleRate       string  `mapstructure:"sample-rate"`
	Timezone         string  `mapstructure:"timezone"`
	Format           string  `mapstructure:"format"`
	Summary          string  `mapstructure:"summary"`
	Color            string  `mapstructure:"color"`
	Width            int     `mapstructure:"width"`
	Verbose          bool    `mapstructure:"verbose"`
	RunBackend       string  `mapstructure:"run-backend"`
	RunDBConnect     string  `mapstructure:"run-db-connect"`
}

// DefaultRawInput returns the raw input every flag defaults to.
func DefaultRawInput() *ConfigRawInput {
	return &ConfigRawInput{
		TimestampColumn:  schema.DefaultTimestampColumn,
		SignalColumn:     schema.DefaultSignalColumn,
		IndicatorColumns: strings.Join(schema.DefaultIndicatorColumns, ","),
		Scale:            DefaultScale,
		SampleRate:       DefaultSampleRate,
		Timezone:         DefaultTimezone,
		Format:           string(schema.CSVFormat),
		Summary:          string(schema.TextSummary),
		Color:            "yes",
		RunBackend:       string(schema.NoneBackend),
	}
}

// DefaultConfig returns a validated config built from DefaultRawInput.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := ProcessAndValidate(cfg, DefaultRawInput()); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.IndicatorColumns != nil {
		clone.IndicatorColumns = make([]string, len(c.IndicatorColumns))
		copy(clone.IndicatorColumns, c.IndicatorColumns)
	}
	return &clone
}

// Params returns the settings that shape the output, for recording in the run ledger.
func (c *Config) Params() map[string]any {
	return map[string]any{
		"timestamp_column":  c.TimestampColumn,
		"signal_column":     c.SignalColumn,
		"indicator_columns": c.IndicatorColumns,
		"scale":             c.Scale,
		"sample_rate":       c.SampleRate,
		"timezone":          c.Location.String(),
		"format":            string(c.Format),
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateColumns(cfg, input); err != nil {
		return err
	}
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	cfg.Inputs = schema.Inputs{
		MetaPath:     input.MetaPath,
		MS2Path:      input.MS2Path,
		CSVPath:      input.CSVPath,
		OutputPrefix: input.OutputPrefix,
	}
	return nil
}

// ValidateInputs checks that the three input paths are present. The output
// prefix may be empty, which writes into the working directory.
func ValidateInputs(in schema.Inputs) error {
	for _, p := range []struct{ name, value string }{
		{"meta_path", in.MetaPath},
		{"ms2_path", in.MS2Path},
		{"csv_path", in.CSVPath},
	} {
		if strings.TrimSpace(p.value) == "" {
			return fmt.Errorf("%w: %s must not be empty", schema.ErrInvalidInput, p.name)
		}
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("run-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("run-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateColumns processes the column names used by the merge.
func validateColumns(cfg *Config, input *ConfigRawInput) error {
	cfg.TimestampColumn = strings.TrimSpace(input.TimestampColumn)
	if cfg.TimestampColumn == "" {
		return fmt.Errorf("timestamp-column must not be empty")
	}
	cfg.SignalColumn = strings.TrimSpace(input.SignalColumn)
	if cfg.SignalColumn == "" {
		return fmt.Errorf("signal-column must not be empty")
	}
	if cfg.SignalColumn == cfg.TimestampColumn {
		return fmt.Errorf("signal-column and timestamp-column must differ (both %q)", cfg.SignalColumn)
	}

	cfg.IndicatorColumns = nil
	for p := range strings.SplitSeq(input.IndicatorColumns, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cfg.IndicatorColumns = append(cfg.IndicatorColumns, trimmed)
		}
	}
	if len(cfg.IndicatorColumns) == 0 {
		return fmt.Errorf("indicator-columns must name at least one column")
	}
	return nil
}

// validateSimpleInputs processes and validates the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Width = input.Width
	cfg.Verbose = input.Verbose

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Scale == 0 || math.IsNaN(input.Scale) || math.IsInf(input.Scale, 0) {
		return fmt.Errorf("scale must be a finite non-zero number (received %v)", input.Scale)
	}
	cfg.Scale = input.Scale

	cfg.SampleRate = strings.TrimSpace(input.SampleRate)
	if cfg.SampleRate == "" {
		return fmt.Errorf("sample-rate must not be empty")
	}

	loc, err := ParseLocation(input.Timezone)
	if err != nil {
		return err
	}
	cfg.Location = loc

	cfg.Format = schema.ExportFormat(strings.ToLower(input.Format))
	if _, ok := schema.ValidExportFormats[cfg.Format]; !ok {
		return fmt.Errorf("invalid format '%s'. must be csv, parquet", input.Format)
	}

	cfg.Summary = schema.SummaryMode(strings.ToLower(input.Summary))
	if _, ok := schema.ValidSummaryModes[cfg.Summary]; !ok {
		return fmt.Errorf("invalid summary '%s'. must be text, json, none", input.Summary)
	}
	return nil
}

// validateBackendConfig validates the run ledger backend.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	backend := input.RunBackend
	if backend == "" {
		backend = string(schema.NoneBackend)
	}
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(backend))
	if _, ok := schema.ValidDatabaseBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	return ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect)
}
