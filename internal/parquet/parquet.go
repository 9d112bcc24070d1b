// Package parquet provides data structures and functions for exporting merged
// actigraphy frames and run ledger data to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/huangsam/actimerge/schema"
	"github.com/parquet-go/parquet-go"
)

// SignalRow is one row of a merged export.
type SignalRow struct {
	// Timestamp is the merge key of the row (stored as TIMESTAMP with nanosecond precision)
	Timestamp time.Time `parquet:"timestamp,snappy"`

	// AccelerationMg is the scaled signal (nullable when the source value is missing)
	AccelerationMg *float64 `parquet:"acceleration_mg,optional,snappy"`

	// Imputed is the flag of the preceding flag entry (nullable when none precedes the row)
	Imputed *int32 `parquet:"imputed,optional,snappy"`
}

// Run represents a single merge run with metadata.
// This struct maps to the actimerge_runs database table.
type Run struct {
	RunID         int64      `parquet:"run_id,snappy"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int32     `parquet:"run_duration_ms,optional,snappy"`
	SignalRows    int32      `parquet:"signal_rows,snappy"`
	ConfigParams  *string    `parquet:"config_params,optional,snappy"`
}

// Export represents one written export of a run.
// This struct maps to the actimerge_exports database table.
type Export struct {
	RunID          int64      `parquet:"run_id,snappy"`
	Variant        string     `parquet:"variant,snappy"`
	OutputPath     string     `parquet:"output_path,snappy"`
	RowCount       int32      `parquet:"row_count,snappy"`
	ImputedCount   int32      `parquet:"imputed_count,snappy"`
	UnmatchedCount int32      `parquet:"unmatched_count,snappy"`
	FirstTimestamp *time.Time `parquet:"first_timestamp,optional,snappy"`
	LastTimestamp  *time.Time `parquet:"last_timestamp,optional,snappy"`
}

// WriteRows writes rows to w as a Parquet file.
func WriteRows[T any](w io.Writer, rows []T) error {
	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new Parquet file at outputPath.
func WriteFile[T any](rows []T, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { err = errors.Join(err, file.Close()) }()
	return WriteRows(file, rows)
}

// ConvertExportFrame converts a merged export frame to Parquet rows.
// NaN values and unmatched flags become nulls.
func ConvertExportFrame(frame *schema.ExportFrame) []SignalRow {
	rows := make([]SignalRow, frame.Len())
	for i := range rows {
		rows[i].Timestamp = frame.Timestamps[i]
		if v := frame.Values[i]; !math.IsNaN(v) {
			rows[i].AccelerationMg = &v
		}
		if !frame.FlagNulls[i] {
			f := int32(frame.Flags[i])
			rows[i].Imputed = &f
		}
	}
	return rows
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			SignalRows:    record.SignalRows,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertExportRecords converts schema.ExportRecord to Export for Parquet export.
func ConvertExportRecords(records []schema.ExportRecord) []Export {
	result := make([]Export, len(records))
	for i, record := range records {
		result[i] = Export{
			RunID:          record.RunID,
			Variant:        record.Variant,
			OutputPath:     record.OutputPath,
			RowCount:       record.RowCount,
			ImputedCount:   record.ImputedCount,
			UnmatchedCount: record.UnmatchedCount,
			FirstTimestamp: record.FirstTimestamp,
			LastTimestamp:  record.LastTimestamp,
		}
	}
	return result
}
