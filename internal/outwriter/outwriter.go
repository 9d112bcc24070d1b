// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/internal/parquet"
	"github.com/huangsam/actimerge/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the export formats and the summary rendering for the core logic.
type OutWriter struct {
	summaryOut io.Writer
}

// NewOutWriter creates a new instance of the output writer. Summaries go to stdout.
func NewOutWriter() *OutWriter {
	return &OutWriter{summaryOut: os.Stdout}
}

// NewOutWriterTo creates an output writer whose summaries go to w.
func NewOutWriterTo(w io.Writer) *OutWriter {
	return &OutWriter{summaryOut: w}
}

// WriteExport writes one export frame to path in the given format.
func (ow *OutWriter) WriteExport(frame *schema.ExportFrame, path string, format schema.ExportFormat) error {
	switch format {
	case schema.ParquetFormat:
		if err := parquet.WriteFile(parquet.ConvertExportFrame(frame), path); err != nil {
			return fmt.Errorf("error writing Parquet export: %w", err)
		}
	case schema.CSVFormat, "":
		if err := writeWithFile(path, func(w io.Writer) error {
			return writeExportCSV(w, frame)
		}, ""); err != nil {
			return fmt.Errorf("error writing CSV export: %w", err)
		}
	default:
		return fmt.Errorf("%w: unsupported export format %q", schema.ErrInvalidInput, format)
	}
	return nil
}

// WriteSummary prints the run summary using the configured summary mode.
func (ow *OutWriter) WriteSummary(summary *schema.RunSummary, cfg *contract.Config) error {
	switch cfg.Summary {
	case schema.NoSummary:
		return nil
	case schema.JSONSummary:
		if err := writeJSON(ow.summaryOut, summary); err != nil {
			return fmt.Errorf("error writing JSON summary: %w", err)
		}
		return nil
	default:
		return writeSummaryTable(ow.summaryOut, summary, cfg)
	}
}

// WriteObjects prints a workspace listing as a table, or as JSON when asJSON is set.
func (ow *OutWriter) WriteObjects(path string, objects []schema.ObjectInfo, asJSON bool) error {
	if asJSON {
		return writeJSON(ow.summaryOut, objects)
	}
	return writeObjectTable(ow.summaryOut, path, objects)
}
