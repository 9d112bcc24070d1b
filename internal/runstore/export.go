package runstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/internal/parquet"
)

// ExportParquet writes the whole ledger to two Parquet files,
// <prefix>.runs.parquet and <prefix>.exports.parquet, and reports to out.
func ExportParquet(store contract.RunStore, prefix string, out io.Writer) error {
	if prefix == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(out, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(out, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(out, "Total export records: %d\n", status.TableSizes[exportsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	exports, err := store.GetAllExports()
	if err != nil {
		return fmt.Errorf("failed to retrieve exports: %w", err)
	}

	runsFile := prefix + ".runs.parquet"
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteFile(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	exportsFile := prefix + ".exports.parquet"
	parquetExports := parquet.ConvertExportRecords(exports)
	if err := parquet.WriteFile(parquetExports, exportsFile); err != nil {
		return fmt.Errorf("failed to write exports: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Exported %d export records to: %s\n", len(parquetExports), exportsFile)
	return nil
}
