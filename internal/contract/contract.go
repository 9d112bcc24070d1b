// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/actimerge/schema"
)

// RunStore defines the interface for tracking merge runs and their exports.
// This allows the ledger to be mocked for testing.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// RecordExport stores the outcome of one written export
	RecordExport(runID int64, export schema.ExportSummary) error

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, signalRows int) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllRuns returns every recorded run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllExports returns every recorded export
	GetAllExports() ([]schema.ExportRecord, error)

	// Close closes the underlying connection
	Close() error
}
