package schema

import "time"

// RunRecord represents a row from the actimerge_runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	SignalRows    int32
	ConfigParams  *string
}

// ExportRecord represents a row from the actimerge_exports table.
type ExportRecord struct {
	RunID          int64
	Variant        string
	OutputPath     string
	RowCount       int32
	ImputedCount   int32
	UnmatchedCount int32
	FirstTimestamp *time.Time
	LastTimestamp  *time.Time
}

// ObjectInfo describes one object found in an R workspace.
type ObjectInfo struct {
	Path    string   `json:"path"` // e.g. "M$metashort"
	Type    string   `json:"type"` // R type name, e.g. "list"
	Class   []string `json:"class,omitempty"`
	Length  int      `json:"length"`
	Rows    int      `json:"rows,omitempty"`
	Columns []string `json:"columns,omitempty"`
}
