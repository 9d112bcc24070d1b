package schema

import "time"

// Inputs names the files consumed and produced by one run.
type Inputs struct {
	MetaPath     string `json:"meta_path"`     // workspace holding M$metashort and M$metalong
	MS2Path      string `json:"ms2_path"`      // workspace holding IMP$rout
	CSVPath      string `json:"csv_path"`      // pre-imputed signal
	OutputPrefix string `json:"output_prefix"` // prepended to "imputed.csv" and "orig.csv"
}

// ExportFrame is one two-column output table: the scaled signal and its flag.
// Timestamps are carried along for formats that can hold them.
type ExportFrame struct {
	Variant    Variant
	Header     []string    // exactly two entries: value column, flag column
	Timestamps []time.Time // row timestamps in merged order
	Values     []float64   // scaled signal, NaN for missing values
	Flags      []int64     // imputation flag per row
	FlagNulls  []bool      // true where no flag entry precedes the row
}

// Len returns the number of rows.
func (f *ExportFrame) Len() int {
	return len(f.Values)
}

// ExportSummary describes one written export.
type ExportSummary struct {
	Variant        Variant   `json:"variant"`
	Path           string    `json:"path"`
	Rows           int       `json:"rows"`
	ImputedRows    int       `json:"imputed_rows"`
	UnmatchedRows  int       `json:"unmatched_rows"`
	FirstTimestamp time.Time `json:"first_timestamp"`
	LastTimestamp  time.Time `json:"last_timestamp"`
	Label          string    `json:"label"`
}

// ImputedShare returns the percentage of rows flagged as imputed.
func (s ExportSummary) ImputedShare() float64 {
	if s.Rows == 0 {
		return 0
	}
	return 100 * float64(s.ImputedRows) / float64(s.Rows)
}

// RunSummary is the result of one complete run.
type RunSummary struct {
	RunID      int64           `json:"run_id,omitempty"`
	Inputs     Inputs          `json:"inputs"`
	Header     string          `json:"header"`
	SignalRows int             `json:"signal_rows"`
	FlagRows   int             `json:"flag_rows"`
	Exports    []ExportSummary `json:"exports"`
	Duration   time.Duration   `json:"duration_ns"`
}

// Imputation share labels.
const (
	CleanLabel    = "Clean"
	LightLabel    = "Light"
	HeavyLabel    = "Heavy"
	CriticalLabel = "Critical"
)

// GetPlainLabel returns a plain text label for the share (0-100) of imputed rows.
// - Critical (>=50)
// - Heavy (>=20)
// - Light (>=5)
// - Clean (<5)
func GetPlainLabel(share float64) string {
	switch {
	case share >= 50:
		return CriticalLabel
	case share >= 20:
		return HeavyLabel
	case share >= 5:
		return LightLabel
	default:
		return CleanLabel
	}
}
