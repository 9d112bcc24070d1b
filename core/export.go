package core

import (
	"fmt"
	"math"
	"time"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/schema"
)

// ExportOptions controls how a merged table becomes an export frame.
type ExportOptions struct {
	On           string
	SignalColumn string
	Scale        float64
}

// SignalSpan returns the first and last timestamps of the signal table in
// source order, which is not necessarily chronological.
func SignalSpan(signal *schema.Table, on string, loc *time.Location) (first, last time.Time, err error) {
	if signal.Len() == 0 {
		return first, last, fmt.Errorf("%w: %s has no rows", schema.ErrEmptyInput, signal.Name)
	}
	key, ok := signal.Column(on)
	if !ok {
		return first, last, signal.Require(on)
	}
	if first, err = timeAt(key, 0, loc); err != nil {
		return first, last, fmt.Errorf("%s: %w", signal.Name, err)
	}
	if last, err = timeAt(key, signal.Len()-1, loc); err != nil {
		return first, last, fmt.Errorf("%s: %w", signal.Name, err)
	}
	return first, last, nil
}

func timeAt(col *schema.Column, i int, loc *time.Location) (time.Time, error) {
	if col.IsNull(i) {
		return time.Time{}, fmt.Errorf("%w: missing %q at row %d", schema.ErrInvalidInput, col.Name, i)
	}
	switch col.Kind {
	case schema.TimeKind:
		return col.Times[i], nil
	case schema.StringKind:
		return contract.ParseTimestamp(col.Strings[i], loc)
	}
	return time.Time{}, fmt.Errorf("%w: column %q is %s, expected timestamps", schema.ErrInvalidInput, col.Name, col.Kind)
}

// FormatHeader renders the value column header, e.g.
// "acceleration (mg) - 2013-11-14 15:00:00 - 2013-11-21 14:59:55 - sampleRate = 5 seconds".
func FormatHeader(first, last time.Time, sampleRate string) string {
	return fmt.Sprintf("%s - %s - %s - sampleRate = %s",
		schema.ValueColumnPrefix, contract.FormatWallClock(first), contract.FormatWallClock(last), sampleRate)
}

// BuildExport turns a merged table into a two-column export frame holding
// the scaled signal and the imputation flag.
func BuildExport(variant schema.Variant, merged *schema.Table, header string, opts ExportOptions) (*schema.ExportFrame, error) {
	key, err := columnOrSuffixed(merged, opts.On, "")
	if err != nil {
		return nil, err
	}
	if key.Kind != schema.TimeKind {
		return nil, fmt.Errorf("%w: merged key %q is %s, expected time", schema.ErrInvalidInput, key.Name, key.Kind)
	}
	signal, err := columnOrSuffixed(merged, opts.SignalColumn, LeftSuffix)
	if err != nil {
		return nil, err
	}
	if !signal.Numeric() {
		return nil, fmt.Errorf("%w: signal column %q is %s, expected numeric", schema.ErrInvalidInput, signal.Name, signal.Kind)
	}
	flag, err := columnOrSuffixed(merged, schema.FlagColumn, RightSuffix)
	if err != nil {
		return nil, err
	}

	n := merged.Len()
	frame := &schema.ExportFrame{
		Variant:    variant,
		Header:     []string{header, schema.FlagColumn},
		Timestamps: make([]time.Time, n),
		Values:     make([]float64, n),
		Flags:      make([]int64, n),
		FlagNulls:  make([]bool, n),
	}
	copy(frame.Timestamps, key.Times)
	for i := range n {
		if v, ok := signal.Float(i); ok {
			frame.Values[i] = v * opts.Scale
		} else {
			frame.Values[i] = math.NaN()
		}
		if f, ok := flag.Float(i); ok {
			frame.Flags[i] = int64(f)
		} else {
			frame.FlagNulls[i] = true
		}
	}
	return frame, nil
}

// columnOrSuffixed finds name, or name+suffix when a merge renamed it.
func columnOrSuffixed(t *schema.Table, name, suffix string) (*schema.Column, error) {
	if col, ok := t.Column(name); ok {
		return col, nil
	}
	if suffix != "" {
		if col, ok := t.Column(name + suffix); ok {
			return col, nil
		}
	}
	return nil, t.Require(name)
}

// Summarize counts the rows of a frame by flag state.
func Summarize(frame *schema.ExportFrame, path string) schema.ExportSummary {
	s := schema.ExportSummary{
		Variant: frame.Variant,
		Path:    path,
		Rows:    frame.Len(),
	}
	for i := range frame.Len() {
		switch {
		case frame.FlagNulls[i]:
			s.UnmatchedRows++
		case frame.Flags[i] != 0:
			s.ImputedRows++
		}
	}
	if n := len(frame.Timestamps); n > 0 {
		s.FirstTimestamp = frame.Timestamps[0]
		s.LastTimestamp = frame.Timestamps[n-1]
	}
	s.Label = schema.GetPlainLabel(s.ImputedShare())
	return s
}
