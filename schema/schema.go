// Package schema has the tables, records and constants shared by all parts of actimerge.
package schema

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ColumnKind is the storage type of a Column.
type ColumnKind int

// All column kinds supported.
const (
	FloatKind ColumnKind = iota
	IntKind
	StringKind
	TimeKind
)

// String returns the lowercase name of the kind.
func (k ColumnKind) String() string {
	switch k {
	case FloatKind:
		return "float"
	case IntKind:
		return "int"
	case StringKind:
		return "string"
	case TimeKind:
		return "time"
	default:
		return "unknown"
	}
}

// Column is a named, typed and optionally nullable vector of values.
// Exactly one of the value slices is populated, the one matching Kind.
// Nulls is nil when the column has no null entries. For float columns a NaN
// is also treated as null.
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Ints    []int64
	Strings []string
	Times   []time.Time
	Nulls   []bool
}

// NewFloatColumn creates a float column. NaN values are nulls.
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: FloatKind, Floats: values}
}

// NewIntColumn creates an int column with an optional null mask.
func NewIntColumn(name string, values []int64, nulls []bool) *Column {
	return &Column{Name: name, Kind: IntKind, Ints: values, Nulls: nulls}
}

// NewStringColumn creates a string column with an optional null mask.
func NewStringColumn(name string, values []string, nulls []bool) *Column {
	return &Column{Name: name, Kind: StringKind, Strings: values, Nulls: nulls}
}

// NewTimeColumn creates a time column with an optional null mask.
func NewTimeColumn(name string, values []time.Time, nulls []bool) *Column {
	return &Column{Name: name, Kind: TimeKind, Times: values, Nulls: nulls}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case FloatKind:
		return len(c.Floats)
	case IntKind:
		return len(c.Ints)
	case StringKind:
		return len(c.Strings)
	case TimeKind:
		return len(c.Times)
	default:
		return 0
	}
}

// IsNull reports whether row i holds no value.
func (c *Column) IsNull(i int) bool {
	if c.Nulls != nil && c.Nulls[i] {
		return true
	}
	return c.Kind == FloatKind && math.IsNaN(c.Floats[i])
}

// HasNulls reports whether any row is null.
func (c *Column) HasNulls() bool {
	for i := range c.Len() {
		if c.IsNull(i) {
			return true
		}
	}
	return false
}

// Numeric reports whether the column holds numbers.
func (c *Column) Numeric() bool {
	return c.Kind == FloatKind || c.Kind == IntKind
}

// Float returns row i as a float64. ok is false for nulls and non-numeric columns.
func (c *Column) Float(i int) (v float64, ok bool) {
	if c.IsNull(i) {
		return 0, false
	}
	switch c.Kind {
	case FloatKind:
		return c.Floats[i], true
	case IntKind:
		return float64(c.Ints[i]), true
	default:
		return 0, false
	}
}

// Format renders row i as text. Nulls render as an empty string.
func (c *Column) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.Kind {
	case FloatKind:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case IntKind:
		return strconv.FormatInt(c.Ints[i], 10)
	case StringKind:
		return c.Strings[i]
	case TimeKind:
		return c.Times[i].Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Take builds a new column from the given row indices. An index of -1
// produces a null row. The receiver is not modified.
func (c *Column) Take(indices []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	var nulls []bool
	markNull := func(row int) {
		if nulls == nil {
			nulls = make([]bool, len(indices))
		}
		nulls[row] = true
	}

	switch c.Kind {
	case FloatKind:
		out.Floats = make([]float64, len(indices))
	case IntKind:
		out.Ints = make([]int64, len(indices))
	case StringKind:
		out.Strings = make([]string, len(indices))
	case TimeKind:
		out.Times = make([]time.Time, len(indices))
	}

	for row, src := range indices {
		if src < 0 {
			if c.Kind == FloatKind {
				out.Floats[row] = math.NaN()
			}
			markNull(row)
			continue
		}
		switch c.Kind {
		case FloatKind:
			out.Floats[row] = c.Floats[src]
		case IntKind:
			out.Ints[row] = c.Ints[src]
		case StringKind:
			out.Strings[row] = c.Strings[src]
		case TimeKind:
			out.Times[row] = c.Times[src]
		}
		if c.Nulls != nil && c.Nulls[src] {
			markNull(row)
		}
	}
	out.Nulls = nulls
	return out
}

// Renamed returns a shallow copy of the column under a new name.
func (c *Column) Renamed(name string) *Column {
	clone := *c
	clone.Name = name
	return &clone
}

// Table is an ordered set of equal-length columns with unique names.
type Table struct {
	Name    string
	Columns []*Column
}

// NewTable creates a table and checks that columns are equally long and uniquely named.
func NewTable(name string, columns ...*Column) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		if _, dup := seen[col.Name]; dup {
			return nil, fmt.Errorf("%w: table %q has duplicate column %q", ErrInvalidInput, name, col.Name)
		}
		seen[col.Name] = struct{}{}
		if i > 0 && col.Len() != columns[0].Len() {
			return nil, fmt.Errorf("%w: table %q column %q has %d rows, expected %d",
				ErrInvalidInput, name, col.Name, col.Len(), columns[0].Len())
		}
	}
	return &Table{Name: name, Columns: columns}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Require fails with ErrInvalidInput when any of the named columns is missing.
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if _, ok := t.Column(name); !ok {
			return fmt.Errorf("%w: table %q has no column %q (have %v)", ErrInvalidInput, t.Name, name, t.ColumnNames())
		}
	}
	return nil
}

// RequireNumeric fails with ErrInvalidInput when the named column is missing or not numeric.
func (t *Table) RequireNumeric(name string) error {
	col, ok := t.Column(name)
	if !ok {
		return t.Require(name)
	}
	if !col.Numeric() {
		return fmt.Errorf("%w: column %q of table %q is %s, expected numeric", ErrInvalidInput, name, t.Name, col.Kind)
	}
	return nil
}

// Take builds a new table from the given row indices (see Column.Take).
func (t *Table) Take(indices []int) *Table {
	cols := make([]*Column, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = col.Take(indices)
	}
	return &Table{Name: t.Name, Columns: cols}
}
