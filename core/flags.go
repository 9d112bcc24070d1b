package core

import (
	"fmt"

	"github.com/huangsam/actimerge/schema"
)

// AlignIndicators builds the indicator table keyed by the coarse timestamps.
// Rows are paired by position: row i of indicators belongs to row i of grid.
func AlignIndicators(grid *schema.Table, on string, indicators *schema.Table) (*schema.Table, error) {
	key, ok := grid.Column(on)
	if !ok {
		return nil, grid.Require(on)
	}
	if grid.Len() != indicators.Len() {
		return nil, fmt.Errorf("%w: %s has %d rows but %s has %d",
			schema.ErrInvalidInput, grid.Name, grid.Len(), indicators.Name, indicators.Len())
	}
	cols := []*schema.Column{key}
	for _, col := range indicators.Columns {
		if col.Name != on {
			cols = append(cols, col)
		}
	}
	return schema.NewTable(indicators.Name, cols...)
}

// ReduceFlags collapses the indicator columns into one imputation flag:
// 1 when any indicator is positive, else 0. Missing indicator values count
// as not positive.
func ReduceFlags(t *schema.Table, on string, indicators []string) (*schema.Table, error) {
	key, ok := t.Column(on)
	if !ok {
		return nil, t.Require(on)
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("%w: no indicator columns to reduce", schema.ErrInvalidInput)
	}
	cols := make([]*schema.Column, len(indicators))
	for i, name := range indicators {
		if err := t.RequireNumeric(name); err != nil {
			return nil, err
		}
		cols[i], _ = t.Column(name)
	}

	flags := make([]int64, t.Len())
	for row := range flags {
		for _, col := range cols {
			if v, ok := col.Float(row); ok && v > 0 {
				flags[row] = 1
				break
			}
		}
	}
	return schema.NewTable(t.Name, key, schema.NewIntColumn(schema.FlagColumn, flags, nil))
}
