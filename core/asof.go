package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/schema"
)

// Suffixes appended to non-key columns present on both sides of a merge.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// MergeOptions configures MergeAsOf.
type MergeOptions struct {
	On       string         // key column present in both tables
	Location *time.Location // location for key strings without an offset
}

// DefaultMergeOptions joins on "timestamp" and reads offset-less keys as UTC.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{On: schema.DefaultTimestampColumn, Location: time.UTC}
}

// MergeAsOf performs a backward as-of join: each row of left is matched with
// the row of right holding the greatest key not after its own key. Ties
// among right keys resolve to the last row in stable sort order.
//
// The result has left's rows in ascending key order, all of left's columns
// (the key converted to a time column) and right's non-key columns, which are
// null where nothing matched. Neither input is modified.
func MergeAsOf(left, right *schema.Table, opts MergeOptions) (*schema.Table, error) {
	if opts.On == "" {
		opts.On = schema.DefaultTimestampColumn
	}
	leftTimes, err := keyTimes(left, opts)
	if err != nil {
		return nil, err
	}
	rightTimes, err := keyTimes(right, opts)
	if err != nil {
		return nil, err
	}

	leftOrder := sortedOrder(leftTimes)
	rightOrder := sortedOrder(rightTimes)
	matches := matchBackward(leftTimes, leftOrder, rightTimes, rightOrder)

	leftNames := nonKeyNames(left, opts.On)
	rightNames := nonKeyNames(right, opts.On)

	cols := make([]*schema.Column, 0, len(left.Columns)+len(right.Columns))
	for _, col := range left.Columns {
		if col.Name == opts.On {
			keys := make([]time.Time, len(leftOrder))
			for i, src := range leftOrder {
				keys[i] = leftTimes[src]
			}
			cols = append(cols, schema.NewTimeColumn(opts.On, keys, nil))
			continue
		}
		out := col.Take(leftOrder)
		if _, clash := rightNames[col.Name]; clash {
			out = out.Renamed(col.Name + LeftSuffix)
		}
		cols = append(cols, out)
	}
	for _, col := range right.Columns {
		if col.Name == opts.On {
			continue
		}
		out := col.Take(matches)
		if _, clash := leftNames[col.Name]; clash {
			out = out.Renamed(col.Name + RightSuffix)
		}
		cols = append(cols, out)
	}
	return schema.NewTable(left.Name, cols...)
}

// matchBackward sweeps both sorted orders once and returns, for every
// position of leftOrder, the matched right row or -1.
func matchBackward(leftTimes []time.Time, leftOrder []int, rightTimes []time.Time, rightOrder []int) []int {
	matches := make([]int, len(leftOrder))
	j := -1
	for i, src := range leftOrder {
		t := leftTimes[src]
		for j+1 < len(rightOrder) && !rightTimes[rightOrder[j+1]].After(t) {
			j++
		}
		if j < 0 {
			matches[i] = -1
			continue
		}
		matches[i] = rightOrder[j]
	}
	return matches
}

// sortedOrder returns row indices in ascending time order, keeping the
// original order among equal times.
func sortedOrder(times []time.Time) []int {
	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return times[a].Compare(times[b])
	})
	return order
}

func nonKeyNames(t *schema.Table, on string) map[string]struct{} {
	names := make(map[string]struct{}, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name != on {
			names[col.Name] = struct{}{}
		}
	}
	return names
}

// keyTimes normalizes the key column of t into instants.
func keyTimes(t *schema.Table, opts MergeOptions) ([]time.Time, error) {
	col, ok := t.Column(opts.On)
	if !ok {
		return nil, t.Require(opts.On)
	}
	times := make([]time.Time, col.Len())
	for i := range times {
		if col.IsNull(i) {
			return nil, fmt.Errorf("%w: table %q has a missing %q at row %d", schema.ErrInvalidInput, t.Name, opts.On, i)
		}
		switch col.Kind {
		case schema.TimeKind:
			times[i] = col.Times[i]
		case schema.StringKind:
			ts, err := contract.ParseTimestamp(col.Strings[i], opts.Location)
			if err != nil {
				return nil, fmt.Errorf("table %q column %q row %d: %w", t.Name, opts.On, i, err)
			}
			times[i] = ts
		default:
			return nil, fmt.Errorf("%w: table %q column %q is %s, expected timestamps", schema.ErrInvalidInput, t.Name, opts.On, col.Kind)
		}
	}
	return times, nil
}
