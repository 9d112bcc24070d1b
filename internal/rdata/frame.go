package rdata

import (
	"fmt"
	"math"
	"time"

	"github.com/huangsam/actimerge/schema"
)

const secondsPerDay = 24 * 60 * 60

// ToTable converts a data.frame, or any named list of equal-length atomic
// vectors, into a table. POSIXct columns become time columns in their tzone
// attribute (loc when absent), Date columns become midnight in loc, factors
// become strings, and integer and logical columns keep NA as null.
func ToTable(name string, o *Object, loc *time.Location) (*schema.Table, error) {
	if loc == nil {
		loc = time.UTC
	}
	if o.Type != ListType {
		return nil, fmt.Errorf("%w: %s is %s, expected a data.frame", schema.ErrInvalidInput, name, o.Type)
	}
	names := o.Names()
	if len(names) != len(o.Elements) {
		return nil, fmt.Errorf("%w: %s has %d columns but %d names", schema.ErrInvalidInput, name, len(o.Elements), len(names))
	}

	cols := make([]*schema.Column, 0, len(o.Elements))
	for i, el := range o.Elements {
		col, err := toColumn(names[i], el, loc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cols = append(cols, col)
	}
	return schema.NewTable(name, cols...)
}

func toColumn(name string, o *Object, loc *time.Location) (*schema.Column, error) {
	switch {
	case o.Inherits("POSIXct"):
		return posixctColumn(name, o, loc)
	case o.Inherits("Date"):
		return dateColumn(name, o, loc)
	case o.Inherits("factor"):
		return factorColumn(name, o)
	}

	switch o.Type {
	case RealType:
		vals := make([]float64, len(o.Reals))
		copy(vals, o.Reals)
		return schema.NewFloatColumn(name, vals), nil
	case IntType, LogicalType:
		src := o.Ints
		if o.Type == LogicalType {
			src = o.Logicals
		}
		vals := make([]int64, len(src))
		var nulls []bool
		for i, v := range src {
			if v == NAInteger {
				if nulls == nil {
					nulls = make([]bool, len(src))
				}
				nulls[i] = true
				continue
			}
			vals[i] = int64(v)
		}
		return schema.NewIntColumn(name, vals, nulls), nil
	case StringType:
		vals := make([]string, len(o.Strings))
		copy(vals, o.Strings)
		var nulls []bool
		if o.StringNA != nil {
			nulls = make([]bool, len(o.StringNA))
			copy(nulls, o.StringNA)
		}
		return schema.NewStringColumn(name, vals, nulls), nil
	}
	return nil, fmt.Errorf("%w: column %q has unsupported type %s", schema.ErrInvalidInput, name, o.Type)
}

func numericValues(name string, o *Object) ([]float64, error) {
	switch o.Type {
	case RealType:
		return o.Reals, nil
	case IntType:
		vals := make([]float64, len(o.Ints))
		for i, v := range o.Ints {
			if v == NAInteger {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = float64(v)
		}
		return vals, nil
	}
	return nil, fmt.Errorf("%w: column %q of class %v is %s, expected numeric", schema.ErrInvalidInput, name, o.Class(), o.Type)
}

func posixctColumn(name string, o *Object, loc *time.Location) (*schema.Column, error) {
	secs, err := numericValues(name, o)
	if err != nil {
		return nil, err
	}
	if tz := o.Attr("tzone"); tz != nil && tz.Type == StringType && len(tz.Strings) > 0 && tz.Strings[0] != "" {
		l, err := time.LoadLocation(tz.Strings[0])
		if err != nil {
			return nil, fmt.Errorf("%w: column %q has unknown tzone %q", schema.ErrInvalidInput, name, tz.Strings[0])
		}
		loc = l
	}
	times := make([]time.Time, len(secs))
	var nulls []bool
	for i, s := range secs {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			if nulls == nil {
				nulls = make([]bool, len(secs))
			}
			nulls[i] = true
			continue
		}
		whole, frac := math.Modf(s)
		times[i] = time.Unix(int64(whole), int64(math.Round(frac*1e9))).In(loc)
	}
	return schema.NewTimeColumn(name, times, nulls), nil
}

func dateColumn(name string, o *Object, loc *time.Location) (*schema.Column, error) {
	days, err := numericValues(name, o)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(days))
	var nulls []bool
	for i, d := range days {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			if nulls == nil {
				nulls = make([]bool, len(days))
			}
			nulls[i] = true
			continue
		}
		utc := time.Unix(int64(math.Floor(d))*secondsPerDay, 0).UTC()
		times[i] = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, loc)
	}
	return schema.NewTimeColumn(name, times, nulls), nil
}

func factorColumn(name string, o *Object) (*schema.Column, error) {
	if o.Type != IntType {
		return nil, fmt.Errorf("%w: factor column %q is %s, expected integer codes", schema.ErrInvalidInput, name, o.Type)
	}
	levels := o.Attr("levels")
	if levels == nil || levels.Type != StringType {
		return nil, fmt.Errorf("%w: factor column %q has no levels", schema.ErrInvalidInput, name)
	}
	vals := make([]string, len(o.Ints))
	var nulls []bool
	for i, code := range o.Ints {
		if code == NAInteger {
			if nulls == nil {
				nulls = make([]bool, len(o.Ints))
			}
			nulls[i] = true
			continue
		}
		if code < 1 || int(code) > len(levels.Strings) {
			return nil, fmt.Errorf("%w: factor column %q has code %d outside %d levels", schema.ErrInvalidInput, name, code, len(levels.Strings))
		}
		vals[i] = levels.Strings[code-1]
	}
	return schema.NewStringColumn(name, vals, nulls), nil
}
