package rdata

import (
	"math"
	"slices"
)

// Attr is one attribute of an object, in serialized order.
type Attr struct {
	Name  string
	Value *Object
}

// Object is a decoded R value. Which payload field is populated depends on
// Type: Logicals and Ints for logical and integer vectors, Reals, Complexes,
// Strings (with StringNA), Raw, Elements for lists, pairlists and
// environments (with Tags), and Name for symbols and builtins.
type Object struct {
	Type       Type
	IsObject   bool
	Attributes []Attr

	Name      string
	Logicals  []int32
	Ints      []int32
	Reals     []float64
	Complexes []complex128
	Strings   []string
	StringNA  []bool
	Raw       []byte
	Elements  []*Object
	Tags      []string

	// AltClass is set for objects that arrived as ALTREP, e.g. "compact_intseq".
	AltClass string
}

var nilObject = &Object{Type: NilType}

// Len returns the length R's length() would report.
func (o *Object) Len() int {
	switch o.Type {
	case LogicalType:
		return len(o.Logicals)
	case IntType:
		return len(o.Ints)
	case RealType:
		return len(o.Reals)
	case ComplexType:
		return len(o.Complexes)
	case StringType:
		return len(o.Strings)
	case RawType:
		return len(o.Raw)
	case ListType, ExprType, PairlistType, LangType, EnvType:
		return len(o.Elements)
	case NilType:
		return 0
	default:
		return 1
	}
}

// IsNil reports whether the object is R's NULL.
func (o *Object) IsNil() bool {
	return o == nil || o.Type == NilType
}

// Attr returns the named attribute, or nil.
func (o *Object) Attr(name string) *Object {
	for _, a := range o.Attributes {
		if a.Name == name {
			return a.Value
		}
	}
	return nil
}

// Class returns the class attribute.
func (o *Object) Class() []string {
	if c := o.Attr("class"); c != nil && c.Type == StringType {
		return c.Strings
	}
	return nil
}

// Inherits reports whether class is one of the object's classes.
func (o *Object) Inherits(class string) bool {
	return slices.Contains(o.Class(), class)
}

// Names returns the names attribute, or the tags of a pairlist or environment.
func (o *Object) Names() []string {
	if n := o.Attr("names"); n != nil && n.Type == StringType {
		return n.Strings
	}
	if o.Type == PairlistType || o.Type == EnvType {
		return o.Tags
	}
	return nil
}

// Element returns the element with the given name from a named list, pairlist or environment.
func (o *Object) Element(name string) (*Object, bool) {
	names := o.Names()
	for i, n := range names {
		if n == name && i < len(o.Elements) {
			return o.Elements[i], true
		}
	}
	return nil, false
}

// IsNA reports whether element i of an atomic vector is missing.
func (o *Object) IsNA(i int) bool {
	switch o.Type {
	case LogicalType:
		return o.Logicals[i] == NAInteger
	case IntType:
		return o.Ints[i] == NAInteger
	case RealType:
		return math.IsNaN(o.Reals[i])
	case StringType:
		return o.StringNA != nil && o.StringNA[i]
	}
	return false
}

// DataFrameRows returns the row count of a data.frame from its row.names
// attribute, which R stores either in full or compactly as c(NA, -n).
func (o *Object) DataFrameRows() int {
	rn := o.Attr("row.names")
	if rn == nil {
		if len(o.Elements) > 0 {
			return o.Elements[0].Len()
		}
		return 0
	}
	if rn.Type == IntType && len(rn.Ints) == 2 && rn.Ints[0] == NAInteger {
		n := int(rn.Ints[1])
		if n < 0 {
			n = -n
		}
		return n
	}
	return rn.Len()
}
