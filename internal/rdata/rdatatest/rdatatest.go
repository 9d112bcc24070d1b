// Package rdatatest builds R workspaces in memory for tests. The output is
// the XDR serialization R's save() produces, so fixtures exercise the same
// decoder paths as real files: symbol back-references, ALTREP sequences,
// compact row names and optional compression.
package rdatatest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Serialized type codes.
const (
	nilSxp     = 0
	symSxp     = 1
	listSxp    = 2
	charSxp    = 9
	lglSxp     = 10
	intSxp     = 13
	realSxp    = 14
	strSxp     = 16
	vecSxp     = 19
	altrepSxp  = 238
	nilValue   = 254
	refSxp     = 255
	asciiLevel = 1 << 6
	utf8Level  = 1 << 3
)

// NAInteger is R's integer and logical NA.
const NAInteger = int32(-1 << 31)

// NAReal returns R's NA_real_, a NaN with payload 1954.
func NAReal() float64 {
	return math.Float64frombits(0x7FF00000000007A2)
}

// Value is anything that can be serialized.
type Value interface {
	encode(e *encoder)
}

// Attr is a named attribute.
type Attr struct {
	Name  string
	Value Value
}

// Vector is an atomic vector or a generic list.
type Vector struct {
	typ    int32
	ints   []int32
	reals  []float64
	strs   []string
	na     []bool
	elems  []Value
	attrs  []Attr
	object bool
}

// Real builds a double vector.
func Real(vals ...float64) *Vector { return &Vector{typ: realSxp, reals: vals} }

// Int builds an integer vector.
func Int(vals ...int32) *Vector { return &Vector{typ: intSxp, ints: vals} }

// Logical builds a logical vector: 0, 1 or NAInteger.
func Logical(vals ...int32) *Vector { return &Vector{typ: lglSxp, ints: vals} }

// Str builds a character vector without missing values.
func Str(vals ...string) *Vector { return &Vector{typ: strSxp, strs: vals} }

// StrNA builds a character vector where na marks missing entries.
func StrNA(vals []string, na []bool) *Vector { return &Vector{typ: strSxp, strs: vals, na: na} }

// List builds a generic vector. names may be nil for an unnamed list.
func List(names []string, vals ...Value) *Vector {
	v := &Vector{typ: vecSxp, elems: vals}
	if names != nil {
		v.attrs = append(v.attrs, Attr{Name: "names", Value: Str(names...)})
	}
	return v
}

// With appends an attribute.
func (v *Vector) With(name string, val Value) *Vector {
	v.attrs = append(v.attrs, Attr{Name: name, Value: val})
	return v
}

// Class sets the class attribute and marks the vector as an object.
func (v *Vector) Class(classes ...string) *Vector {
	v.object = true
	return v.With("class", Str(classes...))
}

// Col is one named data.frame column or workspace object.
type Col struct {
	Name  string
	Value Value
}

// DataFrame builds a data.frame with compact row names c(NA, -rows).
func DataFrame(rows int, cols ...Col) *Vector {
	names := make([]string, len(cols))
	vals := make([]Value, len(cols))
	for i, c := range cols {
		names[i], vals[i] = c.Name, c.Value
	}
	return List(names, vals...).
		With("row.names", Int(NAInteger, int32(-rows))).
		Class("data.frame")
}

// POSIXct builds a date-time column from seconds since the epoch.
func POSIXct(secs []float64, tz string) *Vector {
	v := Real(secs...).Class("POSIXct", "POSIXt")
	if tz != "" {
		v.With("tzone", Str(tz))
	}
	return v
}

// Factor builds a factor from 1-based codes.
func Factor(codes []int32, levels ...string) *Vector {
	return Int(codes...).With("levels", Str(levels...)).Class("factor")
}

func (v *Vector) encode(e *encoder) {
	e.flags(v.typ, v.object, len(v.attrs) > 0, false, 0)
	switch v.typ {
	case intSxp, lglSxp:
		e.int(int32(len(v.ints)))
		for _, x := range v.ints {
			e.int(x)
		}
	case realSxp:
		e.int(int32(len(v.reals)))
		for _, x := range v.reals {
			e.double(x)
		}
	case strSxp:
		e.int(int32(len(v.strs)))
		for i, s := range v.strs {
			e.char(s, v.na != nil && v.na[i])
		}
	case vecSxp:
		e.int(int32(len(v.elems)))
		for _, el := range v.elems {
			el.encode(e)
		}
	}
	if len(v.attrs) > 0 {
		e.attrList(v.attrs)
	}
}

type null struct{}

func (null) encode(e *encoder) { e.int(nilValue) }

// Null is R's NULL.
func Null() Value { return null{} }

type altrep struct {
	class string
	typ   int32
	state func(e *encoder)
}

func (a altrep) encode(e *encoder) {
	e.flags(altrepSxp, false, false, false, 0)
	// info: pairlist(class symbol, package symbol, type)
	e.flags(listSxp, false, false, false, 0)
	e.symbol(a.class)
	e.flags(listSxp, false, false, false, 0)
	e.symbol("base")
	e.flags(listSxp, false, false, false, 0)
	Int(a.typ).encode(e)
	e.int(nilValue)
	a.state(e)
	e.int(nilValue) // attributes
}

// IntSeq is the compact ALTREP integer sequence first, first+1, ... of length n.
func IntSeq(first, n int) Value {
	return altrep{class: "compact_intseq", typ: intSxp, state: func(e *encoder) {
		Real(float64(n), float64(first), 1).encode(e)
	}}
}

// WrapReal wraps a double vector in the wrap_real ALTREP class. The state
// is the dotted pair (x . meta) R writes.
func WrapReal(vals ...float64) Value {
	return altrep{class: "wrap_real", typ: realSxp, state: func(e *encoder) {
		e.flags(listSxp, false, false, false, 0)
		Real(vals...).encode(e)
		Int(0, 0).encode(e)
	}}
}

// DeferredInts is an ALTREP deferred_string vector produced by as.character on integers.
func DeferredInts(vals ...int32) Value {
	return altrep{class: "deferred_string", typ: strSxp, state: func(e *encoder) {
		e.flags(listSxp, false, false, false, 0)
		Int(vals...).encode(e)
		Int(1).encode(e)
	}}
}

type encoder struct {
	buf   bytes.Buffer
	syms  map[string]int32
	nrefs int32
}

func (e *encoder) int(v int32) {
	_ = binary.Write(&e.buf, binary.BigEndian, v)
}

func (e *encoder) double(f float64) {
	_ = binary.Write(&e.buf, binary.BigEndian, math.Float64bits(f))
}

func (e *encoder) flags(typ int32, object, attr, tag bool, levels int32) {
	f := typ | levels<<12
	if object {
		f |= 1 << 8
	}
	if attr {
		f |= 1 << 9
	}
	if tag {
		f |= 1 << 10
	}
	e.int(f)
}

// symbol writes a symbol, or a back-reference when it was written before.
func (e *encoder) symbol(name string) {
	if idx, ok := e.syms[name]; ok {
		e.int(idx<<8 | refSxp)
		return
	}
	e.flags(symSxp, false, false, false, 0)
	e.char(name, false)
	e.nrefs++
	e.syms[name] = e.nrefs
}

func (e *encoder) char(s string, na bool) {
	if na {
		e.flags(charSxp, false, false, false, 0)
		e.int(-1)
		return
	}
	level := int32(asciiLevel)
	for _, r := range s {
		if r > 127 {
			level = utf8Level
			break
		}
	}
	e.flags(charSxp, false, false, false, level)
	e.int(int32(len(s)))
	e.buf.WriteString(s)
}

// attrList writes a tagged pairlist terminated by NILVALUE.
func (e *encoder) attrList(attrs []Attr) {
	for _, a := range attrs {
		e.flags(listSxp, false, false, true, 0)
		e.symbol(a.Name)
		a.Value.encode(e)
	}
	e.int(nilValue)
}

// Compression selects how Bytes compresses its output.
type Compression string

// Supported fixture compressions.
const (
	None Compression = ""
	Gzip Compression = "gzip"
	XZ   Compression = "xz"
	Zstd Compression = "zstd"
)

// File is a workspace under construction.
type File struct {
	objects     []Col
	version     int32
	compression Compression
	rds         bool
}

// NewWorkspace starts an .RData workspace in serialization version 3.
func NewWorkspace() *File {
	return &File{version: 3}
}

// NewRDS starts an .rds stream holding a single object.
func NewRDS(v Value) *File {
	return &File{version: 3, rds: true, objects: []Col{{Value: v}}}
}

// Add appends a named top-level object.
func (f *File) Add(name string, v Value) *File {
	f.objects = append(f.objects, Col{Name: name, Value: v})
	return f
}

// Version selects serialization version 2 or 3.
func (f *File) Version(v int) *File {
	f.version = int32(v)
	return f
}

// Compress selects the output compression.
func (f *File) Compress(c Compression) *File {
	f.compression = c
	return f
}

// Bytes serializes the workspace.
func (f *File) Bytes() []byte {
	e := &encoder{syms: map[string]int32{}}
	if !f.rds {
		e.buf.WriteString("RDX" + string(rune('0'+f.version)) + "\n")
	}
	e.buf.WriteString("X\n")
	e.int(f.version)
	e.int(0x040301) // written by R 4.3.1
	if f.version == 3 {
		e.int(0x030500)
		e.int(int32(len("UTF-8")))
		e.buf.WriteString("UTF-8")
	} else {
		e.int(0x020300)
	}

	if f.rds {
		f.objects[0].Value.encode(e)
	} else {
		for _, o := range f.objects {
			e.flags(listSxp, false, false, true, 0)
			e.symbol(o.Name)
			o.Value.encode(e)
		}
		e.int(nilValue)
	}
	return compress(e.buf.Bytes(), f.compression)
}

func compress(raw []byte, c Compression) []byte {
	var out bytes.Buffer
	switch c {
	case Gzip:
		w := gzip.NewWriter(&out)
		_, _ = w.Write(raw)
		_ = w.Close()
	case XZ:
		w, err := xz.NewWriter(&out)
		if err != nil {
			panic(err)
		}
		_, _ = w.Write(raw)
		_ = w.Close()
	case Zstd:
		w, err := zstd.NewWriter(&out)
		if err != nil {
			panic(err)
		}
		_, _ = w.Write(raw)
		_ = w.Close()
	default:
		return raw
	}
	return out.Bytes()
}

// WriteFile serializes the workspace to path.
func (f *File) WriteFile(tb testing.TB, path string) {
	tb.Helper()
	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		tb.Fatalf("writing fixture %s: %v", path, err)
	}
}
