package rdata

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/huangsam/actimerge/schema"
)

// maxDepth bounds the recursion of nested values.
const maxDepth = 10_000

// maxPrealloc caps slice preallocation driven by lengths read from the stream.
const maxPrealloc = 1 << 20

// maxCompactSeq caps the length of an expanded ALTREP compact sequence,
// whose state is only three doubles however long the sequence claims to be.
const maxCompactSeq = 1 << 25

// decoder reads one serialized object in XDR format.
type decoder struct {
	r       *bufio.Reader
	refs    []*Object
	version int32
	depth   int
}

// header holds the serialization header following the format marker.
type header struct {
	Version        int32
	WriterVersion  int32
	MinReader      int32
	NativeEncoding string
}

func newDecoder(r *bufio.Reader) *decoder {
	return &decoder{r: r}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: malformed R data: %s", schema.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// streamError turns a failed read into ErrInvalidInput.
func streamError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated R data", schema.ErrInvalidInput)
	}
	return fmt.Errorf("%w: reading R data: %v", schema.ErrInvalidInput, err)
}

func (d *decoder) readInt() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, streamError(err)
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func (d *decoder) readDouble() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, streamError(err)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, malformed("negative byte count %d", n)
	}
	buf := make([]byte, 0, min(n, maxPrealloc))
	chunk := make([]byte, min(n, 64*1024))
	for len(buf) < n {
		want := min(n-len(buf), len(chunk))
		if _, err := io.ReadFull(d.r, chunk[:want]); err != nil {
			return nil, streamError(err)
		}
		buf = append(buf, chunk[:want]...)
	}
	return buf, nil
}

// readLength reads a vector length, including the long form (-1, upper, lower).
func (d *decoder) readLength() (int, error) {
	n, err := d.readInt()
	if err != nil {
		return 0, err
	}
	if n >= 0 {
		return int(n), nil
	}
	if n != -1 {
		return 0, malformed("negative length %d", n)
	}
	upper, err := d.readInt()
	if err != nil {
		return 0, err
	}
	lower, err := d.readInt()
	if err != nil {
		return 0, err
	}
	long := int64(uint32(upper))<<32 | int64(uint32(lower))
	if long > math.MaxInt32*64 {
		return 0, malformed("vector length %d is too large", long)
	}
	return int(long), nil
}

// readHeader reads the format marker and version block.
func (d *decoder) readHeader() (header, error) {
	var h header
	format, err := d.readBytes(2)
	if err != nil {
		return h, err
	}
	switch string(format) {
	case "X\n":
	case "A\n", "B\n":
		return h, fmt.Errorf("%w: only XDR serialization is supported, found %q format", schema.ErrInvalidInput, format[:1])
	default:
		return h, malformed("unknown serialization format %q", format)
	}
	if h.Version, err = d.readInt(); err != nil {
		return h, err
	}
	if h.Version != 2 && h.Version != 3 {
		return h, fmt.Errorf("%w: unsupported serialization version %d", schema.ErrInvalidInput, h.Version)
	}
	if h.WriterVersion, err = d.readInt(); err != nil {
		return h, err
	}
	if h.MinReader, err = d.readInt(); err != nil {
		return h, err
	}
	if h.Version == 3 {
		n, err := d.readInt()
		if err != nil {
			return h, err
		}
		enc, err := d.readBytes(int(n))
		if err != nil {
			return h, err
		}
		h.NativeEncoding = string(enc)
	}
	d.version = h.Version
	return h, nil
}

func (d *decoder) addRef(o *Object) {
	d.refs = append(d.refs, o)
}

// readItem reads one complete item.
func (d *decoder) readItem() (*Object, error) {
	flags, err := d.readInt()
	if err != nil {
		return nil, err
	}
	return d.readItemWithFlags(flags)
}

func (d *decoder) readItemWithFlags(flags int32) (*Object, error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > maxDepth {
		return nil, malformed("nesting deeper than %d", maxDepth)
	}

	typ := Type(flags & typeMask)
	levels := flags >> levelsShift
	isObj := flags&isObjectBit != 0
	hasAttr := flags&hasAttrBit != 0

	switch typ {
	case nilValueType:
		return nilObject, nil
	case emptyEnvType, baseEnvType, globalEnvType, unboundValueType, missingArgType, baseNamespaceType:
		return &Object{Type: EnvType, Name: specialEnvName(typ)}, nil
	case refType:
		idx := int(flags >> 8)
		if idx == 0 {
			n, err := d.readInt()
			if err != nil {
				return nil, err
			}
			idx = int(n)
		}
		if idx < 1 || idx > len(d.refs) {
			return nil, malformed("reference %d out of range (%d known)", idx, len(d.refs))
		}
		return d.refs[idx-1], nil
	case persistType:
		names, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		o := &Object{Type: StringType, Strings: names, AltClass: "persist"}
		d.addRef(o)
		return o, nil
	case SymbolType:
		pname, err := d.readItem()
		if err != nil {
			return nil, err
		}
		if pname.Type != CharType {
			return nil, malformed("symbol name is %s, expected char", pname.Type)
		}
		o := &Object{Type: SymbolType, Name: pname.Name}
		d.addRef(o)
		return o, nil
	case packageType, namespaceType:
		spec, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		o := &Object{Type: EnvType, Strings: spec}
		if len(spec) > 0 {
			o.Name = spec[0]
		}
		d.addRef(o)
		return o, nil
	case EnvType:
		return d.readEnvironment()
	case altrepType:
		return d.readAltrep(isObj)
	case bcRepDefType, bcRepRefType, BytecodeType, classRefType, genericRefType:
		return nil, fmt.Errorf("%w: unsupported serialized type %d", schema.ErrInvalidInput, typ)
	}

	if typ.isPairlistLike() {
		return d.readPairlist(flags)
	}

	o := &Object{Type: typ, IsObject: isObj}
	if err := d.readVectorBody(o, levels); err != nil {
		return nil, err
	}
	if typ != CharType && hasAttr {
		attrs, err := d.readAttributes()
		if err != nil {
			return nil, err
		}
		o.Attributes = attrs
	}
	return o, nil
}

// readVectorBody reads the payload of every type that carries trailing attributes.
func (d *decoder) readVectorBody(o *Object, levels int32) error {
	switch o.Type {
	case NilType:
	case CharType:
		n, err := d.readInt()
		if err != nil {
			return err
		}
		if n == -1 {
			o.StringNA = []bool{true}
			return nil
		}
		raw, err := d.readBytes(int(n))
		if err != nil {
			return err
		}
		o.Name = decodeChars(raw, levels)
	case LogicalType, IntType:
		n, err := d.readLength()
		if err != nil {
			return err
		}
		vals := make([]int32, 0, min(n, maxPrealloc))
		for range n {
			v, err := d.readInt()
			if err != nil {
				return err
			}
			vals = append(vals, v)
		}
		if o.Type == LogicalType {
			o.Logicals = vals
		} else {
			o.Ints = vals
		}
	case RealType:
		n, err := d.readLength()
		if err != nil {
			return err
		}
		o.Reals = make([]float64, 0, min(n, maxPrealloc))
		for range n {
			v, err := d.readDouble()
			if err != nil {
				return err
			}
			o.Reals = append(o.Reals, v)
		}
	case ComplexType:
		n, err := d.readLength()
		if err != nil {
			return err
		}
		o.Complexes = make([]complex128, 0, min(n, maxPrealloc))
		for range n {
			re, err := d.readDouble()
			if err != nil {
				return err
			}
			im, err := d.readDouble()
			if err != nil {
				return err
			}
			o.Complexes = append(o.Complexes, complex(re, im))
		}
	case StringType:
		n, err := d.readLength()
		if err != nil {
			return err
		}
		o.Strings = make([]string, 0, min(n, maxPrealloc))
		for i := range n {
			ch, err := d.readItem()
			if err != nil {
				return err
			}
			if ch.Type != CharType {
				return malformed("string element %d is %s, expected char", i, ch.Type)
			}
			o.Strings = append(o.Strings, ch.Name)
			if len(ch.StringNA) > 0 {
				if o.StringNA == nil {
					o.StringNA = make([]bool, n)
				}
				o.StringNA[i] = true
			}
		}
	case ListType, ExprType:
		n, err := d.readLength()
		if err != nil {
			return err
		}
		o.Elements = make([]*Object, 0, min(n, maxPrealloc))
		for range n {
			el, err := d.readItem()
			if err != nil {
				return err
			}
			o.Elements = append(o.Elements, el)
		}
	case RawType:
		n, err := d.readLength()
		if err != nil {
			return err
		}
		raw, err := d.readBytes(n)
		if err != nil {
			return err
		}
		o.Raw = raw
	case SpecialType, BuiltinType:
		n, err := d.readInt()
		if err != nil {
			return err
		}
		name, err := d.readBytes(int(n))
		if err != nil {
			return err
		}
		o.Name = string(name)
	case ExtPtrType:
		d.addRef(o)
		prot, err := d.readItem()
		if err != nil {
			return err
		}
		tag, err := d.readItem()
		if err != nil {
			return err
		}
		o.Elements = []*Object{prot, tag}
	case WeakRefType:
		d.addRef(o)
	case S4Type:
	default:
		return fmt.Errorf("%w: unsupported serialized type %d", schema.ErrInvalidInput, o.Type)
	}
	return nil
}

// readPairlist reads a chain of cons cells iteratively and flattens it.
// Attributes of the first cell belong to the object.
func (d *decoder) readPairlist(flags int32) (*Object, error) {
	o := &Object{Type: Type(flags & typeMask), IsObject: flags&isObjectBit != 0}
	switch o.Type {
	case attrListType:
		o.Type = PairlistType
	case attrLangType:
		o.Type = LangType
	}
	first := true
	for {
		if flags&hasAttrBit != 0 {
			attrs, err := d.readAttributes()
			if err != nil {
				return nil, err
			}
			if first {
				o.Attributes = attrs
			}
		}
		tag := ""
		if flags&hasTagBit != 0 {
			t, err := d.readItem()
			if err != nil {
				return nil, err
			}
			tag = tagName(t)
		}
		car, err := d.readItem()
		if err != nil {
			return nil, err
		}
		o.Elements = append(o.Elements, car)
		o.Tags = append(o.Tags, tag)
		first = false

		if flags, err = d.readInt(); err != nil {
			return nil, err
		}
		next := Type(flags & typeMask)
		if next == nilValueType {
			return o, nil
		}
		if !next.isPairlistLike() {
			// Dotted pair: keep the tail as the last element.
			tail, err := d.readItemWithFlags(flags)
			if err != nil {
				return nil, err
			}
			o.Elements = append(o.Elements, tail)
			o.Tags = append(o.Tags, "")
			return o, nil
		}
	}
}

// readAttributes reads an attribute pairlist.
func (d *decoder) readAttributes() ([]Attr, error) {
	pl, err := d.readItem()
	if err != nil {
		return nil, err
	}
	if pl.IsNil() {
		return nil, nil
	}
	if pl.Type != PairlistType {
		return nil, malformed("attributes are %s, expected pairlist", pl.Type)
	}
	attrs := make([]Attr, len(pl.Elements))
	for i, el := range pl.Elements {
		attrs[i] = Attr{Name: pl.Tags[i], Value: el}
	}
	return attrs, nil
}

// readEnvironment reads an environment: locked flag, enclosure, frame,
// hash table and attributes. Bindings from the frame and hash table are
// flattened into Elements and Tags.
func (d *decoder) readEnvironment() (*Object, error) {
	o := &Object{Type: EnvType}
	d.addRef(o)
	if _, err := d.readInt(); err != nil {
		return nil, err
	}
	if _, err := d.readItem(); err != nil { // enclosure
		return nil, err
	}
	frame, err := d.readItem()
	if err != nil {
		return nil, err
	}
	o.addBindings(frame)
	hashtab, err := d.readItem()
	if err != nil {
		return nil, err
	}
	if hashtab.Type == ListType {
		for _, bucket := range hashtab.Elements {
			o.addBindings(bucket)
		}
	}
	attrs, err := d.readAttributes()
	if err != nil {
		return nil, err
	}
	o.Attributes = attrs
	return o, nil
}

func (o *Object) addBindings(pl *Object) {
	if pl.IsNil() || pl.Type != PairlistType {
		return
	}
	o.Elements = append(o.Elements, pl.Elements...)
	o.Tags = append(o.Tags, pl.Tags...)
}

// readStringVec reads the string vector used by persistent, package and namespace references.
func (d *decoder) readStringVec() ([]string, error) {
	zero, err := d.readInt()
	if err != nil {
		return nil, err
	}
	if zero != 0 {
		return nil, malformed("names in persistent strings are not supported")
	}
	n, err := d.readInt()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, min(int(max(n, 0)), maxPrealloc))
	for range n {
		ch, err := d.readItem()
		if err != nil {
			return nil, err
		}
		out = append(out, ch.Name)
	}
	return out, nil
}

// readAltrep expands an ALTREP object into its ordinary representation.
func (d *decoder) readAltrep(isObj bool) (*Object, error) {
	info, err := d.readItem()
	if err != nil {
		return nil, err
	}
	state, err := d.readItem()
	if err != nil {
		return nil, err
	}
	attr, err := d.readItem()
	if err != nil {
		return nil, err
	}
	if len(info.Elements) == 0 || info.Elements[0].Type != SymbolType {
		return nil, malformed("ALTREP info is not a class pairlist")
	}
	class := info.Elements[0].Name

	o, err := expandAltrep(class, state)
	if err != nil {
		return nil, err
	}
	o.AltClass = class
	o.IsObject = o.IsObject || isObj
	if !attr.IsNil() && attr.Type == PairlistType {
		o.Attributes = make([]Attr, len(attr.Elements))
		for i, el := range attr.Elements {
			o.Attributes[i] = Attr{Name: attr.Tags[i], Value: el}
		}
	}
	return o, nil
}

func expandAltrep(class string, state *Object) (*Object, error) {
	switch class {
	case "compact_intseq", "compact_realseq":
		if state.Type != RealType || len(state.Reals) != 3 {
			return nil, malformed("%s state must be a length 3 double vector", class)
		}
		length, first, step := state.Reals[0], state.Reals[1], state.Reals[2]
		if math.IsNaN(length) || length < 0 || length > maxCompactSeq {
			return nil, malformed("%s length %v out of range", class, length)
		}
		n := int(length)
		if class == "compact_intseq" {
			vals := make([]int32, n)
			for i := range vals {
				vals[i] = int32(first + float64(i)*step)
			}
			return &Object{Type: IntType, Ints: vals}, nil
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = first + float64(i)*step
		}
		return &Object{Type: RealType, Reals: vals}, nil

	case "wrap_integer", "wrap_real", "wrap_logical", "wrap_string", "wrap_complex", "wrap_raw", "wrap_list":
		if len(state.Elements) == 0 {
			return nil, malformed("%s state has no payload", class)
		}
		clone := *state.Elements[0]
		return &clone, nil

	case "deferred_string":
		if len(state.Elements) == 0 {
			return nil, malformed("deferred_string state has no payload")
		}
		return deferredStrings(state.Elements[0])
	}
	return nil, fmt.Errorf("%w: unsupported ALTREP class %q", schema.ErrInvalidInput, class)
}

// deferredStrings converts the numeric payload of a deferred string vector
// the way as.character would.
func deferredStrings(arg *Object) (*Object, error) {
	o := &Object{Type: StringType}
	switch arg.Type {
	case IntType:
		o.Strings = make([]string, len(arg.Ints))
		for i, v := range arg.Ints {
			if v == NAInteger {
				o.markNA(i, len(arg.Ints))
				continue
			}
			o.Strings[i] = strconv.FormatInt(int64(v), 10)
		}
	case RealType:
		o.Strings = make([]string, len(arg.Reals))
		for i, v := range arg.Reals {
			if math.IsNaN(v) {
				o.markNA(i, len(arg.Reals))
				continue
			}
			o.Strings[i] = strconv.FormatFloat(v, 'g', 15, 64)
		}
	default:
		return nil, malformed("deferred_string payload is %s", arg.Type)
	}
	return o, nil
}

func (o *Object) markNA(i, n int) {
	if o.StringNA == nil {
		o.StringNA = make([]bool, n)
	}
	o.StringNA[i] = true
}

// decodeChars converts CHARSXP bytes to UTF-8 according to the encoding bits.
func decodeChars(raw []byte, levels int32) string {
	if levels&latin1Mask != 0 || (levels&(utf8Mask|asciiMask|bytesMask) == 0 && !utf8.Valid(raw)) {
		runes := make([]rune, len(raw))
		for i, b := range raw {
			runes[i] = rune(b)
		}
		return string(runes)
	}
	return string(raw)
}

func tagName(t *Object) string {
	if t == nil {
		return ""
	}
	switch t.Type {
	case SymbolType, CharType:
		return t.Name
	}
	return ""
}

func specialEnvName(t Type) string {
	switch t {
	case emptyEnvType:
		return "R_EmptyEnv"
	case baseEnvType:
		return "base"
	case globalEnvType:
		return "R_GlobalEnv"
	case baseNamespaceType:
		return "namespace:base"
	case missingArgType:
		return "R_MissingArg"
	default:
		return "R_UnboundValue"
	}
}
