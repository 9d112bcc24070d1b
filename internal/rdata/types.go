// Package rdata decodes R workspaces (.RData) and serialized objects (.rds)
// written in the XDR serialization format, versions 2 and 3.
package rdata

// Type is an R SEXPTYPE, or one of the pseudo types that only occur in the
// serialized stream.
type Type uint8

// Object types.
const (
	NilType      Type = 0
	SymbolType   Type = 1
	PairlistType Type = 2
	ClosureType  Type = 3
	EnvType      Type = 4
	PromiseType  Type = 5
	LangType     Type = 6
	SpecialType  Type = 7
	BuiltinType  Type = 8
	CharType     Type = 9
	LogicalType  Type = 10
	IntType      Type = 13
	RealType     Type = 14
	ComplexType  Type = 15
	StringType   Type = 16
	DotType      Type = 17
	AnyType      Type = 18
	ListType     Type = 19
	ExprType     Type = 20
	BytecodeType Type = 21
	ExtPtrType   Type = 22
	WeakRefType  Type = 23
	RawType      Type = 24
	S4Type       Type = 25
)

// Stream-only pseudo types.
const (
	altrepType        Type = 238
	attrListType      Type = 239
	attrLangType      Type = 240
	baseEnvType       Type = 241
	emptyEnvType      Type = 242
	bcRepRefType      Type = 243
	bcRepDefType      Type = 244
	genericRefType    Type = 245
	classRefType      Type = 246
	persistType       Type = 247
	packageType       Type = 248
	namespaceType     Type = 249
	baseNamespaceType Type = 250
	missingArgType    Type = 251
	unboundValueType  Type = 252
	globalEnvType     Type = 253
	nilValueType      Type = 254
	refType           Type = 255
)

// String returns the name R's typeof() reports.
func (t Type) String() string {
	switch t {
	case NilType:
		return "NULL"
	case SymbolType:
		return "symbol"
	case PairlistType:
		return "pairlist"
	case ClosureType:
		return "closure"
	case EnvType:
		return "environment"
	case PromiseType:
		return "promise"
	case LangType:
		return "language"
	case SpecialType:
		return "special"
	case BuiltinType:
		return "builtin"
	case CharType:
		return "char"
	case LogicalType:
		return "logical"
	case IntType:
		return "integer"
	case RealType:
		return "double"
	case ComplexType:
		return "complex"
	case StringType:
		return "character"
	case DotType:
		return "..."
	case AnyType:
		return "any"
	case ListType:
		return "list"
	case ExprType:
		return "expression"
	case BytecodeType:
		return "bytecode"
	case ExtPtrType:
		return "externalptr"
	case WeakRefType:
		return "weakref"
	case RawType:
		return "raw"
	case S4Type:
		return "S4"
	default:
		return "unknown"
	}
}

// isPairlistLike reports whether values of t are serialized as cons cells.
func (t Type) isPairlistLike() bool {
	switch t {
	case PairlistType, LangType, ClosureType, PromiseType, DotType, attrLangType, attrListType:
		return true
	}
	return false
}

// Flag layout of every serialized item.
const (
	typeMask    = 0xFF
	isObjectBit = 1 << 8
	hasAttrBit  = 1 << 9
	hasTagBit   = 1 << 10
	levelsShift = 12
)

// CHARSXP encoding bits carried in the levels field.
const (
	bytesMask  = 1 << 1
	latin1Mask = 1 << 2
	utf8Mask   = 1 << 3
	asciiMask  = 1 << 6
)

// NAInteger is R's missing value for integer and logical vectors.
const NAInteger = int32(-1 << 31)
