package typedesc

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/hotreflect/internal/layout"
)

// Kind is the storage kind of a field. Field access hands out values tagged
// with one of these instead of raw addresses.
type Kind uint8

const (
	// KindInfer derives the kind from the field's size and referenced type.
	KindInfer Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindS8
	KindS16
	KindS32
	KindS64
	KindF32
	KindF64
	KindBool
	// KindBytes is a fixed-length byte buffer.
	KindBytes
	// KindNested is an embedded instance of another registered type.
	KindNested
	// KindOpaque is storage that tools must not interpret.
	KindOpaque

	kindCount
)

var kindNames = [...]string{
	KindInfer:  "infer",
	KindU8:     "u8",
	KindU16:    "u16",
	KindU32:    "u32",
	KindU64:    "u64",
	KindS8:     "s8",
	KindS16:    "s16",
	KindS32:    "s32",
	KindS64:    "s64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindBool:   "bool",
	KindBytes:  "bytes",
	KindNested: "nested",
	KindOpaque: "opaque",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k < kindCount
}

// Width returns the storage size of scalar kinds, 0 for the rest.
func (k Kind) Width() uint32 {
	switch k {
	case KindU8, KindS8, KindBool:
		return 1
	case KindU16, KindS16:
		return 2
	case KindU32, KindS32, KindF32:
		return 4
	case KindU64, KindS64, KindF64:
		return 8
	}
	return 0
}

// Scalar reports whether k is a numeric or boolean kind.
func (k Kind) Scalar() bool {
	return k.Width() != 0
}

// Float reports whether k is f32 or f64.
func (k Kind) Float() bool {
	return k == KindF32 || k == KindF64
}

// Signed reports whether k is a signed integer kind.
func (k Kind) Signed() bool {
	return k == KindS8 || k == KindS16 || k == KindS32 || k == KindS64
}

// InferKind classifies storage the way tools did before fields carried
// kinds: nested when a type is referenced, otherwise by width.
func InferKind(size uint32, ref TypeID) Kind {
	if ref != None {
		return KindNested
	}
	switch size {
	case 1:
		return KindU8
	case 2:
		return KindU16
	case 4:
		return KindF32
	case 8:
		return KindF64
	}
	return KindBytes
}

// KindOf maps a WIT primitive to its storage kind. Enums and flags map to the
// unsigned integer that holds them; records return KindNested and must be
// resolved to a registered type by the caller.
func KindOf(t wit.Type) Kind {
	switch typ := t.(type) {
	case wit.U8:
		return KindU8
	case wit.U16:
		return KindU16
	case wit.U32, wit.Char:
		return KindU32
	case wit.U64:
		return KindU64
	case wit.S8:
		return KindS8
	case wit.S16:
		return KindS16
	case wit.S32:
		return KindS32
	case wit.S64:
		return KindS64
	case wit.F32:
		return KindF32
	case wit.F64:
		return KindF64
	case wit.Bool:
		return KindBool
	case *wit.TypeDef:
		switch k := typ.Kind.(type) {
		case *wit.Enum, *wit.Flags:
			return unsignedKind(layout.NewCalculator().Calculate(typ).Size)
		case *wit.Record:
			return KindNested
		case wit.Type:
			return KindOf(k)
		}
	}
	return KindOpaque
}

func unsignedKind(size uint32) Kind {
	switch size {
	case 1:
		return KindU8
	case 2:
		return KindU16
	case 4:
		return KindU32
	case 8:
		return KindU64
	}
	return KindBytes
}
