package registry

import (
	"math"
	"strconv"

	"github.com/wippyai/hotreflect/typedesc"
)

// Value is a field's contents tagged with its storage kind. Scalars are held
// in bits, byte buffers in data, nested fields as the referenced type and the
// address of the embedded instance.
type Value struct {
	data []byte
	bits uint64
	Addr uint32
	Ref  typedesc.TypeID
	Kind typedesc.Kind
}

func U8(v uint8) Value   { return Value{Kind: typedesc.KindU8, bits: uint64(v), Ref: typedesc.None} }
func U16(v uint16) Value { return Value{Kind: typedesc.KindU16, bits: uint64(v), Ref: typedesc.None} }
func U32(v uint32) Value { return Value{Kind: typedesc.KindU32, bits: uint64(v), Ref: typedesc.None} }
func U64(v uint64) Value { return Value{Kind: typedesc.KindU64, bits: v, Ref: typedesc.None} }

func S8(v int8) Value   { return Value{Kind: typedesc.KindS8, bits: uint64(v), Ref: typedesc.None} }
func S16(v int16) Value { return Value{Kind: typedesc.KindS16, bits: uint64(v), Ref: typedesc.None} }
func S32(v int32) Value { return Value{Kind: typedesc.KindS32, bits: uint64(v), Ref: typedesc.None} }
func S64(v int64) Value { return Value{Kind: typedesc.KindS64, bits: uint64(v), Ref: typedesc.None} }

func F32(v float32) Value {
	return Value{Kind: typedesc.KindF32, bits: uint64(math.Float32bits(v)), Ref: typedesc.None}
}

func F64(v float64) Value {
	return Value{Kind: typedesc.KindF64, bits: math.Float64bits(v), Ref: typedesc.None}
}

func Bool(v bool) Value {
	var b uint64
	if v {
		b = 1
	}
	return Value{Kind: typedesc.KindBool, bits: b, Ref: typedesc.None}
}

// BytesOf wraps a byte buffer. Writes shorter than the field are zero padded.
func BytesOf(b []byte) Value {
	return Value{Kind: typedesc.KindBytes, data: b, Ref: typedesc.None}
}

// Uint returns the value of an unsigned or bool kind.
func (v Value) Uint() uint64 {
	return v.bits
}

// Int returns the sign-extended value of a signed kind.
func (v Value) Int() int64 {
	switch v.Kind {
	case typedesc.KindS8:
		return int64(int8(v.bits))
	case typedesc.KindS16:
		return int64(int16(v.bits))
	case typedesc.KindS32:
		return int64(int32(v.bits))
	}
	return int64(v.bits)
}

// Float returns the value of a float kind.
func (v Value) Float() float64 {
	switch v.Kind {
	case typedesc.KindF32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case typedesc.KindF64:
		return math.Float64frombits(v.bits)
	}
	return 0
}

func (v Value) Bool() bool {
	return v.bits != 0
}

// Bytes returns the buffer of a bytes or opaque value. For values produced
// by Read it aliases the underlying memory when the memory allows it.
func (v Value) Bytes() []byte {
	return v.data
}

// Text returns a bytes value up to its first NUL.
func (v Value) Text() string {
	for i, c := range v.data {
		if c == 0 {
			return string(v.data[:i])
		}
	}
	return string(v.data)
}

// String formats scalars as numbers, and everything else by kind.
func (v Value) String() string {
	switch {
	case v.Kind.Float():
		return strconv.FormatFloat(v.Float(), 'f', 3, 64)
	case v.Kind.Signed():
		return strconv.FormatInt(v.Int(), 10)
	case v.Kind == typedesc.KindBool:
		return strconv.FormatBool(v.Bool())
	case v.Kind.Scalar():
		return strconv.FormatUint(v.bits, 10)
	case v.Kind == typedesc.KindBytes:
		return strconv.Quote(v.Text())
	case v.Kind == typedesc.KindNested:
		return "<nested " + strconv.FormatUint(uint64(v.Ref), 10) + ">"
	}
	return "<binary>"
}

// ParseValue parses s as a value of kind k, for tools that edit fields from
// text.
func ParseValue(k typedesc.Kind, s string) (Value, error) {
	switch {
	case k.Float():
		f, err := strconv.ParseFloat(s, int(k.Width()*8))
		if err != nil {
			return Value{}, err
		}
		if k == typedesc.KindF32 {
			return F32(float32(f)), nil
		}
		return F64(f), nil
	case k.Signed():
		n, err := strconv.ParseInt(s, 0, int(k.Width()*8))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: k, bits: uint64(n), Ref: typedesc.None}, nil
	case k == typedesc.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case k.Scalar():
		n, err := strconv.ParseUint(s, 0, int(k.Width()*8))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: k, bits: n, Ref: typedesc.None}, nil
	case k == typedesc.KindBytes:
		return BytesOf([]byte(s)), nil
	}
	return Value{}, strconv.ErrSyntax
}
