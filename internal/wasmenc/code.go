package wasmenc

const (
	opBlock       = 0x02
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0b
	opBr          = 0x0c
	opBrIf        = 0x0d
	opReturn      = 0x0f
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opLocalTee    = 0x22
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load     = 0x28
	opF32Load     = 0x2a
	opI32Store    = 0x36
	opF32Store    = 0x38
	opI32Const    = 0x41
	opI64Const    = 0x42
	opF32Const    = 0x43
	opI32Eqz      = 0x45
	opI32Eq       = 0x46
	opI32GtU      = 0x4b
	opI32Add      = 0x6a
	opI32Sub      = 0x6b
	opI64Or       = 0x84
	opI64Shl      = 0x86
	opF32Add      = 0x92
	opF32Mul      = 0x94
	opF32Min      = 0x96
	opI64ExtendU  = 0xad
	opPrefixFC    = 0xfc
	fcMemoryCopy  = 10
	blockTypeVoid = 0x40
)

// Code builds a function body. Methods return the receiver for chaining.
type Code struct {
	w Writer
}

// NewCode returns an empty body.
func NewCode() *Code {
	return &Code{}
}

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte {
	return c.w.Bytes()
}

func (c *Code) op(b byte) *Code {
	c.w.Byte(b)
	return c
}

func (c *Code) idx(op byte, i uint32) *Code {
	c.w.Byte(op)
	c.w.WriteU32(i)
	return c
}

func (c *Code) mem(op byte, align, offset uint32) *Code {
	c.w.Byte(op)
	c.w.WriteU32(align)
	c.w.WriteU32(offset)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.w.Byte(opI32Const)
	c.w.WriteS64(int64(v))
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.w.Byte(opI64Const)
	c.w.WriteS64(v)
	return c
}

func (c *Code) F32Const(v float32) *Code {
	c.w.Byte(opF32Const)
	c.w.WriteF32(v)
	return c
}

func (c *Code) Call(fn uint32) *Code      { return c.idx(opCall, fn) }
func (c *Code) LocalGet(i uint32) *Code   { return c.idx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code   { return c.idx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code   { return c.idx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code  { return c.idx(opGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code  { return c.idx(opGlobalSet, i) }
func (c *Code) Br(depth uint32) *Code     { return c.idx(opBr, depth) }
func (c *Code) BrIf(depth uint32) *Code   { return c.idx(opBrIf, depth) }
func (c *Code) Drop() *Code               { return c.op(opDrop) }
func (c *Code) Return() *Code             { return c.op(opReturn) }
func (c *Code) End() *Code                { return c.op(opEnd) }
func (c *Code) Else() *Code               { return c.op(opElse) }
func (c *Code) I32Eqz() *Code             { return c.op(opI32Eqz) }
func (c *Code) I32Eq() *Code              { return c.op(opI32Eq) }
func (c *Code) I32GtU() *Code             { return c.op(opI32GtU) }
func (c *Code) I32Add() *Code             { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code             { return c.op(opI32Sub) }
func (c *Code) I64Or() *Code              { return c.op(opI64Or) }
func (c *Code) I64Shl() *Code             { return c.op(opI64Shl) }
func (c *Code) I64ExtendI32U() *Code      { return c.op(opI64ExtendU) }
func (c *Code) F32Add() *Code             { return c.op(opF32Add) }
func (c *Code) F32Mul() *Code             { return c.op(opF32Mul) }
func (c *Code) F32Min() *Code             { return c.op(opF32Min) }
func (c *Code) I32Load(off uint32) *Code  { return c.mem(opI32Load, 2, off) }
func (c *Code) I32Store(off uint32) *Code { return c.mem(opI32Store, 2, off) }
func (c *Code) F32Load(off uint32) *Code  { return c.mem(opF32Load, 2, off) }
func (c *Code) F32Store(off uint32) *Code { return c.mem(opF32Store, 2, off) }

// Block opens a block with no result.
func (c *Code) Block() *Code {
	c.w.Byte(opBlock)
	c.w.Byte(blockTypeVoid)
	return c
}

// Loop opens a loop with no result.
func (c *Code) Loop() *Code {
	c.w.Byte(opLoop)
	c.w.Byte(blockTypeVoid)
	return c
}

// If opens an if block producing results of type result, or nothing when
// result is 0.
func (c *Code) If(result ValType) *Code {
	c.w.Byte(opIf)
	if result == 0 {
		c.w.Byte(blockTypeVoid)
	} else {
		c.w.Byte(byte(result))
	}
	return c
}

// MemoryCopy copies within memory 0: [dst, src, n] on the stack.
func (c *Code) MemoryCopy() *Code {
	c.w.Byte(opPrefixFC)
	c.w.WriteU32(fcMemoryCopy)
	c.w.Byte(0)
	c.w.Byte(0)
	return c
}
