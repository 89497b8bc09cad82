package hotreflect

import (
	"encoding/binary"
	"fmt"
)

// Memory is a little-endian byte-addressed view of the storage that type
// descriptors describe: a guest's linear memory or a host buffer.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of a Memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Bytes is a host-owned Memory backed by a byte slice. Objects laid out by a
// registered type can live in it and be accessed both directly and through
// the registry's field accessors.
type Bytes []byte

// NewBytes allocates a zeroed host memory of n bytes.
func NewBytes(n uint32) Bytes {
	return make(Bytes, n)
}

func (b Bytes) check(offset, length uint32) error {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(b)) {
		return fmt.Errorf("out of bounds: offset=%d, length=%d, size=%d", offset, length, len(b))
	}
	return nil
}

// Read returns a view into the underlying slice, not a copy.
func (b Bytes) Read(offset uint32, length uint32) ([]byte, error) {
	if err := b.check(offset, length); err != nil {
		return nil, err
	}
	return b[offset : offset+length], nil
}

func (b Bytes) Write(offset uint32, data []byte) error {
	if err := b.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(b[offset:], data)
	return nil
}

func (b Bytes) ReadU8(offset uint32) (uint8, error) {
	if err := b.check(offset, 1); err != nil {
		return 0, err
	}
	return b[offset], nil
}

func (b Bytes) ReadU16(offset uint32) (uint16, error) {
	if err := b.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[offset:]), nil
}

func (b Bytes) ReadU32(offset uint32) (uint32, error) {
	if err := b.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[offset:]), nil
}

func (b Bytes) ReadU64(offset uint32) (uint64, error) {
	if err := b.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[offset:]), nil
}

func (b Bytes) WriteU8(offset uint32, value uint8) error {
	if err := b.check(offset, 1); err != nil {
		return err
	}
	b[offset] = value
	return nil
}

func (b Bytes) WriteU16(offset uint32, value uint16) error {
	if err := b.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b[offset:], value)
	return nil
}

func (b Bytes) WriteU32(offset uint32, value uint32) error {
	if err := b.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b[offset:], value)
	return nil
}

func (b Bytes) WriteU64(offset uint32, value uint64) error {
	if err := b.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b[offset:], value)
	return nil
}

// Size implements MemorySizer.
func (b Bytes) Size() uint32 {
	return uint32(len(b))
}

var _ Memory = Bytes(nil)
var _ MemorySizer = Bytes(nil)
