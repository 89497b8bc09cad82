package registry

import (
	"strconv"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/typedesc"
)

// Field returns the i-th field descriptor of t.
func (r *Registry) Field(t *typedesc.Type, i int) (*typedesc.Field, error) {
	f := t.Field(i)
	if f == nil {
		return nil, errors.OutOfBounds(errors.PhaseAccess, []string{t.Name, strconv.Itoa(i)}, i, len(t.Fields))
	}
	return f, nil
}

// FieldAddr returns base + offset of field i. The caller is responsible for
// base actually holding an instance of t.
func (r *Registry) FieldAddr(base uint32, t *typedesc.Type, i int) (uint32, error) {
	f, err := r.Field(t, i)
	if err != nil {
		return 0, err
	}
	return base + f.Offset, nil
}

// Read returns field i of the instance of t at base.
func (r *Registry) Read(mem hotreflect.Memory, base uint32, t *typedesc.Type, i int) (Value, error) {
	f, err := r.Field(t, i)
	if err != nil {
		return Value{}, err
	}
	addr := base + f.Offset
	k := f.StorageKind()
	v := Value{Kind: k, Addr: addr, Ref: f.Ref}

	switch k.Width() {
	case 1:
		b, err := mem.ReadU8(addr)
		v.bits = uint64(b)
		return v, r.accessErr(t, f, err)
	case 2:
		b, err := mem.ReadU16(addr)
		v.bits = uint64(b)
		return v, r.accessErr(t, f, err)
	case 4:
		b, err := mem.ReadU32(addr)
		v.bits = uint64(b)
		return v, r.accessErr(t, f, err)
	case 8:
		b, err := mem.ReadU64(addr)
		v.bits = b
		return v, r.accessErr(t, f, err)
	}

	if k == typedesc.KindNested {
		return v, nil
	}
	data, err := mem.Read(addr, f.Size)
	v.data = data
	return v, r.accessErr(t, f, err)
}

// Write stores v into field i of the instance of t at base. The value's kind
// must match the field's storage kind; nested and opaque fields are not
// writable as a whole.
func (r *Registry) Write(mem hotreflect.Memory, base uint32, t *typedesc.Type, i int, v Value) error {
	f, err := r.Field(t, i)
	if err != nil {
		return err
	}
	k := f.StorageKind()
	if v.Kind != k {
		return errors.TypeMismatch(errors.PhaseAccess, []string{t.Name, f.Name}, t.Name,
			"field is "+k.String()+", value is "+v.Kind.String())
	}
	addr := base + f.Offset

	switch k.Width() {
	case 1:
		return r.accessErr(t, f, mem.WriteU8(addr, uint8(v.bits)))
	case 2:
		return r.accessErr(t, f, mem.WriteU16(addr, uint16(v.bits)))
	case 4:
		return r.accessErr(t, f, mem.WriteU32(addr, uint32(v.bits)))
	case 8:
		return r.accessErr(t, f, mem.WriteU64(addr, v.bits))
	}

	if k != typedesc.KindBytes {
		return errors.TypeMismatch(errors.PhaseAccess, []string{t.Name, f.Name}, t.Name,
			k.String()+" fields are not writable")
	}
	if uint32(len(v.data)) > f.Size {
		return errors.OutOfBounds(errors.PhaseAccess, []string{t.Name, f.Name}, len(v.data), int(f.Size))
	}
	buf := make([]byte, f.Size)
	copy(buf, v.data)
	return r.accessErr(t, f, mem.Write(addr, buf))
}

// Nested returns the type of a nested value.
func (r *Registry) Nested(v Value) (*typedesc.Type, bool) {
	if v.Kind != typedesc.KindNested {
		return nil, false
	}
	return r.Get(v.Ref)
}

func (r *Registry) accessErr(t *typedesc.Type, f *typedesc.Field, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhaseAccess, errors.KindOutOfBounds).
		Path(t.Name, f.Name).
		Type(t.Name).
		Cause(err).
		Build()
}
