package typedesc

import (
	"io"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/errors"
)

// TypeID is a type's slot index in the registry. IDs are assigned at
// registration and never reused.
type TypeID uint32

// None marks a primitive or opaque field with no referenced type, and is the
// id returned by a refused registration.
const None TypeID = ^TypeID(0)

// ModuleID identifies the module that owns a type.
type ModuleID uint16

// ModuleCore owns the host's built-in types.
const ModuleCore ModuleID = 0

// MaxFields is the maximum number of fields one type may declare.
const MaxFields = 32

// Flags is a per-field bitset.
type Flags uint16

const (
	// FlagEditable marks a field tools may modify.
	FlagEditable Flags = 1 << iota
)

// Field describes one member of a struct.
type Field struct {
	Name   string
	Offset uint32
	Size   uint32
	Ref    TypeID
	Flags  Flags
	Kind   Kind
}

// Editable reports whether tools may modify the field.
func (f *Field) Editable() bool {
	return f.Flags&FlagEditable != 0
}

// StorageKind returns the field's kind, inferring it when unset.
func (f *Field) StorageKind() Kind {
	if f.Kind == KindInfer {
		return InferKind(f.Size, f.Ref)
	}
	return f.Kind
}

// Hooks are optional per-type functions supplied by the owning module.
type Hooks struct {
	// Create allocates a zeroed instance. Nil means a zeroed buffer of Size.
	Create func() hotreflect.Bytes
	// Destroy releases an instance created by Create.
	Destroy func(obj hotreflect.Bytes)
	// Serialize replaces generic serialization for the type.
	Serialize func(mem hotreflect.Memory, base uint32, w io.Writer) error
}

// Type describes one struct: identity, layout, fields and ownership.
type Type struct {
	Hooks
	Name    string
	Fields  []Field
	Hash    Hash
	ID      TypeID
	Size    uint32
	Align   uint32
	Module  ModuleID
	Version uint16
}

// Field returns the i-th field, or nil when out of range.
func (t *Type) Field(i int) *Field {
	if i < 0 || i >= len(t.Fields) {
		return nil
	}
	return &t.Fields[i]
}

// FieldIndex returns the index of the named field, or -1.
func (t *Type) FieldIndex(name string) int {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// New creates an instance with the type's Create hook or a zeroed buffer.
func (t *Type) New() hotreflect.Bytes {
	if t.Create != nil {
		return t.Create()
	}
	return hotreflect.NewBytes(t.Size)
}

// Validate checks the descriptor's own invariants: a name, a hash consistent
// with it, at most maxFields fields, and every field inside the struct.
func (t *Type) Validate(maxFields int) error {
	if t.Name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "type name cannot be empty")
	}
	if t.Hash != HashString(t.Name) {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Type(t.Name).
			Detail("hash 0x%08x does not match name", uint32(t.Hash)).
			Build()
	}
	if len(t.Fields) > maxFields {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Type(t.Name).
			Detail("%d fields exceeds maximum %d", len(t.Fields), maxFields).
			Value(len(t.Fields)).
			Build()
	}
	for i := range t.Fields {
		f := &t.Fields[i]
		if uint64(f.Offset)+uint64(f.Size) > uint64(t.Size) {
			return errors.New(errors.PhaseRegister, errors.KindOutOfBounds).
				Path(t.Name, f.Name).
				Type(t.Name).
				Detail("field [%d, %d) exceeds size %d", f.Offset, f.Offset+f.Size, t.Size).
				Build()
		}
		if !f.Kind.Valid() {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(t.Name, f.Name).
				Detail("unknown storage kind %d", f.Kind).
				Build()
		}
		if w := f.Kind.Width(); w != 0 && w != f.Size {
			return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
				Path(t.Name, f.Name).
				Type(t.Name).
				Detail("%s field has size %d", f.Kind, f.Size).
				Build()
		}
	}
	return nil
}
