package typedesc

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/internal/layout"
)

// Builder assembles a Type field by field and computes C struct layout.
type Builder struct {
	t       Type
	members []layout.Info
}

// NewBuilder starts a descriptor for the named type at version 1.
func NewBuilder(name string) *Builder {
	return &Builder{t: Type{
		Name:    name,
		Hash:    HashString(name),
		ID:      None,
		Version: 1,
	}}
}

func (b *Builder) Version(v uint16) *Builder {
	b.t.Version = v
	return b
}

func (b *Builder) Module(m ModuleID) *Builder {
	b.t.Module = m
	return b
}

func (b *Builder) Hooks(h Hooks) *Builder {
	b.t.Hooks = h
	return b
}

// Scalar appends a numeric or boolean field.
func (b *Builder) Scalar(name string, k Kind) *Builder {
	w := k.Width()
	return b.add(Field{Name: name, Size: w, Ref: None, Kind: k}, layout.Info{Size: w, Align: w})
}

// Bytes appends a fixed-length byte buffer.
func (b *Builder) Bytes(name string, n uint32) *Builder {
	return b.add(Field{Name: name, Size: n, Ref: None, Kind: KindBytes}, layout.Bytes(n))
}

// Nested embeds an instance of a registered type.
func (b *Builder) Nested(name string, t *Type) *Builder {
	return b.add(
		Field{Name: name, Size: t.Size, Ref: t.ID, Kind: KindNested},
		layout.Info{Size: t.Size, Align: t.Align},
	)
}

// Editable marks the most recently added field editable.
func (b *Builder) Editable() *Builder {
	if n := len(b.t.Fields); n > 0 {
		b.t.Fields[n-1].Flags |= FlagEditable
	}
	return b
}

func (b *Builder) add(f Field, info layout.Info) *Builder {
	b.t.Fields = append(b.t.Fields, f)
	b.members = append(b.members, info)
	return b
}

// Build computes offsets, size and alignment and returns the descriptor.
func (b *Builder) Build() Type {
	info := layout.Struct(b.members)
	t := b.t
	t.Fields = make([]Field, len(b.t.Fields))
	copy(t.Fields, b.t.Fields)
	for i := range t.Fields {
		t.Fields[i].Offset = info.Offsets[i]
	}
	t.Size = info.Size
	t.Align = info.Align
	return t
}

// Resolver maps a named WIT definition to a registered type.
type Resolver func(def *wit.TypeDef) (*Type, bool)

// FromRecord builds a descriptor from a WIT record. Nested records are
// resolved to registered types through resolve.
func FromRecord(name string, rec *wit.Record, resolve Resolver) (Type, error) {
	b := NewBuilder(name)
	for _, f := range rec.Fields {
		switch k := KindOf(f.Type); k {
		case KindNested:
			def, _ := f.Type.(*wit.TypeDef)
			if resolve == nil || def == nil {
				return Type{}, errors.New(errors.PhaseRegister, errors.KindNotFound).
					Path(name, f.Name).
					Detail("nested record without resolver").
					Build()
			}
			ref, ok := resolve(def)
			if !ok {
				return Type{}, errors.New(errors.PhaseRegister, errors.KindNotFound).
					Path(name, f.Name).
					Detail("nested type not registered").
					Build()
			}
			b.Nested(f.Name, ref)
		case KindOpaque, KindBytes:
			return Type{}, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(name, f.Name).
				Detail("unsupported field type %T", f.Type).
				Build()
		default:
			b.Scalar(f.Name, k)
		}
	}
	return b.Build(), nil
}
