package render

import (
	"strings"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

// Row is one field of an object, flattened for display. Nested fields
// produce a row of their own followed by rows for the embedded instance.
type Row struct {
	Value registry.Value
	Field *typedesc.Field
	// Owner is the type declaring the field, Base the address of the
	// instance of Owner.
	Owner *typedesc.Type
	Path  string
	Index int
	Base  uint32
	Depth int

	// locked is set below a nested field that is not editable.
	locked bool
}

// Editable reports whether the field is flagged editable, every nested field
// above it is too, and it can be written as a single value.
func (r *Row) Editable() bool {
	if r.locked || !r.Field.Editable() {
		return false
	}
	k := r.Value.Kind
	return k.Scalar() || k == typedesc.KindBytes
}

// Rows reads every field of the instance of t at base, depth first.
func Rows(reg *registry.Registry, mem hotreflect.Memory, base uint32, t *typedesc.Type) ([]Row, error) {
	var rows []Row
	err := walk(reg, mem, base, t, "", 0, false, func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	return rows, err
}

func walk(reg *registry.Registry, mem hotreflect.Memory, base uint32, t *typedesc.Type, prefix string, depth int, locked bool, fn func(Row) error) error {
	for i := range t.Fields {
		v, err := reg.Read(mem, base, t, i)
		if err != nil {
			return err
		}
		f := &t.Fields[i]
		r := Row{
			Value:  v,
			Field:  f,
			Owner:  t,
			Path:   prefix + f.Name,
			Index:  i,
			Base:   base,
			Depth:  depth,
			locked: locked,
		}
		if err := fn(r); err != nil {
			return err
		}
		if nt, ok := reg.Nested(v); ok {
			if err := walk(reg, mem, v.Addr, nt, r.Path+".", depth+1, locked || !f.Editable(), fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Set parses text as the value of the field at a dotted path below the
// instance of t at base and writes it. Only editable fields reached through
// editable nested fields are accepted.
func Set(reg *registry.Registry, mem hotreflect.Memory, base uint32, t *typedesc.Type, path, text string) error {
	parts := strings.Split(path, ".")
	cur := t
	addr := base
	for n, name := range parts {
		i := cur.FieldIndex(name)
		if i < 0 {
			return errors.NotFound(errors.PhaseLookup, "field", path)
		}
		v, err := reg.Read(mem, addr, cur, i)
		if err != nil {
			return err
		}
		if n < len(parts)-1 {
			nt, ok := reg.Nested(v)
			if !ok {
				return errors.TypeMismatch(errors.PhaseAccess, parts[:n+1], cur.Name, "not a nested field")
			}
			if !cur.Fields[i].Editable() {
				return errors.New(errors.PhaseAccess, errors.KindInvalidInput).
					Path(parts[:n+1]...).
					Type(cur.Name).
					Detail("nested field is read-only").
					Build()
			}
			cur, addr = nt, v.Addr
			continue
		}

		r := Row{Value: v, Field: &cur.Fields[i]}
		if !r.Editable() {
			return errors.New(errors.PhaseAccess, errors.KindInvalidInput).
				Path(parts...).
				Type(cur.Name).
				Detail("field is read-only").
				Build()
		}
		nv, err := registry.ParseValue(v.Kind, text)
		if err != nil {
			return errors.New(errors.PhaseAccess, errors.KindInvalidInput).
				Path(parts...).
				Type(cur.Name).
				Detail("parse %s", v.Kind).
				Cause(err).
				Build()
		}
		return reg.Write(mem, addr, cur, i, nv)
	}
	return nil
}
