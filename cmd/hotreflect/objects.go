package main

import (
	"context"
	"fmt"
	"io"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/module"
	"github.com/wippyai/hotreflect/render"
	"github.com/wippyai/hotreflect/typedesc"
)

// object is one live instance of a registered type inside a loaded module.
type object struct {
	mem    hotreflect.Memory
	typ    *typedesc.Type
	module string
	base   uint32
	index  int
}

func (o object) label() string {
	return fmt.Sprintf("%s/%s#%d @%d", o.module, o.typ.Name, o.index, o.base)
}

// objects lists the live instances of valid types, optionally only those of
// the named type. Modules that cannot enumerate their objects are skipped.
func objects(ctx context.Context, h *host, typeName string) ([]object, error) {
	var out []object
	for _, id := range h.loader.Modules() {
		inst := h.loader.Instance(id)
		if inst == nil {
			continue
		}
		enum, ok := inst.(module.Enumerator)
		if !ok {
			continue
		}
		name := inst.Info().Name

		var types []*typedesc.Type
		h.reg.Each(func(t *typedesc.Type) bool {
			if t.Module == id && (typeName == "" || t.Name == typeName) {
				types = append(types, t)
			}
			return true
		})

		for _, t := range types {
			base, n, err := enum.Instances(ctx, t.ID)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				out = append(out, object{
					mem:    inst.Memory(),
					typ:    t,
					module: name,
					base:   base + uint32(i)*t.Size,
					index:  i,
				})
			}
		}
	}
	return out, nil
}

func dumpJSON(ctx context.Context, h *host, w io.Writer, typeName string) error {
	if _, ok := h.reg.FindByName(typeName); !ok {
		return fmt.Errorf("type %q is not registered", typeName)
	}
	objs, err := objects(ctx, h, typeName)
	if err != nil {
		return err
	}
	js := render.NewJSON(h.reg, render.WithTextBytes())
	for _, o := range objs {
		if err := js.Encode(w, o.mem, o.base, o.typ); err != nil {
			return err
		}
	}
	return nil
}
