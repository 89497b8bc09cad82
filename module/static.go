package module

import (
	"context"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/typedesc"
)

// Static is a module implemented in Go and linked into the host. It serves
// built-in types and stands in for file-backed modules in tests.
type Static struct {
	// State, when set, produces the snapshot handed to a replacement.
	State func(ctx context.Context) (*Snapshot, error)

	// Objects, when set, locates live instances of a type in Mem.
	Objects func(id typedesc.TypeID) (base uint32, count int)

	// Mem is the storage the module's objects live in. Nil means none.
	Mem hotreflect.Memory

	Meta   Info
	closed bool
}

func (s *Static) Info() Info {
	return s.Meta
}

func (s *Static) ExportState(ctx context.Context) (*Snapshot, error) {
	if s.State == nil {
		return nil, nil
	}
	return s.State(ctx)
}

func (s *Static) Memory() hotreflect.Memory {
	return s.Mem
}

func (s *Static) Close(context.Context) error {
	s.closed = true
	return nil
}

func (s *Static) Instances(_ context.Context, id typedesc.TypeID) (uint32, int, error) {
	if s.Objects == nil {
		return 0, 0, nil
	}
	base, n := s.Objects(id)
	return base, n, nil
}

// Closed reports whether Close was called.
func (s *Static) Closed() bool {
	return s.closed
}

var (
	_ Instance   = (*Static)(nil)
	_ Enumerator = (*Static)(nil)
)
