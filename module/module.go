package module

import (
	"context"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

// Info is a module's static metadata and entry points. Register is required
// for the module's types to appear. Unregister and Fixup are optional; nil
// means the module does not offer them.
type Info struct {
	Register   func(ctx context.Context, s *registry.Scope) error
	Unregister func(ctx context.Context, s *registry.Scope) error

	// Fixup runs after a replacement module registered its types. prev is
	// the snapshot exported by the module it replaced, or nil.
	Fixup func(ctx context.Context, s *registry.Scope, prev *Snapshot) error

	Name    string
	Version uint32

	// StateVersion is the layout version of the state the module exports
	// and accepts.
	StateVersion uint32
}

// Module is a loaded, reloadable unit.
type Module interface {
	Info() Info
	// ExportState captures the module's retained state immediately before
	// unload. A nil snapshot means there is none.
	ExportState(ctx context.Context) (*Snapshot, error)
}

// Instance is a module opened from a file.
type Instance interface {
	Module
	// Memory is the storage the module's registered types describe.
	Memory() hotreflect.Memory
	Close(ctx context.Context) error
}

// Enumerator is implemented by modules that can locate their live objects.
// Instances of a type are laid out contiguously starting at base.
type Enumerator interface {
	Instances(ctx context.Context, id typedesc.TypeID) (base uint32, count int, err error)
}

// Opener opens module files.
type Opener interface {
	Open(ctx context.Context, path string) (Instance, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) (Instance, error)

func (f OpenerFunc) Open(ctx context.Context, path string) (Instance, error) {
	return f(ctx, path)
}
