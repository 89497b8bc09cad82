package registry

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/typedesc"
)

// ModuleRecord is the bookkeeping for one loadable unit.
//
// FirstType and TypeCount describe the contiguous id span of the module's
// most recent registration pass. Ownership itself is the Module tag on each
// type; the span is informational.
type ModuleRecord struct {
	ModTime   time.Time
	Handle    any
	Name      string
	Path      string
	FirstType typedesc.TypeID
	TypeCount int
	Version   uint32
	ID        typedesc.ModuleID
	Loaded    bool
}

// AttachModule stores a new module record and assigns its id. The ID field
// of rec is ignored.
func (r *Registry) AttachModule(rec ModuleRecord) (typedesc.ModuleID, error) {
	if len(r.modules) >= r.cfg.MaxModules {
		return 0, errors.CapacityExceeded("module", r.cfg.MaxModules)
	}
	rec.ID = typedesc.ModuleID(len(r.modules))
	if rec.TypeCount == 0 {
		rec.FirstType = typedesc.None
	}
	r.modules = append(r.modules, rec)
	r.log.Debug("module attached",
		zap.Uint16("module", uint16(rec.ID)),
		zap.String("name", rec.Name),
		zap.String("path", rec.Path))
	return rec.ID, nil
}

// Module returns a copy of the record for id.
func (r *Registry) Module(id typedesc.ModuleID) (ModuleRecord, bool) {
	if int(id) >= len(r.modules) {
		return ModuleRecord{}, false
	}
	return r.modules[id], true
}

// ModuleByName returns the first record with the given name.
func (r *Registry) ModuleByName(name string) (ModuleRecord, bool) {
	for i := range r.modules {
		if r.modules[i].Name == name {
			return r.modules[i], true
		}
	}
	return ModuleRecord{}, false
}

// Modules returns a copy of all module records in id order.
func (r *Registry) Modules() []ModuleRecord {
	out := make([]ModuleRecord, len(r.modules))
	copy(out, r.modules)
	return out
}

// UpdateModule replaces the record with rec.ID.
func (r *Registry) UpdateModule(rec ModuleRecord) error {
	if int(rec.ID) >= len(r.modules) {
		return errors.NotFound(errors.PhaseLookup, "module", rec.Name)
	}
	r.modules[rec.ID] = rec
	return nil
}

// Scope returns a registrar bound to module id. Types registered through it
// are stamped with the id, and the module record's span restarts with the
// scope's first registration.
func (r *Registry) Scope(id typedesc.ModuleID) *Scope {
	return &Scope{reg: r, module: id}
}

// Scope is the registry as seen by one module during registration.
type Scope struct {
	reg     *Registry
	module  typedesc.ModuleID
	started bool
}

// Module returns the id the scope stamps on types.
func (s *Scope) Module() typedesc.ModuleID {
	return s.module
}

// Registry returns the underlying registry for read-only queries.
func (s *Scope) Registry() *Registry {
	return s.reg
}

// Register stamps t with the scope's module and registers it.
func (s *Scope) Register(t typedesc.Type) (typedesc.TypeID, error) {
	t.Module = s.module
	id, err := s.reg.Register(t)
	if err != nil {
		return id, err
	}
	if int(s.module) < len(s.reg.modules) {
		rec := &s.reg.modules[s.module]
		if !s.started {
			rec.FirstType = id
			s.started = true
		}
		rec.TypeCount = int(id-rec.FirstType) + 1
	}
	return id, nil
}

// Find returns the valid type with the given name, from any module.
func (s *Scope) Find(name string) (*typedesc.Type, bool) {
	return s.reg.FindByName(name)
}

// UnregisterAll tombstones every type owned by the scope's module.
func (s *Scope) UnregisterAll() int {
	return s.reg.UnregisterModule(s.module)
}
