package registry

import (
	"go.uber.org/zap"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/typedesc"
)

const (
	DefaultMaxTypes   = 1024
	DefaultMaxModules = 16
)

// Config sets the fixed capacities of a Registry.
type Config struct {
	// MaxTypes bounds the number of registrations over the registry's
	// lifetime. Tombstoned slots are not reclaimed.
	MaxTypes int
	// MaxModules bounds the number of module records, including the core
	// record with id 0.
	MaxModules int
	// MaxFields bounds the fields per type. 0 means typedesc.MaxFields.
	MaxFields int
}

func (c Config) withDefaults() Config {
	if c.MaxTypes <= 0 {
		c.MaxTypes = DefaultMaxTypes
	}
	if c.MaxModules <= 0 {
		c.MaxModules = DefaultMaxModules
	}
	if c.MaxFields <= 0 || c.MaxFields > typedesc.MaxFields {
		c.MaxFields = typedesc.MaxFields
	}
	return c
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithObserver subscribes o to type events from construction on.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.Subscribe(o)
	}
}

// Registry stores type descriptors in dense, append-only slots indexed by
// TypeID, with a hash index for name lookup and per-module bookkeeping.
// Storage is allocated once by New. A Registry is not safe for concurrent use.
type Registry struct {
	cfg       Config
	types     []typedesc.Type
	valid     validity
	idx       index
	modules   []ModuleRecord
	observers []Observer
	log       *zap.Logger
}

// New creates a registry with the given capacities. Module id 0 is
// pre-attached as the core module.
func New(cfg Config, opts ...Option) *Registry {
	cfg = cfg.withDefaults()
	r := &Registry{
		cfg:     cfg,
		types:   make([]typedesc.Type, 0, cfg.MaxTypes),
		valid:   newValidity(cfg.MaxTypes),
		idx:     newIndex(2 * cfg.MaxTypes),
		modules: make([]ModuleRecord, 1, cfg.MaxModules),
		log:     zap.NewNop(),
	}
	r.modules[0] = ModuleRecord{
		ID:        typedesc.ModuleCore,
		Name:      "core",
		FirstType: typedesc.None,
		Loaded:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the capacities the registry was created with.
func (r *Registry) Config() Config {
	return r.cfg
}

// Register validates t, stores it in the next slot and indexes its hash.
// A zero Hash is filled in from the name.
//
// When a valid type with the same name exists in the same module, it is
// superseded: tombstoned and its index entry re-pointed to the new id. The
// same name from another module is refused with ErrDuplicateName, and a
// different name with the same hash with ErrHashCollision. A full registry is
// refused with ErrCapacityExceeded. Refused registrations return
// typedesc.None and leave the registry unchanged.
func (r *Registry) Register(t typedesc.Type) (typedesc.TypeID, error) {
	if t.Hash == 0 {
		t.Hash = typedesc.HashString(t.Name)
	}
	if err := t.Validate(r.cfg.MaxFields); err != nil {
		return typedesc.None, err
	}
	if err := r.checkRefs(&t); err != nil {
		return typedesc.None, err
	}
	if len(r.types) >= r.cfg.MaxTypes {
		r.log.Warn("type registry full",
			zap.String("type", t.Name),
			zap.Int("capacity", r.cfg.MaxTypes))
		return typedesc.None, errors.CapacityExceeded("type", r.cfg.MaxTypes)
	}

	pos, exists := r.idx.find(t.Hash)
	var prev typedesc.TypeID = typedesc.None
	if exists {
		prev = r.idx.slots[pos].id
		if old := &r.types[prev]; old.Name != t.Name {
			r.log.Warn("type hash collision",
				zap.String("type", t.Name),
				zap.String("existing", old.Name),
				zap.Uint32("hash", uint32(t.Hash)))
			return typedesc.None, errors.HashCollision(t.Name, old.Name, uint32(t.Hash))
		} else if old.Module != t.Module {
			r.log.Warn("type name owned by another module",
				zap.String("type", t.Name),
				zap.Uint16("owner", uint16(old.Module)),
				zap.Uint16("module", uint16(t.Module)))
			return typedesc.None, errors.DuplicateName(t.Name, uint16(old.Module), uint16(t.Module))
		}
	}

	id := typedesc.TypeID(len(r.types))
	t.ID = id
	t.Fields = append([]typedesc.Field(nil), t.Fields...)
	r.types = append(r.types, t)
	r.valid.set(int(id))

	if exists {
		r.idx.slots[pos].id = id
		r.valid.clear(int(prev))
		r.log.Debug("type superseded",
			zap.String("type", t.Name),
			zap.Uint32("old_id", uint32(prev)),
			zap.Uint32("new_id", uint32(id)))
		r.notify(Event{Type: EventTombstoned, ID: prev, Name: t.Name, Module: r.types[prev].Module})
	} else {
		r.idx.insert(t.Hash, id)
	}

	r.log.Debug("type registered",
		zap.String("type", t.Name),
		zap.Uint32("id", uint32(id)),
		zap.Uint16("module", uint16(t.Module)),
		zap.Uint16("version", t.Version))
	r.notify(Event{Type: EventRegistered, ID: id, Name: t.Name, Module: t.Module})
	return id, nil
}

// checkRefs verifies that nested fields reference valid types whose size
// matches the field.
func (r *Registry) checkRefs(t *typedesc.Type) error {
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Ref == typedesc.None {
			if f.Kind == typedesc.KindNested {
				return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
					Path(t.Name, f.Name).
					Detail("nested field has no referenced type").
					Build()
			}
			continue
		}
		ref, ok := r.Get(f.Ref)
		if !ok {
			return errors.New(errors.PhaseRegister, errors.KindNotFound).
				Path(t.Name, f.Name).
				Detail("referenced type %d is not registered", f.Ref).
				Value(f.Ref).
				Build()
		}
		if ref.Size != f.Size {
			return errors.TypeMismatch(errors.PhaseRegister, []string{t.Name, f.Name}, ref.Name,
				"field size differs from referenced type size")
		}
	}
	return nil
}

// FindByHash returns the valid type whose name hashes to h.
func (r *Registry) FindByHash(h typedesc.Hash) (*typedesc.Type, bool) {
	pos, ok := r.idx.find(h)
	if !ok {
		return nil, false
	}
	return &r.types[r.idx.slots[pos].id], true
}

// FindByName hashes name and returns the valid type with exactly that name.
func (r *Registry) FindByName(name string) (*typedesc.Type, bool) {
	t, ok := r.FindByHash(typedesc.HashString(name))
	if !ok || t.Name != name {
		return nil, false
	}
	return t, true
}

// Get returns the type with the given id unless it is out of range or
// tombstoned.
func (r *Registry) Get(id typedesc.TypeID) (*typedesc.Type, bool) {
	if int64(id) >= int64(len(r.types)) || !r.valid.has(int(id)) {
		return nil, false
	}
	return &r.types[id], true
}

// Lookup returns the record for id including tombstoned ones, for
// diagnostics. Callers must not treat the result as live.
func (r *Registry) Lookup(id typedesc.TypeID) (*typedesc.Type, bool) {
	if int64(id) >= int64(len(r.types)) {
		return nil, false
	}
	return &r.types[id], true
}

// Valid reports whether id names a registered, non-tombstoned type.
func (r *Registry) Valid(id typedesc.TypeID) bool {
	return int64(id) < int64(len(r.types)) && r.valid.has(int(id))
}

// UnregisterModule tombstones every valid type owned by m and removes it
// from the hash index. It returns the number of types removed; a second call
// removes nothing.
func (r *Registry) UnregisterModule(m typedesc.ModuleID) int {
	removed := 0
	for i := range r.types {
		t := &r.types[i]
		if t.Module != m || !r.valid.has(i) {
			continue
		}
		r.idx.remove(t.Hash, t.ID)
		r.valid.clear(i)
		removed++
		r.notify(Event{Type: EventTombstoned, ID: t.ID, Name: t.Name, Module: m})
	}
	if removed > 0 {
		r.log.Debug("module types unregistered",
			zap.Uint16("module", uint16(m)),
			zap.Int("count", removed))
	}
	return removed
}

// Count returns the number of slots ever used. It never decreases.
func (r *Registry) Count() int {
	return len(r.types)
}

// ValidCount returns the number of non-tombstoned types.
func (r *Registry) ValidCount() int {
	return r.valid.count()
}

// Each calls fn for every valid type in id order until fn returns false.
func (r *Registry) Each(fn func(t *typedesc.Type) bool) {
	for i := range r.types {
		if !r.valid.has(i) {
			continue
		}
		if !fn(&r.types[i]) {
			return
		}
	}
}

// Types returns the valid types in id order.
func (r *Registry) Types() []*typedesc.Type {
	out := make([]*typedesc.Type, 0, r.ValidCount())
	r.Each(func(t *typedesc.Type) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Stats summarizes registry occupancy.
type Stats struct {
	Types          int
	ValidTypes     int
	Capacity       int
	Modules        int
	ModuleCapacity int
	IndexSlots     int
	IndexUsed      int
	IndexDeleted   int
	// AvgProbe is the mean number of index slots a lookup of a valid type
	// inspects.
	AvgProbe float64
}

// Stats returns occupancy counters for diagnostics.
func (r *Registry) Stats() Stats {
	s := Stats{
		Types:          len(r.types),
		ValidTypes:     r.ValidCount(),
		Capacity:       r.cfg.MaxTypes,
		Modules:        len(r.modules),
		ModuleCapacity: r.cfg.MaxModules,
		IndexSlots:     len(r.idx.slots),
		IndexUsed:      r.idx.used,
		IndexDeleted:   r.idx.dead,
	}
	total := 0
	r.Each(func(t *typedesc.Type) bool {
		total += r.idx.probeLength(t.Hash)
		return true
	})
	if s.ValidTypes > 0 {
		s.AvgProbe = float64(total) / float64(s.ValidTypes)
	}
	return s
}
