package guest

import (
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/module"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

// Guest export names. Only ExportMemory and ExportModuleInfo are required.
const (
	ExportMemory     = "memory"
	ExportModuleInfo = "hr_module_info"
	ExportRegister   = "hr_register_types"
	ExportUnregister = "hr_unregister_types"
	ExportFixup      = "hr_hot_reload_fixup"
	ExportGetState   = "hr_get_state"
	ExportAlloc      = "hr_alloc"
	ExportInstances  = "hr_instances"
)

// infoSize is the size of the struct hr_module_info points to:
// {name_ptr, name_len, version, state_version}, all u32.
const infoSize = 16

// Instance is an instantiated guest module.
type Instance struct {
	engine     *Engine
	mod        api.Module
	compiled   wazero.CompiledModule
	mem        *Memory
	log        *zap.Logger
	info       module.Info
	label      string
	register   api.Function
	unregister api.Function
	fixup      api.Function
	getState   api.Function
	alloc      api.Function
	instances  api.Function
}

func newInstance(ctx context.Context, e *Engine, label string, mod api.Module, compiled wazero.CompiledModule) (*Instance, error) {
	var missing []string
	mem := mod.ExportedMemory(ExportMemory)
	if mem == nil {
		missing = append(missing, ExportMemory)
	}
	infoFn := mod.ExportedFunction(ExportModuleInfo)
	if infoFn == nil {
		missing = append(missing, ExportModuleInfo)
	}
	if len(missing) > 0 {
		return nil, errors.Load(label, &errors.MissingExportsError{Module: label, Exports: missing})
	}

	inst := &Instance{
		engine:     e,
		mod:        mod,
		compiled:   compiled,
		mem:        NewMemory(mem),
		label:      label,
		register:   mod.ExportedFunction(ExportRegister),
		unregister: mod.ExportedFunction(ExportUnregister),
		fixup:      mod.ExportedFunction(ExportFixup),
		getState:   mod.ExportedFunction(ExportGetState),
		alloc:      mod.ExportedFunction(ExportAlloc),
		instances:  mod.ExportedFunction(ExportInstances),
	}

	res, err := infoFn.Call(ctx)
	if err != nil {
		return nil, errors.Load(label, err)
	}
	if err := inst.readInfo(api.DecodeU32(res[0])); err != nil {
		return nil, errors.Load(label, err)
	}
	inst.log = e.log.With(zap.String("module", inst.info.Name))
	return inst, nil
}

func (i *Instance) readInfo(addr uint32) error {
	raw, err := i.mem.Read(addr, infoSize)
	if err != nil {
		return errors.InvalidData(errors.PhaseLoad, []string{ExportModuleInfo}, err.Error())
	}
	var f [4]uint32
	for n := range f {
		f[n] = binary.LittleEndian.Uint32(raw[n*4:])
	}
	name, err := i.mem.Read(f[0], f[1])
	if err != nil {
		return errors.InvalidData(errors.PhaseLoad, []string{ExportModuleInfo, "name"}, err.Error())
	}

	i.info = module.Info{
		Name:         string(name),
		Version:      f[2],
		StateVersion: f[3],
	}
	if i.register != nil {
		i.info.Register = i.callRegister
	}
	if i.unregister != nil {
		i.info.Unregister = i.callUnregister
	}
	if i.fixup != nil {
		i.info.Fixup = i.callFixup
	}
	return nil
}

// invoke calls fn with a call context bound to scope and returns the first
// registration error the guest caused, if any.
func (i *Instance) invoke(ctx context.Context, scope *registry.Scope, fn api.Function, params ...uint64) ([]uint64, error) {
	c := &call{scope: scope, log: i.log, module: i.info.Name}
	res, err := fn.Call(withCall(ctx, c), params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseReload, errors.KindInvalidData, err, "guest "+fn.Definition().Name()+" trapped")
	}
	return res, c.err
}

func (i *Instance) callRegister(ctx context.Context, s *registry.Scope) error {
	_, err := i.invoke(ctx, s, i.register)
	return err
}

func (i *Instance) callUnregister(ctx context.Context, s *registry.Scope) error {
	_, err := i.invoke(ctx, s, i.unregister)
	return err
}

func (i *Instance) callFixup(ctx context.Context, s *registry.Scope, prev *module.Snapshot) error {
	if prev == nil {
		_, err := i.invoke(ctx, s, i.fixup, 0, 0, 0)
		return err
	}
	if err := prev.Check(i.info.StateVersion); err != nil {
		return err
	}
	if i.alloc == nil {
		return errors.New(errors.PhaseState, errors.KindMissingEntryPoint).
			Type(i.info.Name).
			Detail("state offered but %s is not exported", ExportAlloc).
			Build()
	}

	n := uint32(len(prev.Data))
	res, err := i.invoke(ctx, s, i.alloc, api.EncodeU32(n))
	if err != nil {
		return err
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 && n > 0 {
		return errors.New(errors.PhaseState, errors.KindCapacityExceeded).
			Type(i.info.Name).
			Detail("guest could not allocate %d bytes for state", n).
			Build()
	}
	if err := i.mem.Write(ptr, prev.Data); err != nil {
		return errors.Wrap(errors.PhaseState, errors.KindOutOfBounds, err, "write state into guest")
	}
	_, err = i.invoke(ctx, s, i.fixup, api.EncodeU32(ptr), api.EncodeU32(n), api.EncodeU32(prev.Version))
	return err
}

func (i *Instance) Info() module.Info {
	return i.info
}

// ExportState copies the guest's retained state out of its memory. The
// guest reports it as ptr<<32 | len; 0 means none.
func (i *Instance) ExportState(ctx context.Context) (*module.Snapshot, error) {
	if i.getState == nil {
		return nil, nil
	}
	res, err := i.invoke(ctx, nil, i.getState)
	if err != nil {
		return nil, err
	}
	ptr, n := unpack(res[0])
	if n == 0 {
		return nil, nil
	}
	data, err := i.mem.Read(ptr, n)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseState, errors.KindOutOfBounds, err, "read guest state")
	}
	return &module.Snapshot{
		Module:  i.info.Name,
		Version: i.info.StateVersion,
		Data:    append([]byte(nil), data...),
	}, nil
}

// Instances returns the base address and count of the guest's live
// instances of type id, laid out contiguously.
func (i *Instance) Instances(ctx context.Context, id typedesc.TypeID) (uint32, int, error) {
	if i.instances == nil {
		return 0, 0, nil
	}
	res, err := i.invoke(ctx, nil, i.instances, api.EncodeU32(uint32(id)))
	if err != nil {
		return 0, 0, err
	}
	base, n := unpack(res[0])
	return base, int(n), nil
}

// Call invokes any exported function, for host code driving the guest.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.New(errors.PhaseLookup, errors.KindMissingEntryPoint).
			Type(i.info.Name).
			Detail("export %q not found", name).
			Build()
	}
	return i.invoke(ctx, nil, fn, params...)
}

func (i *Instance) Memory() hotreflect.Memory {
	return i.mem
}

// Close releases the guest. Its memory must not be used afterwards.
func (i *Instance) Close(ctx context.Context) error {
	err := i.mod.Close(ctx)
	if cerr := i.compiled.Close(ctx); err == nil {
		err = cerr
	}
	i.log.Debug("guest closed")
	return err
}

func unpack(v uint64) (ptr, n uint32) {
	return uint32(v >> 32), uint32(v)
}

var (
	_ module.Instance   = (*Instance)(nil)
	_ module.Enumerator = (*Instance)(nil)
)
