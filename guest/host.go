package guest

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/typedesc"
)

// HostModule is the import module name guests link against.
const HostModule = "hotreflect"

// Host import names.
const (
	ImportTypeBegin        = "type_begin"
	ImportTypeField        = "type_field"
	ImportTypeCommit       = "type_commit"
	ImportTypeFind         = "type_find"
	ImportModuleUnregister = "module_unregister"
	ImportLog              = "log"
)

var i32 = api.ValueTypeI32

type hostFunc struct {
	fn      api.GoModuleFunc
	name    string
	params  []api.ValueType
	results []api.ValueType
}

func (e *Engine) hostFuncs() []hostFunc {
	return []hostFunc{
		{name: ImportTypeBegin, fn: e.typeBegin, params: []api.ValueType{i32, i32, i32, i32, i32}, results: []api.ValueType{i32}},
		{name: ImportTypeField, fn: e.typeField, params: []api.ValueType{i32, i32, i32, i32, i32, i32, i32}, results: []api.ValueType{i32}},
		{name: ImportTypeCommit, fn: e.typeCommit, results: []api.ValueType{i32}},
		{name: ImportTypeFind, fn: e.typeFind, params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
		{name: ImportModuleUnregister, fn: e.moduleUnregister},
		{name: ImportLog, fn: e.guestLog, params: []api.ValueType{i32, i32}},
	}
}

func (e *Engine) instantiateHost(ctx context.Context, rt wazero.Runtime) error {
	b := rt.NewHostModuleBuilder(HostModule)
	for _, f := range e.hostFuncs() {
		b.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			Export(f.name)
	}
	_, err := b.Instantiate(ctx)
	return err
}

func readString(mod api.Module, ptr, n uint64) (string, bool) {
	data, ok := mod.Memory().Read(uint32(ptr), uint32(n))
	if !ok {
		return "", false
	}
	return string(data), true
}

const (
	resultOK   = 0
	resultFail = -1
)

func setI32(stack []uint64, v int32) {
	stack[0] = api.EncodeI32(v)
}

// type_begin(name_ptr, name_len, size, align, version) -> i32
func (e *Engine) typeBegin(ctx context.Context, mod api.Module, stack []uint64) {
	c := callFrom(ctx)
	if c == nil || c.scope == nil {
		setI32(stack, resultFail)
		return
	}
	name, ok := readString(mod, stack[0], stack[1])
	if !ok {
		c.fail(errors.InvalidData(errors.PhaseRegister, nil, "type name out of bounds"))
		setI32(stack, resultFail)
		return
	}
	c.pending = &typedesc.Type{
		Name:    name,
		Hash:    typedesc.HashString(name),
		ID:      typedesc.None,
		Size:    api.DecodeU32(stack[2]),
		Align:   api.DecodeU32(stack[3]),
		Version: uint16(api.DecodeU32(stack[4])),
	}
	setI32(stack, resultOK)
}

// type_field(name_ptr, name_len, offset, size, ref, flags, kind) -> i32
func (e *Engine) typeField(ctx context.Context, mod api.Module, stack []uint64) {
	c := callFrom(ctx)
	if c == nil || c.pending == nil {
		setI32(stack, resultFail)
		return
	}
	name, ok := readString(mod, stack[0], stack[1])
	if !ok {
		c.fail(errors.InvalidData(errors.PhaseRegister, []string{c.pending.Name}, "field name out of bounds"))
		setI32(stack, resultFail)
		return
	}
	c.pending.Fields = append(c.pending.Fields, typedesc.Field{
		Name:   name,
		Offset: api.DecodeU32(stack[2]),
		Size:   api.DecodeU32(stack[3]),
		Ref:    typedesc.TypeID(api.DecodeU32(stack[4])),
		Flags:  typedesc.Flags(api.DecodeU32(stack[5])),
		Kind:   typedesc.Kind(api.DecodeU32(stack[6])),
	})
	setI32(stack, resultOK)
}

// type_commit() -> i32 id, or -1
func (e *Engine) typeCommit(ctx context.Context, _ api.Module, stack []uint64) {
	c := callFrom(ctx)
	if c == nil || c.pending == nil {
		setI32(stack, resultFail)
		return
	}
	t := *c.pending
	c.pending = nil
	id, err := c.scope.Register(t)
	if err != nil {
		c.fail(err)
		c.log.Warn("guest type registration refused",
			zap.String("module", c.module),
			zap.String("type", t.Name),
			zap.Error(err))
		setI32(stack, resultFail)
		return
	}
	setI32(stack, int32(id))
}

// type_find(name_ptr, name_len) -> i32 id, or -1
func (e *Engine) typeFind(ctx context.Context, mod api.Module, stack []uint64) {
	c := callFrom(ctx)
	if c == nil || c.scope == nil {
		setI32(stack, resultFail)
		return
	}
	name, ok := readString(mod, stack[0], stack[1])
	if !ok {
		setI32(stack, resultFail)
		return
	}
	t, ok := c.scope.Find(name)
	if !ok {
		setI32(stack, resultFail)
		return
	}
	setI32(stack, int32(t.ID))
}

// module_unregister()
func (e *Engine) moduleUnregister(ctx context.Context, _ api.Module, _ []uint64) {
	c := callFrom(ctx)
	if c == nil || c.scope == nil {
		return
	}
	n := c.scope.UnregisterAll()
	c.log.Debug("guest unregistered its types",
		zap.String("module", c.module),
		zap.Int("count", n))
}

// log(ptr, len)
func (e *Engine) guestLog(ctx context.Context, mod api.Module, stack []uint64) {
	msg, ok := readString(mod, stack[0], stack[1])
	if !ok {
		return
	}
	l, name := e.log, ""
	if c := callFrom(ctx); c != nil {
		l, name = c.log, c.module
	}
	l.Info(msg, zap.String("module", name))
}
