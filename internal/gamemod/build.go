package gamemod

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/hotreflect/guest"
	"github.com/wippyai/hotreflect/internal/wasmenc"
	"github.com/wippyai/hotreflect/typedesc"
)

// PlayerSeed is the initial content of one player slot.
type PlayerSeed struct {
	Name    string
	Health  float32
	Regen   float32
	Speed   float32
	ID      uint32
	Flags   uint32
	Maximum float32
}

// Seeds are the players present in a freshly instantiated module.
var Seeds = []PlayerSeed{
	{ID: 1, Name: "Alice", Health: 50, Maximum: 100, Regen: 1, Speed: 2.5},
	{ID: 2, Name: "Bob", Health: 80, Maximum: 100, Regen: 0.5, Speed: 1.5, Flags: 1},
}

type strtab struct {
	data  []byte
	index map[string]uint32
}

func (s *strtab) add(str string) (ptr, n int32) {
	if s.index == nil {
		s.index = make(map[string]uint32)
	}
	off, ok := s.index[str]
	if !ok {
		off = uint32(len(s.data))
		s.index[str] = off
		s.data = append(s.data, str...)
	}
	return int32(StringsAddr + off), int32(len(str))
}

var (
	typI32   = wasmenc.I32
	typI64   = wasmenc.I64
	typF32   = wasmenc.F32
	noParams = wasmenc.FuncType{}
)

// Build encodes the game module.
func Build(opts Options) []byte {
	opts = opts.withDefaults()
	types := Types(opts)
	player := types[Player]
	stateSize := StateSize(opts)

	var strs strtab
	m := wasmenc.New()

	i32Result := []wasmenc.ValType{typI32}
	fnBegin := m.Import(guest.HostModule, guest.ImportTypeBegin,
		wasmenc.FuncType{Params: []wasmenc.ValType{typI32, typI32, typI32, typI32, typI32}, Results: i32Result})
	fnField := m.Import(guest.HostModule, guest.ImportTypeField,
		wasmenc.FuncType{Params: []wasmenc.ValType{typI32, typI32, typI32, typI32, typI32, typI32, typI32}, Results: i32Result})
	fnCommit := m.Import(guest.HostModule, guest.ImportTypeCommit, wasmenc.FuncType{Results: i32Result})
	fnUnregister := m.Import(guest.HostModule, guest.ImportModuleUnregister, noParams)
	fnLog := m.Import(guest.HostModule, guest.ImportLog, wasmenc.FuncType{Params: []wasmenc.ValType{typI32, typI32}})

	m.Memory(guest.ExportMemory, 1)
	gPlayerID := m.Global("", typI32, true, -1)
	gRestored := m.Global("restored", typI32, true, 0)

	// hr_module_info
	namePtr, nameLen := strs.add(opts.Name)
	info := make([]byte, 16)
	binary.LittleEndian.PutUint32(info[0:], uint32(namePtr))
	binary.LittleEndian.PutUint32(info[4:], uint32(nameLen))
	binary.LittleEndian.PutUint32(info[8:], opts.Version)
	binary.LittleEndian.PutUint32(info[12:], opts.StateVersion)
	m.Data(InfoAddr, info)
	m.Func(guest.ExportModuleInfo, wasmenc.FuncType{Results: i32Result}, nil,
		wasmenc.NewCode().I32Const(InfoAddr).End().Bytes())

	// hr_register_types: one local per type holds its assigned id.
	reg := wasmenc.NewCode()
	locals := make([]wasmenc.ValType, len(types))
	for k, t := range types {
		locals[k] = typI32
		p, n := strs.add(t.Name)
		reg.I32Const(p).I32Const(n).
			I32Const(int32(t.Size)).I32Const(int32(t.Align)).I32Const(int32(t.Version)).
			Call(fnBegin).Drop()
		for _, f := range t.Fields {
			p, n := strs.add(f.Name)
			reg.I32Const(p).I32Const(n).I32Const(int32(f.Offset)).I32Const(int32(f.Size))
			if f.Ref == typedesc.None {
				reg.I32Const(-1)
			} else {
				reg.LocalGet(uint32(f.Ref))
			}
			reg.I32Const(int32(f.Flags)).I32Const(int32(f.Kind)).Call(fnField).Drop()
		}
		reg.Call(fnCommit).LocalSet(uint32(k))
	}
	reg.LocalGet(Player).GlobalSet(gPlayerID).End()
	m.Func(guest.ExportRegister, noParams, locals, reg.Bytes())

	if !opts.NoUnregister {
		m.Func(guest.ExportUnregister, noParams, nil,
			wasmenc.NewCode().Call(fnUnregister).End().Bytes())
	}

	if !opts.NoState {
		m.Func(guest.ExportGetState, wasmenc.FuncType{Results: []wasmenc.ValType{typI64}}, nil,
			wasmenc.NewCode().I64Const(int64(StateAddr)<<32|int64(stateSize)).End().Bytes())
	}

	// hr_alloc(len) hands out the scratch buffer.
	m.Func(guest.ExportAlloc, wasmenc.FuncType{Params: []wasmenc.ValType{typI32}, Results: i32Result}, nil,
		wasmenc.NewCode().
			LocalGet(0).I32Const(ScratchSize).I32GtU().
			If(typI32).I32Const(0).Else().I32Const(ScratchAddr).End().
			End().Bytes())

	// hr_hot_reload_fixup(ptr, len, version) copies the previous state over
	// the seeded one.
	if !opts.NoFixup {
		mp, mn := strs.add(opts.Name + ": state restored")
		m.Func(guest.ExportFixup, wasmenc.FuncType{Params: []wasmenc.ValType{typI32, typI32, typI32}}, nil,
			wasmenc.NewCode().
				LocalGet(1).I32Eqz().If(0).Return().End().
				LocalGet(1).I32Const(int32(stateSize)).I32GtU().If(0).Return().End().
				I32Const(StateAddr).LocalGet(0).LocalGet(1).MemoryCopy().
				I32Const(1).GlobalSet(gRestored).
				I32Const(mp).I32Const(mn).Call(fnLog).
				End().Bytes())
	}

	// hr_instances(type_id) -> ptr<<32 | count, players only.
	m.Func(guest.ExportInstances, wasmenc.FuncType{Params: []wasmenc.ValType{typI32}, Results: []wasmenc.ValType{typI64}}, nil,
		wasmenc.NewCode().
			LocalGet(0).GlobalGet(gPlayerID).I32Eq().
			If(typI64).
			I64Const(int64(StateAddr+StatePlayers)<<32).
			I32Const(StateAddr).I32Load(StatePlayerCount).I64ExtendI32U().
			I64Or().
			Else().I64Const(0).End().
			End().Bytes())

	// game_update(dt): advance game time, regenerate health up to the
	// maximum and move each player along x by speed.
	healthOff := player.Fields[player.FieldIndex("health")].Offset
	posOff := player.Fields[player.FieldIndex("transform")].Offset
	speedOff := player.Fields[player.FieldIndex("speed")].Offset
	const (
		dt = 0
		n  = 1
		p  = 2
	)
	m.Func("game_update", wasmenc.FuncType{Params: []wasmenc.ValType{typF32}}, []wasmenc.ValType{typI32, typI32},
		wasmenc.NewCode().
			I32Const(StateAddr).
			I32Const(StateAddr).F32Load(StateGameTime).LocalGet(dt).F32Add().
			F32Store(StateGameTime).
			I32Const(StateAddr).I32Load(StatePlayerCount).LocalSet(n).
			I32Const(StateAddr+StatePlayers).LocalSet(p).
			Block().Loop().
			LocalGet(n).I32Eqz().BrIf(1).
			// health.current = min(current + regen*dt, maximum)
			LocalGet(p).
			LocalGet(p).F32Load(healthOff).
			LocalGet(p).F32Load(healthOff+8).LocalGet(dt).F32Mul().
			F32Add().
			LocalGet(p).F32Load(healthOff+4).
			F32Min().
			F32Store(healthOff).
			// transform.position.x += speed*dt
			LocalGet(p).
			LocalGet(p).F32Load(posOff).
			LocalGet(p).F32Load(speedOff).LocalGet(dt).F32Mul().
			F32Add().
			F32Store(posOff).
			LocalGet(p).I32Const(int32(player.Size)).I32Add().LocalSet(p).
			LocalGet(n).I32Const(1).I32Sub().LocalSet(n).
			Br(0).
			End().End().
			End().Bytes())

	m.Data(StateAddr, seedState(types))
	m.Data(StringsAddr, strs.data)
	return m.Encode()
}

func seedState(types []typedesc.Type) []byte {
	player := &types[Player]
	health := &types[Health]
	transform := &types[Transform]

	buf := make([]byte, StatePlayers+len(Seeds)*int(player.Size))
	binary.LittleEndian.PutUint32(buf[StatePlayerCount:], uint32(len(Seeds)))

	putF32 := func(off uint32, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	field := func(t *typedesc.Type, name string) uint32 {
		return t.Fields[t.FieldIndex(name)].Offset
	}

	for i, s := range Seeds {
		base := StatePlayers + uint32(i)*player.Size
		binary.LittleEndian.PutUint32(buf[base+field(player, "id"):], s.ID)
		copy(buf[base+field(player, "name"):base+field(player, "name")+32], s.Name)
		tr := base + field(player, "transform")
		putF32(tr+field(transform, "scale"), 1)
		h := base + field(player, "health")
		putF32(h+field(health, "current"), s.Health)
		putF32(h+field(health, "maximum"), s.Maximum)
		putF32(h+field(health, "regen_rate"), s.Regen)
		putF32(base+field(player, "speed"), s.Speed)
		binary.LittleEndian.PutUint32(buf[base+field(player, "flags"):], s.Flags)
	}
	return buf
}
