package wasmenc

const (
	magic   = 0x6d736100
	version = 1
)

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11
)

// Export kinds.
const (
	ExportFunc   byte = 0x00
	ExportMemory byte = 0x02
	ExportGlobal byte = 0x03
)

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

type funcImport struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []ValType
	body    []byte
}

type global struct {
	typ     ValType
	mutable bool
	init    int64
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset uint32
	init   []byte
}

// Module is a core module under construction. Imports must be added before
// any function is defined, since they share the function index space.
type Module struct {
	types    []FuncType
	imports  []funcImport
	funcs    []function
	globals  []global
	exports  []export
	data     []segment
	memPages uint32
	hasMem   bool
}

// New returns an empty module.
func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(ft FuncType) uint32 {
	for i, t := range m.types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	m.types = append(m.types, ft)
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
func (m *Module) Import(module, name string, ft FuncType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmenc: import after function definition")
	}
	m.imports = append(m.imports, funcImport{module: module, name: name, typeIdx: m.typeIndex(ft)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its index. body is the instruction
// sequence including the final end. A non-empty name exports it.
func (m *Module) Func(name string, ft FuncType, locals []ValType, body []byte) uint32 {
	m.funcs = append(m.funcs, function{typeIdx: m.typeIndex(ft), locals: locals, body: body})
	idx := uint32(len(m.imports) + len(m.funcs) - 1)
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: ExportFunc, idx: idx})
	}
	return idx
}

// Memory declares the module's memory with a minimum size in 64KiB pages.
// A non-empty name exports it.
func (m *Module) Memory(name string, pages uint32) {
	m.hasMem = true
	m.memPages = pages
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: ExportMemory, idx: 0})
	}
}

// Global defines a global initialized with a constant and returns its
// index. A non-empty name exports it.
func (m *Module) Global(name string, typ ValType, mutable bool, init int64) uint32 {
	m.globals = append(m.globals, global{typ: typ, mutable: mutable, init: init})
	idx := uint32(len(m.globals) - 1)
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: ExportGlobal, idx: idx})
	}
	return idx
}

// Data places init at offset in memory 0 on instantiation.
func (m *Module) Data(offset uint32, init []byte) {
	m.data = append(m.data, segment{offset: offset, init: init})
}

// Encode returns the binary module.
func (m *Module) Encode() []byte {
	var w Writer
	w.WriteU32LE(magic)
	w.WriteU32LE(version)

	if len(m.types) > 0 {
		var sec Writer
		sec.WriteU32(uint32(len(m.types)))
		for _, ft := range m.types {
			sec.Byte(0x60)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec Writer
		sec.WriteU32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.WriteName(imp.module)
			sec.WriteName(imp.name)
			sec.Byte(ExportFunc)
			sec.WriteU32(imp.typeIdx)
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec Writer
		sec.WriteU32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.WriteU32(f.typeIdx)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if m.hasMem {
		var sec Writer
		sec.WriteU32(1)
		sec.Byte(0x00) // min only
		sec.WriteU32(m.memPages)
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	if len(m.globals) > 0 {
		var sec Writer
		sec.WriteU32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.Byte(byte(g.typ))
			if g.mutable {
				sec.Byte(0x01)
			} else {
				sec.Byte(0x00)
			}
			switch g.typ {
			case I64:
				sec.Byte(opI64Const)
			default:
				sec.Byte(opI32Const)
			}
			sec.WriteS64(g.init)
			sec.Byte(opEnd)
		}
		writeSection(&w, sectionGlobal, sec.Bytes())
	}

	if len(m.exports) > 0 {
		var sec Writer
		sec.WriteU32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.WriteName(e.name)
			sec.Byte(e.kind)
			sec.WriteU32(e.idx)
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec Writer
		sec.WriteU32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body Writer
			body.WriteU32(uint32(len(f.locals)))
			for _, l := range f.locals {
				body.WriteU32(1)
				body.Byte(byte(l))
			}
			body.WriteBytes(f.body)
			sec.WriteU32(uint32(body.Len()))
			sec.WriteBytes(body.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	if len(m.data) > 0 {
		var sec Writer
		sec.WriteU32(uint32(len(m.data)))
		for _, d := range m.data {
			sec.WriteU32(0) // active, memory 0
			sec.Byte(opI32Const)
			sec.WriteS64(int64(int32(d.offset)))
			sec.Byte(opEnd)
			sec.WriteU32(uint32(len(d.init)))
			sec.WriteBytes(d.init)
		}
		writeSection(&w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

func writeValTypes(w *Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeSection(w *Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}
