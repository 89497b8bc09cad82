package render

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

type fixture struct {
	reg    *registry.Registry
	mem    hotreflect.Bytes
	player *typedesc.Type
	base   uint32
}

func register(t *testing.T, reg *registry.Registry, typ typedesc.Type) *typedesc.Type {
	t.Helper()
	id, err := reg.Register(typ)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := reg.Get(id)
	return got
}

// newFixture lays out one Player at offset 16 of a host buffer.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New(registry.Config{})
	vec3 := register(t, reg, typedesc.NewBuilder("Vec3").
		Scalar("x", typedesc.KindF32).Editable().
		Scalar("y", typedesc.KindF32).
		Scalar("z", typedesc.KindF32).
		Build())
	health := register(t, reg, typedesc.NewBuilder("Health").
		Scalar("current", typedesc.KindF32).Editable().
		Scalar("maximum", typedesc.KindF32).
		Build())
	player := register(t, reg, typedesc.NewBuilder("Player").
		Scalar("id", typedesc.KindU32).
		Bytes("name", 16).
		Nested("position", vec3).Editable().
		Nested("health", health).
		Scalar("speed", typedesc.KindF32).Editable().
		Scalar("flags", typedesc.KindU32).
		Build())

	f := &fixture{reg: reg, mem: hotreflect.NewBytes(16 + player.Size), player: player, base: 16}
	f.set(t, "id", registry.U32(7))
	f.set(t, "name", registry.BytesOf([]byte("Hero")))
	f.set(t, "speed", registry.F32(5))
	f.set(t, "flags", registry.U32(3))

	pos, _ := reg.Read(f.mem, f.base, player, player.FieldIndex("position"))
	mustWrite(t, reg.Write(f.mem, pos.Addr, vec3, 0, registry.F32(1.5)))
	mustWrite(t, reg.Write(f.mem, pos.Addr, vec3, 2, registry.F32(-2.25)))
	hv, _ := reg.Read(f.mem, f.base, player, player.FieldIndex("health"))
	mustWrite(t, reg.Write(f.mem, hv.Addr, health, 0, registry.F32(75)))
	mustWrite(t, reg.Write(f.mem, hv.Addr, health, 1, registry.F32(100)))
	return f
}

func (f *fixture) set(t *testing.T, name string, v registry.Value) {
	t.Helper()
	mustWrite(t, f.reg.Write(f.mem, f.base, f.player, f.player.FieldIndex(name), v))
}

func mustWrite(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

const playerJSON = `{
  "_type": "Player",
  "id": 7,
  "name": "<binary>",
  "position": {
    "_type": "Vec3",
    "x": 1.500,
    "y": 0.000,
    "z": -2.250
  },
  "health": {
    "_type": "Health",
    "current": 75.000,
    "maximum": 100.000
  },
  "speed": 5.000,
  "flags": 3
}`

func TestJSON_Marshal(t *testing.T) {
	f := newFixture(t)
	got, err := NewJSON(f.reg).Marshal(f.mem, f.base, f.player)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != playerJSON {
		t.Errorf("got\n%s\nwant\n%s", got, playerJSON)
	}
	if !json.Valid(got) {
		t.Error("output is not valid JSON")
	}
}

func TestJSON_Options(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	if err := NewJSON(f.reg, WithTextBytes(), WithIndent("\t")).Encode(&buf, f.mem, f.base, f.player); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "\t\"name\": \"Hero\",\n") {
		t.Errorf("text bytes not rendered:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("Encode terminates the document with a newline")
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["_type"] != "Player" || doc["speed"] != 5.0 {
		t.Errorf("decoded = %v", doc)
	}
}

func TestJSON_Kinds(t *testing.T) {
	reg := registry.New(registry.Config{})
	typ := register(t, reg, typedesc.NewBuilder("Kinds").
		Scalar("s", typedesc.KindS16).
		Scalar("b", typedesc.KindBool).
		Scalar("d", typedesc.KindF64).
		Scalar("n", typedesc.KindF32).
		Build())
	mem := hotreflect.NewBytes(typ.Size)
	mustWrite(t, reg.Write(mem, 0, typ, 0, registry.S16(-12)))
	mustWrite(t, reg.Write(mem, 0, typ, 1, registry.Bool(true)))
	mustWrite(t, reg.Write(mem, 0, typ, 2, registry.F64(0.1)))
	mustWrite(t, reg.Write(mem, 0, typ, 3, registry.F32(float32(math.NaN()))))

	got, err := NewJSON(reg).Marshal(mem, 0, typ)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"s": -12`, `"b": true`, `"d": 0.100`, `"n": null`} {
		if !bytes.Contains(got, []byte(want)) {
			t.Errorf("missing %s in\n%s", want, got)
		}
	}
}

func TestJSON_MarkupNotEscaped(t *testing.T) {
	reg := registry.New(registry.Config{})
	typ := register(t, reg, typedesc.NewBuilder("Tagged").
		Bytes("tag", 16).
		Build())
	mem := hotreflect.NewBytes(typ.Size)
	mustWrite(t, reg.Write(mem, 0, typ, 0, registry.BytesOf([]byte("a<b>&c"))))

	tests := []struct {
		name string
		opts []JSONOption
		want string
	}{
		{"binary placeholder", nil, `"tag": "<binary>"`},
		{"text bytes", []JSONOption{WithTextBytes()}, `"tag": "a<b>&c"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewJSON(reg, tt.opts...).Marshal(mem, 0, typ)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Contains(got, []byte(tt.want)) {
				t.Errorf("missing %s in\n%s", tt.want, got)
			}
			if bytes.Contains(got, []byte(`\u003c`)) {
				t.Errorf("markup was escaped:\n%s", got)
			}
		})
	}
}

// A nested field whose type was unregistered has nothing to recurse into.
func TestJSON_TombstonedNested(t *testing.T) {
	reg := registry.New(registry.Config{})
	mid, err := reg.AttachModule(registry.ModuleRecord{Name: "inner"})
	if err != nil {
		t.Fatal(err)
	}
	scope := reg.Scope(mid)
	id, err := scope.Register(typedesc.NewBuilder("Inner").Scalar("v", typedesc.KindU32).Build())
	if err != nil {
		t.Fatal(err)
	}
	inner, _ := reg.Get(id)
	outer := register(t, reg, typedesc.NewBuilder("Outer").Nested("inner", inner).Build())
	scope.UnregisterAll()

	got, err := NewJSON(reg).Marshal(hotreflect.NewBytes(outer.Size), 0, outer)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(got, []byte(`"inner": "<binary>"`)) {
		t.Errorf("got\n%s", got)
	}
}

func TestJSON_OutOfMemory(t *testing.T) {
	f := newFixture(t)
	_, err := NewJSON(f.reg).Marshal(f.mem, f.base+8, f.player)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidData}) {
		t.Errorf("expected encode error, got %v", err)
	}
}

const playerSheet = `=== Player Editor ===
  id: [read-only]
  name: [read-only]
  position:
  === Vec3 Editor ===
    x: 1.50 [editable]
    y: [read-only]
    z: [read-only]
  health: [read-only]
  speed: 5.00 [editable]
  flags: [read-only]
`

func TestEditor_Render(t *testing.T) {
	f := newFixture(t)
	ed := NewEditor(f.reg)

	got, err := ed.String(f.mem, f.base, f.player)
	if err != nil {
		t.Fatal(err)
	}
	if got != playerSheet {
		t.Errorf("got\n%s\nwant\n%s", got, playerSheet)
	}

	var buf bytes.Buffer
	if err := ed.Render(&buf, f.mem, f.base, f.player); err != nil {
		t.Fatal(err)
	}
	if buf.String() != playerSheet {
		t.Error("Render and String disagree")
	}
}

func TestEditor_Set(t *testing.T) {
	f := newFixture(t)
	ed := NewEditor(f.reg, WithStyles(DefaultStyles()))

	if err := ed.Set(f.mem, f.base, f.player, "speed", "7.5"); err != nil {
		t.Fatal(err)
	}
	if err := ed.Set(f.mem, f.base, f.player, "position.x", "-4"); err != nil {
		t.Fatal(err)
	}
	speedAddr, _ := f.reg.FieldAddr(f.base, f.player, f.player.FieldIndex("speed"))
	if bits, _ := f.mem.ReadU32(speedAddr); math.Float32frombits(bits) != 7.5 {
		t.Errorf("speed = %v", math.Float32frombits(bits))
	}
	posAddr, _ := f.reg.FieldAddr(f.base, f.player, f.player.FieldIndex("position"))
	if bits, _ := f.mem.ReadU32(posAddr); math.Float32frombits(bits) != -4 {
		t.Errorf("position.x = %v", math.Float32frombits(bits))
	}

	invalid := &errors.Error{Phase: errors.PhaseAccess, Kind: errors.KindInvalidInput}
	tests := []struct {
		path   string
		text   string
		target error
	}{
		{"flags", "1", invalid},
		{"position.y", "1", invalid},
		{"health", "1", invalid},
		{"health.current", "1", invalid},
		{"speed", "fast", invalid},
		{"mana", "1", errors.ErrNotFound},
		{"position.w", "1", errors.ErrNotFound},
		{"speed.x", "1", &errors.Error{Phase: errors.PhaseAccess, Kind: errors.KindTypeMismatch}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ed.Set(f.mem, f.base, f.player, tt.path, tt.text)
			if !stderrors.Is(err, tt.target) {
				t.Errorf("Set(%s, %s) = %v", tt.path, tt.text, err)
			}
		})
	}
}

func TestRows(t *testing.T) {
	f := newFixture(t)
	rows, err := Rows(f.reg, f.mem, f.base, f.player)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		path     string
		depth    int
		editable bool
	}{
		{"id", 0, false},
		{"name", 0, false},
		{"position", 0, false},
		{"position.x", 1, true},
		{"position.y", 1, false},
		{"position.z", 1, false},
		{"health", 0, false},
		{"health.current", 1, false},
		{"health.maximum", 1, false},
		{"speed", 0, true},
		{"flags", 0, false},
	}
	if len(rows) != len(want) {
		t.Fatalf("%d rows, want %d", len(rows), len(want))
	}
	for i, w := range want {
		r := rows[i]
		if r.Path != w.path || r.Depth != w.depth || r.Editable() != w.editable {
			t.Errorf("row %d = %s depth %d editable %v", i, r.Path, r.Depth, r.Editable())
		}
	}
	if rows[3].Base == f.base || rows[3].Owner.Name != "Vec3" {
		t.Errorf("nested row owner = %s at %d", rows[3].Owner.Name, rows[3].Base)
	}
	if rows[1].Value.Text() != "Hero" {
		t.Errorf("name = %q", rows[1].Value.Text())
	}
}
