package registry

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/typedesc"
)

func vec3Type(module typedesc.ModuleID) typedesc.Type {
	return typedesc.NewBuilder("Vec3").
		Module(module).
		Scalar("x", typedesc.KindF32).
		Scalar("y", typedesc.KindF32).
		Scalar("z", typedesc.KindF32).
		Build()
}

func transformType(module typedesc.ModuleID, vec3 *typedesc.Type) typedesc.Type {
	return typedesc.NewBuilder("Transform").
		Module(module).
		Nested("position", vec3).
		Nested("rotation", vec3).
		Scalar("scale", typedesc.KindF32).
		Build()
}

func simpleType(name string, module typedesc.ModuleID) typedesc.Type {
	return typedesc.NewBuilder(name).
		Module(module).
		Scalar("value", typedesc.KindU32).
		Build()
}

func mustRegister(t *testing.T, r *Registry, ty typedesc.Type) typedesc.TypeID {
	t.Helper()
	id, err := r.Register(ty)
	if err != nil {
		t.Fatalf("Register(%s): %v", ty.Name, err)
	}
	return id
}

func TestRegister_IDsUniqueAndMonotonic(t *testing.T) {
	r := New(Config{MaxTypes: 64})
	last := typedesc.None
	seen := make(map[typedesc.TypeID]bool)
	for i := 0; i < 40; i++ {
		id := mustRegister(t, r, simpleType(fmt.Sprintf("T%d", i), 1))
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		if last != typedesc.None && id <= last {
			t.Fatalf("id %d not greater than %d", id, last)
		}
		seen[id] = true
		last = id
	}
	if r.Count() != 40 || r.ValidCount() != 40 {
		t.Errorf("count = %d/%d, want 40/40", r.Count(), r.ValidCount())
	}
}

func TestFindByHash_AfterRegister(t *testing.T) {
	r := New(Config{})
	names := []string{"Vec3", "Transform", "Health", "Player", "float", "uint32"}
	for _, n := range names {
		mustRegister(t, r, simpleType(n, 0))
	}
	for _, n := range names {
		got, ok := r.FindByHash(typedesc.HashString(n))
		if !ok {
			t.Fatalf("FindByHash(%q) not found", n)
		}
		if got.Name != n {
			t.Errorf("FindByHash(%q) returned %q", n, got.Name)
		}
		byName, ok := r.FindByName(n)
		if !ok || byName != got {
			t.Errorf("FindByName(%q) disagrees with FindByHash", n)
		}
	}
	if _, ok := r.FindByName("Missing"); ok {
		t.Error("unregistered name should not be found")
	}
}

func TestScenarioA_Vec3(t *testing.T) {
	r := New(Config{})
	mustRegister(t, r, vec3Type(1))

	got, ok := r.FindByHash(typedesc.HashString("Vec3"))
	if !ok {
		t.Fatal("Vec3 not found")
	}
	if len(got.Fields) != 3 {
		t.Errorf("field count = %d, want 3", len(got.Fields))
	}
	if got.Fields[1].Offset != 4 {
		t.Errorf("fields[1].Offset = %d, want 4", got.Fields[1].Offset)
	}
}

func TestScenarioB_UnregisterKeepsTombstones(t *testing.T) {
	r := New(Config{})
	vid := mustRegister(t, r, vec3Type(1))
	vec3, _ := r.Get(vid)
	tid := mustRegister(t, r, transformType(1, vec3))
	other := mustRegister(t, r, simpleType("Score", 2))

	if n := r.UnregisterModule(1); n != 2 {
		t.Fatalf("UnregisterModule removed %d, want 2", n)
	}

	for _, n := range []string{"Vec3", "Transform"} {
		if _, ok := r.FindByHash(typedesc.HashString(n)); ok {
			t.Errorf("%s still findable after unregister", n)
		}
	}
	if _, ok := r.FindByName("Score"); !ok {
		t.Error("other module's type should remain findable")
	}
	if _, ok := r.Get(vid); ok {
		t.Error("Get should miss tombstoned Vec3")
	}
	for _, id := range []typedesc.TypeID{vid, tid} {
		rec, ok := r.Lookup(id)
		if !ok {
			t.Fatalf("Lookup(%d) should return the tombstoned record", id)
		}
		if r.Valid(id) {
			t.Errorf("type %d should be tombstoned", id)
		}
		if rec.ID != id {
			t.Errorf("Lookup(%d).ID = %d", id, rec.ID)
		}
	}
	if !r.Valid(other) {
		t.Error("Score should stay valid")
	}

	if n := r.UnregisterModule(1); n != 0 {
		t.Errorf("second UnregisterModule removed %d, want 0", n)
	}
	if r.Count() != 3 || r.ValidCount() != 1 {
		t.Errorf("count = %d/%d, want 3/1", r.Count(), r.ValidCount())
	}
}

func TestScenarioC_ReloadSupersedes(t *testing.T) {
	r := New(Config{})
	v1 := vec3Type(1)
	oldID := mustRegister(t, r, v1)

	// v1 is not explicitly unregistered; v2 registers the same name with a
	// bumped version.
	v2 := vec3Type(1)
	v2.Version = 2
	newID := mustRegister(t, r, v2)

	got, ok := r.FindByName("Vec3")
	if !ok || got.ID != newID || got.Version != 2 {
		t.Fatalf("FindByName = %+v, want v2 at id %d", got, newID)
	}
	if r.Valid(oldID) {
		t.Error("v1 should be tombstoned")
	}
	if old, ok := r.Lookup(oldID); !ok || old.Version != 1 {
		t.Error("v1 record should remain for diagnostics")
	}

	found := 0
	r.Each(func(ty *typedesc.Type) bool {
		if ty.Name == "Vec3" {
			found++
		}
		return true
	})
	if found != 1 {
		t.Errorf("%d findable Vec3 types, want 1", found)
	}
}

func TestRegister_CapacityExceeded(t *testing.T) {
	r := New(Config{MaxTypes: 4})
	for i := 0; i < 4; i++ {
		mustRegister(t, r, simpleType(fmt.Sprintf("T%d", i), 1))
	}
	id, err := r.Register(simpleType("Overflow", 1))
	if !stderrors.Is(err, errors.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if id != typedesc.None {
		t.Errorf("id = %d, want None", id)
	}
	if r.Count() != 4 {
		t.Errorf("count = %d after refused registration, want 4", r.Count())
	}
	if _, ok := r.FindByName("Overflow"); ok {
		t.Error("refused type should not be findable")
	}
}

func TestRegister_HashCollision(t *testing.T) {
	// "Ab" and "BA" have the same djb2 hash: 'A'*33+'b' == 'B'*33+'A'.
	if typedesc.HashString("Ab") != typedesc.HashString("BA") {
		t.Fatal("fixture names must collide")
	}
	r := New(Config{})
	mustRegister(t, r, simpleType("Ab", 1))

	id, err := r.Register(simpleType("BA", 1))
	if !stderrors.Is(err, errors.ErrHashCollision) {
		t.Fatalf("expected ErrHashCollision, got %v", err)
	}
	if id != typedesc.None || r.Count() != 1 {
		t.Errorf("collision must not store anything: id=%d count=%d", id, r.Count())
	}
	if got, ok := r.FindByName("Ab"); !ok || got.Name != "Ab" {
		t.Error("original type should remain findable")
	}
	if _, ok := r.FindByName("BA"); ok {
		t.Error("FindByName must compare names on hash hits")
	}
}

func TestRegister_NameOwnedByOtherModule(t *testing.T) {
	r := New(Config{})
	aID := mustRegister(t, r, simpleType("Vec3", 1))

	id, err := r.Register(simpleType("Vec3", 2))
	if !stderrors.Is(err, errors.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if id != typedesc.None || r.Count() != 1 {
		t.Errorf("refused duplicate must not store anything: id=%d count=%d", id, r.Count())
	}
	if !r.Valid(aID) {
		t.Error("owner's type must stay valid")
	}

	r.UnregisterModule(2)
	if got, ok := r.FindByName("Vec3"); !ok || got.ID != aID {
		t.Errorf("Vec3 after other module unloads = %+v", got)
	}

	// Once the owner unloads, the name is free for another module.
	r.UnregisterModule(1)
	bID := mustRegister(t, r, simpleType("Vec3", 2))
	if got, ok := r.FindByName("Vec3"); !ok || got.ID != bID || got.Module != 2 {
		t.Errorf("Vec3 after owner unloads = %+v", got)
	}
}

func TestRegister_Validation(t *testing.T) {
	r := New(Config{})

	tests := []struct {
		name string
		ty   func() typedesc.Type
		kind errors.Kind
	}{
		{
			name: "too many fields",
			ty: func() typedesc.Type {
				b := typedesc.NewBuilder("Wide")
				for i := 0; i <= typedesc.MaxFields; i++ {
					b.Scalar(fmt.Sprintf("f%d", i), typedesc.KindU8)
				}
				return b.Build()
			},
			kind: errors.KindInvalidInput,
		},
		{
			name: "field past end",
			ty: func() typedesc.Type {
				ty := vec3Type(1)
				ty.Size = 8
				return ty
			},
			kind: errors.KindOutOfBounds,
		},
		{
			name: "inconsistent hash",
			ty: func() typedesc.Type {
				ty := vec3Type(1)
				ty.Hash = typedesc.HashString("Vec4")
				return ty
			},
			kind: errors.KindInvalidInput,
		},
		{
			name: "dangling reference",
			ty: func() typedesc.Type {
				ghost := vec3Type(1)
				ghost.ID = 99
				return transformType(1, &ghost)
			},
			kind: errors.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(tt.ty())
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", e.Kind, tt.kind)
			}
		})
	}
	if r.Count() != 0 {
		t.Errorf("rejected types were stored: count = %d", r.Count())
	}
}

func TestRegister_ZeroHashFilled(t *testing.T) {
	r := New(Config{})
	ty := vec3Type(1)
	ty.Hash = 0
	id := mustRegister(t, r, ty)
	got, _ := r.Get(id)
	if got.Hash != typedesc.HashString("Vec3") {
		t.Errorf("hash = %d, want djb2 of name", got.Hash)
	}
}

func TestRegister_CopiesFields(t *testing.T) {
	r := New(Config{})
	ty := vec3Type(1)
	id := mustRegister(t, r, ty)
	ty.Fields[0].Name = "mutated"
	got, _ := r.Get(id)
	if got.Fields[0].Name != "x" {
		t.Error("registry must not alias the caller's field slice")
	}
}

func TestIndex_ProbeChainSurvivesDeletion(t *testing.T) {
	// A table of 8 slots forces collisions on the start slot.
	r := New(Config{MaxTypes: 4})
	var names []string
	start := -1
	for i := 0; len(names) < 3 && i < 10000; i++ {
		n := fmt.Sprintf("N%d", i)
		s := int(uint32(typedesc.HashString(n)) % 8)
		if start == -1 {
			start = s
		}
		if s == start {
			names = append(names, n)
		}
	}
	if len(names) < 3 {
		t.Fatal("could not find colliding start slots")
	}

	mustRegister(t, r, simpleType(names[0], 1))
	mustRegister(t, r, simpleType(names[1], 2))
	mustRegister(t, r, simpleType(names[2], 3))

	// Removing the middle of the chain must not hide the tail.
	r.UnregisterModule(2)
	if _, ok := r.FindByName(names[2]); !ok {
		t.Fatalf("%s lost after deleting %s", names[2], names[1])
	}
	if _, ok := r.FindByName(names[1]); ok {
		t.Fatalf("%s still findable", names[1])
	}
	st := r.Stats()
	if st.IndexUsed != 2 || st.IndexDeleted != 1 {
		t.Errorf("index used/deleted = %d/%d, want 2/1", st.IndexUsed, st.IndexDeleted)
	}

	// A new registration may reuse the deleted slot.
	mustRegister(t, r, simpleType("Fresh", 4))
	if _, ok := r.FindByName(names[2]); !ok {
		t.Fatal("chain broken after reusing deleted slot")
	}
}

func TestStats(t *testing.T) {
	r := New(Config{MaxTypes: 16, MaxModules: 4})
	mustRegister(t, r, simpleType("A", 0))
	mustRegister(t, r, simpleType("B", 0))
	st := r.Stats()
	if st.Types != 2 || st.ValidTypes != 2 || st.Capacity != 16 {
		t.Errorf("stats = %+v", st)
	}
	if st.IndexSlots != 32 {
		t.Errorf("index slots = %d, want 32", st.IndexSlots)
	}
	if st.Modules != 1 || st.ModuleCapacity != 4 {
		t.Errorf("modules = %d/%d, want 1/4", st.Modules, st.ModuleCapacity)
	}
	if st.AvgProbe < 1 {
		t.Errorf("avg probe = %f, want >= 1", st.AvgProbe)
	}
}

func TestObserver(t *testing.T) {
	var events []Event
	r := New(Config{}, WithObserver(ObserverFunc(func(e Event) {
		events = append(events, e)
	})))
	id := mustRegister(t, r, vec3Type(1))
	r.UnregisterModule(1)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventRegistered || events[0].ID != id {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Type != EventTombstoned || events[1].Name != "Vec3" {
		t.Errorf("second event = %+v", events[1])
	}
}
