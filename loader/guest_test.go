package loader_test

import (
	"context"
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/guest"
	"github.com/wippyai/hotreflect/internal/gamemod"
	"github.com/wippyai/hotreflect/loader"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

func writeGame(t *testing.T, path string, opts gamemod.Options, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, gamemod.Build(opts), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestGuestReload(t *testing.T) {
	ctx := context.Background()
	engine, err := guest.NewEngine(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close(ctx)

	path := filepath.Join(t.TempDir(), "game.wasm")
	writeGame(t, path, gamemod.Options{}, base)

	reg := registry.New(registry.Config{})
	rec := &recorder{}
	l := loader.New(reg, engine, loader.WithObserver(rec))
	defer l.Close(ctx)

	id, err := l.Track(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	v1, ok := reg.FindByName("Player")
	if !ok || v1.Version != 2 {
		t.Fatalf("Player = %+v", v1)
	}
	v1ID := v1.ID

	inst := l.Instance(id).(*guest.Instance)
	if _, err := inst.Call(ctx, "game_update", api.EncodeF32(3)); err != nil {
		t.Fatal(err)
	}

	writeGame(t, path, gamemod.Options{Version: 2, PlayerVersion: 3}, base.Add(time.Second))
	if n, err := l.Poll(ctx); n != 1 || err != nil {
		t.Fatalf("poll = %d, %v", n, err)
	}

	v2, ok := reg.FindByName("Player")
	if !ok || v2.Version != 3 {
		t.Fatalf("Player after reload = %+v", v2)
	}
	if reg.Valid(v1ID) {
		t.Error("v1 Player still valid")
	}
	names := map[string]int{}
	reg.Each(func(tp *typedesc.Type) bool {
		names[tp.Name]++
		return true
	})
	for name, n := range names {
		if n != 1 {
			t.Errorf("%d findable %s types", n, name)
		}
	}

	mr, _ := reg.Module(id)
	if mr.Name != "GameModule" || mr.Version != 2 || !mr.Loaded {
		t.Errorf("record = %+v", mr)
	}

	inst = l.Instance(id).(*guest.Instance)
	raw, err := inst.Memory().ReadU32(gamemod.StateAddr)
	if err != nil {
		t.Fatal(err)
	}
	if gt := math.Float32frombits(raw); gt != 3 {
		t.Errorf("game time after reload = %v, want 3", gt)
	}

	base0, n, err := inst.Instances(ctx, v2.ID)
	if err != nil || n != len(gamemod.Seeds) {
		t.Fatalf("instances = %d, %v", n, err)
	}
	hv, err := reg.Read(inst.Memory(), base0, v2, v2.FieldIndex("health"))
	if err != nil {
		t.Fatal(err)
	}
	health, _ := reg.Nested(hv)
	cur, _ := reg.Read(inst.Memory(), hv.Addr, health, 0)
	if cur.Float() != 53 {
		t.Errorf("restored health = %v, want 53", cur.Float())
	}

	// A Player with a new field changes the state layout; the old state is
	// refused and the replacement starts from its seed.
	writeGame(t, path, gamemod.Options{Version: 3, StateVersion: 2, PlayerVersion: 4, Score: true}, base.Add(2*time.Second))
	rec.reset()
	if _, err := l.Poll(ctx); !stderrors.Is(err, errors.ErrStateVersion) {
		t.Fatalf("expected ErrStateVersion, got %v", err)
	}
	if last := rec.events[len(rec.events)-1]; last.To != loader.Loaded {
		t.Errorf("last state = %v", last.To)
	}
	v3, ok := reg.FindByName("Player")
	if !ok || v3.FieldIndex("score") < 0 || v3.Size != v2.Size+4 {
		t.Fatalf("Player v4 = %+v", v3)
	}
	inst = l.Instance(id).(*guest.Instance)
	raw, _ = inst.Memory().ReadU32(gamemod.StateAddr)
	if gt := math.Float32frombits(raw); gt != 0 {
		t.Errorf("game time = %v, want a fresh start", gt)
	}
}
