package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/guest"
	"github.com/wippyai/hotreflect/internal/gamemod"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/render"
	"github.com/wippyai/hotreflect/typedesc"
)

const (
	demoModule = "game.wasm"
	iterations = 1_000_000
)

// Host-side mirror of the guest's Player layout, for the direct access
// baseline.
type vec3 struct{ x, y, z float32 }

type transform struct {
	position vec3
	rotation vec3
	scale    float32
}

type health struct {
	current float32
	maximum float32
	regen   float32
}

type player struct {
	id        uint32
	name      [32]byte
	transform transform
	health    health
	speed     float32
	flags     uint32
}

// writeDemoModule writes version v of the game module into dir. Version 2
// bumps the Player descriptor but keeps the state layout.
func writeDemoModule(dir string, v uint32) error {
	opts := gamemod.Options{Version: v, PlayerVersion: uint16(v + 1)}
	path := filepath.Join(dir, demoModule)
	if err := os.WriteFile(path, gamemod.Build(opts), 0o644); err != nil {
		return fmt.Errorf("write demo module: %w", err)
	}
	return nil
}

func runDemo(ctx context.Context, h *host, w io.Writer, dir string, tty bool) error {
	fmt.Fprintf(w, "=== Hybrid Reflection System ===\n\n")

	mr, ok := h.reg.ModuleByName("GameModule")
	if !ok || !mr.Loaded {
		return fmt.Errorf("demo module did not load")
	}
	inst, ok := h.loader.Instance(mr.ID).(*guest.Instance)
	if !ok {
		return fmt.Errorf("demo module is not a guest")
	}
	pt, ok := h.reg.FindByName("Player")
	if !ok {
		return fmt.Errorf("player type not registered")
	}

	base, n, err := inst.Instances(ctx, pt.ID)
	if err != nil {
		return err
	}
	if _, err := inst.Call(ctx, "game_update", api.EncodeF32(0.5)); err != nil {
		return err
	}

	var styles []render.EditorOption
	if tty {
		styles = append(styles, render.WithStyles(render.DefaultStyles()))
	}
	ed := render.NewEditor(h.reg, styles...)
	if err := ed.Render(w, inst.Memory(), base, pt); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := render.NewJSON(h.reg, render.WithTextBytes()).Encode(w, inst.Memory(), base, pt); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d players live in %s\n", n, mr.Name)

	if err := benchmark(w, h.reg, pt, inst.Memory(), base); err != nil {
		return err
	}

	// Rebuild the module and reload it in place.
	if err := writeDemoModule(dir, 2); err != nil {
		return err
	}
	if err := h.loader.Reload(ctx, mr.Name); err != nil {
		return err
	}
	pt2, _ := h.reg.FindByName("Player")
	inst, _ = h.loader.Instance(mr.ID).(*guest.Instance)
	raw, err := inst.Memory().ReadU32(gamemod.StateAddr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nReloaded %s: Player v%d (id %d) -> v%d (id %d), game time %.1f kept\n",
		mr.Name, pt.Version, pt.ID, pt2.Version, pt2.ID, math.Float32frombits(raw))
	if old, ok := h.reg.Lookup(pt.ID); ok && !h.reg.Valid(old.ID) {
		fmt.Fprintf(w, "Old Player record %d is tombstoned\n", old.ID)
	}

	printStats(w, h.reg)
	return nil
}

// benchmark compares direct struct access against access through the
// registry, in host memory and in guest memory.
func benchmark(w io.Writer, reg *registry.Registry, pt *typedesc.Type, guestMem hotreflect.Memory, guestBase uint32) error {
	p := player{speed: 5, health: health{current: 100, maximum: 100, regen: 1}}
	start := time.Now()
	for i := 0; i < iterations; i++ {
		p.health.current = 100
		p.transform.position.x += p.speed * 0.016
	}
	fmt.Fprintf(w, "\n1M direct updates: %.3f seconds\n", time.Since(start).Seconds())

	hostMem := pt.New()
	for _, c := range []struct {
		label string
		mem   hotreflect.Memory
		base  uint32
	}{
		{"host", hostMem, 0},
		{"guest", guestMem, guestBase},
	} {
		hv, err := reg.Read(c.mem, c.base, pt, pt.FieldIndex("health"))
		if err != nil {
			return err
		}
		ht, ok := reg.Nested(hv)
		if !ok {
			return fmt.Errorf("health type not registered")
		}
		value := registry.F32(100)
		start = time.Now()
		for i := 0; i < iterations; i++ {
			if err := reg.Write(c.mem, hv.Addr, ht, 0, value); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "1M reflection updates (%s memory): %.3f seconds\n", c.label, time.Since(start).Seconds())
	}
	return nil
}
