package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/hotreflect/config"
)

func newTestHost(t *testing.T) (*host, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	if err := writeDemoModule(dir, 1); err != nil {
		t.Fatal(err)
	}
	h, err := newHost(ctx, config.Default(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.close(context.Background()) })
	if _, err := h.loader.Track(ctx, filepath.Join(dir, demoModule)); err != nil {
		t.Fatal(err)
	}
	return h, dir
}

func TestCoreTypes(t *testing.T) {
	h, _ := newTestHost(t)
	for _, name := range []string{"float", "uint32"} {
		typ, ok := h.reg.FindByName(name)
		if !ok || typ.Module != 0 || typ.Size != 4 {
			t.Errorf("%s = %+v", name, typ)
		}
	}
}

func TestDumpJSON(t *testing.T) {
	h, _ := newTestHost(t)
	var buf bytes.Buffer
	if err := dumpJSON(context.Background(), h, &buf, "Player"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, `"_type": "Player"`) != 2 {
		t.Errorf("expected two players:\n%s", out)
	}
	if !strings.Contains(out, `"name": "Alice"`) || !strings.Contains(out, `"name": "Bob"`) {
		t.Errorf("player names missing:\n%s", out)
	}
	if err := dumpJSON(context.Background(), h, &buf, "Enemy"); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestObjects(t *testing.T) {
	h, _ := newTestHost(t)
	objs, err := objects(context.Background(), h, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 {
		t.Fatalf("%d objects", len(objs))
	}
	if objs[1].base != objs[0].base+objs[0].typ.Size {
		t.Error("instances are contiguous")
	}
	if !strings.HasPrefix(objs[0].label(), "GameModule/Player#0") {
		t.Errorf("label = %s", objs[0].label())
	}
}

func TestDemo(t *testing.T) {
	h, dir := newTestHost(t)
	var buf bytes.Buffer
	if err := runDemo(context.Background(), h, &buf, dir, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"=== Player Editor ===",
		"speed: 2.50 [editable]",
		"1M direct updates",
		"1M reflection updates (guest memory)",
		"Player v2",
		"-> v3",
		"game time 0.5 kept",
		"Registry stats:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}
