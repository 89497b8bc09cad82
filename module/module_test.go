package module

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

type gameState struct {
	Players  []string `cbor:"players"`
	GameTime float32  `cbor:"game_time"`
}

func TestSnapshot_RoundTrip(t *testing.T) {
	in := gameState{Players: []string{"ana", "bo"}, GameTime: 12.5}
	snap, err := EncodeState("GameModule", 2, in)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Module != "GameModule" || snap.Version != 2 {
		t.Errorf("snapshot header = %s/%d", snap.Module, snap.Version)
	}

	var out gameState
	if err := snap.Decode(2, &out); err != nil {
		t.Fatal(err)
	}
	if out.GameTime != 12.5 || len(out.Players) != 2 || out.Players[1] != "bo" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestSnapshot_VersionMismatch(t *testing.T) {
	snap, err := EncodeState("GameModule", 1, gameState{GameTime: 1})
	if err != nil {
		t.Fatal(err)
	}
	var out gameState
	err = snap.Decode(2, &out)
	if !stderrors.Is(err, errors.ErrStateVersion) {
		t.Fatalf("expected ErrStateVersion, got %v", err)
	}
	if out.GameTime != 0 {
		t.Error("state must not be applied on version mismatch")
	}
}

func TestSnapshot_InvalidData(t *testing.T) {
	snap := &Snapshot{Module: "GameModule", Version: 1, Data: []byte{0xff, 0x00}}
	var out gameState
	err := snap.Decode(1, &out)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidData {
		t.Fatalf("expected invalid data, got %v", err)
	}
}

func TestSnapshot_CanonicalEncoding(t *testing.T) {
	a, err := EncodeState("m", 1, map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeState("m", 1, map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("equal states should encode identically")
	}

	raw, err := a.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalSnapshot(raw)
	if err != nil {
		t.Fatal(err)
	}
	if back.Module != "m" || back.Version != 1 || !bytes.Equal(back.Data, a.Data) {
		t.Errorf("snapshot round trip = %+v", back)
	}
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(registry.Config{})
	mem := hotreflect.NewBytes(64)

	var fixed *Snapshot
	m := &Static{
		Mem: mem,
		Meta: Info{
			Name:    "GameModule",
			Version: 1,
			Register: func(ctx context.Context, s *registry.Scope) error {
				_, err := s.Register(typedesc.NewBuilder("Vec3").
					Scalar("x", typedesc.KindF32).
					Scalar("y", typedesc.KindF32).
					Scalar("z", typedesc.KindF32).
					Build())
				return err
			},
			Fixup: func(ctx context.Context, s *registry.Scope, prev *Snapshot) error {
				fixed = prev
				return nil
			},
		},
		State: func(ctx context.Context) (*Snapshot, error) {
			return EncodeState("GameModule", 1, gameState{GameTime: 3})
		},
	}

	var inst Instance = m
	if err := inst.Info().Register(ctx, reg.Scope(1)); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.FindByName("Vec3"); !ok {
		t.Fatal("Vec3 should be registered")
	}
	snap, err := inst.ExportState(ctx)
	if err != nil || snap == nil {
		t.Fatalf("ExportState = %v, %v", snap, err)
	}
	if err := inst.Info().Fixup(ctx, reg.Scope(1), snap); err != nil {
		t.Fatal(err)
	}
	if fixed != snap {
		t.Error("fixup should receive the exported snapshot")
	}
	if inst.Memory() == nil {
		t.Error("memory should be exposed")
	}
	if err := inst.Close(ctx); err != nil || !m.Closed() {
		t.Error("Close should mark the module closed")
	}

	empty := &Static{}
	if snap, err := empty.ExportState(ctx); snap != nil || err != nil {
		t.Errorf("module without state exported %v, %v", snap, err)
	}
}
