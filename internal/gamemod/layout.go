package gamemod

import (
	"github.com/wippyai/hotreflect/typedesc"
)

// Guest memory map.
const (
	InfoAddr    = 64
	StringsAddr = 1024
	ScratchAddr = 4096
	ScratchSize = 4096
	StateAddr   = 8192
	MaxPlayers  = 4
)

// Offsets inside the state block at StateAddr.
const (
	StateGameTime    = 0
	StatePlayerCount = 4
	StatePlayers     = 8
)

// Options selects what a built module exports and which versions it
// reports. The zero value builds the default module.
type Options struct {
	Name          string
	Version       uint32
	StateVersion  uint32
	PlayerVersion uint16
	// Score appends a u32 "score" field to Player, changing its shape.
	Score        bool
	NoUnregister bool
	NoState      bool
	NoFixup      bool
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "GameModule"
	}
	if o.Version == 0 {
		o.Version = 1
	}
	if o.StateVersion == 0 {
		o.StateVersion = 1
	}
	if o.PlayerVersion == 0 {
		o.PlayerVersion = 2
	}
	return o
}

// Indices into the slice returned by Types.
const (
	Vec3 = iota
	Transform
	Health
	Player
)

// Types returns the module's type descriptors in registration order.
// Nested fields carry the index of the referenced type in the slice as
// their Ref; the guest resolves them to registry ids at registration.
func Types(opts Options) []typedesc.Type {
	opts = opts.withDefaults()

	vec3 := typedesc.NewBuilder("Vec3").
		Scalar("x", typedesc.KindF32).
		Scalar("y", typedesc.KindF32).
		Scalar("z", typedesc.KindF32).
		Build()
	vec3.ID = Vec3

	transform := typedesc.NewBuilder("Transform").
		Nested("position", &vec3).
		Nested("rotation", &vec3).
		Scalar("scale", typedesc.KindF32).
		Build()
	transform.ID = Transform

	health := typedesc.NewBuilder("Health").
		Scalar("current", typedesc.KindF32).
		Scalar("maximum", typedesc.KindF32).
		Scalar("regen_rate", typedesc.KindF32).
		Build()
	health.ID = Health

	pb := typedesc.NewBuilder("Player").
		Version(opts.PlayerVersion).
		Scalar("id", typedesc.KindU32).
		Bytes("name", 32).
		Nested("transform", &transform).
		Nested("health", &health).
		Scalar("speed", typedesc.KindF32).Editable().
		Scalar("flags", typedesc.KindU32)
	if opts.Score {
		pb.Scalar("score", typedesc.KindU32).Editable()
	}
	player := pb.Build()
	player.ID = Player

	return []typedesc.Type{vec3, transform, health, player}
}

// StateSize is the size of the state block for the given options.
func StateSize(opts Options) uint32 {
	return StatePlayers + MaxPlayers*Types(opts)[Player].Size
}
