// Package hotreflect provides a runtime type registry for hot-reloadable modules.
//
// A host describes the layout of data structures (fields, offsets, sizes,
// nested types) at runtime, and independently built modules register their
// own types into the registry when they load. Tools such as editors and
// serializers walk objects through the registry's field accessors, while
// performance-critical code reads the same memory directly.
//
// # Architecture Overview
//
//	hotreflect/          Root package with the Memory interface and host Bytes
//	├── typedesc/        Field and Type descriptors, storage kinds, name hashing
//	├── registry/        Fixed-capacity registry, hash index, module records
//	├── module/          Module contract and versioned state snapshots
//	├── guest/           wazero-backed WebAssembly modules
//	├── loader/          Hot reload state machine and file polling
//	├── render/          Property editor and JSON serializer
//	├── config/          TOML host configuration
//	├── errors/          Structured error types
//	└── cmd/hotreflect/  CLI: load and watch modules, JSON dumps, TUI inspector
//
// # Quick Start
//
//	reg := registry.New(registry.Config{})
//
//	eng, err := guest.NewEngine(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	ld := loader.New(reg, eng)
//	if _, err := ld.Track(ctx, "game.wasm"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for {
//	    ld.Poll(ctx) // reloads game.wasm whenever it changes on disk
//	    player, ok := reg.FindByName("Player")
//	    ...
//	}
//
// # Field Access
//
// Objects live in a Memory. FieldAddr returns the address of a field, and
// Read/Write return tagged values over a closed set of storage kinds:
//
//	v, err := reg.Read(mem, base, player, player.FieldIndex("speed"))
//	speed := v.Float()
//
// # Thread Safety
//
// None of the types in this module are safe for concurrent use. The registry,
// the loader and every module callback run on one goroutine.
package hotreflect
