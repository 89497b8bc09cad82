// Package loader reloads modules when their files change.
//
// # Reload Sequence
//
//  1. ChangeDetected: the file's modification time differs from the last one seen
//  2. Unloading: export state, module Unregister, bulk unregister, close
//  3. Loading: copy <path> to <path>.tmp and open the copy
//  4. Registering: module Register through its registry.Scope
//  5. Restoring: module Fixup with the exported snapshot
//  6. Loaded
//
// A failed open moves the module to FailedLoad. Its types are already gone
// and it stays that way until the file changes again. Registration and state
// errors are reported with the Loaded transition; the module keeps running
// with whatever it managed to register.
//
// # Thread Safety
//
// Loader is NOT safe for concurrent use. Watch polls on the calling
// goroutine and observers run there too.
//
// # Example
//
//	l := loader.New(reg, engine, loader.WithLogger(log))
//	id, err := l.Track(ctx, "game.wasm")
//	...
//	err = l.Watch(ctx, 500*time.Millisecond)
package loader
