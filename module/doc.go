// Package module defines what a hot-reloadable unit provides to the host.
//
// A module exposes metadata (Info) with a required Register entry point and
// optional Unregister and Fixup entry points, and may export a Snapshot of
// its retained state right before it is unloaded. The replacement receives
// that snapshot in Fixup and validates its version before using it:
//
//	Fixup: func(ctx context.Context, s *registry.Scope, prev *module.Snapshot) error {
//	    if prev == nil {
//	        return nil
//	    }
//	    var st gameState
//	    return prev.Decode(stateVersion, &st)
//	}
//
// Opener turns a file into an Instance. The guest package implements it for
// WebAssembly modules; Static covers modules compiled into the host.
package module
