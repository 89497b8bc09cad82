// Package registry stores type descriptors for the lifetime of a host
// process.
//
// Storage is allocated once by New: dense type slots indexed by TypeID, a
// validity bitmask, an open-addressed hash index with twice as many slots as
// types, and a bounded list of module records. Registration only appends;
// removal tombstones a slot and marks its index entry deleted, so ids stay
// stable while stale references may still be in flight during a reload.
//
// Name lookup hashes the name, probes the index and compares names on a
// hit. Registering a name the same module already holds supersedes the old
// type; a name held by another module fails with errors.ErrDuplicateName.
// Registering a different name whose hash is taken fails with
// errors.ErrHashCollision.
//
// Field access is tagged:
//
//	v, err := reg.Read(mem, base, player, speedIdx)
//	if v.Kind == typedesc.KindF32 {
//	    err = reg.Write(mem, base, player, speedIdx, registry.F32(float32(v.Float())*2))
//	}
//
// Modules register through a Scope, which stamps their module id on every
// type and keeps the module record's id span current.
package registry
