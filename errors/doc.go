// Package errors provides structured error types for the hotreflect module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, descriptor type name, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAccess, errors.KindTypeMismatch).
//		Path("Player", "speed").
//		Type("Player").
//		Detail("field holds f32, got u64").
//		Build()
//
// Or use convenience constructors and sentinels:
//
//	err := errors.CapacityExceeded("type", 1024)
//	if stderrors.Is(err, errors.ErrCapacityExceeded) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
// Lookups that simply miss are reported as (value, false), not as errors.
package errors
