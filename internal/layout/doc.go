// Package layout computes size, alignment and field offsets for type
// descriptors.
//
// Records are laid out the way a C compiler lays out a struct: members in
// declaration order, each aligned to its own alignment, the total padded to
// the largest member alignment. This matches both the Canonical ABI record
// rules and the layout of plain structs compiled to wasm32.
//
// # Layout Rules
//
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records and tuples: fields laid out sequentially with padding
//   - Enums and flags: smallest unsigned integer holding every case
//   - Fixed byte buffers: size n, alignment 1
//
// This package is internal to typedesc.
package layout
