// Package typedesc defines the passive descriptors that the registry stores:
// Field and Type records describing the layout of one struct, the closed set
// of storage kinds used for tagged field access, and the name hash.
//
// Descriptors are plain values. They carry no behavior beyond validation and
// are produced either by hand, by Builder, or from a WIT record:
//
//	vec3 := typedesc.NewBuilder("Vec3").
//		Scalar("x", typedesc.KindF32).
//		Scalar("y", typedesc.KindF32).
//		Scalar("z", typedesc.KindF32).
//		Build()
//
// Offsets, size and alignment follow C struct layout rules.
package typedesc
