// Package skeleton holds the in-memory model of a cosmic-web skeleton and
// the transformer that lays it out as flat arrays plus offset tables.
//
// # Model
//
// A [Skeleton] owns the critical points and filaments extracted from a
// density field, together with two [FieldTable] values naming the scalar
// fields attached to critical points and to filament samples. Entities are
// identified by their declaration order; index i in every column refers to
// the same critical point (or filament).
//
// The one-to-many relationships are stored as [ragged.Array] values from
// the start:
//
//   - CriticalPoints.OtherCP / CriticalPoints.Filament: the connections of
//     each critical point, in file order, as two parallel ragged arrays
//   - Filaments.Samples: the sampled path of each filament, Dims values per
//     sample point
//
// Field values live in [FieldTable] columns. The filament table has one row
// per sample point and shares the sample counts and offsets.
//
// # Layout
//
// [Flatten] derives a [Layout] from a skeleton: three flat+offset pairs
// ready to be written to a container. The layout holds copies and never
// aliases the model, so either can be discarded independently.
//
// # References
//
// Parsing enforces structural counts only. Whether indices such as a
// persistence pair or a connection target must name an existing entity is
// a policy choice, see [ReferencePolicy] and [Skeleton.ValidateReferences].
package skeleton
