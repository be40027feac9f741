// Package ragged stores variable-length rows as one flat backing slice plus
// per-row counts and offsets.
//
// # Overview
//
// A skeleton holds several one-to-many relationships whose row lengths are
// only known at parse time: the filaments attached to each critical point,
// the sample points along each filament, and the field values attached to
// each sample. Storing them as slices of slices costs one allocation per
// row and does not match the layout consumers read back. [Array] keeps the
// same data as a flat slice with an index range per row:
//
//	Values:  a0 a1 | b0 | (empty) | c0 c1 c2
//	Counts:  2       1    0         3
//	Offsets: 0       2    3         3
//
// # Offsets
//
// Offsets follow the exclusive prefix-sum convention. Offsets[0] is 0 and
// Offsets[i] is the sum of all counts before row i, so row i occupies
// Values[Offsets[i] : Offsets[i]+Counts[i]]. Zero-length rows repeat the
// offset of the next row (or equal the total for the last row). There is
// no explicit end index; the count array supplies the length.
//
// # Stride
//
// When every item is a fixed-size tuple (a 3-D coordinate, a field row),
// [Array.Stride] gives the number of values per item. Counts and offsets
// are expressed in items, and the flat slice holds Stride values per item.
//
// # Building
//
// [Builder] computes offsets incrementally while rows are appended, so a
// parser can fill the flat layout in one forward pass. [Flatten] converts
// an existing slice of rows in one call. Both produce arrays that satisfy
// [Array.Validate].
package ragged
