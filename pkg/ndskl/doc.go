// Package ndskl parses skeleton files in the NDskl_ascii text format.
//
// # Format
//
// NDskl_ascii is a line-oriented format with fixed, ordered sections. Every
// section starts with a marker line followed by a count that determines how
// many of the following lines belong to it:
//
//	ANDSKEL
//	3
//	# comment lines
//	BBOX [0,0,0] [1,1,1]
//	[CRITICAL POINTS]
//	2
//	0 0.1 0.2 0.3 1.5 1 0      type, Ndim coordinates, value, pair, boundary
//	1                          number of connections
//	1 0                        other critical point, filament
//	...
//	[FILAMENTS]
//	1
//	0 1 3                      extremities, number of samples
//	0.1 0.2 0.3                Ndim coordinates per sample
//	...
//	[CRITICAL POINTS DATA]
//	1
//	density                    field names
//	1.5                        one row per critical point
//	...
//	[FILAMENTS DATA]
//	1
//	width
//	0.01                       one row per sample, filament by filament
//	...
//
// # Parsing
//
// [Parse], [ParseBytes] and [ParseFile] read the whole input into memory
// and build a [skeleton.Skeleton] in one forward pass. Section order is
// strict, counts drive how many lines each section consumes, and only blank
// lines may follow the last filament data row.
//
// Parsing is all-or-nothing. On failure the returned skeleton is nil and the
// error is an [errors.Error] whose code identifies the problem
// (MALFORMED_HEADER, MALFORMED_SECTION, MALFORMED_NUMBER, MALFORMED_RECORD,
// TRUNCATED_INPUT, TRAILING_DATA, FIELD_COUNT_MISMATCH or INVALID_REFERENCE)
// and whose Line field gives the 1-based input line.
//
// # References
//
// Indices that point at other entities are not checked unless
// [Options.References] is [skeleton.Strict].
//
// [errors.Error]: github.com/matzehuels/ndskl/pkg/errors.Error
package ndskl
