// Package tabular exposes a skeleton as row-oriented tables.
//
// [Tables] builds four views:
//
//   - critical_points: id, type, coordinates, value, pair, boundary, the
//     number of connections, and one column per critical point field
//   - connections: cp, position, other_cp, filament
//   - filaments: id, cp1, cp2, samples, offset
//   - samples: filament, position, coordinates, and one column per
//     filament field
//
// Field columns keep their names from the input; a name that collides with
// an earlier column gets a numeric suffix.
//
// The views can be printed with [Render] or stored with [WriteSQLite],
// which also appends a row to a runs table describing the conversion.
package tabular
