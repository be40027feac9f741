// Package container stores typed arrays in named groups.
//
// The skeleton export only needs the narrow [Writer] and [Group]
// interfaces: create a group, set attributes on it, and create datasets in
// it. Three implementations are provided:
//
//   - [HDF5Writer], created with [CreateHDF5], writes an HDF5 file with
//     the groups under the root. This is the default format of [New], and
//     the output opens with h5py:
//
//	f = h5py.File("skel.h5")
//	f["CriticalPoints/IndexFilament"][off[i]:off[i]+n[i]]
//
//   - [FileWriter], created with [Create], created with [Create], writes a self-describing,
//     little-endian binary file. Every record carries a CRC-32 of its
//     payload, and dataset payloads can be compressed with zstd.
//   - [Memory] records everything in memory. It is used for dry runs and
//     tests.
//
// [New] picks the writer from [Options.Format].
//
// [Open], [Read] and [Decode] load a native file back into a [File], which is the
// same structure [Memory.File] returns.
//
// # Arrays
//
// [Array] is a typed, row-major n-dimensional value. Element types are
// int32, int64, float32, float64 and string; an empty shape is a scalar.
//
//	g, _ := w.CreateGroup("Header")
//	g.SetAttr("NumDimensions", container.Int32Scalar(3))
//	g.CreateDataset("Coordinates", container.Float64s(coords, n, 3))
package container
