// Package pkg provides the core libraries for ndskl skeleton conversion.
//
// # Overview
//
// ndskl turns cosmic-web skeletons written in the NDskl_ascii text format
// into a grouped binary container whose variable-length relations are
// stored flat with count and offset arrays. The pkg directory is organized
// into three main areas:
//
//  1. Model - [skeleton] and [ragged]: the in-memory skeleton and its
//     flat-plus-offsets representation
//  2. Formats - [ndskl] (text reader), [container] (binary writer/reader),
//     [io] (skeleton ↔ container mapping), [tabular] (row views, SQLite)
//  3. Orchestration - [pipeline], with [cache], [observability],
//     [errors] and [buildinfo] in support
//
// # Architecture
//
// The data flow of one conversion:
//
//	NDskl_ascii text
//	         ↓
//	    [ndskl] package (grammar reader + skeleton builder)
//	         ↓
//	    [skeleton] package (model; Flatten computes the offset layout)
//	         ↓
//	    [io] package (writes groups through the container.Writer interface)
//	         ↓
//	    [container] file (+ optional [tabular] SQLite views)
//
// # Quick Start
//
//	sk, err := ndskl.ParseFile("skel.NDskl.a", ndskl.Options{})
//	if err != nil {
//	    return err
//	}
//	layout := skeleton.Flatten(sk)
//	err = io.ExportContainer(sk, layout, "skel.h5", container.Options{})
//
// The native format keeps checksums and reads back with random access
// through the offsets:
//
//	opts := container.Options{Format: container.FormatNative}
//	err = io.ExportContainer(sk, layout, "skel.ndsklc", opts)
//	sk, err = io.ImportContainer("skel.ndsklc")
//	for _, c := range sk.Connections(0) {
//	    fmt.Println(c.OtherCP, c.Filament)
//	}
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/ndskl/...              # Specific package
//	go test -run Example ./pkg/...       # Examples only
//
// [skeleton]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/skeleton
// [ragged]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/ragged
// [ndskl]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/ndskl
// [container]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/container
// [io]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/io
// [tabular]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/tabular
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/ndskl/pkg/buildinfo
package pkg
