// Package io maps skeletons to and from the container layout.
//
// # Layout
//
// [WriteSkeleton] writes three groups:
//
//	Header
//	    NumDimensions, NumCriticalPoints, NumFilaments   int32 attributes
//	    BoundingBox                                      6 float32, x0,y0,z0,x1,y1,z1
//	CriticalPoints
//	    NumAssociatedFields, AssociatedFieldsNames       field catalog
//	    CriticalIndex, PersistencePairIndex, BoundaryFlag  int64[N]
//	    Coordinates                                      float64[N][dim]
//	    DensityDTFE                                      float64[N]
//	    NumConnectedFilaments, OffsetFilamentAndExtreme  int64[N]
//	    IndexOtherFilamentExtreme, IndexFilament         int64[total connections]
//	    AssociatedFields                                 float64[N][fields]
//	Filaments
//	    NumAssociatedFields, AssociatedFieldsNames       field catalog
//	    IndexExtremalCriticalPoints                      int64[M][2]
//	    NumSamplingPoints, OffsetSamplingPoints          int64[M]
//	    CoordinatesSamplingPoints                        float64[S][dim]
//	    AssociatedFields                                 float64[S][fields]
//
// A 2-D skeleton stores z = 0 in its bounding box.
//
// # Random access
//
// The connections of critical point i are the NumConnectedFilaments[i]
// entries of IndexFilament and IndexOtherFilamentExtreme starting at
// OffsetFilamentAndExtreme[i]. The samples of filament j are the
// NumSamplingPoints[j] rows of CoordinatesSamplingPoints and
// AssociatedFields starting at OffsetSamplingPoints[j]. [ReadSkeleton]
// rebuilds a skeleton through exactly these offsets.
//
// # Files
//
// [ExportContainer] and [ImportContainer] are file-path conveniences over
// package container. Export writes HDF5 unless the options select the
// native format; Import reads native containers only:
//
//	sk, err := ndskl.ParseFile("skel.NDskl.a", ndskl.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = io.ExportContainer(sk, skeleton.Flatten(sk), "skel.h5", container.Options{})
package io
