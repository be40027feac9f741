package io

// Group names.
const (
	GroupHeader         = "Header"
	GroupCriticalPoints = "CriticalPoints"
	GroupFilaments      = "Filaments"
)

// Header attributes.
const (
	AttrNumDimensions     = "NumDimensions"
	AttrBoundingBox       = "BoundingBox"
	AttrNumCriticalPoints = "NumCriticalPoints"
	AttrNumFilaments      = "NumFilaments"
)

// Field catalog attributes, present on both the critical point and the
// filament group.
const (
	AttrNumAssociatedFields   = "NumAssociatedFields"
	AttrAssociatedFieldsNames = "AssociatedFieldsNames"
	DatasetAssociatedFields   = "AssociatedFields"
)

// Critical point datasets.
const (
	DatasetCriticalIndex             = "CriticalIndex"
	DatasetCoordinates               = "Coordinates"
	DatasetDensityDTFE               = "DensityDTFE"
	DatasetPersistencePairIndex      = "PersistencePairIndex"
	DatasetBoundaryFlag              = "BoundaryFlag"
	DatasetNumConnectedFilaments     = "NumConnectedFilaments"
	DatasetIndexOtherFilamentExtreme = "IndexOtherFilamentExtreme"
	DatasetIndexFilament             = "IndexFilament"
	DatasetOffsetFilamentAndExtreme  = "OffsetFilamentAndExtreme"
)

// Filament datasets.
const (
	DatasetIndexExtremalCriticalPoints = "IndexExtremalCriticalPoints"
	DatasetNumSamplingPoints           = "NumSamplingPoints"
	DatasetCoordinatesSamplingPoints   = "CoordinatesSamplingPoints"
	DatasetOffsetSamplingPoints        = "OffsetSamplingPoints"
)
