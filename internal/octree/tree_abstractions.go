package octree

import (
	"github.com/ecopia-map/geotile_transform/internal/data"
	"github.com/ecopia-map/geotile_transform/internal/geometry"
)

// ITree is the contract the tileset writer drives: feed it every point of
// a source, already transformed into the tileset's local ENU frame, with
// AddPoint; tell it the overall extent with SetBounds; then Build it once
// into a hierarchical level-of-detail structure.
type ITree interface {
	// SetBounds records the extent the tree's root node must cover. It
	// must be called before Build, since the root node's bounding box
	// cannot grow once allocated.
	SetBounds(box *geometry.BoundingBox)
	// Build launches the tree's internal point consumers and blocks
	// until every point added through AddPoint (up to the next call to
	// FinishLoading) has been placed into the hierarchy.
	Build() error
	// FinishLoading signals that no further AddPoint calls are coming,
	// letting Build's internal consumers drain and return.
	FinishLoading()
	GetRootNode() INode
	IsBuilt() bool
	Clear() bool
	// ConfigureGeometricError records the dataset's overall edge lengths
	// and whether ComputeGeometricError should scale off them. Must be
	// called before Build.
	ConfigureGeometricError(useEdge bool, edgeX, edgeY, edgeZ float64)
	// SplitBigNode resplits any node whose point count exceeds
	// maxPointsNum. Must be called after Build.
	SplitBigNode(maxPointsNum int32) error
	// MergeSmallNode folds undersized sibling leaves together wherever
	// their combined point count stays under minPointsNum's merge
	// budget. Must be called after Build, and after SplitBigNode if both
	// are used.
	MergeSmallNode(minPointsNum int32) error
	// AddPoint queues a point, already expressed in the tree's local ENU
	// frame, for placement. Safe to call concurrently with Build: Build
	// launches the tree's consumers, and a separate producer goroutine
	// feeds points via AddPoint and calls FinishLoading once the source
	// is exhausted.
	AddPoint(coordinate *geometry.Coordinate, r uint8, g uint8, b uint8, intensity uint8, classification uint8, pointExtend *data.PointExtend)
}

type INode interface {
	AddDataPoint(element *data.Point)
	IsRoot() bool
	GetChildren() [8]INode
	GetPoints() []*data.Point
	TotalNumberOfPoints() int64
	NumberOfPoints() int32
	IsLeaf() bool
	IsChildrenInitialized() bool
	ComputeGeometricError() float64
	GetParent() INode
	GetBoundingBox() *geometry.BoundingBox
}
