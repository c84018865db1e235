// Package grid_tree implements the octree.ITree contract with a grid
// decimation strategy: each node retains at most one point per cell of a
// cubic grid, pushing every other point down to a child with a finer
// grid, producing a hierarchy where every level is a coarser
// level-of-detail sample of the level below it. Points arriving at the
// tree are already expressed in the tileset's local ENU frame; the tree
// itself has no notion of any coordinate reference system.
package grid_tree

import (
	"errors"
	"runtime"
	"sync"

	"github.com/ecopia-map/geotile_transform/internal/data"
	"github.com/ecopia-map/geotile_transform/internal/geometry"
	"github.com/ecopia-map/geotile_transform/internal/octree"
	"github.com/ecopia-map/geotile_transform/internal/point_loader"
)

// GridTree is an octree.ITree built with the grid decimation strategy.
type GridTree struct {
	rootNode    octree.INode
	bounds      *geometry.BoundingBox
	built       bool
	maxCellSize float64
	minCellSize float64

	useEdgeCalculateGeometricError     bool
	chunkEdgeX, chunkEdgeY, chunkEdgeZ float64

	point_loader.Loader
	sync.RWMutex
}

// NewGridTree builds an empty GridTree. maxCellSize/minCellSize bound the
// grid cell size at the root and at the finest subdivision level
// respectively, in the same units as the points fed to it (meters, since
// points arrive already in the tileset's local ENU frame).
func NewGridTree(maxCellSize float64, minCellSize float64) octree.ITree {
	return &GridTree{
		maxCellSize: maxCellSize,
		minCellSize: minCellSize,
		Loader:      point_loader.NewSequentialLoader(),
	}
}

// SetBounds allocates the root node over box and readies the point
// queue. Must be called before any AddPoint, and before Build; the grid
// tree has no way to grow a node's bounding box once points start
// flowing into it, so the caller is expected to know the dataset's
// extent upfront (scanning the source once, or reading it from a
// format's header) and pass it in here. Allocating the queue here,
// rather than in Build, lets a producer goroutine start calling AddPoint
// immediately after SetBounds returns, concurrently with the caller
// going on to invoke Build — there is no point at which AddPoint races
// the queue's own initialization.
func (tree *GridTree) SetBounds(box *geometry.BoundingBox) {
	tree.Lock()
	defer tree.Unlock()
	tree.bounds = box
	tree.init()
}

// Build launches the tree's parallel point consumers and blocks until
// FinishLoading is called and every queued point has been placed.
// SetBounds must have been called first.
func (tree *GridTree) Build() error {
	if tree.built {
		return errors.New("octree already built")
	}
	if tree.bounds == nil {
		return errors.New("octree bounds not set, call SetBounds before Build")
	}

	var wg sync.WaitGroup
	tree.launchParallelPointLoaders(&wg)
	wg.Wait()

	tree.rootNode.(*GridNode).BuildPoints()
	tree.built = true

	return nil
}

// FinishLoading signals the tree's consumers that no further points are
// coming, letting Build's wg.Wait return once the queue drains.
func (tree *GridTree) FinishLoading() {
	tree.Loader.ClearLoader()
}

// ConfigureGeometricError records the dataset's overall edge lengths and
// whether ComputeGeometricError should scale off them instead of the
// default per-cell diagonal estimate. The settings are read only when
// ComputeGeometricError runs, so this must be called before tileset export.
func (tree *GridTree) ConfigureGeometricError(useEdge bool, edgeX, edgeY, edgeZ float64) {
	tree.useEdgeCalculateGeometricError = useEdge
	tree.chunkEdgeX = edgeX
	tree.chunkEdgeY = edgeY
	tree.chunkEdgeZ = edgeZ
}

// SplitBigNode resplits any leaf node whose point count exceeds
// maxPointsNum, keeping every node in the tree under the tileset's
// per-node budget. Must be called after Build.
func (tree *GridTree) SplitBigNode(maxPointsNum int32) error {
	root := tree.rootNode.(*GridNode)
	if root.IsLeaf() {
		return root.SplitBigLeafNode(maxPointsNum)
	}
	return root.SplitBigBranchNode(maxPointsNum)
}

// MergeSmallNode folds undersized sibling leaves (and a node's last
// remaining leaf child into the node itself) together wherever the
// combined point count stays under minPointsNum's merge budget. Must be
// called after Build, and after SplitBigNode if both are used, since
// merging a just-split subtree back together would undo the split.
func (tree *GridTree) MergeSmallNode(minPointsNum int32) error {
	return tree.rootNode.(*GridNode).MergeSmallChildren(int64(minPointsNum))
}

func (tree *GridTree) GetRootNode() octree.INode {
	return tree.rootNode
}

func (tree *GridTree) IsBuilt() bool {
	return tree.built
}

func (tree *GridTree) Clear() bool {
	tree.rootNode = nil
	return true
}

// AddPoint queues a point, already in the tree's local ENU frame, for
// placement once Build's consumers start draining the queue.
func (tree *GridTree) AddPoint(
	coordinate *geometry.Coordinate,
	r uint8, g uint8, b uint8,
	intensity uint8, classification uint8,
	pointExtend *data.PointExtend,
) {
	tree.Loader.AddPoint(data.NewPoint(
		coordinate.X, coordinate.Y, coordinate.Z,
		r, g, b, intensity, classification,
		pointExtend,
	))
}

func (tree *GridTree) init() {
	box := tree.bounds

	node := NewGridNode(
		"0",
		tree,
		nil,
		geometry.NewBoundingBox(box.Xmin, box.Xmax, box.Ymin, box.Ymax, box.Zmin, box.Zmax),
		tree.maxCellSize,
		tree.minCellSize,
		true)

	tree.rootNode = node
	tree.InitializeLoader()
}

func (tree *GridTree) launchParallelPointLoaders(waitGroup *sync.WaitGroup) {
	n := runtime.NumCPU()

	for i := 0; i < n; i++ {
		waitGroup.Add(1)
		go tree.launchPointLoader(waitGroup)
	}
}

func (tree *GridTree) launchPointLoader(waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()

	for {
		val, shouldContinue := tree.Loader.GetNext()
		if val != nil {
			tree.rootNode.AddDataPoint(val)
		}
		if !shouldContinue {
			break
		}
	}
}
