package grid_tree

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ecopia-map/geotile_transform/internal/data"
	"github.com/ecopia-map/geotile_transform/internal/geometry"
	"github.com/ecopia-map/geotile_transform/internal/octree"
)

// GridNode is a node of the grid octree, leaf or not. Each node divides
// its bounding box into gridCells and keeps only the points its cells
// retain, pushing every other point down to a child with a finer grid,
// producing a hierarchy where every level is a coarser level-of-detail
// sample of the level below it.
type GridNode struct {
	nodeNID               string
	root                  bool
	parent                *GridNode
	boundingBox           *geometry.BoundingBox
	children              [8]*GridNode
	mergedChildren        []*gridWrapNode
	cells                 map[gridIndex]*gridCell
	points                []*data.Point
	cellSize              float64
	minCellSize           float64
	totalNumberOfPoints   int64
	numberOfPoints        int32
	leaf                  int32
	isChildrenInitialized bool
	extend                *GridNodeExtend

	sync.RWMutex
}

// GridNodeExtend carries the back-reference to the owning tree, needed by
// ComputeGeometricError to reach tree-wide settings.
type GridNodeExtend struct {
	tree *GridTree
}

// gridWrapNode groups one or more sibling leaf nodes that MergeSmallChildren
// decided to fold together, tracking the combined point count and which
// sibling indices were absorbed into which.
type gridWrapNode struct {
	totalNumberOfPoints int64
	nodeIndexList       []int
	nodeIndex           int
	node                *GridNode
}

// NewGridNode instantiates a new GridNode.
func NewGridNode(
	nodeNID string,
	tree *GridTree,
	parent *GridNode,
	boundingBox *geometry.BoundingBox,
	maxCellSize float64,
	minCellSize float64,
	root bool,
) *GridNode {
	return &GridNode{
		nodeNID:     nodeNID,
		parent:      parent,
		root:        root,
		boundingBox: boundingBox,
		cellSize:    maxCellSize,
		minCellSize: minCellSize,
		points:      make([]*data.Point, 0),
		cells:       make(map[gridIndex]*gridCell),
		leaf:        1,
		extend: &GridNodeExtend{
			tree: tree,
		},
	}
}

// AddDataPoint adds a point to the node, recursing into the appropriate
// child for any point its own grid cells reject.
func (n *GridNode) AddDataPoint(point *data.Point) {
	n.addDataPoint(point, true)
}

// addDataPoint is AddDataPoint's real body, taking the extra
// isFollowSizeThreshold knob SplitBigLeafNode needs: when a node is being
// resplit after exceeding MaxNumPointsPerNode, points must keep flowing
// into children even below minCellSize, or the split would have no effect.
func (n *GridNode) addDataPoint(point *data.Point, isFollowSizeThreshold bool) {
	if point == nil {
		return
	}

	n.Lock()
	if !n.IsChildrenInitialized() {
		n.initializeChildren()
	}
	n.Unlock()

	pushedOutPoint := n.pushPointToCell(point, isFollowSizeThreshold)
	if pushedOutPoint != nil {
		n.addPointToChildren(pushedOutPoint, isFollowSizeThreshold)
	} else {
		atomic.AddInt32(&n.numberOfPoints, 1)
	}

	atomic.AddInt64(&n.totalNumberOfPoints, 1)
}

func (n *GridNode) GetBoundingBox() *geometry.BoundingBox {
	return n.boundingBox
}

func (n *GridNode) GetCellSize() float64 {
	return n.cellSize
}

// GetChildren returns the node's eight children as octree.INode,
// converting the concrete grid pointers on the fly; unallocated slots
// surface as a nil interface value.
func (n *GridNode) GetChildren() [8]octree.INode {
	var out [8]octree.INode
	for i, child := range n.children {
		if child != nil {
			out[i] = child
		}
	}
	return out
}

func (n *GridNode) GetPoints() []*data.Point {
	return n.points
}

func (n *GridNode) TotalNumberOfPoints() int64 {
	return n.totalNumberOfPoints
}

func (n *GridNode) NumberOfPoints() int32 {
	return n.numberOfPoints
}

func (n *GridNode) IsLeaf() bool {
	return atomic.LoadInt32(&n.leaf) == 1
}

func (n *GridNode) IsChildrenInitialized() bool {
	return n.isChildrenInitialized
}

func (n *GridNode) IsRoot() bool {
	return n.root
}

// ComputeGeometricError estimates the geometric error this node's
// simplification introduces, used by the tileset writer to size the
// "geometricError" attribute of each tile. When the tree was configured
// with UseEdgeCalculateGeometricError, the error scales with this node's
// cellSize relative to the chunk's overall edge length instead of the
// default estimate (the bounding-box diagonal for the root, twice the
// cell diagonal for any other node).
func (n *GridNode) ComputeGeometricError() float64 {
	tree := n.extend.tree

	if !tree.useEdgeCalculateGeometricError {
		if n.IsRoot() {
			w := math.Abs(n.boundingBox.Xmax - n.boundingBox.Xmin)
			l := math.Abs(n.boundingBox.Ymax - n.boundingBox.Ymin)
			h := math.Abs(n.boundingBox.Zmax - n.boundingBox.Zmin)
			return math.Sqrt(w*w + l*l + h*h)
		}

		// twice the cell diagonal, the largest distance between two points in the same cell
		return n.cellSize * math.Sqrt(3) * 2
	}

	w := tree.chunkEdgeX
	l := tree.chunkEdgeY
	h := tree.chunkEdgeZ
	diagonal := math.Sqrt(w*w + l*l + h*h)

	cellSize := n.cellSize
	rootCellSize := tree.maxCellSize
	const scale = 32.0 // matches the tileset viewer's maximumScreenSpaceError of 16

	// SplitBigLeafNode can shrink a node's effective cellSize below
	// minCellSize; compensate so the reported error still tracks depth.
	if 2*cellSize < n.minCellSize {
		count := 0
		for 2*cellSize < n.minCellSize {
			cellSize *= 2
			count++
		}
		cellSize = cellSize * (1.0 - 0.1*float64(count))
	}

	return cellSize / rootCellSize * diagonal / scale
}

// getOctantFromElement returns the index of the octant that contains the
// given point within bbox.
func getOctantFromElement(element *data.Point, bbox *geometry.BoundingBox) uint8 {
	var result uint8 = 0
	if element.X > bbox.Xmid {
		result += 1
	}
	if element.Y > bbox.Ymid {
		result += 2
	}
	if element.Z > bbox.Zmid {
		result += 4
	}
	return result
}

// BuildPoints flattens each grid cell's retained point into the node's
// points slice and recurses into the children, discarding the cell map
// once drained so it can be garbage collected.
func (n *GridNode) BuildPoints() {
	var points []*data.Point
	for _, cell := range n.cells {
		points = append(points, cell.points...)
	}
	n.points = points
	n.cells = make(map[gridIndex]*gridCell)

	for _, child := range n.children {
		if child != nil {
			child.BuildPoints()
		}
	}
}

func (n *GridNode) GetParent() octree.INode {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// getPointGridCell gets the grid cell where point falls, creating it if
// it does not exist yet.
func (n *GridNode) getPointGridCell(point *data.Point) *gridCell {
	index := n.getPointGridCellIndex(point)

	n.RLock()
	cell := n.cells[*index]
	n.RUnlock()

	if cell == nil {
		return n.initializeGridCell(index)
	}
	return cell
}

func (n *GridNode) getPointGridCellIndex(point *data.Point) *gridIndex {
	return &gridIndex{
		getDimensionIndex(point.X, n.cellSize),
		getDimensionIndex(point.Y, n.cellSize),
		getDimensionIndex(point.Z, n.cellSize),
	}
}

func (n *GridNode) initializeGridCell(index *gridIndex) *gridCell {
	n.Lock()
	defer n.Unlock()

	if n.cells == nil {
		n.cells = make(map[gridIndex]*gridCell)
	}

	cell := n.cells[*index]
	if cell == nil {
		cell = &gridCell{
			index:         *index,
			size:          n.cellSize,
			sizeThreshold: n.minCellSize,
		}
		n.cells[*index] = cell
	}
	return cell
}

func (n *GridNode) pushPointToCell(point *data.Point, isFollowSizeThreshold bool) *data.Point {
	return n.getPointGridCell(point).pushPoint(point, isFollowSizeThreshold)
}

func (n *GridNode) addPointToChildren(point *data.Point, isFollowSizeThreshold bool) {
	n.children[getOctantFromElement(point, n.boundingBox)].addDataPoint(point, isFollowSizeThreshold)
	n.clearLeafFlag()
}

func (n *GridNode) clearLeafFlag() {
	atomic.StoreInt32(&n.leaf, 0)
}

func (n *GridNode) initializeChildren() {
	for i := uint8(0); i < 8; i++ {
		if n.children[i] == nil {
			n.children[i] = NewGridNode(
				fmt.Sprintf("%s-%d", n.nodeNID, i),
				n.extend.tree,
				n,
				geometry.NewBoundingBoxFromParent(n.boundingBox, &i),
				n.cellSize/2.0,
				n.minCellSize,
				false,
			)
		}
	}
	n.isChildrenInitialized = true
}

// MergeBoundingBox grows n's bounding box to also cover bbox.
func (n *GridNode) MergeBoundingBox(bbox *geometry.BoundingBox) {
	b := n.boundingBox
	minX := math.Min(b.Xmin, bbox.Xmin)
	minY := math.Min(b.Ymin, bbox.Ymin)
	minZ := math.Min(b.Zmin, bbox.Zmin)
	maxX := math.Max(b.Xmax, bbox.Xmax)
	maxY := math.Max(b.Ymax, bbox.Ymax)
	maxZ := math.Max(b.Zmax, bbox.Zmax)
	n.boundingBox = geometry.NewBoundingBox(minX, maxX, minY, maxY, minZ, maxZ)
}

// SplitBigNode walks n's children, resplitting any leaf whose point count
// exceeds maxPointsNum and descending into every branch, so a dense leaf
// produced by the grid pass never exceeds the tileset's per-node budget.
func (n *GridNode) SplitBigNode(maxPointsNum int32) error {
	for i, child := range n.children {
		if child == nil {
			continue
		}
		if child.IsLeaf() {
			if err := n.children[i].SplitBigLeafNode(maxPointsNum); err != nil {
				return err
			}
		} else {
			if err := n.children[i].SplitBigBranchNode(maxPointsNum); err != nil {
				return err
			}
		}
	}
	return nil
}

// SplitBigBranchNode applies SplitBigNode to a branch node, so its leaf
// children are resplit and its branch children descended into in turn.
// Branch nodes themselves never hold more than one grid cell's worth of
// points per level, so only their leaf descendants can exceed
// maxPointsNum.
func (n *GridNode) SplitBigBranchNode(maxPointsNum int32) error {
	if n.IsLeaf() {
		return nil
	}
	return n.SplitBigNode(maxPointsNum)
}

// SplitBigLeafNode resplits a leaf that grew past maxPointsNum: it
// re-pushes every point the node is holding through addDataPoint with the
// minCellSize floor disabled, forcing cells to keep subdividing into
// children until no single node in the resulting subtree holds more than
// maxPointsNum points, then recurses into any leaf descendant that is
// still too big.
func (n *GridNode) SplitBigLeafNode(maxPointsNum int32) error {
	if !n.IsLeaf() {
		return nil
	}
	if n.NumberOfPoints() <= maxPointsNum {
		return nil
	}

	points := make([]*data.Point, len(n.points))
	copy(points, n.points)

	n.cells = make(map[gridIndex]*gridCell)
	n.points = make([]*data.Point, 0)
	n.numberOfPoints = 0
	n.totalNumberOfPoints = 0
	n.leaf = 1
	n.mergedChildren = nil

	const isFollowSizeThreshold = false
	for _, p := range points {
		n.addDataPoint(p, isFollowSizeThreshold)
	}
	n.BuildPoints()

	for i, child := range n.children {
		if child == nil {
			continue
		}
		if err := n.children[i].SplitBigLeafNode(maxPointsNum); err != nil {
			return err
		}
	}

	return nil
}

// MergeSmallChildren collapses undersized sibling leaves into each other,
// and a node's last remaining leaf child into the node itself, whenever
// the smaller of the two holds at most 4x minPointsNum and their combined
// point count stays within 8x minPointsNum (the same limits for both kinds
// of merge). Descends
// depth-first so a subtree's children are merged before the subtree
// itself is considered for merging into its own parent.
func (n *GridNode) MergeSmallChildren(minPointsNum int64) error {
	if n.IsLeaf() {
		return nil
	}

	for i, child := range n.children {
		if child == nil || child.IsLeaf() {
			continue
		}
		if err := n.children[i].MergeSmallChildren(minPointsNum); err != nil {
			return err
		}
	}

	wrapChildren := make([]*gridWrapNode, 0)
	branchChildrenCount := 0

	for i, child := range n.children {
		if child == nil {
			continue
		}
		if !child.IsLeaf() {
			branchChildrenCount++
			continue
		}
		wrapChildren = append(wrapChildren, &gridWrapNode{
			totalNumberOfPoints: child.TotalNumberOfPoints(),
			nodeIndexList:       []int{i},
			nodeIndex:           i,
			node:                n.children[i],
		})
	}

	for len(wrapChildren) >= 2 {
		sort.Slice(wrapChildren, func(i, j int) bool {
			return wrapChildren[i].totalNumberOfPoints < wrapChildren[j].totalNumberOfPoints ||
				(wrapChildren[i].totalNumberOfPoints == wrapChildren[j].totalNumberOfPoints &&
					wrapChildren[i].nodeIndex > wrapChildren[j].nodeIndex)
		})

		if wrapChildren[0].totalNumberOfPoints > 4*minPointsNum ||
			(wrapChildren[0].totalNumberOfPoints+wrapChildren[1].totalNumberOfPoints) > 8*minPointsNum {
			break
		}

		wrapChildren[1].totalNumberOfPoints += wrapChildren[0].totalNumberOfPoints
		wrapChildren[1].nodeIndexList = append(wrapChildren[1].nodeIndexList, wrapChildren[0].nodeIndexList...)

		wrapChildren = wrapChildren[1:]
	}

	n.mergedChildren = wrapChildren

	for _, wrapChild := range n.mergedChildren {
		if len(wrapChild.nodeIndexList) < 2 {
			continue
		}
		mainNodeIndex := wrapChild.nodeIndexList[0]
		for _, nodeIndex := range wrapChild.nodeIndexList[1:] {
			n.children[mainNodeIndex].numberOfPoints += n.children[nodeIndex].numberOfPoints
			n.children[mainNodeIndex].totalNumberOfPoints += n.children[nodeIndex].totalNumberOfPoints
			n.children[mainNodeIndex].points = append(n.children[mainNodeIndex].points, n.children[nodeIndex].points...)
			n.children[mainNodeIndex].MergeBoundingBox(n.children[nodeIndex].boundingBox)

			n.children[nodeIndex].points = nil
			n.children[nodeIndex].mergedChildren = nil
			n.children[nodeIndex].cells = nil
			n.children[nodeIndex].numberOfPoints = 0
			n.children[nodeIndex].totalNumberOfPoints = 0
			n.children[nodeIndex].leaf = 1
			n.children[nodeIndex] = nil
		}
	}

	if branchChildrenCount == 0 && len(wrapChildren) == 1 {
		nodeIndex := wrapChildren[0].nodeIndexList[0]
		node := wrapChildren[0].node

		if n.totalNumberOfPoints <= 4*minPointsNum &&
			n.totalNumberOfPoints+node.totalNumberOfPoints <= 8*minPointsNum {
			n.numberOfPoints += node.numberOfPoints
			n.points = append(n.points, node.points...)
			n.leaf = 1

			n.children[nodeIndex] = nil
		}
	}

	return nil
}
