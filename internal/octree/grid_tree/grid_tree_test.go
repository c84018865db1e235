package grid_tree

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/ecopia-map/geotile_transform/internal/geometry"
	"github.com/ecopia-map/geotile_transform/internal/octree"
)

func buildTreeWithPoints(t *testing.T, points [][3]float64) octree.ITree {
	tree := NewGridTree(10, 1)
	tree.SetBounds(geometry.NewBoundingBox(-50, 50, -50, 50, -50, 50))

	go func() {
		for _, p := range points {
			tree.AddPoint(&geometry.Coordinate{X: p[0], Y: p[1], Z: p[2]}, 1, 2, 3, 4, 5, nil)
		}
		tree.FinishLoading()
	}()

	err := tree.Build()
	assert.NoError(t, err)

	return tree
}

func TestBuildEmptyTreeFailsWithoutBounds(t *testing.T) {
	tree := NewGridTree(10, 1)
	err := tree.Build()
	assert.Error(t, err)
}

func TestBuildSinglePointBecomesRootPoint(t *testing.T) {
	tree := buildTreeWithPoints(t, [][3]float64{{1, 1, 1}})

	root := tree.GetRootNode()
	assert.True(t, root.IsRoot())
	assert.True(t, root.IsLeaf())
	assert.Equal(t, int32(1), root.NumberOfPoints())
	assert.Equal(t, int64(1), root.TotalNumberOfPoints())
}

func TestBuildTwoPointsInSameCellPushesSecondToChild(t *testing.T) {
	// both points fall in the root's grid cell spanning [0,10)^3
	tree := buildTreeWithPoints(t, [][3]float64{{1, 1, 1}, {2, 2, 2}})

	root := tree.GetRootNode()
	assert.False(t, root.IsLeaf())
	assert.Equal(t, int32(1), root.NumberOfPoints())
	assert.Equal(t, int64(2), root.TotalNumberOfPoints())

	var childWithPoint octree.INode
	for _, child := range root.GetChildren() {
		if child != nil && child.NumberOfPoints() > 0 {
			childWithPoint = child
		}
	}
	assert.True(t, childWithPoint != nil)
	assert.Equal(t, int32(1), childWithPoint.NumberOfPoints())
}

func TestBuildCannotRunTwice(t *testing.T) {
	tree := buildTreeWithPoints(t, [][3]float64{{1, 1, 1}})
	err := tree.Build()
	assert.Error(t, err)
}

func TestComputeGeometricErrorRootUsesDiagonal(t *testing.T) {
	tree := buildTreeWithPoints(t, [][3]float64{{1, 1, 1}})
	root := tree.GetRootNode()
	assert.Equal(t, 100.0*1.7320508075688772, root.ComputeGeometricError())
}

func TestComputeGeometricErrorUsesEdgeExtentWhenConfigured(t *testing.T) {
	tree := NewGridTree(10, 1)
	tree.SetBounds(geometry.NewBoundingBox(-50, 50, -50, 50, -50, 50))
	tree.ConfigureGeometricError(true, 3, 4, 0)

	go func() {
		tree.AddPoint(&geometry.Coordinate{X: 1, Y: 1, Z: 1}, 1, 2, 3, 4, 5, nil)
		tree.FinishLoading()
	}()
	assert.NoError(t, tree.Build())

	root := tree.GetRootNode()
	// cellSize == rootCellSize (root node), diagonal = sqrt(3^2+4^2+0^2) = 5, scale = 32
	assert.Equal(t, 5.0/32.0, root.ComputeGeometricError())
}

// maxPointsInSubtree walks node and its descendants, returning the
// largest NumberOfPoints found anywhere in the subtree.
func maxPointsInSubtree(node octree.INode) int32 {
	max := node.NumberOfPoints()
	for _, child := range node.GetChildren() {
		if child == nil {
			continue
		}
		if m := maxPointsInSubtree(child); m > max {
			max = m
		}
	}
	return max
}

func TestSplitBigNodeCapsOversizedLeaf(t *testing.T) {
	// maxCellSize == minCellSize: the grid never subdivides on its own,
	// so every point landing in the root's one grid cell stays there,
	// producing a leaf with no upper bound on point count until
	// SplitBigNode runs.
	tree := NewGridTree(10, 10)
	tree.SetBounds(geometry.NewBoundingBox(-50, 50, -50, 50, -50, 50))

	const numPoints = 12
	go func() {
		for i := 0; i < numPoints; i++ {
			tree.AddPoint(&geometry.Coordinate{X: float64(i) * 0.01, Y: 0, Z: 0}, 1, 2, 3, 4, 5, nil)
		}
		tree.FinishLoading()
	}()
	assert.NoError(t, tree.Build())

	root := tree.GetRootNode()
	assert.Equal(t, int32(numPoints), root.NumberOfPoints())

	assert.NoError(t, tree.SplitBigNode(4))

	assert.True(t, maxPointsInSubtree(root) <= 4)
	assert.Equal(t, int64(numPoints), root.TotalNumberOfPoints())
}

func TestSplitThenMergeRoundTripsBackToASingleLeaf(t *testing.T) {
	tree := NewGridTree(10, 10)
	tree.SetBounds(geometry.NewBoundingBox(-50, 50, -50, 50, -50, 50))

	const numPoints = 12
	go func() {
		for i := 0; i < numPoints; i++ {
			tree.AddPoint(&geometry.Coordinate{X: float64(i) * 0.01, Y: 0, Z: 0}, 1, 2, 3, 4, 5, nil)
		}
		tree.FinishLoading()
	}()
	assert.NoError(t, tree.Build())
	assert.NoError(t, tree.SplitBigNode(4))

	root := tree.GetRootNode()
	assert.False(t, root.IsLeaf())

	// A minPointsNum this much larger than the dataset should merge
	// every scattered leaf all the way back up into the root.
	assert.NoError(t, tree.MergeSmallNode(1000))

	assert.True(t, root.IsLeaf())
	assert.Equal(t, int32(numPoints), root.NumberOfPoints())
	assert.Equal(t, int64(numPoints), root.TotalNumberOfPoints())
}
