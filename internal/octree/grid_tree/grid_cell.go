package grid_tree

import (
	"math"

	"github.com/ecopia-map/geotile_transform/internal/data"
)

// gridIndex identifies one cell of a node's cubic grid subdivision.
type gridIndex struct {
	x, y, z int64
}

// getDimensionIndex returns which cell of size cellSize the coordinate v
// falls into along one axis.
func getDimensionIndex(v, cellSize float64) int64 {
	return int64(math.Floor(v / cellSize))
}

// gridCell retains at most one point per cell, implementing the density
// thinning that makes each octree level a coarser level-of-detail than
// its children: the first point to land in a cell is kept by this node,
// and every subsequent point claiming the same cell is pushed out to be
// recursed into the node's children instead.
type gridCell struct {
	index         gridIndex
	size          float64
	sizeThreshold float64
	points        []*data.Point
}

// pushPoint claims point for this cell if it is still empty, returning
// nil; otherwise it returns point unchanged so the caller can push it
// down to a child node. Once the cell has shrunk to sizeThreshold, the
// grid stops subdividing and the cell instead keeps every point it is
// given, capping the tree's depth.
func (c *gridCell) pushPoint(point *data.Point, isFollowSizeThreshold bool) *data.Point {
	if len(c.points) == 0 || (isFollowSizeThreshold && c.size <= c.sizeThreshold) {
		c.points = append(c.points, point)
		return nil
	}
	return point
}
