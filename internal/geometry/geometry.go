// Package geometry provides the small set of value types the octree and
// tileset writer need: a metric axis-aligned BoundingBox in the tree's
// internal coordinate system, and a bare Coordinate triplet. Points and
// bounds are expressed as github.com/paulmach/orb values wherever the
// wider ecosystem already has a type for them.
package geometry

import (
	"github.com/paulmach/orb"
)

// Coordinate is a bare (x, y, z) triplet, used where a orb.Point's 2D
// shape does not carry height.
type Coordinate struct {
	X, Y, Z float64
}

// Point2D returns the X, Y components as an orb.Point.
func (c Coordinate) Point2D() orb.Point {
	return orb.Point{c.X, c.Y}
}

// BoundingBox is an axis-aligned box in the octree's internal metric
// coordinate system, with its midpoint cached for octant classification.
type BoundingBox struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
	Zmin, Zmax float64
	Xmid, Ymid, Zmid float64
}

// NewBoundingBox builds a BoundingBox and derives its midpoint.
func NewBoundingBox(xmin, xmax, ymin, ymax, zmin, zmax float64) *BoundingBox {
	return &BoundingBox{
		Xmin: xmin, Xmax: xmax,
		Ymin: ymin, Ymax: ymax,
		Zmin: zmin, Zmax: zmax,
		Xmid: (xmin + xmax) / 2,
		Ymid: (ymin + ymax) / 2,
		Zmid: (zmin + zmax) / 2,
	}
}

// NewBoundingBoxFromParent returns the sub-box of parent corresponding to
// the given octant index (bit 0 = +X half, bit 1 = +Y half, bit 2 = +Z
// half), matching the octant numbering used by the grid octree.
func NewBoundingBoxFromParent(parent *BoundingBox, octant *uint8) *BoundingBox {
	xmin, xmax := parent.Xmin, parent.Xmid
	if *octant&1 != 0 {
		xmin, xmax = parent.Xmid, parent.Xmax
	}
	ymin, ymax := parent.Ymin, parent.Ymid
	if *octant&2 != 0 {
		ymin, ymax = parent.Ymid, parent.Ymax
	}
	zmin, zmax := parent.Zmin, parent.Zmid
	if *octant&4 != 0 {
		zmin, zmax = parent.Zmid, parent.Zmax
	}
	return NewBoundingBox(xmin, xmax, ymin, ymax, zmin, zmax)
}

// Bound returns the box's XY footprint as an orb.Bound, for callers that
// want to exercise the wider orb geometry toolkit (union, contains,
// pad...) instead of this package's own accessors.
func (b *BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.Xmin, b.Ymin},
		Max: orb.Point{b.Xmax, b.Ymax},
	}
}

// GetAsBoxArray returns the box as the 12-element array a 3D-Tiles "box"
// bounding volume expects: [centerX, centerY, centerZ, halfXx, halfXy,
// halfXz, halfYx, halfYy, halfYz, halfZx, halfZy, halfZz]. Since the
// octree's boxes are always axis-aligned, only the diagonal half-axis
// terms are non-zero.
func (b *BoundingBox) GetAsBoxArray() [12]float64 {
	halfX := (b.Xmax - b.Xmin) / 2
	halfY := (b.Ymax - b.Ymin) / 2
	halfZ := (b.Zmax - b.Zmin) / 2
	return [12]float64{
		b.Xmid, b.Ymid, b.Zmid,
		halfX, 0, 0,
		0, halfY, 0,
		0, 0, halfZ,
	}
}
