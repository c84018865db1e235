package io

import (
	"github.com/ecopia-map/geotile_transform/internal/octree"
	"github.com/ecopia-map/geotile_transform/internal/tiler"
)

// WorkUnit is the minimal data needed to produce a single 3D Tile, i.e. a
// binary content.pnts file and, for non-leaf nodes, a tileset.json file.
type WorkUnit struct {
	Node     octree.INode
	Opts     *tiler.TilerOptions
	BasePath string
}
