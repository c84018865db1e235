// Package algorithm_manager decides, from parsed CLI options, which
// concrete strategy implementations back the pipeline's pluggable
// points: how nodes are decimated into a tree, and what per-point value
// corrections run ahead of the coordinate transformer.
package algorithm_manager

import (
	"github.com/ecopia-map/geotile_transform/internal/converters"
	"github.com/ecopia-map/geotile_transform/internal/converters/elevation/offset_elevation_corrector"
	"github.com/ecopia-map/geotile_transform/internal/octree"
	"github.com/ecopia-map/geotile_transform/internal/octree/grid_tree"
	"github.com/ecopia-map/geotile_transform/internal/tiler"
)

// AlgorithmManager builds the per-run collaborators the tiler pipeline
// needs beyond the coordinate transformer itself.
type AlgorithmManager interface {
	GetElevationCorrectionAlgorithm() converters.ElevationCorrector
	NewTree() octree.ITree
}

// StandardAlgorithmManager is the only AlgorithmManager the pipeline
// currently ships: a fixed Z offset corrector and a fresh grid_tree.GridTree
// per input file.
type StandardAlgorithmManager struct {
	opts *tiler.TilerOptions
}

func NewStandardAlgorithmManager(opts *tiler.TilerOptions) AlgorithmManager {
	return &StandardAlgorithmManager{opts: opts}
}

func (m *StandardAlgorithmManager) GetElevationCorrectionAlgorithm() converters.ElevationCorrector {
	return offset_elevation_corrector.NewOffsetElevationCorrector(m.opts.ZOffset)
}

// NewTree returns a new, empty GridTree sized from the run's grid cell
// options. Every input file processed by the pipeline gets its own tree,
// so this must be a factory, not a shared singleton.
func (m *StandardAlgorithmManager) NewTree() octree.ITree {
	return grid_tree.NewGridTree(m.opts.CellMaxSize, m.opts.CellMinSize)
}
