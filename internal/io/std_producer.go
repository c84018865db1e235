package io

import (
	"path"
	"strconv"
	"sync"

	"github.com/ecopia-map/geotile_transform/internal/octree"
	"github.com/ecopia-map/geotile_transform/internal/tiler"
)

// StandardProducer is the default Producer: a depth-first walk of the
// tree rooted at the node it is called on, emitting one WorkUnit per
// node that holds points, at a file path mirroring the node's position
// in the tree (root/0/3/content.pnts, ...).
type StandardProducer struct {
	basePath string
	options  *tiler.TilerOptions
}

// NewStandardProducer returns a StandardProducer writing tiles under
// basepath/subfolder.
func NewStandardProducer(basepath string, subfolder string, options *tiler.TilerOptions) *StandardProducer {
	return &StandardProducer{
		basePath: path.Join(basepath, subfolder),
		options:  options,
	}
}

// Produce walks node, the tree's root, submitting a WorkUnit per node
// with points and closing work once done. Should be called only on the
// tree's root node.
func (p *StandardProducer) Produce(work chan *WorkUnit, wg *sync.WaitGroup, node octree.INode) {
	p.produce(p.basePath, node, work)
	close(work)
	wg.Done()
}

func (p *StandardProducer) produce(basePath string, node octree.INode, work chan *WorkUnit) {
	if node.NumberOfPoints() > 0 {
		work <- &WorkUnit{
			Node:     node,
			BasePath: basePath,
			Opts:     p.options,
		}
	}

	for i, child := range node.GetChildren() {
		if child != nil {
			p.produce(path.Join(basePath, strconv.Itoa(i)), child, work)
		}
	}
}
