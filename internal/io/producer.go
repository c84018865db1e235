package io

import (
	"sync"

	"github.com/ecopia-map/geotile_transform/internal/octree"
)

// Producer walks a built tree and submits one WorkUnit per node that
// holds points onto work, closing it once every node has been submitted.
type Producer interface {
	Produce(work chan *WorkUnit, wg *sync.WaitGroup, node octree.INode)
}
