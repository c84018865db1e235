// Package point_loader provides the small queue abstraction the grid
// octree uses to fan a single producer goroutine's point stream out to
// several parallel consumer goroutines during Build.
package point_loader

import "github.com/ecopia-map/geotile_transform/internal/data"

// Loader is a thread-safe, single-producer multi-consumer queue of
// points. AddPoint is called from the goroutine reading the source point
// file; GetNext is called concurrently by each of the tree's point-loader
// goroutines until it reports no more points are coming.
type Loader interface {
	InitializeLoader()
	AddPoint(point *data.Point)
	GetNext() (*data.Point, bool)
	ClearLoader()
}

// queueCapacity bounds how many points may be buffered between the
// producer and the tree's parallel consumers before AddPoint blocks.
const queueCapacity = 10000

// SequentialLoader is the default Loader, backed by a buffered channel.
type SequentialLoader struct {
	queue chan *data.Point
}

// NewSequentialLoader returns an uninitialized SequentialLoader; call
// InitializeLoader before use.
func NewSequentialLoader() *SequentialLoader {
	return &SequentialLoader{}
}

func (l *SequentialLoader) InitializeLoader() {
	l.queue = make(chan *data.Point, queueCapacity)
}

func (l *SequentialLoader) AddPoint(point *data.Point) {
	l.queue <- point
}

// GetNext blocks until a point is available or the queue has been
// cleared, returning (point, true) in the former case and (nil, false)
// in the latter — the "shouldContinue" signal the tree's loader
// goroutines use to know when to stop polling.
func (l *SequentialLoader) GetNext() (*data.Point, bool) {
	point, ok := <-l.queue
	return point, ok
}

// ClearLoader closes the queue, unblocking every goroutine waiting in
// GetNext.
func (l *SequentialLoader) ClearLoader() {
	if l.queue != nil {
		close(l.queue)
	}
}
