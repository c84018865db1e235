package pkg

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/golang/glog"

	"github.com/ecopia-map/geotile_transform/internal/converters"
	"github.com/ecopia-map/geotile_transform/internal/coords"
	"github.com/ecopia-map/geotile_transform/internal/coords/mat4"
	"github.com/ecopia-map/geotile_transform/internal/geometry"
	tileio "github.com/ecopia-map/geotile_transform/internal/io"
	"github.com/ecopia-map/geotile_transform/internal/octree"
	"github.com/ecopia-map/geotile_transform/internal/pointsource"
	"github.com/ecopia-map/geotile_transform/internal/tiler"
	"github.com/ecopia-map/geotile_transform/pkg/algorithm_manager"
	"github.com/ecopia-map/geotile_transform/tools"
)

// ITiler is the entry point the command layer drives: run the whole
// index pipeline over the files an options struct describes.
type ITiler interface {
	RunTiler(opts *tiler.TilerOptions) error
}

// Tiler reads every point source file under opts.Input, reprojects each
// point into a shared local ENU frame via transformer, decimates it
// through a fresh octree, and writes the resulting tileset. One
// transformer is shared across every input file, since the tangent-plane
// origin it resolves is a property of the whole run, not of any single
// file.
type Tiler struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
	transformer      *coords.CoordinateTransformer
}

func NewTiler(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager, transformer *coords.CoordinateTransformer) ITiler {
	return &Tiler{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
		transformer:      transformer,
	}
}

// RunTiler processes every point source file opts.Input resolves to,
// writing one chunk-tileset-<name>/ output folder per file.
func (t *Tiler) RunTiler(opts *tiler.TilerOptions) error {
	glog.Infoln("Preparing list of files to process...")

	files := t.fileFinder.GetPointFilesToProcess(opts)
	for i, filePath := range files {
		glog.Infof("point source %d/%d: %s", i+1, len(files), filePath)
	}

	for i, filePath := range files {
		glog.Infoln("Processing file " + strconv.Itoa(i+1) + "/" + strconv.Itoa(len(files)))
		tree := t.algorithmManager.NewTree()
		if err := t.processFile(filePath, opts, tree); err != nil {
			return fmt.Errorf("processing %s: %w", filePath, err)
		}
	}

	return nil
}

func (t *Tiler) processFile(filePath string, opts *tiler.TilerOptions, tree octree.ITree) error {
	corrector := t.algorithmManager.GetElevationCorrectionAlgorithm()

	glog.Infoln("> scanning extent of", filepath.Base(filePath))
	bounds, err := t.scanBounds(filePath, corrector)
	if err != nil {
		return err
	}
	tree.SetBounds(bounds)
	tree.ConfigureGeometricError(
		opts.UseEdgeCalculateGeometricError,
		bounds.Xmax-bounds.Xmin, bounds.Ymax-bounds.Ymin, bounds.Zmax-bounds.Zmin,
	)

	glog.Infoln("> loading points from", filepath.Base(filePath))
	if err := t.loadPoints(filePath, corrector, tree); err != nil {
		return err
	}

	glog.Infoln("> balancing node sizes for", filepath.Base(filePath))
	if err := tree.SplitBigNode(opts.MaxNumPointsPerNode); err != nil {
		return fmt.Errorf("splitting oversized nodes: %w", err)
	}
	if err := tree.MergeSmallNode(opts.MinNumPointsPerNode); err != nil {
		return fmt.Errorf("merging undersized nodes: %w", err)
	}

	rootNode := tree.GetRootNode()
	glog.Infoln("root node point count:", rootNode.NumberOfPoints(), "total:", rootNode.TotalNumberOfPoints())

	subfolder := fmt.Sprintf("%s%s", tools.ChunkTilesetFilePrefix, getFilenameWithoutExtension(filePath))
	glog.Infoln("> exporting tileset for", filepath.Base(filePath))
	if err := t.exportToCesiumTileset(tree, opts, subfolder); err != nil {
		return err
	}

	glog.Infoln("> done processing", filepath.Base(filePath))
	return nil
}

// scanBounds makes a first pass over filePath, reprojecting every point
// into the shared local ENU frame without retaining any of them, purely
// to learn the extent the tree's root node must be allocated to cover.
// A point source format that already carries its own extent in a header
// could skip this, but none of the formats this pipeline reads do.
func (t *Tiler) scanBounds(filePath string, corrector converters.ElevationCorrector) (*geometry.BoundingBox, error) {
	source, err := pointsource.NewCSVSource(filePath)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	var xmin, xmax, ymin, ymax, zmin, zmax float64
	first := true
	for {
		raw, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		enu := t.transformRaw(raw, corrector)
		if first {
			xmin, xmax = enu.X, enu.X
			ymin, ymax = enu.Y, enu.Y
			zmin, zmax = enu.Z, enu.Z
			first = false
			continue
		}
		if enu.X < xmin {
			xmin = enu.X
		}
		if enu.X > xmax {
			xmax = enu.X
		}
		if enu.Y < ymin {
			ymin = enu.Y
		}
		if enu.Y > ymax {
			ymax = enu.Y
		}
		if enu.Z < zmin {
			zmin = enu.Z
		}
		if enu.Z > zmax {
			zmax = enu.Z
		}
	}

	if first {
		return nil, fmt.Errorf("point source %s contains no points", filePath)
	}

	return geometry.NewBoundingBox(xmin, xmax, ymin, ymax, zmin, zmax), nil
}

// loadPoints makes a second pass over filePath, this time feeding every
// reprojected point into tree. The scan runs in its own goroutine so it
// can run concurrently with tree.Build's internal consumers draining the
// queue as points arrive, rather than buffering the whole file first.
func (t *Tiler) loadPoints(filePath string, corrector converters.ElevationCorrector, tree octree.ITree) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- t.feedTree(filePath, corrector, tree)
	}()

	if err := tree.Build(); err != nil {
		return err
	}

	return <-errCh
}

func (t *Tiler) feedTree(filePath string, corrector converters.ElevationCorrector, tree octree.ITree) error {
	defer tree.FinishLoading()

	source, err := pointsource.NewCSVSource(filePath)
	if err != nil {
		return err
	}
	defer source.Close()

	for {
		raw, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		enu := t.transformRaw(raw, corrector)
		coordinate := &geometry.Coordinate{X: enu.X, Y: enu.Y, Z: enu.Z}
		tree.AddPoint(coordinate, raw.R, raw.G, raw.B, raw.Intensity, raw.Classification, nil)
	}

	return nil
}

// transformRaw applies the elevation corrector and then the coordinate
// transformer's ToLocalENU to a raw source point.
func (t *Tiler) transformRaw(raw *pointsource.Point, corrector converters.ElevationCorrector) mat4.Vec3 {
	z := corrector.CorrectElevation(raw.X, raw.Y, raw.Z)
	p := mat4.Vec3{X: raw.X, Y: raw.Y, Z: z}
	return t.transformer.ToLocalENU(p)
}

func getFilenameWithoutExtension(filePath string) string {
	nameWext := filepath.Base(filePath)
	extension := filepath.Ext(nameWext)
	return nameWext[0 : len(nameWext)-len(extension)]
}

// exportToCesiumTileset walks tree's root node with a StandardProducer
// and drains the resulting WorkUnits with a pool of StandardConsumers,
// one per CPU.
func (t *Tiler) exportToCesiumTileset(tree octree.ITree, opts *tiler.TilerOptions, subfolder string) error {
	if !tree.IsBuilt() {
		return errors.New("octree not built, data structure not initialized")
	}

	numConsumers := runtime.NumCPU()

	workChannel := make(chan *tileio.WorkUnit, numConsumers*5)
	// Buffered so a consumer can report its error and call waitGroup.Done()
	// without blocking on a reader, since errorChannel is only drained
	// after waitGroup.Wait() returns below.
	errorChannel := make(chan error, numConsumers)

	var waitGroup sync.WaitGroup

	waitGroup.Add(1)
	producer := tileio.NewStandardProducer(opts.Output, subfolder, opts)
	go producer.Produce(workChannel, &waitGroup, tree.GetRootNode())

	for i := 0; i < numConsumers; i++ {
		waitGroup.Add(1)
		consumer := tileio.NewStandardConsumer(t.transformer.EnuToEcefMatrix(), opts.RefineMode, opts.Draco, opts.DracoEncoderPath)
		go consumer.Consume(workChannel, errorChannel, &waitGroup)
	}

	waitGroup.Wait()
	close(errorChannel)

	withErrors := false
	for err := range errorChannel {
		glog.Infoln(err)
		withErrors = true
	}
	if withErrors {
		return errors.New("errors raised during execution, check log output for details")
	}

	return nil
}
