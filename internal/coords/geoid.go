package coords

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GeoidModel names a supported geoid undulation model.
type GeoidModel int

const (
	GeoidNone GeoidModel = iota
	GeoidEGM84
	GeoidEGM96
	GeoidEGM2008
)

func (m GeoidModel) String() string {
	switch m {
	case GeoidEGM84:
		return "egm84"
	case GeoidEGM96:
		return "egm96"
	case GeoidEGM2008:
		return "egm2008"
	default:
		return "none"
	}
}

// ParseGeoidModel parses a case-insensitive model name, defaulting to
// GeoidNone for anything unrecognized.
func ParseGeoidModel(name string) GeoidModel {
	switch lower(name) {
	case "egm84":
		return GeoidEGM84
	case "egm96":
		return GeoidEGM96
	case "egm2008":
		return GeoidEGM2008
	default:
		return GeoidNone
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// GeoidConfig describes which geoid model to apply, and where its grid
// data lives on disk.
type GeoidConfig struct {
	Enabled  bool
	Model    GeoidModel
	DataPath string
}

// DisabledGeoidConfig returns a config with geoid correction turned off.
func DisabledGeoidConfig() GeoidConfig {
	return GeoidConfig{Enabled: false, Model: GeoidNone}
}

// NewGeoidConfig returns a config requesting the given model and data
// path, enabled unless model is GeoidNone.
func NewGeoidConfig(model GeoidModel, dataPath string) GeoidConfig {
	return GeoidConfig{Enabled: model != GeoidNone, Model: model, DataPath: dataPath}
}

// GeoidService resolves geoid undulation (N) for a lat/lon and converts
// between orthometric and ellipsoidal heights. Process-global use is
// acceptable (its state is read-mostly after Initialize), but the
// transformer never looks one up through a package-level global — it is
// always passed in at construction.
type GeoidService interface {
	Initialize(model GeoidModel, dataPath string) error
	IsInitialized() bool
	Model() GeoidModel
	GeoidHeight(lat, lon float64) (float64, bool)
	ConvertOrthometricToEllipsoidal(lat, lon, h float64) float64
	ConvertEllipsoidalToOrthometric(lat, lon, h float64) float64
}

var (
	geoidCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coords_geoid_cache_hits_total",
		Help: "The total number of hits on the geoid undulation sample cache",
	})
	geoidCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coords_geoid_cache_misses_total",
		Help: "The total number of misses on the geoid undulation sample cache",
	})
	geoidCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coords_geoid_cache_evictions_total",
		Help: "The total number of evictions from the geoid undulation sample cache",
	})
)

// geoidKey rounds a lat/lon query to one arcsecond so
// nearby repeated queries (e.g. adjacent points in a point cloud) share a
// cache entry.
type geoidKey struct {
	latQ, lonQ int64
}

// geoidGrid is a row-major grid of signed undulation samples (meters)
// covering [latMin, latMin+(nLat-1)*dLat] x [lonMin, lonMin+(nLon-1)*dLon].
type geoidGrid struct {
	latMin, lonMin float64
	dLat, dLon     float64
	nLat, nLon     int
	samples        []float32
}

func (g *geoidGrid) sampleAt(latIdx, lonIdx int) float64 {
	latIdx = clampInt(latIdx, 0, g.nLat-1)
	lonIdx = clampInt(lonIdx, 0, g.nLon-1)
	return float64(g.samples[latIdx*g.nLon+lonIdx])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bilinear interpolates the undulation at (lat, lon) from the four grid
// samples that bracket it; queries outside the grid use the nearest edge
// samples.
func (g *geoidGrid) bilinear(lat, lon float64) float64 {
	fLat := (lat - g.latMin) / g.dLat
	fLon := (lon - g.lonMin) / g.dLon

	lat0 := int(math.Floor(fLat))
	lon0 := int(math.Floor(fLon))
	dy := fLat - float64(lat0)
	dx := fLon - float64(lon0)

	s00 := g.sampleAt(lat0, lon0)
	s10 := g.sampleAt(lat0, lon0+1)
	s01 := g.sampleAt(lat0+1, lon0)
	s11 := g.sampleAt(lat0+1, lon0+1)

	return s00*(1-dx)*(1-dy) +
		s10*dx*(1-dy) +
		s01*(1-dx)*dy +
		s11*dx*dy
}

// readGeoidGrid decodes the fixed-size grid header (latMin, lonMin, dLat,
// dLon float64; nLat, nLon uint32, little-endian) followed by nLat*nLon
// float32 undulation samples.
func readGeoidGrid(path string) (*geoidGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header struct {
		LatMin, LonMin float64
		DLat, DLon     float64
		NLat, NLon     uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("coords: reading geoid grid header %s: %w", path, err)
	}

	count := int(header.NLat) * int(header.NLon)
	samples := make([]float32, count)
	if err := binary.Read(f, binary.LittleEndian, &samples); err != nil && err != io.EOF {
		return nil, fmt.Errorf("coords: reading geoid grid samples %s: %w", path, err)
	}

	return &geoidGrid{
		latMin: header.LatMin, lonMin: header.LonMin,
		dLat: header.DLat, dLon: header.DLon,
		nLat: int(header.NLat), nLon: int(header.NLon),
		samples: samples,
	}, nil
}

// GridGeoidService is the default GeoidService, reading a gridded geoid
// undulation file in the simple row-major binary format documented on
// readGeoidGrid and bilinearly interpolating query points. An LRU cache over
// rounded (lat, lon) keys avoids re-interpolating repeated nearby queries
// within a single tiling run.
type GridGeoidService struct {
	mu          sync.RWMutex
	model       GeoidModel
	grid        *geoidGrid
	initialized bool
	cache       *lru.Cache[geoidKey, float64]
}

// NewGridGeoidService returns an uninitialized GridGeoidService. Call
// Initialize before use.
func NewGridGeoidService() *GridGeoidService {
	cache, _ := lru.NewWithEvict[geoidKey, float64](4096, func(geoidKey, float64) {
		geoidCacheEvictions.Inc()
	})
	return &GridGeoidService{cache: cache}
}

func (s *GridGeoidService) Initialize(model GeoidModel, dataPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if model == GeoidNone {
		s.model = GeoidNone
		s.grid = nil
		s.initialized = false
		return nil
	}

	path := resolveGeoidDataPath(model, dataPath)
	grid, err := readGeoidGrid(path)
	if err != nil {
		glog.Warningf("coords: geoid model %s not initialized: %v", model, err)
		s.initialized = false
		return err
	}

	s.model = model
	s.grid = grid
	s.initialized = true
	return nil
}

func (s *GridGeoidService) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *GridGeoidService) Model() GeoidModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// GeoidHeight returns the geoid undulation N at (lat, lon), or (0, false)
// if the service is not initialized.
func (s *GridGeoidService) GeoidHeight(lat, lon float64) (float64, bool) {
	s.mu.RLock()
	grid := s.grid
	initialized := s.initialized
	s.mu.RUnlock()

	if !initialized || grid == nil {
		return 0, false
	}

	key := geoidKey{latQ: int64(math.Round(lat * 3600)), lonQ: int64(math.Round(lon * 3600))}
	if n, ok := s.cache.Get(key); ok {
		geoidCacheHits.Inc()
		return n, true
	}
	geoidCacheMisses.Inc()

	n := grid.bilinear(lat, lon)
	s.cache.Add(key, n)
	return n, true
}

// ConvertOrthometricToEllipsoidal returns h_o + N(lat, lon), passing h
// through unchanged if the lookup fails.
func (s *GridGeoidService) ConvertOrthometricToEllipsoidal(lat, lon, h float64) float64 {
	n, ok := s.GeoidHeight(lat, lon)
	if !ok {
		return h
	}
	return h + n
}

// ConvertEllipsoidalToOrthometric returns h_e - N(lat, lon), passing h
// through unchanged if the lookup fails.
func (s *GridGeoidService) ConvertEllipsoidalToOrthometric(lat, lon, h float64) float64 {
	n, ok := s.GeoidHeight(lat, lon)
	if !ok {
		return h
	}
	return h - n
}

// resolveGeoidDataPath: an explicit path wins, then the GEOID_DATA_PATH
// environment variable, then a platform default directory. A path naming
// an existing regular file is used as the grid file itself; otherwise it
// is taken as a directory holding <model>.grid.
func resolveGeoidDataPath(model GeoidModel, explicit string) string {
	base := defaultGeoidDataDir()
	if explicit != "" {
		base = explicit
	} else if env := os.Getenv("GEOID_DATA_PATH"); env != "" {
		base = env
	}
	if info, err := os.Stat(base); err == nil && !info.IsDir() {
		return base
	}
	return base + string(os.PathSeparator) + model.String() + ".grid"
}

func defaultGeoidDataDir() string {
	if runtime.GOOS == "windows" {
		return "C:/ProgramData/GeographicLib/geoids"
	}
	return "/usr/local/share/GeographicLib/geoids"
}
