// Package pointsource reads raw points out of a source file one at a
// time: a sequential "give me the next point" cursor over a delimited
// text file, the layout a GIS export typically produces.
package pointsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Point is one raw record read from a source file, before any
// coordinate reprojection. X, Y, Z are in the source coordinate
// system's native units (e.g. longitude/latitude/height for a
// geographic CRS, or already-metric for a local Cartesian source).
type Point struct {
	X, Y, Z                        float64
	R, G, B                        uint8
	Intensity, Classification      uint8
}

// Source is a sequential cursor over a point file. Next returns
// io.EOF once exhausted.
type Source interface {
	Next() (*Point, error)
	NumPointsHint() int64
	Close() error
}

// columns a CSVSource recognizes, matched case-insensitively against
// the header row. x, y and z are mandatory; the rest default to 255,
// 255, 255, 0, 0 when absent.
var knownColumns = []string{"x", "y", "z", "r", "g", "b", "intensity", "classification"}

// CSVSource reads points from a headed CSV file: one point per row,
// columns identified by name in the header rather than position, so a
// minimal "x,y,z" export and a full "x,y,z,r,g,b,intensity,classification"
// one are both valid input.
type CSVSource struct {
	file      *os.File
	reader    *csv.Reader
	colIndex  map[string]int
	numPoints int64
}

// NewCSVSource opens path and reads its header row.
func NewCSVSource(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pointsource: open %s: %w", path, err)
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("pointsource: read header of %s: %w", path, err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := colIndex["x"]; !ok {
		file.Close()
		return nil, fmt.Errorf("pointsource: %s: missing required column %q", path, "x")
	}
	if _, ok := colIndex["y"]; !ok {
		file.Close()
		return nil, fmt.Errorf("pointsource: %s: missing required column %q", path, "y")
	}
	if _, ok := colIndex["z"]; !ok {
		file.Close()
		return nil, fmt.Errorf("pointsource: %s: missing required column %q", path, "z")
	}

	numPoints, err := countDataRows(path)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &CSVSource{
		file:      file,
		reader:    reader,
		colIndex:  colIndex,
		numPoints: numPoints,
	}, nil
}

// countDataRows makes a throwaway pass over path to report how many
// points the caller should expect, reported through NumPointsHint
// without buffering every point in memory.
func countDataRows(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("pointsource: open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var n int64
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("pointsource: count rows of %s: %w", path, err)
	}
	for {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("pointsource: count rows of %s: %w", path, err)
		}
		n++
	}
	return n, nil
}

func (s *CSVSource) NumPointsHint() int64 { return s.numPoints }

// Next parses and returns the next row, or io.EOF once the file is
// exhausted.
func (s *CSVSource) Next() (*Point, error) {
	record, err := s.reader.Read()
	if err != nil {
		return nil, err
	}

	x, err := s.floatCol(record, "x")
	if err != nil {
		return nil, err
	}
	y, err := s.floatCol(record, "y")
	if err != nil {
		return nil, err
	}
	z, err := s.floatCol(record, "z")
	if err != nil {
		return nil, err
	}

	point := &Point{X: x, Y: y, Z: z, R: 255, G: 255, B: 255}
	if idx, ok := s.colIndex["r"]; ok {
		point.R = s.byteColOrDefault(record, idx, 255)
	}
	if idx, ok := s.colIndex["g"]; ok {
		point.G = s.byteColOrDefault(record, idx, 255)
	}
	if idx, ok := s.colIndex["b"]; ok {
		point.B = s.byteColOrDefault(record, idx, 255)
	}
	if idx, ok := s.colIndex["intensity"]; ok {
		point.Intensity = s.byteColOrDefault(record, idx, 0)
	}
	if idx, ok := s.colIndex["classification"]; ok {
		point.Classification = s.byteColOrDefault(record, idx, 0)
	}

	return point, nil
}

func (s *CSVSource) floatCol(record []string, name string) (float64, error) {
	idx := s.colIndex[name]
	v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("pointsource: parse column %q: %w", name, err)
	}
	return v, nil
}

func (s *CSVSource) byteColOrDefault(record []string, idx int, def uint8) uint8 {
	if idx >= len(record) {
		return def
	}
	v, err := strconv.ParseUint(strings.TrimSpace(record[idx]), 10, 8)
	if err != nil {
		return def
	}
	return uint8(v)
}

func (s *CSVSource) Close() error {
	return s.file.Close()
}
