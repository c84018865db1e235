package coords

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

// writeConstantGeoidGrid writes a tiny synthetic grid file where every
// sample is the same undulation N, for testing the round-trip conversions
// independent of any real geoid dataset.
func writeConstantGeoidGrid(t *testing.T, n float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "constant.grid")
	f, err := os.Create(path)
	assert.NoError(t, err)
	defer f.Close()

	header := struct {
		LatMin, LonMin float64
		DLat, DLon     float64
		NLat, NLon     uint32
	}{
		LatMin: -10, LonMin: -10,
		DLat: 1, DLon: 1,
		NLat: 21, NLon: 21,
	}
	assert.NoError(t, binary.Write(f, binary.LittleEndian, &header))

	samples := make([]float32, int(header.NLat)*int(header.NLon))
	for i := range samples {
		samples[i] = n
	}
	assert.NoError(t, binary.Write(f, binary.LittleEndian, samples))
	return path
}

func TestGeoidGridConstantRoundTrip(t *testing.T) {
	const n = 17.25
	path := writeConstantGeoidGrid(t, n)

	svc := NewGridGeoidService()
	assert.NoError(t, svc.Initialize(GeoidEGM96, path))
	assert.True(t, svc.IsInitialized())
	assert.Equal(t, GeoidEGM96, svc.Model())

	for _, pt := range [][2]float64{{0, 0}, {3.5, -4.25}, {-9.9, 9.9}} {
		lat, lon := pt[0], pt[1]
		got, ok := svc.GeoidHeight(lat, lon)
		assert.True(t, ok)
		assert.True(t, math.Abs(got-n) < 1e-4)

		const ho = 100.0
		he := svc.ConvertOrthometricToEllipsoidal(lat, lon, ho)
		assert.True(t, math.Abs(he-(ho+n)) < 1e-4)

		back := svc.ConvertEllipsoidalToOrthometric(lat, lon, he)
		assert.True(t, math.Abs(back-ho) < 1e-4)
	}
}

func TestGeoidServiceUninitializedPassesThrough(t *testing.T) {
	svc := NewGridGeoidService()
	assert.False(t, svc.IsInitialized())

	_, ok := svc.GeoidHeight(10, 20)
	assert.False(t, ok)

	assert.Equal(t, 50.0, svc.ConvertOrthometricToEllipsoidal(10, 20, 50.0))
	assert.Equal(t, 50.0, svc.ConvertEllipsoidalToOrthometric(10, 20, 50.0))
}

func TestGeoidInitializeMissingFileFails(t *testing.T) {
	svc := NewGridGeoidService()
	err := svc.Initialize(GeoidEGM2008, filepath.Join(t.TempDir(), "missing.grid"))
	assert.Error(t, err)
	assert.False(t, svc.IsInitialized())
}

func TestParseGeoidModel(t *testing.T) {
	assert.Equal(t, GeoidEGM96, ParseGeoidModel("EGM96"))
	assert.Equal(t, GeoidEGM2008, ParseGeoidModel("egm2008"))
	assert.Equal(t, GeoidNone, ParseGeoidModel("bogus"))
}
