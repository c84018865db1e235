package coords

import (
	"errors"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/ecopia-map/geotile_transform/internal/coords/mat4"
)

var errFakeProjection = errors.New("fake projection failure")

// fakeProjectionService maps EPSG/WKT sources to WGS84 via the identity
// (the source x,y are already treated as lon,lat for the cases exercised
// here), letting the transformer's pipeline be tested without linking a
// real PROJ installation.
type fakeProjectionService struct {
	fail bool
}

type fakeProjectionHandle struct {
	fail bool
}

func (h *fakeProjectionHandle) Transform(x, y, z float64) (float64, float64, float64, error) {
	if h.fail {
		return 0, 0, 0, errFakeProjection
	}
	return x, y, z, nil
}

func (h *fakeProjectionHandle) Close() error { return nil }

func (s *fakeProjectionService) CreateFromEPSG(code int) (ProjectionHandle, error) {
	if s.fail {
		return nil, errFakeProjection
	}
	return &fakeProjectionHandle{}, nil
}

func (s *fakeProjectionService) CreateFromWKT(wkt string) (ProjectionHandle, error) {
	if s.fail {
		return nil, errFakeProjection
	}
	return &fakeProjectionHandle{}, nil
}

func TestCartographicToEcefAtEquatorPrimeMeridian(t *testing.T) {
	p := CartographicToEcef(0, 0, 0)
	assert.True(t, math.Abs(p.X-wgs84SemiMajorAxis) < 1.0)
	assert.True(t, math.Abs(p.Y) < 1.0)
	assert.True(t, math.Abs(p.Z) < 1.0)
}

func TestCalcEnuToEcefMatrixAtOrigin(t *testing.T) {
	m := CalcEnuToEcefMatrix(0, 0, 0)
	translation := m.Translation()
	assert.True(t, math.Abs(translation.X-wgs84SemiMajorAxis) < 1.0)
	assert.True(t, math.Abs(translation.Y) < 1e-6)
	assert.True(t, math.Abs(translation.Z) < 1e-6)

	east := m.Col(0)
	assert.True(t, math.Abs(east[0]-0) < 1e-6)
	assert.True(t, math.Abs(east[1]-1) < 1e-6)
	assert.True(t, math.Abs(east[2]-0) < 1e-6)
}

func TestEcefToEnuIsExactInverse(t *testing.T) {
	for _, origin := range [][3]float64{{0, 0, 0}, {117, 35, 10}, {-70, -33, 500}} {
		m := CalcEnuToEcefMatrix(origin[0], origin[1], origin[2])
		inv := mat4.Inverse(m)
		product := mat4.Multiply(m, inv)
		identity := mat4.Identity()
		for i := 0; i < 16; i++ {
			assert.True(t, math.Abs(product[i]-identity[i]) < 1e-6)
		}
	}
}

func TestConvertUpAxisSameIsIdentity(t *testing.T) {
	p := mat4.Vec3{X: 1, Y: 2, Z: 3}
	assert.Equal(t, p, ConvertUpAxis(p, YUp, YUp))
	assert.Equal(t, p, ConvertUpAxis(p, ZUp, ZUp))
}

func TestConvertUpAxisZUpToYUp(t *testing.T) {
	got := ConvertUpAxis(mat4.Vec3{X: 1, Y: 2, Z: 3}, ZUp, YUp)
	assert.Equal(t, mat4.Vec3{X: 1, Y: 3, Z: -2}, got)
}

func TestConvertUpAxisRoundTrip(t *testing.T) {
	p := mat4.Vec3{X: 1, Y: 2, Z: 3}
	mid := ConvertUpAxis(p, YUp, ZUp)
	back := ConvertUpAxis(mid, ZUp, YUp)
	assert.Equal(t, p, back)
}

func TestLocalCartesianIsPassThrough(t *testing.T) {
	cs := NewLocalCartesian(ZUp, RightHanded)
	tr := NewWithGeoReference(cs, NewGeoReference(117, 35, 10, Ellipsoidal), nil)
	p := mat4.Vec3{X: 1.5, Y: -2.5, Z: 3.5}
	assert.Equal(t, p, tr.ToLocalENU(p))
}

func TestENUZeroVectorMapsToOffset(t *testing.T) {
	cs := NewENU(117.0, 35.0, 0.0, -958.0, -993.0, 69.0)
	tr := NewWithGeoReference(cs, GeoReference{}, nil)
	got := tr.ToLocalENU(mat4.Vec3{})
	assert.True(t, math.Abs(got.X-(-958.0)) < 1e-6)
	assert.True(t, math.Abs(got.Y-(-993.0)) < 1e-6)
	assert.True(t, math.Abs(got.Z-69.0) < 1e-6)
}

func TestModeNoneGeoOperationsPassThrough(t *testing.T) {
	cs := NewEPSG(4326, 0, 0, 0, Ellipsoidal)
	tr := New(cs)
	assert.Equal(t, ModeNone, tr.Mode())

	p := mat4.Vec3{X: 10, Y: 20, Z: 30}
	assert.Equal(t, p, tr.ToLocalENU(p))
	assert.Equal(t, p, tr.ToECEF(p))

	lon, lat, h := tr.ToWGS84(p)
	assert.Equal(t, p.X, lon)
	assert.Equal(t, p.Y, lat)
	assert.Equal(t, p.Z, h)
}

func TestProjectionFailureDegradesToPassThrough(t *testing.T) {
	cs := NewEPSG(4326, 0, 0, 0, Ellipsoidal)
	tr := NewWithGeoReference(cs, GeoReference{}, &fakeProjectionService{fail: true})
	assert.Equal(t, ModeWithGeoReference, tr.Mode())

	p := mat4.Vec3{X: 10, Y: 20, Z: 30}
	got := tr.ToECEF(p)
	assert.Equal(t, p, got)
}

func TestEPSGToLocalENURoundTripsThroughProjectionAtOrigin(t *testing.T) {
	cs := NewEPSG(4326, 0, 0, 0, Ellipsoidal)
	tr := NewWithGeoReference(cs, GeoReference{}, &fakeProjectionService{})

	// The transformer's own origin, re-fed through ToLocalENU, must land
	// back at (0,0,0) up to numerical precision, regardless of the
	// underlying projection.
	got := tr.ToLocalENU(mat4.Vec3{})
	assert.True(t, math.Abs(got.X) < 1e-3)
	assert.True(t, math.Abs(got.Y) < 1e-3)
	assert.True(t, math.Abs(got.Z) < 1e-3)
}

func TestCloseIsIdempotent(t *testing.T) {
	cs := NewEPSG(4326, 0, 0, 0, Ellipsoidal)
	tr := NewWithGeoReference(cs, GeoReference{}, &fakeProjectionService{})
	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
}
