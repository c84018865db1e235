package coords

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestUnknownIsInvalid(t *testing.T) {
	cs := NewUnknown()
	assert.False(t, cs.IsValid())
	assert.Equal(t, Unknown, cs.Type())
}

func TestLocalCartesianZUp(t *testing.T) {
	cs := NewLocalCartesian(ZUp, RightHanded)
	assert.True(t, cs.IsValid())
	assert.Equal(t, LocalCartesianType, cs.Type())
	assert.Equal(t, ZUp, cs.UpAxis())
	assert.Equal(t, RightHanded, cs.Handedness())
	assert.False(t, cs.NeedsOGRTransform())
	assert.False(t, cs.HasBuiltinGeoReference())
}

func TestENUCreation(t *testing.T) {
	cs := NewENU(117.0, 35.0, 0.0, -958.0, -993.0, 69.0)
	assert.True(t, cs.HasBuiltinGeoReference())
	ref, ok := cs.BuiltinGeoReference()
	assert.True(t, ok)
	assert.Equal(t, 117.0, ref.Lon)
	assert.Equal(t, 35.0, ref.Lat)
	assert.Equal(t, 0.0, ref.Height)

	x, y, z := cs.SourceOrigin()
	assert.Equal(t, -958.0, x)
	assert.Equal(t, -993.0, y)
	assert.Equal(t, 69.0, z)
	assert.Equal(t, Ellipsoidal, cs.VerticalDatum())
}

func TestEPSGCreation(t *testing.T) {
	cs := NewEPSG(4326, 117.0, 35.0, 0.0, Ellipsoidal)
	assert.True(t, cs.NeedsOGRTransform())
	code, ok := cs.EPSGCode()
	assert.True(t, ok)
	assert.Equal(t, 4326, code)

	x, y, z := cs.SourceOrigin()
	assert.Equal(t, 117.0, x)
	assert.Equal(t, 35.0, y)
	assert.Equal(t, 0.0, z)
}

func TestWKTCreation(t *testing.T) {
	cs := NewWKT("LOCAL_CS[\"test\"]", 1, 2, 3, Orthometric)
	assert.True(t, cs.NeedsOGRTransform())
	wkt, ok := cs.WKTString()
	assert.True(t, ok)
	assert.Equal(t, "LOCAL_CS[\"test\"]", wkt)
	assert.Equal(t, Orthometric, cs.VerticalDatum())
}

func TestVerticalDatumSetGet(t *testing.T) {
	cs := NewEPSG(4545, 500000, 3000000, 0, Orthometric)
	assert.Equal(t, Orthometric, cs.VerticalDatum())
	cs.SetVerticalDatum(Ellipsoidal)
	assert.Equal(t, Ellipsoidal, cs.VerticalDatum())

	enu := NewENU(0, 0, 0, 0, 0, 0)
	assert.Equal(t, Ellipsoidal, enu.VerticalDatum())
	enu.SetVerticalDatum(Orthometric)
	assert.Equal(t, Ellipsoidal, enu.VerticalDatum(), "ENU vertical datum is always ellipsoidal")
}

func TestStringContainsVariantAndEPSGCode(t *testing.T) {
	cs := NewEPSG(32650, 0, 0, 0, Ellipsoidal)
	s := cs.String()
	assert.True(t, strings.Contains(s, "EPSG"))
	assert.True(t, strings.Contains(s, "32650"))
}

func TestAccessorsAreTotalAcrossVariants(t *testing.T) {
	for _, cs := range []CoordinateSystem{
		NewUnknown(),
		NewLocalCartesian(YUp, RightHanded),
		NewENU(1, 2, 3, 4, 5, 6),
		NewEPSG(4326, 1, 2, 3, Ellipsoidal),
		NewWKT("x", 1, 2, 3, Ellipsoidal),
	} {
		_ = cs.UpAxis()
		_ = cs.Handedness()
		_ = cs.VerticalDatum()
		x, y, z := cs.SourceOrigin()
		_ = x
		_ = y
		_ = z
		_ = cs.String()
	}
}
