package coords

import (
	"math"

	"github.com/golang/glog"

	"github.com/ecopia-map/geotile_transform/internal/coords/mat4"
)

// WGS84 ellipsoid constants.
const (
	wgs84SemiMajorAxis   = 6378137.0
	wgs84Flattening      = 1.0 / 298.257223563
	wgs84EccentricitySq  = wgs84Flattening * (2 - wgs84Flattening)
)

// TransformMode names which construction form built a CoordinateTransformer.
type TransformMode int

const (
	// ModeNone is set by New(cs): only ConvertUpAxis and the static
	// helpers are usable.
	ModeNone TransformMode = iota
	// ModeWithGeoReference is set by NewWithGeoReference and
	// NewWithGeoidConfig: the full ToLocalENU/ToECEF/ToWGS84 pipeline is
	// available.
	ModeWithGeoReference
)

// CoordinateTransformer maps points expressed in a source CoordinateSystem
// into a local East-North-Up tangent-plane frame. It is non-copyable in
// spirit (hand out *CoordinateTransformer, never duplicate the struct) and
// owns a ProjectionHandle that must be released with Close.
type CoordinateTransformer struct {
	sourceCS CoordinateSystem
	mode     TransformMode

	geoOriginLon, geoOriginLat, geoOriginHeight float64

	enuToEcef     mat4.Mat4
	ecefToEnu     mat4.Mat4
	axisTransform mat4.Mat4

	projectionHandle ProjectionHandle
	geoidService     GeoidService
	geoidConfig      GeoidConfig
}

// New builds a CoordinateTransformer with mode = None: only ConvertUpAxis
// and the static helpers are usable afterward.
func New(cs CoordinateSystem) *CoordinateTransformer {
	return &CoordinateTransformer{
		sourceCS:      cs,
		mode:          ModeNone,
		axisTransform: AxisTransformMatrix(cs.UpAxis(), YUp),
	}
}

// NewWithGeoReference builds a CoordinateTransformer with mode =
// WithGeoReference, geoid correction disabled, using projSvc to build the
// projection handle for EPSG/WKT systems.
func NewWithGeoReference(cs CoordinateSystem, geoRef GeoReference, projSvc ProjectionService) *CoordinateTransformer {
	return NewWithGeoidConfig(cs, geoRef, DisabledGeoidConfig(), projSvc, nil)
}

// NewWithGeoidConfig builds a CoordinateTransformer with mode =
// WithGeoReference and the given geoid policy. geoidSvc may be nil if
// geoidConfig.Enabled is false.
func NewWithGeoidConfig(cs CoordinateSystem, geoRef GeoReference, geoidConfig GeoidConfig, projSvc ProjectionService, geoidSvc GeoidService) *CoordinateTransformer {
	t := &CoordinateTransformer{
		sourceCS:      cs,
		mode:          ModeWithGeoReference,
		axisTransform: AxisTransformMatrix(cs.UpAxis(), YUp),
		geoidConfig:   geoidConfig,
		geoidService:  geoidSvc,
	}

	switch cs.Type() {
	case ENUType:
		builtin, _ := cs.BuiltinGeoReference()
		t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight = builtin.Lon, builtin.Lat, builtin.Height

	case EPSGType, WKTType:
		t.projectionHandle = createProjectionHandle(projSvc, cs)
		lon, lat, h := t.resolveProjectedOrigin(geoRef)
		t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight = lon, lat, h

	case LocalCartesianType:
		t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight = geoRef.Lon, geoRef.Lat, geoRef.Height

	default:
		glog.Warningf("coords: constructing transformer over invalid coordinate system %s", cs)
	}

	t.enuToEcef = CalcEnuToEcefMatrix(t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight)
	t.ecefToEnu = mat4.Inverse(t.enuToEcef)

	glog.Infof("coords: transformer geo_origin_lon=%g geo_origin_lat=%g geo_origin_height=%g", t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight)

	return t
}

// resolveProjectedOrigin implements the EPSG/WKT row of the origin
// resolution table: a non-zero caller-supplied geoRef wins (with
// geoid correction applied to its height if enabled); otherwise the
// variant's own origin is projected through the handle and geoid
// correction is always applied per policy.
func (t *CoordinateTransformer) resolveProjectedOrigin(geoRef GeoReference) (lon, lat, h float64) {
	if !geoRef.IsZero() {
		h = geoRef.Height
		if t.shouldApplyGeoidCorrection() {
			h = t.geoidService.ConvertOrthometricToEllipsoidal(geoRef.Lat, geoRef.Lon, h)
		}
		return geoRef.Lon, geoRef.Lat, h
	}

	ox, oy, oz := t.sourceCS.SourceOrigin()
	if t.projectionHandle == nil {
		return ox, oy, oz
	}
	plon, plat, ph, err := t.projectionHandle.Transform(ox, oy, oz)
	if err != nil {
		glog.Warningf("coords: failed to project coordinate system origin: %v", err)
		return ox, oy, oz
	}
	if t.shouldApplyGeoidCorrection() {
		ph = t.geoidService.ConvertOrthometricToEllipsoidal(plat, plon, ph)
	}
	return plon, plat, ph
}

// shouldApplyGeoidCorrection reports whether correction
// applies: geoid must be enabled, the service is initialized, and the
// source system's vertical datum is Orthometric or Unknown. ENU and
// LocalCartesian systems always skip correction.
func (t *CoordinateTransformer) shouldApplyGeoidCorrection() bool {
	if t.sourceCS.Type() == ENUType || t.sourceCS.Type() == LocalCartesianType {
		return false
	}
	if !t.geoidConfig.Enabled || t.geoidService == nil || !t.geoidService.IsInitialized() {
		return false
	}
	datum := t.sourceCS.VerticalDatum()
	return datum == Orthometric || datum == VerticalDatumUnknown
}

// EnableGeoidCorrection is the one mutating operation permitted after
// construction: callers must not race it against in-flight
// transformations.
func (t *CoordinateTransformer) EnableGeoidCorrection(enabled bool) {
	t.geoidConfig.Enabled = enabled
}

// Mode returns the construction mode.
func (t *CoordinateTransformer) Mode() TransformMode { return t.mode }

// GeoOrigin returns the resolved geographic anchor, for logging and as a
// rendering fallback.
func (t *CoordinateTransformer) GeoOrigin() (lon, lat, height float64) {
	return t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight
}

// EnuToEcefMatrix returns the cached ENU-to-ECEF matrix, emitted verbatim
// as a 3D-Tiles tileset root "transform" array.
func (t *CoordinateTransformer) EnuToEcefMatrix() mat4.Mat4 { return t.enuToEcef }

// EcefToEnuMatrix returns the cached inverse of EnuToEcefMatrix.
func (t *CoordinateTransformer) EcefToEnuMatrix() mat4.Mat4 { return t.ecefToEnu }

func (t *CoordinateTransformer) requireGeoReference(op string) bool {
	if t.mode != ModeWithGeoReference {
		glog.Warningf("coords: %s called on a transformer with mode=None, returning input unchanged", op)
		return false
	}
	return true
}

// ToLocalENU transforms p from the source coordinate system into the
// transformer's local ENU frame.
func (t *CoordinateTransformer) ToLocalENU(p mat4.Vec3) mat4.Vec3 {
	if !t.requireGeoReference("ToLocalENU") {
		return p
	}

	switch t.sourceCS.Type() {
	case LocalCartesianType:
		return p

	case ENUType:
		ox, oy, oz := t.sourceCS.SourceOrigin()
		shifted := mat4.Vec3{X: p.X + ox, Y: p.Y + oy, Z: p.Z + oz}
		ecef := mat4.MultiplyVec(t.enuToEcef, shifted)
		return mat4.MultiplyVec(t.ecefToEnu, ecef)

	case EPSGType, WKTType:
		if t.projectionHandle == nil {
			return p
		}
		ecef := t.toECEFProjected(p)
		return mat4.MultiplyVec(t.ecefToEnu, ecef)

	default:
		return p
	}
}

// ToLocalENUBatch transforms points in place.
func (t *CoordinateTransformer) ToLocalENUBatch(points []mat4.Vec3) {
	for i, p := range points {
		points[i] = t.ToLocalENU(p)
	}
}

// ToECEF is ToLocalENU without the final ecef_to_enu multiplication.
func (t *CoordinateTransformer) ToECEF(p mat4.Vec3) mat4.Vec3 {
	if !t.requireGeoReference("ToECEF") {
		return p
	}

	switch t.sourceCS.Type() {
	case LocalCartesianType:
		return p
	case ENUType:
		ox, oy, oz := t.sourceCS.SourceOrigin()
		shifted := mat4.Vec3{X: p.X + ox, Y: p.Y + oy, Z: p.Z + oz}
		return mat4.MultiplyVec(t.enuToEcef, shifted)
	case EPSGType, WKTType:
		return t.toECEFProjected(p)
	default:
		return p
	}
}

// toECEFProjected implements the EPSG/WKT projection + geoid-correction +
// cartographic-to-ECEF pipeline shared by ToLocalENU and ToECEF.
func (t *CoordinateTransformer) toECEFProjected(p mat4.Vec3) mat4.Vec3 {
	ox, oy, oz := t.sourceCS.SourceOrigin()
	shifted := mat4.Vec3{X: p.X + ox, Y: p.Y + oy, Z: p.Z + oz}

	if t.projectionHandle == nil {
		return shifted
	}

	lon, lat, h, err := t.projectionHandle.Transform(shifted.X, shifted.Y, shifted.Z)
	if err != nil {
		glog.Warningf("coords: projection failed for point %v: %v", shifted, err)
		return shifted
	}

	if t.shouldApplyGeoidCorrection() {
		h = t.geoidService.ConvertOrthometricToEllipsoidal(lat, lon, h)
	}

	return CartographicToEcef(lon, lat, h)
}

// ToWGS84 returns the geographic (lon, lat, ellipsoidal-height) triplet
// for p. The ENU variant's result is an intentional approximation:
// (geo_origin_lon, geo_origin_lat, geo_origin_height + local_z),
// where local_z is the up-axis-adjusted, offset-applied Z of p, not a true
// ECEF->geodetic inverse.
func (t *CoordinateTransformer) ToWGS84(p mat4.Vec3) (lon, lat, h float64) {
	if !t.requireGeoReference("ToWGS84") {
		return p.X, p.Y, p.Z
	}

	switch t.sourceCS.Type() {
	case LocalCartesianType:
		return t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight + p.Z

	case ENUType:
		_, _, oz := t.sourceCS.SourceOrigin()
		localZ := p.Z + oz
		return t.geoOriginLon, t.geoOriginLat, t.geoOriginHeight + localZ

	case EPSGType, WKTType:
		ox, oy, oz := t.sourceCS.SourceOrigin()
		shifted := mat4.Vec3{X: p.X + ox, Y: p.Y + oy, Z: p.Z + oz}
		if t.projectionHandle == nil {
			return shifted.X, shifted.Y, shifted.Z
		}
		lon, lat, h, err := t.projectionHandle.Transform(shifted.X, shifted.Y, shifted.Z)
		if err != nil {
			glog.Warningf("coords: projection failed for point %v: %v", shifted, err)
			return shifted.X, shifted.Y, shifted.Z
		}
		if t.shouldApplyGeoidCorrection() {
			h = t.geoidService.ConvertOrthometricToEllipsoidal(lat, lon, h)
		}
		return lon, lat, h

	default:
		return p.X, p.Y, p.Z
	}
}

// ConvertUpAxis rotates p between Y_UP and Z_UP right-handed frames. It is
// available in all modes, independent of any geo-reference.
func ConvertUpAxis(p mat4.Vec3, from, to UpAxis) mat4.Vec3 {
	if from == to {
		return p
	}
	if from == ZUp && to == YUp {
		return mat4.Vec3{X: p.X, Y: p.Z, Z: -p.Y}
	}
	// Y_UP -> Z_UP
	return mat4.Vec3{X: p.X, Y: -p.Z, Z: p.Y}
}

// CartographicToEcef converts geographic (lon°, lat°, h) to ECEF (x, y,
// z) using the standard WGS84 ellipsoidal formula.
func CartographicToEcef(lonDeg, latDeg, h float64) mat4.Vec3 {
	lambda := lonDeg * math.Pi / 180
	phi := latDeg * math.Pi / 180

	sinPhi := math.Sin(phi)
	n := wgs84SemiMajorAxis / math.Sqrt(1-wgs84EccentricitySq*sinPhi*sinPhi)

	x := (n + h) * math.Cos(phi) * math.Cos(lambda)
	y := (n + h) * math.Cos(phi) * math.Sin(lambda)
	z := (n*(1-wgs84EccentricitySq) + h) * sinPhi

	return mat4.Vec3{X: x, Y: y, Z: z}
}

// CalcEnuToEcefMatrix builds the 4x4 column-major rigid-body transform
// from the local East-North-Up frame anchored at (lon°, lat°, h) into
// ECEF.
func CalcEnuToEcefMatrix(lonDeg, latDeg, h float64) mat4.Mat4 {
	lambda := lonDeg * math.Pi / 180
	phi := latDeg * math.Pi / 180

	sinLambda, cosLambda := math.Sin(lambda), math.Cos(lambda)
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)

	origin := CartographicToEcef(lonDeg, latDeg, h)

	east := mat4.Vec3{X: -sinLambda, Y: cosLambda, Z: 0}
	north := mat4.Vec3{X: -sinPhi * cosLambda, Y: -sinPhi * sinLambda, Z: cosPhi}
	up := mat4.Vec3{X: cosPhi * cosLambda, Y: cosPhi * sinLambda, Z: sinPhi}

	var m mat4.Mat4
	m.SetCol(0, [4]float64{east.X, east.Y, east.Z, 0})
	m.SetCol(1, [4]float64{north.X, north.Y, north.Z, 0})
	m.SetCol(2, [4]float64{up.X, up.Y, up.Z, 0})
	m.SetCol(3, [4]float64{origin.X, origin.Y, origin.Z, 1})
	return m
}

// AxisTransformMatrix returns the 4x4 matrix implementing ConvertUpAxis
// between from and to as a linear transform, for callers that need it in
// matrix form (e.g. composed with other transforms) rather than as a
// pointwise function call.
func AxisTransformMatrix(from, to UpAxis) mat4.Mat4 {
	if from == to {
		return mat4.Identity()
	}
	m := mat4.Identity()
	if from == ZUp && to == YUp {
		// (x, y, z) -> (x, z, -y)
		m.SetCol(1, [4]float64{0, 0, -1, 0})
		m.SetCol(2, [4]float64{0, 1, 0, 0})
		return m
	}
	// Y_UP -> Z_UP: (x, y, z) -> (x, -z, y)
	m.SetCol(1, [4]float64{0, 0, 1, 0})
	m.SetCol(2, [4]float64{0, -1, 0, 0})
	return m
}

// Close releases the transformer's projection handle. It is idempotent.
func (t *CoordinateTransformer) Close() error {
	if t.projectionHandle == nil {
		return nil
	}
	err := t.projectionHandle.Close()
	t.projectionHandle = nil
	return err
}
