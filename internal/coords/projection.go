package coords

import (
	"fmt"

	"github.com/golang/glog"
	proj "github.com/twpayne/go-proj/v10"
)

// ProjectionHandle transforms points from a fixed source CRS into WGS84
// geographic coordinates, axes in traditional GIS order (longitude first,
// latitude second, height third; degrees, degrees, meters).
type ProjectionHandle interface {
	Transform(x, y, z float64) (lon, lat, h float64, err error)
	Close() error
}

// ProjectionService builds ProjectionHandle instances for a source CRS
// identified either by EPSG code or by WKT text. It is a construction-time
// collaborator injected into CoordinateTransformer; the transformer never
// looks one up through a package-level global.
type ProjectionService interface {
	CreateFromEPSG(code int) (ProjectionHandle, error)
	CreateFromWKT(wkt string) (ProjectionHandle, error)
}

// projHandle wraps a *proj.PJ normalized for visualization, i.e. with
// traditional GIS (lon, lat) axis order regardless of the source CRS's
// authority-declared axis order.
type projHandle struct {
	pj *proj.PJ
}

func (h *projHandle) Transform(x, y, z float64) (lon, lat, hgt float64, err error) {
	coord := []float64{x, y, z}
	out, err := h.pj.ForwardFloat64Slice(coord)
	if err != nil {
		return 0, 0, 0, err
	}
	return out[0], out[1], out[2], nil
}

func (h *projHandle) Close() error {
	h.pj.Destroy()
	return nil
}

// ProjProjectionService is the default ProjectionService, backed by the
// PROJ library through the go-proj bindings.
type ProjProjectionService struct{}

// NewProjProjectionService returns the default PROJ-backed projection
// service.
func NewProjProjectionService() *ProjProjectionService {
	return &ProjProjectionService{}
}

func (s *ProjProjectionService) build(sourceCRS string) (ProjectionHandle, error) {
	pj, err := proj.NewCRSToCRS(sourceCRS, "EPSG:4326", nil)
	if err != nil {
		return nil, fmt.Errorf("coords: build CRS-to-CRS transform from %q: %w", sourceCRS, err)
	}
	visPJ, err := pj.NormalizeForVisualization()
	if err != nil {
		pj.Destroy()
		return nil, fmt.Errorf("coords: normalize axis order for %q: %w", sourceCRS, err)
	}
	pj.Destroy()
	return &projHandle{pj: visPJ}, nil
}

func (s *ProjProjectionService) CreateFromEPSG(code int) (ProjectionHandle, error) {
	return s.build(fmt.Sprintf("EPSG:%d", code))
}

func (s *ProjProjectionService) CreateFromWKT(wkt string) (ProjectionHandle, error) {
	return s.build(wkt)
}

// createProjectionHandle builds a handle for cs through service, logging
// and returning a nil handle (never an error) on failure: a projection
// failure degrades the transformer to pass-through rather than aborting
// construction.
func createProjectionHandle(service ProjectionService, cs CoordinateSystem) ProjectionHandle {
	if service == nil {
		glog.Warningln("coords: no ProjectionService configured, EPSG/WKT transforms will pass through")
		return nil
	}
	switch cs.Type() {
	case EPSGType:
		code, _ := cs.EPSGCode()
		handle, err := service.CreateFromEPSG(code)
		if err != nil {
			glog.Warningf("coords: failed to build projection handle for EPSG:%d: %v", code, err)
			return nil
		}
		return handle
	case WKTType:
		wkt, _ := cs.WKTString()
		handle, err := service.CreateFromWKT(wkt)
		if err != nil {
			glog.Warningf("coords: failed to build projection handle for WKT: %v", err)
			return nil
		}
		return handle
	default:
		return nil
	}
}
