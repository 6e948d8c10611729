package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Surface is the analytic classification of a face.
type Surface interface {
	surface() // marker method restricting implementations to this package
}

// Plane is a planar surface through Origin with unit Normal. For a solid
// face the normal points out of the material.
type Plane struct {
	Origin v3.Vec
	Normal v3.Vec
}

func (Plane) surface() {}

// Cylinder is a cylindrical surface of Radius around the line through
// Origin along Axis.
type Cylinder struct {
	Origin v3.Vec
	Axis   v3.Vec
	Radius float64
}

func (Cylinder) surface() {}

// OtherSurface covers every surface the extractors do not classify
// (cones, tori, splines).
type OtherSurface struct {
	Kind string
}

func (OtherSurface) surface() {}

// SurfaceName returns a short label for logging.
func SurfaceName(s Surface) string {
	switch v := s.(type) {
	case Plane:
		return "plane"
	case Cylinder:
		return "cylinder"
	case OtherSurface:
		if v.Kind != "" {
			return v.Kind
		}
		return "other"
	default:
		return "unknown"
	}
}
