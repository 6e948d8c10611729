// Package kernel defines the abstract geometry kernel interfaces consumed by
// the feature extractors and the wall-thickness estimator. Implementations
// (sdfx for meshing, brep for analytic topology, raycast for ray queries)
// provide the capabilities behind these interfaces, so the analysis code
// never depends on a concrete kernel.
package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Solid is an opaque handle to a solid-modeling kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the solid-modeling interface used to turn part scripts into
// triangle meshes.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// FaceID addresses a face of a Topology. Ids are assigned by the kernel and
// start at 1.
type FaceID int

// EdgeID addresses an edge of a Topology.
type EdgeID int

// Topology is the boundary-representation capability used by the feature
// extractors. Implementations must be safe for concurrent reads.
type Topology interface {
	// Faces returns every face of the shape in kernel order.
	Faces() []FaceID

	// FaceEdges returns the edges bounding a face.
	FaceEdges(f FaceID) []EdgeID

	// ClassifySurface reports the analytic surface underlying a face.
	ClassifySurface(f FaceID) (Surface, error)

	// SurfaceArea integrates the face area in native units squared.
	SurfaceArea(f FaceID) (float64, error)

	// UVBounds returns the parametric bounds of the face.
	UVBounds(f FaceID) (umin, umax, vmin, vmax float64, err error)

	// UnitScale returns millimetres per native length unit.
	UnitScale() float64
}

// RayCaster answers first-hit queries against a surface.
type RayCaster interface {
	// FirstHit returns the distance along dir from origin to the nearest
	// surface intersection. dir must be a unit vector.
	FirstHit(origin, dir v3.Vec) (float64, bool)
}
