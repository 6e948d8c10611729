// Package features recognises machining features on a boundary
// representation. Extractors read a shape through kernel.Topology and share
// one AdjacencyIndex per shape. They never fail: a missing kernel yields an
// empty, unavailable result and faces that cannot be classified are skipped.
package features

import (
	"math"

	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Thresholds are the classification cut-offs. They trade precision against
// recall and are policy, not geometry.
type Thresholds struct {
	// ParallelDot is the minimum |a·b| for two directions to count as
	// parallel (0.9 is about 26 degrees).
	ParallelDot float64 `yaml:"parallel_dot" json:"parallel_dot"`
	// PerpendicularDot is the maximum |a·b| for two directions to count as
	// perpendicular (0.2 is about 11 degrees).
	PerpendicularDot float64 `yaml:"perpendicular_dot" json:"perpendicular_dot"`
	// MinPocketWalls is the number of perpendicular walls a floor needs.
	MinPocketWalls int `yaml:"min_pocket_walls" json:"min_pocket_walls"`
	// Strict counts a wall only when it rises from the floor along the
	// floor normal, and requires a rim: a face reached through the walls
	// that is parallel to the floor, faces the same way and sits above it.
	// Exterior faces of a block and the walls of a pocket then never
	// qualify as floors. Plane origins must lie inside their faces.
	Strict bool `yaml:"strict" json:"strict"`
}

// DefaultThresholds returns the standard cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ParallelDot:      0.9,
		PerpendicularDot: 0.2,
		MinPocketWalls:   2,
		Strict:           true,
	}
}

// Result is an extractor's output. Available is false when the kernel
// capability was missing, which is distinct from "analyzed, none found".
type Result[T any] struct {
	Items     []T
	Available bool
}

// HoleKind distinguishes holes open at both ends from holes open at one.
type HoleKind string

const (
	HoleThrough HoleKind = "through"
	HoleBlind   HoleKind = "blind"
)

// HoleFeature is a cylindrical hole.
type HoleFeature struct {
	ID          string         `json:"id"`
	Kind        HoleKind       `json:"type"`
	DiameterMM  float64        `json:"diameter_mm"`
	DepthMM     float64        `json:"depth_mm"`
	Axis        [3]float64     `json:"axis"`
	EntryFaceID *kernel.FaceID `json:"entry_face_id"`
	ExitFaceID  *kernel.FaceID `json:"exit_face_id"`
	WallFaceID  kernel.FaceID  `json:"wall_face_id"`
}

// PocketFeature is a planar floor bounded by perpendicular walls.
type PocketFeature struct {
	ID           string          `json:"id"`
	FloorFaceID  kernel.FaceID   `json:"floor_face_id"`
	DepthMM      float64         `json:"depth_mm"`
	MouthAreaMM2 float64         `json:"mouth_area_mm2"`
	AspectRatio  float64         `json:"aspect_ratio"`
	WallFaceIDs  []kernel.FaceID `json:"wall_face_ids"`
}

// unitScale returns millimetres per native unit, treating nonsense as 1.
func unitScale(topo kernel.Topology) float64 {
	s := topo.UnitScale()
	if !(s > 0) || math.IsInf(s, 0) {
		return 1
	}
	return s
}

// normalize returns v scaled to unit length, or false for zero or
// non-finite vectors.
func normalize(v v3.Vec) (v3.Vec, bool) {
	l := v.Length()
	if !(l > 0) || math.IsInf(l, 0) {
		return v3.Vec{}, false
	}
	return v.MulScalar(1 / l), true
}

// planeOf classifies f and returns its plane with a unit normal.
func planeOf(topo kernel.Topology, f kernel.FaceID) (kernel.Plane, bool) {
	s, err := topo.ClassifySurface(f)
	if err != nil {
		return kernel.Plane{}, false
	}
	p, ok := s.(kernel.Plane)
	if !ok {
		return kernel.Plane{}, false
	}
	if p.Normal, ok = normalize(p.Normal); !ok {
		return kernel.Plane{}, false
	}
	return p, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
