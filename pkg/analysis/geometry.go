package analysis

import (
	"math"

	"github.com/chazu/dfm/pkg/scoring"
)

// ThinWallMM is the wall thickness below which a part is counted as having
// a thin wall when deriving scoring input.
const ThinWallMM = 1.0

// GeometryData derives the geometry section of a scoring request from r.
//
// Feature counts come from the extractors; slots, threads and undercuts
// are not recognised and stay zero. Thin walls are not segmented, so a
// part with a measured minimum below ThinWallMM counts one. Aspect ratio
// is the longest bounding box side over the shortest. The smallest
// feature is the narrowest hole.
func GeometryData(r *Record) scoring.GeometryData {
	size := r.BBox.Size()
	g := scoring.GeometryData{
		VolumeCM3:      r.MassProps.VolumeMM3 / 1000,
		SurfaceAreaCM2: r.MassProps.AreaMM2 / 100,
		BoundingBoxMM:  map[string]float64{"x": size.X, "y": size.Y, "z": size.Z},
		Features: scoring.FeatureCounts{
			Holes:   len(r.Holes),
			Pockets: len(r.Pockets),
		},
	}

	long := math.Max(size.X, math.Max(size.Y, size.Z))
	short := math.Min(size.X, math.Min(size.Y, size.Z))
	if short > 0 {
		g.AspectRatio = long / short
	}

	if w := r.MinWall.GlobalMinMM; w > 0 {
		g.WallThicknessMinMM = &w
		if w < ThinWallMM {
			g.Features.ThinWalls = 1
		}
	}

	if len(r.Holes) > 0 {
		smallest := math.Inf(1)
		for _, h := range r.Holes {
			smallest = math.Min(smallest, h.DiameterMM)
		}
		g.SmallestFeatureMM = &smallest
	}
	return g
}

// ScoreRequest combines an analysis with the non-geometric inputs.
func ScoreRequest(r *Record, process scoring.ProcessType, tol scoring.ToleranceData, mat scoring.MaterialData, fin scoring.FinishData, quantity int) scoring.ScoringRequest {
	if mat.MaterialID == "" {
		mat.MaterialID = r.Material
	}
	return scoring.ScoringRequest{
		ProcessType: process,
		Geometry:    GeometryData(r),
		Tolerances:  tol,
		Material:    mat,
		Finish:      fin,
		Quantity:    quantity,
	}
}
