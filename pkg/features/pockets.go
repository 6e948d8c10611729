package features

import (
	"fmt"
	"math"

	"github.com/chazu/dfm/pkg/kernel"
)

// concaveEps is the height a wall or rim centre must clear above the floor
// plane in strict mode.
const concaveEps = 1e-9

// ExtractPockets reports planar faces bounded by at least th.MinPocketWalls
// perpendicular planar neighbours. The recognizer is conservative: a floor
// that fails any test is dropped rather than guessed at.
//
// The mouth area is the floor area in mm². Depth is taken from the rim:
// planar faces adjacent to the walls (other than the floor) whose normal is
// parallel to the floor normal. The deepest rim offset along the floor
// normal wins. Outside strict mode a pocket without a rim has depth 0.
//
// Strict mode also requires each wall to face the floor, so the walls of a
// real pocket are not themselves taken as floors.
func ExtractPockets(topo kernel.Topology, idx *AdjacencyIndex, th Thresholds) Result[PocketFeature] {
	if topo == nil {
		return Result[PocketFeature]{}
	}
	if idx == nil {
		idx = NewAdjacencyIndex(topo)
	}
	scale := unitScale(topo)

	// Classify every face once; non-planar faces are absent.
	planes := make(map[kernel.FaceID]kernel.Plane)
	faces := topo.Faces()
	for _, f := range faces {
		if p, ok := planeOf(topo, f); ok {
			planes[f] = p
		}
	}

	res := Result[PocketFeature]{Available: true}
	for _, f := range faces {
		floor, ok := planes[f]
		if !ok {
			continue
		}

		var walls []kernel.FaceID
		for _, n := range idx.Neighbors(f) {
			w, ok := planes[n]
			if !ok || math.Abs(floor.Normal.Dot(w.Normal)) > th.PerpendicularDot {
				continue
			}
			// In strict mode a wall rises above the floor and faces into
			// the floor region.
			if th.Strict && (w.Origin.Sub(floor.Origin).Dot(floor.Normal) <= concaveEps ||
				floor.Origin.Sub(w.Origin).Dot(w.Normal) <= concaveEps) {
				continue
			}
			walls = append(walls, n)
		}
		if len(walls) < th.MinPocketWalls || len(walls) == 0 {
			continue
		}

		area, err := topo.SurfaceArea(f)
		if err != nil || !finite(area) {
			continue
		}
		mouth := math.Max(area, 0) * scale * scale

		depth, rimmed := rimDepth(idx, planes, f, walls, th)
		if th.Strict && !rimmed {
			continue
		}
		depth *= scale
		if !finite(depth) {
			depth = 0
		}

		p := PocketFeature{
			ID:           fmt.Sprintf("P-%03d", len(res.Items)+1),
			FloorFaceID:  f,
			DepthMM:      depth,
			MouthAreaMM2: mouth,
			WallFaceIDs:  walls,
		}
		if mouth > 0 {
			p.AspectRatio = depth / math.Sqrt(mouth)
		}
		res.Items = append(res.Items, p)
	}
	return res
}

// rimDepth returns the largest rim offset above the floor f in native units
// and whether any rim was found.
func rimDepth(idx *AdjacencyIndex, planes map[kernel.FaceID]kernel.Plane, f kernel.FaceID, walls []kernel.FaceID, th Thresholds) (float64, bool) {
	floor := planes[f]
	depth, found := 0.0, false
	for _, w := range walls {
		for _, n := range idx.Neighbors(w) {
			rim, ok := planes[n]
			if n == f || !ok {
				continue
			}
			dot := rim.Normal.Dot(floor.Normal)
			off := rim.Origin.Sub(floor.Origin).Dot(floor.Normal)
			if th.Strict {
				if dot < th.ParallelDot || off <= concaveEps {
					continue
				}
			} else if math.Abs(dot) < th.ParallelDot {
				continue
			}
			depth, found = math.Max(depth, math.Abs(off)), true
		}
	}
	return depth, found
}
