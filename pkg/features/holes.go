package features

import (
	"fmt"
	"math"

	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ExtractHoles reports every cylindrical face as a hole.
//
// Planar neighbours whose normal is within th.ParallelDot of the axis are
// end caps. A cap whose normal points along the axis is the exit, any other
// cap is the entry; when several caps share a role the highest face id
// wins. With both caps present the depth is the distance between their
// planes along the axis. Otherwise it falls back to the face's parametric V
// extent. Lengths are converted to millimetres with the topology's unit
// scale.
//
// idx may be nil, in which case an index is built from topo.
func ExtractHoles(topo kernel.Topology, idx *AdjacencyIndex, th Thresholds) Result[HoleFeature] {
	if topo == nil {
		return Result[HoleFeature]{}
	}
	if idx == nil {
		idx = NewAdjacencyIndex(topo)
	}
	scale := unitScale(topo)

	res := Result[HoleFeature]{Available: true}
	for _, f := range topo.Faces() {
		s, err := topo.ClassifySurface(f)
		if err != nil {
			continue
		}
		cyl, ok := s.(kernel.Cylinder)
		if !ok || !(cyl.Radius > 0) || !finite(cyl.Radius) {
			continue
		}
		axis, ok := normalize(cyl.Axis)
		if !ok {
			continue
		}

		h := HoleFeature{
			DiameterMM: 2 * cyl.Radius * scale,
			Axis:       [3]float64{axis.X, axis.Y, axis.Z},
			WallFaceID: f,
		}

		var entry, exit *kernel.Plane
		for _, n := range idx.Neighbors(f) {
			p, ok := planeOf(topo, n)
			if !ok {
				continue
			}
			d := axis.Dot(p.Normal)
			if math.Abs(d) < th.ParallelDot {
				continue
			}
			id := n
			if d > 0 {
				exit, h.ExitFaceID = &p, &id
			} else {
				entry, h.EntryFaceID = &p, &id
			}
		}

		if entry != nil && exit != nil {
			h.DepthMM = math.Abs(exit.Origin.Sub(entry.Origin).Dot(axis)) * scale
		} else {
			h.DepthMM = parametricDepth(topo, f) * scale
		}
		if !finite(h.DepthMM) {
			h.DepthMM = 0
		}

		h.Kind = HoleBlind
		if h.EntryFaceID != nil && h.ExitFaceID != nil {
			h.Kind = HoleThrough
		}
		h.ID = fmt.Sprintf("H-%03d", len(res.Items)+1)
		res.Items = append(res.Items, h)
	}
	return res
}

// parametricDepth estimates a cylinder's length from its V extent, or 0.
func parametricDepth(topo kernel.Topology, f kernel.FaceID) float64 {
	_, _, vmin, vmax, err := topo.UVBounds(f)
	if err != nil {
		return 0
	}
	return math.Abs(vmax - vmin)
}

// Through reports whether the hole has both an entry and an exit cap.
func (h HoleFeature) Through() bool {
	return h.Kind == HoleThrough
}

// AxisVec returns the hole axis as a vector.
func (h HoleFeature) AxisVec() v3.Vec {
	return v3.Vec{X: h.Axis[0], Y: h.Axis[1], Z: h.Axis[2]}
}
