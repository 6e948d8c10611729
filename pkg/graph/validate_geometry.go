package graph

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Tier 2: geometric validation (errors and warnings)
// ---------------------------------------------------------------------------

const (
	// MinWallWarning is the remaining material below which a warning is raised.
	MinWallWarning = 1.0
	// DeepHoleRatio is the depth/diameter ratio above which a hole is deep.
	DeepHoleRatio = 10.0

	overlapEps = 1e-9
)

// validateGeometry runs all Tier 2 geometric checks against the stock.
// Features are visited in script order so findings are reported stably.
func validateGeometry(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	stock, sd, ok := g.Stock()
	if !ok {
		return nil, nil
	}
	errs = append(errs, validateNonZeroDimensions(stock, sd)...)
	if len(errs) > 0 {
		return errs, nil
	}

	features := g.Features()
	for _, n := range features {
		e, w := validateFeature(n, sd.Dimensions)
		errs = append(errs, e...)
		warnings = append(warnings, w...)
	}
	errs = append(errs, validateOverlap(features, sd.Dimensions)...)

	return errs, warnings
}

// validateNonZeroDimensions checks that the stock has positive X, Y, Z.
func validateNonZeroDimensions(stock *Node, sd StockData) []ValidationError {
	var errs []ValidationError
	for _, axis := range []struct {
		name string
		v    float64
	}{{"length", sd.Dimensions.X}, {"width", sd.Dimensions.Y}, {"thickness", sd.Dimensions.Z}} {
		if axis.v <= 0 || math.IsNaN(axis.v) || math.IsInf(axis.v, 0) {
			errs = append(errs, ValidationError{
				NodeID:   stock.ID,
				Message:  fmt.Sprintf("stock %s is %.4f, must be positive", axis.name, axis.v),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateFeature(n *Node, dims Vec3) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning
	fail := func(format string, args ...any) {
		errs = append(errs, ValidationError{NodeID: n.ID, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
	}
	warn := func(format string, args ...any) {
		warnings = append(warnings, ValidationWarning{NodeID: n.ID, Message: fmt.Sprintf(format, args...)})
	}

	switch d := n.Data.(type) {
	case DrillData:
		fr, ok := Frame(d.Face, dims)
		if !ok {
			return nil, nil // reported by validateFaces
		}
		if d.Diameter <= 0 {
			fail("drill diameter is %.4f, must be positive", d.Diameter)
			return errs, nil
		}
		if d.Depth < 0 {
			fail("drill depth is %.4f, must not be negative", d.Depth)
			return errs, nil
		}
		r := d.Diameter / 2
		checkFootprint(d.At, r, r, fr, fail, warn)

		if d.Through(fr.Depth) {
			if d.Depth > fr.Depth {
				warn("drill depth %.2f exceeds material %.2f; treated as through", d.Depth, fr.Depth)
			}
			if fr.Depth/d.Diameter > DeepHoleRatio {
				warn("through hole is %.1fx its diameter deep", fr.Depth/d.Diameter)
			}
			break
		}
		bottom := d.Depth + d.PointDepth()
		if bottom >= fr.Depth {
			fail("drill point at %.2f breaks through %.2f of material", bottom, fr.Depth)
			break
		}
		if floor := fr.Depth - bottom; floor < MinWallWarning {
			warn("drill leaves %.2f mm below the point", floor)
		}
		if d.Depth/d.Diameter > DeepHoleRatio {
			warn("hole is %.1fx its diameter deep", d.Depth/d.Diameter)
		}

	case PocketData:
		fr, ok := Frame(d.Face, dims)
		if !ok {
			return nil, nil
		}
		if d.Length <= 0 || d.Width <= 0 {
			fail("pocket is %.4f x %.4f, both sides must be positive", d.Length, d.Width)
			return errs, nil
		}
		if d.Depth <= 0 {
			fail("pocket depth is %.4f, must be positive", d.Depth)
			return errs, nil
		}
		checkFootprint(d.At, d.Length/2, d.Width/2, fr, fail, warn)

		if d.Depth >= fr.Depth {
			fail("pocket depth %.2f breaks through %.2f of material", d.Depth, fr.Depth)
			break
		}
		if floor := fr.Depth - d.Depth; floor < MinWallWarning {
			warn("pocket leaves a %.2f mm floor", floor)
		}
	}
	return errs, warnings
}

// checkFootprint verifies a feature of half-extents (hu, hv) centred at at
// lies inside the face, and warns when the remaining edge wall is thin.
func checkFootprint(at UV, hu, hv float64, fr FaceFrame, fail, warn func(string, ...any)) {
	minU, maxU := at.U-hu, at.U+hu
	minV, maxV := at.V-hv, at.V+hv
	if minU < 0 || minV < 0 || maxU > fr.SizeU || maxV > fr.SizeV {
		fail("feature spans u %.2f..%.2f, v %.2f..%.2f outside the %.2f x %.2f face",
			minU, maxU, minV, maxV, fr.SizeU, fr.SizeV)
		return
	}
	edge := math.Min(math.Min(minU, fr.SizeU-maxU), math.Min(minV, fr.SizeV-maxV))
	if edge < MinWallWarning {
		warn("feature leaves a %.2f mm wall to the stock edge", edge)
	}
}

// FeatureBounds returns the axis-aligned box of material removed by a
// drill or pocket node.
func FeatureBounds(n *Node, dims Vec3) (min, max v3.Vec, ok bool) {
	var (
		fr     FaceFrame
		at     UV
		hu, hv float64
		depth  float64
	)
	switch d := n.Data.(type) {
	case DrillData:
		if fr, ok = Frame(d.Face, dims); !ok {
			return
		}
		at, hu, hv = d.At, d.Diameter/2, d.Diameter/2
		depth = fr.Depth
		if !d.Through(fr.Depth) {
			depth = d.Depth + d.PointDepth()
		}
	case PocketData:
		if fr, ok = Frame(d.Face, dims); !ok {
			return
		}
		at, hu, hv, depth = d.At, d.Length/2, d.Width/2, d.Depth
	default:
		return v3.Vec{}, v3.Vec{}, false
	}

	c := fr.Point(at)
	corners := []v3.Vec{
		c.Add(fr.U.MulScalar(-hu)).Add(fr.V.MulScalar(-hv)),
		c.Add(fr.U.MulScalar(hu)).Add(fr.V.MulScalar(hv)),
	}
	corners = append(corners,
		corners[0].Add(fr.Inward().MulScalar(depth)),
		corners[1].Add(fr.Inward().MulScalar(depth)),
	)
	min, max = corners[0], corners[0]
	for _, p := range corners[1:] {
		min = v3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
		max = v3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
	}
	return min, max, true
}

// validateOverlap rejects features whose removed volumes intersect. Box
// tests are conservative for holes, which is acceptable for part scripts.
func validateOverlap(features []*Node, dims Vec3) []ValidationError {
	type bounds struct {
		n        *Node
		min, max v3.Vec
	}
	var boxes []bounds
	for _, n := range features {
		if min, max, ok := FeatureBounds(n, dims); ok {
			boxes = append(boxes, bounds{n, min, max})
		}
	}

	var errs []ValidationError
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			a, b := boxes[i], boxes[j]
			if a.min.X < b.max.X-overlapEps && b.min.X < a.max.X-overlapEps &&
				a.min.Y < b.max.Y-overlapEps && b.min.Y < a.max.Y-overlapEps &&
				a.min.Z < b.max.Z-overlapEps && b.min.Z < a.max.Z-overlapEps {
				errs = append(errs, ValidationError{
					NodeID:   b.n.ID,
					Message:  fmt.Sprintf("%s overlaps %s %s", b.n.Kind, a.n.Kind, a.n.ID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}
