package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/dfm/pkg/graph"
	"github.com/chazu/dfm/pkg/kernel"
	"github.com/chazu/dfm/pkg/kernel/brep"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Topologize builds the analytic B-rep of the part described by g. Units
// are millimetres. Every planar face carries its centroid as the plane
// origin and its outward normal.
//
// Holes become a cylindrical wall with a seam edge, bounded by the face they
// enter and either the opposite stock face (through) or a conical drill
// point (blind). Pockets become a floor and four walls.
func Topologize(g *graph.DesignGraph) (*brep.Shape, error) {
	if g == nil {
		return nil, ErrNoStock
	}
	stock, sd, ok := g.Stock()
	if !ok {
		return nil, ErrNoStock
	}

	t := &topologizer{b: brep.NewBuilder(), dims: sd.Dimensions, faces: make(map[graph.Face]kernel.FaceID)}
	t.addStock()

	for i, n := range g.Children(stock) {
		var err error
		switch data := n.Data.(type) {
		case graph.DrillData:
			err = t.addDrill(fmt.Sprintf("drill %d", i+1), data)
		case graph.PocketData:
			err = t.addPocket(fmt.Sprintf("pocket %d", i+1), data)
		default:
			err = fmt.Errorf("unexpected data type %T", n.Data)
		}
		if err != nil {
			return nil, fmt.Errorf("topologize: node %s: %w", n.ID.Short(), err)
		}
	}
	return t.b.Build(), nil
}

type topologizer struct {
	b     *brep.Builder
	dims  graph.Vec3
	faces map[graph.Face]kernel.FaceID
}

// addStock adds the six stock faces and the twelve box edges.
func (t *topologizer) addStock() {
	for _, f := range graph.Faces {
		fr, _ := graph.Frame(f, t.dims)
		centre := fr.Point(graph.UV{U: fr.SizeU / 2, V: fr.SizeV / 2})
		t.faces[f] = t.b.AddFace(
			kernel.Plane{Origin: centre, Normal: fr.Normal},
			fr.SizeU*fr.SizeV,
			[4]float64{0, fr.SizeU, 0, fr.SizeV},
			string(f),
		)
	}
	for i, a := range graph.Faces {
		for _, b := range graph.Faces[i+1:] {
			if a.Opposite() != b {
				t.b.Join(t.faces[a], t.faces[b])
			}
		}
	}
}

func (t *topologizer) addDrill(label string, d graph.DrillData) error {
	fr, ok := graph.Frame(d.Face, t.dims)
	if !ok {
		return fmt.Errorf("invalid face %q", d.Face)
	}
	r := d.Diameter / 2
	if r <= 0 {
		return fmt.Errorf("diameter must be positive, got %g", d.Diameter)
	}
	mouth := math.Pi * r * r
	entry := t.faces[d.Face]

	through := d.Through(fr.Depth)
	length := d.Depth
	if through {
		length = fr.Depth
	}

	wall := t.b.AddFace(
		kernel.Cylinder{Origin: fr.Point(d.At), Axis: fr.Inward(), Radius: r},
		2*math.Pi*r*length,
		[4]float64{0, 2 * math.Pi, 0, length},
		label+" wall",
	)
	t.b.Join(wall, wall)
	t.b.Join(entry, wall)
	t.b.AdjustArea(entry, -mouth)

	if through {
		exit := t.faces[d.Face.Opposite()]
		t.b.Join(exit, wall)
		t.b.AdjustArea(exit, -mouth)
		return nil
	}

	h := d.PointDepth()
	slant := math.Hypot(r, h)
	point := t.b.AddFace(
		kernel.OtherSurface{Kind: "cone"},
		math.Pi*r*slant,
		[4]float64{0, 2 * math.Pi, 0, slant},
		label+" point",
	)
	t.b.Join(wall, point)
	return nil
}

func (t *topologizer) addPocket(label string, p graph.PocketData) error {
	fr, ok := graph.Frame(p.Face, t.dims)
	if !ok {
		return fmt.Errorf("invalid face %q", p.Face)
	}
	if p.Length <= 0 || p.Width <= 0 || p.Depth <= 0 {
		return fmt.Errorf("pocket dimensions must be positive")
	}
	start := t.faces[p.Face]
	centre := fr.Point(p.At)
	in := fr.Inward()
	mid := centre.Add(in.MulScalar(p.Depth / 2))

	floor := t.b.AddFace(
		kernel.Plane{Origin: centre.Add(in.MulScalar(p.Depth)), Normal: fr.Normal},
		p.Length*p.Width,
		[4]float64{0, p.Length, 0, p.Width},
		label+" floor",
	)
	t.b.AdjustArea(start, -p.Length*p.Width)

	// Walls in loop order; each normal faces the pocket centre.
	walls := []struct {
		side   v3.Vec
		span   float64
		offset float64
		name   string
	}{
		{fr.U.Neg(), p.Width, p.Length / 2, "wall -u"},
		{fr.V.Neg(), p.Length, p.Width / 2, "wall -v"},
		{fr.U, p.Width, p.Length / 2, "wall +u"},
		{fr.V, p.Length, p.Width / 2, "wall +v"},
	}
	ids := make([]kernel.FaceID, len(walls))
	for i, w := range walls {
		ids[i] = t.b.AddFace(
			kernel.Plane{Origin: mid.Add(w.side.MulScalar(w.offset)), Normal: w.side.Neg()},
			w.span*p.Depth,
			[4]float64{0, w.span, 0, p.Depth},
			label+" "+w.name,
		)
		t.b.Join(floor, ids[i])
		t.b.Join(start, ids[i])
	}
	for i := range ids {
		t.b.Join(ids[i], ids[(i+1)%len(ids)])
	}
	return nil
}
