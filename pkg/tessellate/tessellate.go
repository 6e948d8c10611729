// Package tessellate turns a design graph into geometry: a triangle mesh
// through a solid-modeling kernel, and an analytic B-rep through Topologize.
package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/dfm/pkg/graph"
	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Overshoot is how far cutters extend past the faces they open through.
const Overshoot = 1.0

// ErrNoStock is returned for graphs without a stock node.
var ErrNoStock = errors.New("tessellate: graph has no stock")

// Tessellate cuts every feature out of the stock and meshes the result. The
// tessellator is read-only and never mutates the graph.
//
// Blind holes are meshed flat-bottomed: the kernel has no cone primitive, so
// the drill point only appears in the B-rep produced by Topologize.
func Tessellate(g *graph.DesignGraph, k kernel.Kernel) (*kernel.Mesh, error) {
	if g == nil {
		return nil, ErrNoStock
	}
	stock, sd, ok := g.Stock()
	if !ok {
		return nil, ErrNoStock
	}

	dims := sd.Dimensions
	part := k.Box(dims.X, dims.Y, dims.Z)
	for _, n := range g.Children(stock) {
		cutter, err := walkNode(k, n, dims)
		if err != nil {
			return nil, fmt.Errorf("tessellate: node %s: %w", n.ID.Short(), err)
		}
		if cutter != nil {
			part = k.Difference(part, cutter)
		}
	}

	mesh, err := k.ToMesh(part)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for stock %s: %w", stock.ID.Short(), err)
	}

	// Prefer the part name, fall back to the short id.
	if stock.Name != "" {
		mesh.Name = stock.Name
	} else {
		mesh.Name = stock.ID.Short()
	}
	return mesh, nil
}

// walkNode returns the material removed by a feature node.
func walkNode(k kernel.Kernel, n *graph.Node, dims graph.Vec3) (kernel.Solid, error) {
	switch n.Kind {
	case graph.NodeDrill:
		return handleDrill(k, n, dims)

	case graph.NodePocket:
		return handlePocket(k, n, dims)

	default:
		return nil, fmt.Errorf("unexpected node kind under stock: %v", n.Kind)
	}
}

// handleDrill builds a cylinder along the drill axis.
func handleDrill(k kernel.Kernel, n *graph.Node, dims graph.Vec3) (kernel.Solid, error) {
	d, ok := n.Data.(graph.DrillData)
	if !ok {
		return nil, fmt.Errorf("drill node has unexpected data type %T", n.Data)
	}
	fr, ok := graph.Frame(d.Face, dims)
	if !ok {
		return nil, fmt.Errorf("invalid face %q", d.Face)
	}

	entry := fr.Point(d.At)
	in := fr.Inward()

	var height float64
	var centre v3.Vec
	if d.Through(fr.Depth) {
		height = fr.Depth + 2*Overshoot
		centre = entry.Add(in.MulScalar(fr.Depth / 2))
	} else {
		height = d.Depth + Overshoot
		centre = entry.Add(in.MulScalar((d.Depth - Overshoot) / 2))
	}

	cutter := k.Cylinder(height, d.Diameter/2, 32)
	rot := axisRotation(fr.Normal)
	if rot.X != 0 || rot.Y != 0 || rot.Z != 0 {
		cutter = k.Rotate(cutter, rot.X, rot.Y, rot.Z)
	}
	return k.Translate(cutter, centre.X, centre.Y, centre.Z), nil
}

// handlePocket builds a box over the pocket volume, opened past the face.
func handlePocket(k kernel.Kernel, n *graph.Node, dims graph.Vec3) (kernel.Solid, error) {
	p, ok := n.Data.(graph.PocketData)
	if !ok {
		return nil, fmt.Errorf("pocket node has unexpected data type %T", n.Data)
	}
	fr, ok := graph.Frame(p.Face, dims)
	if !ok {
		return nil, fmt.Errorf("invalid face %q", p.Face)
	}
	lo, hi, ok := graph.FeatureBounds(n, dims)
	if !ok {
		return nil, fmt.Errorf("pocket has no bounds")
	}

	ext := fr.Normal.MulScalar(Overshoot)
	lo, hi = minVec(lo, lo.Add(ext)), maxVec(hi, hi.Add(ext))
	size := hi.Sub(lo)

	cutter := k.Box(size.X, size.Y, size.Z)
	return k.Translate(cutter, lo.X, lo.Y, lo.Z), nil
}

// axisRotation returns the Euler angles (degrees) that turn the kernel's
// Z-aligned cylinder onto the axis of a face normal.
func axisRotation(normal v3.Vec) graph.Vec3 {
	switch {
	case math.Abs(normal.Y) > 0.5:
		return graph.Vec3{X: 90}
	case math.Abs(normal.X) > 0.5:
		return graph.Vec3{Y: 90}
	default:
		return graph.Vec3{}
	}
}

func minVec(a, b v3.Vec) v3.Vec {
	return v3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b v3.Vec) v3.Vec {
	return v3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
