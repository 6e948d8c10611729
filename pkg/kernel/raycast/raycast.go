// Package raycast answers first-hit ray queries against a triangle mesh.
// Triangles are held in a bounding volume hierarchy built once per mesh;
// queries are read-only and safe for concurrent use.
package raycast

import (
	"math"
	"sort"

	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.RayCaster = (*Caster)(nil)

// leafSize is the largest triangle count stored in a leaf node.
const leafSize = 4

// parallelEps rejects rays lying in a triangle's plane.
const parallelEps = 1e-12

type triangle struct {
	a, b, c  v3.Vec
	centroid v3.Vec
}

type aabb struct {
	min, max v3.Vec
}

func emptyBox() aabb {
	inf := math.Inf(1)
	return aabb{
		min: v3.Vec{X: inf, Y: inf, Z: inf},
		max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

func (b *aabb) grow(p v3.Vec) {
	b.min = v3.Vec{X: math.Min(b.min.X, p.X), Y: math.Min(b.min.Y, p.Y), Z: math.Min(b.min.Z, p.Z)}
	b.max = v3.Vec{X: math.Max(b.max.X, p.X), Y: math.Max(b.max.Y, p.Y), Z: math.Max(b.max.Z, p.Z)}
}

// hit reports whether the ray enters the box before tmax.
func (b aabb) hit(origin, inv v3.Vec, tmax float64) bool {
	tmin := 0.0
	for axis := 0; axis < 3; axis++ {
		o, d := component(origin, axis), component(inv, axis)
		t0 := (component(b.min, axis) - o) * d
		t1 := (component(b.max, axis) - o) * d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		// NaN from 0*Inf leaves the slab unconstrained.
		if !math.IsNaN(t0) && t0 > tmin {
			tmin = t0
		}
		if !math.IsNaN(t1) && t1 < tmax {
			tmax = t1
		}
		if tmin > tmax {
			return false
		}
	}
	return true
}

func component(v v3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

type node struct {
	box         aabb
	left, right int // child node indices; -1 for leaves
	start, end  int // triangle range for leaves
}

// Caster is a BVH over a mesh's triangles.
type Caster struct {
	tris  []triangle
	nodes []node
}

// New builds a caster for m. Degenerate triangles are skipped. A nil or
// empty mesh yields a caster that never hits.
func New(m *kernel.Mesh) *Caster {
	c := &Caster{}
	if m.IsEmpty() {
		return c
	}
	for t := 0; t < m.TriangleCount(); t++ {
		if _, area := m.FaceNormal(t); area == 0 {
			continue
		}
		p := m.Triangle(t)
		c.tris = append(c.tris, triangle{
			a: p[0], b: p[1], c: p[2],
			centroid: p[0].Add(p[1]).Add(p[2]).MulScalar(1.0 / 3),
		})
	}
	if len(c.tris) > 0 {
		c.build(0, len(c.tris))
	}
	return c
}

// TriangleCount reports how many triangles the hierarchy holds.
func (c *Caster) TriangleCount() int {
	return len(c.tris)
}

// build creates the node for tris[start:end] and returns its index.
func (c *Caster) build(start, end int) int {
	box := emptyBox()
	centroids := emptyBox()
	for _, t := range c.tris[start:end] {
		box.grow(t.a)
		box.grow(t.b)
		box.grow(t.c)
		centroids.grow(t.centroid)
	}

	idx := len(c.nodes)
	c.nodes = append(c.nodes, node{box: box, left: -1, right: -1, start: start, end: end})
	if end-start <= leafSize {
		return idx
	}

	extent := centroids.max.Sub(centroids.min)
	axis := 0
	if extent.Y > extent.X && extent.Y >= extent.Z {
		axis = 1
	} else if extent.Z > extent.X && extent.Z > extent.Y {
		axis = 2
	}

	part := c.tris[start:end]
	sort.Slice(part, func(i, j int) bool {
		return component(part[i].centroid, axis) < component(part[j].centroid, axis)
	})
	mid := start + (end-start)/2

	left := c.build(start, mid)
	right := c.build(mid, end)
	c.nodes[idx].left = left
	c.nodes[idx].right = right
	return idx
}

// FirstHit returns the smallest positive distance t at which the ray
// origin + t*dir meets a triangle. dir need not be unit length; t is in
// multiples of dir.
func (c *Caster) FirstHit(origin, dir v3.Vec) (float64, bool) {
	if len(c.nodes) == 0 {
		return 0, false
	}
	inv := v3.Vec{X: 1 / dir.X, Y: 1 / dir.Y, Z: 1 / dir.Z}

	best := math.Inf(1)
	found := false
	stack := make([]int, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		n := c.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !n.box.hit(origin, inv, best) {
			continue
		}
		if n.left < 0 {
			for i := n.start; i < n.end; i++ {
				if t, ok := intersect(c.tris[i], origin, dir); ok && t < best {
					best = t
					found = true
				}
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}
	return best, found
}

// intersect is the Möller–Trumbore ray/triangle test.
func intersect(tri triangle, origin, dir v3.Vec) (float64, bool) {
	e1 := tri.b.Sub(tri.a)
	e2 := tri.c.Sub(tri.a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < parallelEps {
		return 0, false
	}
	invDet := 1 / det
	s := origin.Sub(tri.a)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * invDet
	if t <= 0 {
		return 0, false
	}
	return t, true
}
