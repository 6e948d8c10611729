package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// Triangles are wound counter-clockwise when seen from outside the solid.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // part or file the mesh came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0 || len(m.Indices) < 3
}

// Vertex returns vertex i as a vector.
func (m *Mesh) Vertex(i uint32) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[i*3]),
		Y: float64(m.Vertices[i*3+1]),
		Z: float64(m.Vertices[i*3+2]),
	}
}

// Triangle returns the corners of triangle t.
func (m *Mesh) Triangle(t int) [3]v3.Vec {
	return [3]v3.Vec{
		m.Vertex(m.Indices[t*3]),
		m.Vertex(m.Indices[t*3+1]),
		m.Vertex(m.Indices[t*3+2]),
	}
}

// FaceNormal returns the unit geometric normal of triangle t from its
// winding, and its area. Degenerate triangles return a zero normal and area.
func (m *Mesh) FaceNormal(t int) (v3.Vec, float64) {
	tri := m.Triangle(t)
	c := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
	l := c.Length()
	if l < 1e-18 || math.IsNaN(l) {
		return v3.Vec{}, 0
	}
	return c.MulScalar(1 / l), l / 2
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (min, max v3.Vec) {
	if m.IsEmpty() {
		return v3.Vec{}, v3.Vec{}
	}
	min = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(uint32(i))
		min = v3.Vec{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
		max = v3.Vec{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
	}
	return min, max
}

// SurfaceArea returns the total triangle area.
func (m *Mesh) SurfaceArea() float64 {
	var area float64
	for t := 0; t < m.TriangleCount(); t++ {
		_, a := m.FaceNormal(t)
		area += a
	}
	return area
}

// Volume returns the enclosed volume using the divergence theorem. The
// result is only meaningful for closed, consistently wound meshes.
func (m *Mesh) Volume() float64 {
	var vol float64
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		vol += tri[0].Dot(tri[1].Cross(tri[2])) / 6
	}
	return math.Abs(vol)
}

// NewMesh builds an indexed mesh from triangle corners. Vertices are not
// welded; normals are the per-triangle geometric normals.
func NewMesh(name string, tris [][3]v3.Vec) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, len(tris)*9),
		Normals:  make([]float32, 0, len(tris)*9),
		Indices:  make([]uint32, 0, len(tris)*3),
		Name:     name,
	}
	for i, tri := range tris {
		n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
		if l := n.Length(); l > 0 {
			n = n.MulScalar(1 / l)
		}
		for j := 0; j < 3; j++ {
			m.Vertices = append(m.Vertices, float32(tri[j].X), float32(tri[j].Y), float32(tri[j].Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m
}

// BoxMesh returns a closed, outward-wound mesh of the axis-aligned box
// spanning min..max.
func BoxMesh(name string, min, max v3.Vec) *Mesh {
	c := func(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }
	x0, y0, z0 := min.X, min.Y, min.Z
	x1, y1, z1 := max.X, max.Y, max.Z

	faces := []struct {
		loop    [4]v3.Vec
		outward v3.Vec
	}{
		{[4]v3.Vec{c(x0, y0, z0), c(x0, y1, z0), c(x0, y1, z1), c(x0, y0, z1)}, c(-1, 0, 0)},
		{[4]v3.Vec{c(x1, y0, z0), c(x1, y1, z0), c(x1, y1, z1), c(x1, y0, z1)}, c(1, 0, 0)},
		{[4]v3.Vec{c(x0, y0, z0), c(x1, y0, z0), c(x1, y0, z1), c(x0, y0, z1)}, c(0, -1, 0)},
		{[4]v3.Vec{c(x0, y1, z0), c(x1, y1, z0), c(x1, y1, z1), c(x0, y1, z1)}, c(0, 1, 0)},
		{[4]v3.Vec{c(x0, y0, z0), c(x1, y0, z0), c(x1, y1, z0), c(x0, y1, z0)}, c(0, 0, -1)},
		{[4]v3.Vec{c(x0, y0, z1), c(x1, y0, z1), c(x1, y1, z1), c(x0, y1, z1)}, c(0, 0, 1)},
	}

	tris := make([][3]v3.Vec, 0, 12)
	for _, f := range faces {
		a, b, cc, d := f.loop[0], f.loop[1], f.loop[2], f.loop[3]
		n := b.Sub(a).Cross(cc.Sub(a))
		if n.Dot(f.outward) < 0 {
			b, d = d, b
		}
		tris = append(tris, [3]v3.Vec{a, b, cc}, [3]v3.Vec{a, cc, d})
	}
	return NewMesh(name, tris)
}

// Merge concatenates meshes into one. Indices are rebased.
func Merge(name string, meshes ...*Mesh) *Mesh {
	out := &Mesh{Name: name}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		offset := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, m.Vertices...)
		out.Normals = append(out.Normals, m.Normals...)
		for _, idx := range m.Indices {
			out.Indices = append(out.Indices, idx+offset)
		}
	}
	return out
}

// Scaled returns a copy of m with every vertex multiplied by s. Normals are
// unchanged for positive s.
func (m *Mesh) Scaled(s float64) *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  append([]float32(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
		Name:     m.Name,
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = float32(float64(v) * s)
	}
	return out
}
