// Package brep is an in-memory boundary representation implementing
// kernel.Topology. Faces and edges live in flat arenas addressed by index,
// so adjacency never forms pointer cycles. Shapes are built once with a
// Builder and are immutable afterwards.
package brep

import (
	"errors"
	"fmt"

	"github.com/chazu/dfm/pkg/kernel"
)

// ErrUnknownFace is returned for face ids outside the shape.
var ErrUnknownFace = errors.New("brep: unknown face")

// Compile-time interface check.
var _ kernel.Topology = (*Shape)(nil)

// Face is one bounded surface patch.
type Face struct {
	ID      kernel.FaceID
	Surface kernel.Surface
	Edges   []kernel.EdgeID
	Area    float64    // native units squared
	UV      [4]float64 // umin, umax, vmin, vmax
	Label   string     // e.g. "top", "H-001 wall"
}

// Shape is an immutable B-rep. Face ids are 1-based arena indices.
type Shape struct {
	faces     []Face
	edgeCount int
	unitScale float64
}

// Faces returns every face id in ascending order.
func (s *Shape) Faces() []kernel.FaceID {
	ids := make([]kernel.FaceID, len(s.faces))
	for i := range s.faces {
		ids[i] = s.faces[i].ID
	}
	return ids
}

// FaceEdges returns the edges bounding f. The slice must not be modified.
func (s *Shape) FaceEdges(f kernel.FaceID) []kernel.EdgeID {
	face, ok := s.Face(f)
	if !ok {
		return nil
	}
	return face.Edges
}

// ClassifySurface returns the analytic surface of f.
func (s *Shape) ClassifySurface(f kernel.FaceID) (kernel.Surface, error) {
	face, ok := s.Face(f)
	if !ok {
		return nil, fmt.Errorf("classify face %d: %w", f, ErrUnknownFace)
	}
	if face.Surface == nil {
		return kernel.OtherSurface{}, nil
	}
	return face.Surface, nil
}

// SurfaceArea returns the area of f in native units squared.
func (s *Shape) SurfaceArea(f kernel.FaceID) (float64, error) {
	face, ok := s.Face(f)
	if !ok {
		return 0, fmt.Errorf("surface area of face %d: %w", f, ErrUnknownFace)
	}
	return face.Area, nil
}

// UVBounds returns the parametric bounds of f.
func (s *Shape) UVBounds(f kernel.FaceID) (umin, umax, vmin, vmax float64, err error) {
	face, ok := s.Face(f)
	if !ok {
		return 0, 0, 0, 0, fmt.Errorf("uv bounds of face %d: %w", f, ErrUnknownFace)
	}
	return face.UV[0], face.UV[1], face.UV[2], face.UV[3], nil
}

// UnitScale returns millimetres per native length unit.
func (s *Shape) UnitScale() float64 {
	if s.unitScale <= 0 {
		return 1
	}
	return s.unitScale
}

// Face returns the face with the given id.
func (s *Shape) Face(f kernel.FaceID) (Face, bool) {
	i := int(f) - 1
	if i < 0 || i >= len(s.faces) {
		return Face{}, false
	}
	return s.faces[i], true
}

// FaceCount returns the number of faces.
func (s *Shape) FaceCount() int {
	return len(s.faces)
}

// EdgeCount returns the number of edges.
func (s *Shape) EdgeCount() int {
	return s.edgeCount
}

// FindFace returns the first face carrying the given label.
func (s *Shape) FindFace(label string) (Face, bool) {
	for _, f := range s.faces {
		if f.Label == label {
			return f, true
		}
	}
	return Face{}, false
}

// Builder assembles a Shape.
type Builder struct {
	shape *Shape
	built bool
}

// NewBuilder returns a builder for a shape in millimetres.
func NewBuilder() *Builder {
	return &Builder{shape: &Shape{unitScale: 1}}
}

// SetUnitScale sets millimetres per native length unit.
func (b *Builder) SetUnitScale(mm float64) *Builder {
	b.shape.unitScale = mm
	return b
}

// AddFace appends a face and returns its id.
func (b *Builder) AddFace(surface kernel.Surface, area float64, uv [4]float64, label string) kernel.FaceID {
	b.mustBeOpen()
	id := kernel.FaceID(len(b.shape.faces) + 1)
	b.shape.faces = append(b.shape.faces, Face{
		ID:      id,
		Surface: surface,
		Area:    area,
		UV:      uv,
		Label:   label,
	})
	return id
}

// AdjustArea adds delta to the area of f. Used when features cut openings
// into faces that were created first.
func (b *Builder) AdjustArea(f kernel.FaceID, delta float64) {
	b.mustBeOpen()
	i := int(f) - 1
	if i < 0 || i >= len(b.shape.faces) {
		panic(fmt.Sprintf("brep: adjust area of unknown face %d", f))
	}
	b.shape.faces[i].Area += delta
}

// Join creates a new edge shared by the given faces and returns its id.
// Passing the same face twice models a seam edge.
func (b *Builder) Join(faces ...kernel.FaceID) kernel.EdgeID {
	b.mustBeOpen()
	b.shape.edgeCount++
	e := kernel.EdgeID(b.shape.edgeCount)
	for _, f := range faces {
		i := int(f) - 1
		if i < 0 || i >= len(b.shape.faces) {
			panic(fmt.Sprintf("brep: join references unknown face %d", f))
		}
		b.shape.faces[i].Edges = append(b.shape.faces[i].Edges, e)
	}
	return e
}

// Build finalizes the shape. The builder must not be used afterwards.
func (b *Builder) Build() *Shape {
	b.mustBeOpen()
	b.built = true
	return b.shape
}

func (b *Builder) mustBeOpen() {
	if b.built {
		panic("brep: builder used after Build")
	}
}
