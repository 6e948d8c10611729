package brep

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Document is the interchange form of a Shape. External kernels export
// their topology in this form so parts that never went through a part
// script can still be analyzed.
type Document struct {
	UnitScale float64        `json:"unit_scale"`
	Faces     []FaceDocument `json:"faces"`
}

// FaceDocument describes one face. Faces are listed in id order and edges
// are shared by id.
type FaceDocument struct {
	ID      int             `json:"id"`
	Surface SurfaceDocument `json:"surface"`
	Area    float64         `json:"area"`
	UV      [4]float64      `json:"uv"`
	Edges   []int           `json:"edges"`
	Label   string          `json:"label,omitempty"`
}

// SurfaceDocument is the tagged form of kernel.Surface.
type SurfaceDocument struct {
	Type   string     `json:"type"`
	Origin [3]float64 `json:"origin,omitempty"`
	Normal [3]float64 `json:"normal,omitempty"`
	Axis   [3]float64 `json:"axis,omitempty"`
	Radius float64    `json:"radius,omitempty"`
}

// MarshalJSON encodes the shape as a Document.
func (s *Shape) MarshalJSON() ([]byte, error) {
	doc := Document{UnitScale: s.UnitScale(), Faces: make([]FaceDocument, 0, len(s.faces))}
	for _, f := range s.faces {
		edges := make([]int, len(f.Edges))
		for i, e := range f.Edges {
			edges[i] = int(e)
		}
		doc.Faces = append(doc.Faces, FaceDocument{
			ID:      int(f.ID),
			Surface: encodeSurface(f.Surface),
			Area:    f.Area,
			UV:      f.UV,
			Edges:   edges,
			Label:   f.Label,
		})
	}
	return json.Marshal(doc)
}

// Decode reads a Document and builds a Shape from it. Face ids must be
// 1..n in order; edge ids are renumbered densely.
func Decode(r io.Reader) (*Shape, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode shape: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument builds a Shape from a decoded Document.
func FromDocument(doc Document) (*Shape, error) {
	b := NewBuilder()
	if doc.UnitScale > 0 {
		b.SetUnitScale(doc.UnitScale)
	}

	edgeFaces := make(map[int][]kernel.FaceID)
	var edgeOrder []int
	for i, fd := range doc.Faces {
		if fd.ID != i+1 {
			return nil, fmt.Errorf("face %d listed at position %d: ids must be sequential from 1", fd.ID, i+1)
		}
		surface, err := decodeSurface(fd.Surface)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", fd.ID, err)
		}
		id := b.AddFace(surface, fd.Area, fd.UV, fd.Label)
		for _, e := range fd.Edges {
			if _, seen := edgeFaces[e]; !seen {
				edgeOrder = append(edgeOrder, e)
			}
			edgeFaces[e] = append(edgeFaces[e], id)
		}
	}
	for _, e := range edgeOrder {
		b.Join(edgeFaces[e]...)
	}
	return b.Build(), nil
}

func encodeSurface(s kernel.Surface) SurfaceDocument {
	switch s := s.(type) {
	case kernel.Plane:
		return SurfaceDocument{Type: "plane", Origin: vecArray(s.Origin), Normal: vecArray(s.Normal)}
	case kernel.Cylinder:
		return SurfaceDocument{Type: "cylinder", Origin: vecArray(s.Origin), Axis: vecArray(s.Axis), Radius: s.Radius}
	default:
		return SurfaceDocument{Type: kernel.SurfaceName(s)}
	}
}

func decodeSurface(d SurfaceDocument) (kernel.Surface, error) {
	switch d.Type {
	case "plane":
		if arrayVec(d.Normal).Length() == 0 {
			return nil, fmt.Errorf("plane has zero normal")
		}
		return kernel.Plane{Origin: arrayVec(d.Origin), Normal: arrayVec(d.Normal)}, nil
	case "cylinder":
		if d.Radius <= 0 {
			return nil, fmt.Errorf("cylinder has non-positive radius %g", d.Radius)
		}
		return kernel.Cylinder{Origin: arrayVec(d.Origin), Axis: arrayVec(d.Axis), Radius: d.Radius}, nil
	case "", "unknown":
		return kernel.OtherSurface{}, nil
	default:
		return kernel.OtherSurface{Kind: d.Type}, nil
	}
}

func vecArray(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func arrayVec(a [3]float64) v3.Vec {
	return v3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
