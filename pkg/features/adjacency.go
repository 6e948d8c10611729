package features

import (
	"slices"

	"github.com/chazu/dfm/pkg/kernel"
)

// AdjacencyIndex maps every edge of a shape to the faces that reference it.
// It is built once per shape and is read-only afterwards, so extractors may
// share it without locking.
type AdjacencyIndex struct {
	edgeFaces map[kernel.EdgeID][]kernel.FaceID
	faceEdges map[kernel.FaceID][]kernel.EdgeID
}

// NewAdjacencyIndex walks every face of topo. A nil topology yields an empty
// index.
func NewAdjacencyIndex(topo kernel.Topology) *AdjacencyIndex {
	idx := &AdjacencyIndex{
		edgeFaces: make(map[kernel.EdgeID][]kernel.FaceID),
		faceEdges: make(map[kernel.FaceID][]kernel.EdgeID),
	}
	if topo == nil {
		return idx
	}
	for _, f := range topo.Faces() {
		edges := slices.Clone(topo.FaceEdges(f))
		idx.faceEdges[f] = edges
		for _, e := range edges {
			faces := idx.edgeFaces[e]
			// Seam edges list the same face twice.
			if !slices.Contains(faces, f) {
				idx.edgeFaces[e] = append(faces, f)
			}
		}
	}
	for e := range idx.edgeFaces {
		slices.Sort(idx.edgeFaces[e])
	}
	return idx
}

// FacesOf returns the faces incident to e in ascending id order.
func (a *AdjacencyIndex) FacesOf(e kernel.EdgeID) []kernel.FaceID {
	return a.edgeFaces[e]
}

// Neighbors returns the faces sharing at least one edge with f, excluding f,
// in ascending id order.
func (a *AdjacencyIndex) Neighbors(f kernel.FaceID) []kernel.FaceID {
	var out []kernel.FaceID
	for _, e := range a.faceEdges[f] {
		for _, g := range a.edgeFaces[e] {
			if g != f {
				out = append(out, g)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// EdgeCount returns the number of distinct edges.
func (a *AdjacencyIndex) EdgeCount() int {
	return len(a.edgeFaces)
}
