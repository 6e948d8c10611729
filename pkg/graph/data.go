package graph

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec3 is a plain 3-vector used in node payloads.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// UV is a position in a face's local coordinates, in mm.
type UV struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// ---------------------------------------------------------------------------
// Faces
// ---------------------------------------------------------------------------

// Face names one of the six faces of the stock.
type Face string

const (
	FaceTop    Face = "top"
	FaceBottom Face = "bottom"
	FaceFront  Face = "front"
	FaceBack   Face = "back"
	FaceLeft   Face = "left"
	FaceRight  Face = "right"
)

// ValidFaces is the set of face names accepted by part scripts.
var ValidFaces = map[Face]bool{
	FaceTop: true, FaceBottom: true,
	FaceFront: true, FaceBack: true,
	FaceLeft: true, FaceRight: true,
}

// Faces lists the stock faces in a fixed order.
var Faces = []Face{FaceTop, FaceBottom, FaceFront, FaceBack, FaceLeft, FaceRight}

// FaceFrame is a face's local coordinate system. Stock occupies
// [0,L]x[0,W]x[0,T] with its minimum corner at the origin.
type FaceFrame struct {
	Origin v3.Vec  // uv (0,0)
	Normal v3.Vec  // outward
	U, V   v3.Vec  // in-plane unit axes
	SizeU  float64 // face extent along U
	SizeV  float64 // face extent along V
	Depth  float64 // material thickness below the face along -Normal
}

// Frame returns the local frame of face f on a stock of dimensions dims
// (length along X, width along Y, thickness along Z).
func Frame(f Face, dims Vec3) (FaceFrame, bool) {
	l, w, t := dims.X, dims.Y, dims.Z
	x, y, z := v3.Vec{X: 1}, v3.Vec{Y: 1}, v3.Vec{Z: 1}
	switch f {
	case FaceTop:
		return FaceFrame{Origin: v3.Vec{Z: t}, Normal: z, U: x, V: y, SizeU: l, SizeV: w, Depth: t}, true
	case FaceBottom:
		return FaceFrame{Normal: z.Neg(), U: x, V: y, SizeU: l, SizeV: w, Depth: t}, true
	case FaceFront:
		return FaceFrame{Normal: y.Neg(), U: x, V: z, SizeU: l, SizeV: t, Depth: w}, true
	case FaceBack:
		return FaceFrame{Origin: v3.Vec{Y: w}, Normal: y, U: x, V: z, SizeU: l, SizeV: t, Depth: w}, true
	case FaceLeft:
		return FaceFrame{Normal: x.Neg(), U: y, V: z, SizeU: w, SizeV: t, Depth: l}, true
	case FaceRight:
		return FaceFrame{Origin: v3.Vec{X: l}, Normal: x, U: y, V: z, SizeU: w, SizeV: t, Depth: l}, true
	default:
		return FaceFrame{}, false
	}
}

// Opposite returns the face parallel to f on the far side of the stock.
func (f Face) Opposite() Face {
	switch f {
	case FaceTop:
		return FaceBottom
	case FaceBottom:
		return FaceTop
	case FaceFront:
		return FaceBack
	case FaceBack:
		return FaceFront
	case FaceLeft:
		return FaceRight
	case FaceRight:
		return FaceLeft
	default:
		return f
	}
}

// Point maps face-local coordinates to model space.
func (fr FaceFrame) Point(at UV) v3.Vec {
	return fr.Origin.Add(fr.U.MulScalar(at.U)).Add(fr.V.MulScalar(at.V))
}

// Inward is the direction from the face into the material.
func (fr FaceFrame) Inward() v3.Vec {
	return fr.Normal.Neg()
}

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// StockData is the rectangular block everything is cut from.
type StockData struct {
	Dimensions Vec3   `json:"dimensions"` // length x width x thickness in mm
	Material   string `json:"material,omitempty"`
}

func (StockData) nodeData() {}

// DrillPointAngle is the included angle of a standard twist drill tip.
const DrillPointAngle = 118.0

// DrillData is a hole drilled normal to a stock face.
type DrillData struct {
	Stock    NodeID  `json:"stock"`
	Face     Face    `json:"face"`
	At       UV      `json:"at"`       // hole centre
	Diameter float64 `json:"diameter"` // mm
	Depth    float64 `json:"depth"`    // mm of full-diameter bore, 0 = through
}

func (DrillData) nodeData() {}

// Through reports whether the hole passes through a face of the given
// material depth.
func (d DrillData) Through(faceDepth float64) bool {
	return d.Depth <= 0 || d.Depth >= faceDepth
}

// PointDepth is the axial length of the drill-point cone at the bottom of
// a blind hole.
func (d DrillData) PointDepth() float64 {
	half := DrillPointAngle / 2 * math.Pi / 180
	return d.Diameter / 2 / math.Tan(half)
}

// PocketData is a flat-bottomed rectangular pocket milled into a face.
type PocketData struct {
	Stock  NodeID  `json:"stock"`
	Face   Face    `json:"face"`
	At     UV      `json:"at"`     // pocket centre
	Length float64 `json:"length"` // along the face U axis
	Width  float64 `json:"width"`  // along the face V axis
	Depth  float64 `json:"depth"`
}

func (PocketData) nodeData() {}
