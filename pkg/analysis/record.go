package analysis

import (
	"math"

	"github.com/chazu/dfm/pkg/features"
	"github.com/chazu/dfm/pkg/minwall"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// RecordVersion is the FeaturesJson schema version.
const RecordVersion = "1.0"

// Point is a position in mm.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func pointOf(v v3.Vec) Point { return Point{X: v.X, Y: v.Y, Z: v.Z} }

// BBox is an axis-aligned bounding box in mm.
type BBox struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Size returns the box extents.
func (b BBox) Size() Point {
	return Point{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
}

// MassProps are whole-part integrals.
type MassProps struct {
	VolumeMM3 float64 `json:"volume_mm3"`
	AreaMM2   float64 `json:"area_mm2"`
}

// Source identifies where a record came from.
type Source struct {
	Loader      string `json:"loader"`
	Name        string `json:"name"`
	ContentHash string `json:"content_hash"`
}

// Capabilities records which kernel capabilities backed the analysis. A
// false flag means the matching results were not computed, not that
// nothing was found.
type Capabilities struct {
	Topology bool `json:"topology"`
	Raycast  bool `json:"raycast"`
}

// Stock is the raw material envelope needed to machine the part.
type Stock struct {
	LengthMM    float64 `json:"length_mm"`
	WidthMM     float64 `json:"width_mm"`
	HeightMM    float64 `json:"height_mm,omitempty"`
	ThicknessMM float64 `json:"thickness_mm,omitempty"`
}

// Record is the feature record for one part (FeaturesJson).
type Record struct {
	Version      string                   `json:"version"`
	Units        string                   `json:"units"`
	BBox         BBox                     `json:"bbox"`
	MassProps    MassProps                `json:"mass_props"`
	Holes        []features.HoleFeature   `json:"holes"`
	Pockets      []features.PocketFeature `json:"pockets"`
	MinWall      minwall.Data             `json:"min_wall"`
	Stock        Stock                    `json:"stock"`
	Material     string                   `json:"material,omitempty"`
	Source       Source                   `json:"source"`
	Capabilities Capabilities             `json:"capabilities"`
	Warnings     []string                 `json:"warnings,omitempty"`
}

// Partial reports whether any capability was missing.
func (r *Record) Partial() bool {
	return !r.Capabilities.Topology || !r.Capabilities.Raycast
}

// Block and sheet stock allowances, per side total, in mm.
const (
	blockMarginXY = 20
	blockMarginZ  = 15
	sheetMargin   = 10
)

// EstimateStock sizes stock for a part with the given bounds. A positive
// sheetThickness selects sheet stock of that gauge; otherwise a block is
// sized with machining allowance on every axis. Sizes round to 0.1 mm.
func EstimateStock(b BBox, sheetThickness float64) Stock {
	s := b.Size()
	if sheetThickness > 0 {
		return Stock{
			LengthMM:    round1(s.X + sheetMargin),
			WidthMM:     round1(s.Y + sheetMargin),
			ThicknessMM: round1(sheetThickness),
		}
	}
	return Stock{
		LengthMM: round1(s.X + blockMarginXY),
		WidthMM:  round1(s.Y + blockMarginXY),
		HeightMM: round1(s.Z + blockMarginZ),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
