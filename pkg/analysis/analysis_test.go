package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/dfm/pkg/engine"
	"github.com/chazu/dfm/pkg/features"
	"github.com/chazu/dfm/pkg/kernel"
	"github.com/chazu/dfm/pkg/kernel/sdfx"
	"github.com/chazu/dfm/pkg/kernel/stl"
	"github.com/chazu/dfm/pkg/minwall"
	"github.com/chazu/dfm/pkg/scoring"
	"github.com/chazu/dfm/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const plateScript = `
(stock :length 100 :width 60 :thickness 20 :material "6061-T6" :name "plate")
(drill :face :top :at (uv 20 15) :diameter 6)
(drill :face :top :at (uv 50 30) :diameter 8 :depth 10)
(pocket :face :top :at (uv 78 30) :length 20 :width 15 :depth 8)
`

func newAnalyzer() *Analyzer {
	opts := minwall.DefaultOptions()
	opts.Samples = 800
	return New(
		WithKernel(sdfx.New(sdfx.WithMeshCells(80))),
		WithMinWall(opts),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// asciiSTL renders m as an ASCII STL document.
func asciiSTL(m *kernel.Mesh) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "solid %s\n", m.Name)
	for t := 0; t < m.TriangleCount(); t++ {
		n, _ := m.FaceNormal(t)
		fmt.Fprintf(&b, "  facet normal %g %g %g\n    outer loop\n", n.X, n.Y, n.Z)
		for _, p := range m.Triangle(t) {
			fmt.Fprintf(&b, "      vertex %g %g %g\n", p.X, p.Y, p.Z)
		}
		b.WriteString("    endloop\n  endfacet\n")
	}
	fmt.Fprintf(&b, "endsolid %s\n", m.Name)
	return []byte(b.String())
}

func TestAnalyzeScript(t *testing.T) {
	rec, err := newAnalyzer().AnalyzeScript(t.Context(), "plate.lisp", []byte(plateScript))
	require.NoError(t, err)

	assert.Equal(t, RecordVersion, rec.Version)
	assert.Equal(t, "mm", rec.Units)
	assert.Equal(t, BBox{Max: Point{X: 100, Y: 60, Z: 20}}, rec.BBox)
	assert.Equal(t, "6061-T6", rec.Material)
	assert.Equal(t, Source{Loader: LoaderScript, Name: "plate.lisp", ContentHash: ContentHash([]byte(plateScript))}, rec.Source)
	assert.Equal(t, Capabilities{Topology: true, Raycast: true}, rec.Capabilities)
	assert.False(t, rec.Partial())
	assert.Equal(t, Stock{LengthMM: 120, WidthMM: 80, HeightMM: 35}, rec.Stock)

	require.Len(t, rec.Holes, 2)
	kinds := map[features.HoleKind]float64{}
	for _, h := range rec.Holes {
		kinds[h.Kind] = h.DiameterMM
	}
	assert.InDelta(t, 6, kinds[features.HoleThrough], 1e-9)
	assert.InDelta(t, 8, kinds[features.HoleBlind], 1e-9)

	require.Len(t, rec.Pockets, 1)
	assert.InDelta(t, 8, rec.Pockets[0].DepthMM, 1e-9)
	assert.InDelta(t, 300, rec.Pockets[0].MouthAreaMM2, 1e-9)

	removed := 9*math.Pi*20 + 16*math.Pi*10 + 300*8
	assert.InEpsilon(t, 120000-removed, rec.MassProps.VolumeMM3, 0.05)
	assert.Positive(t, rec.MassProps.AreaMM2)

	assert.Positive(t, rec.MinWall.GlobalMinMM)
	assert.NotEmpty(t, rec.MinWall.Samples)
	assert.LessOrEqual(t, len(rec.MinWall.Samples), 50)
}

func TestAnalyzeScriptErrors(t *testing.T) {
	a := newAnalyzer()

	_, err := a.AnalyzeScript(t.Context(), "bad.lisp", []byte(`(drill :face :top :at (uv 1 1) :diameter 2)`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScript)
	assert.True(t, IsInputError(err))
	assert.Contains(t, err.Error(), "bad.lisp")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = a.AnalyzeScript(ctx, "plate.lisp", []byte(plateScript))
	require.Error(t, err)
	assert.False(t, IsInputError(err))
}

func TestAnalyzeMesh(t *testing.T) {
	t.Run("convex block in centimetres", func(t *testing.T) {
		m := kernel.BoxMesh("block", v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 1})
		rec, err := newAnalyzer().AnalyzeMesh(t.Context(), "block.stl", asciiSTL(m), "cm")
		require.NoError(t, err)

		assert.Equal(t, Capabilities{Topology: false, Raycast: true}, rec.Capabilities)
		assert.True(t, rec.Partial())
		assert.NotNil(t, rec.Holes)
		assert.Empty(t, rec.Holes)
		assert.NotNil(t, rec.Pockets)
		assert.Empty(t, rec.Pockets)
		assert.InDelta(t, 100, rec.BBox.Max.X, 1e-4)
		assert.InDelta(t, 10, rec.BBox.Max.Z, 1e-4)
		assert.InEpsilon(t, 100000, rec.MassProps.VolumeMM3, 1e-6)
		assert.InEpsilon(t, 2*(10000+1000+1000), rec.MassProps.AreaMM2, 1e-6)
		assert.Equal(t, minwall.Data{GlobalMinMM: 0, Samples: []minwall.Sample{}}, rec.MinWall)
		assert.Equal(t, LoaderSTL, rec.Source.Loader)
	})

	t.Run("two plates", func(t *testing.T) {
		m := kernel.Merge("sandwich",
			kernel.BoxMesh("a", v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 1}),
			kernel.BoxMesh("b", v3.Vec{Z: 3}, v3.Vec{X: 10, Y: 10, Z: 4}),
		)
		rec, err := newAnalyzer().Analyze(t.Context(), Input{Name: "sandwich.stl", Format: FormatSTL, Content: asciiSTL(m)})
		require.NoError(t, err)
		assert.InDelta(t, 3, rec.MinWall.GlobalMinMM, 1e-4)
	})
}

func TestAnalyzeShape(t *testing.T) {
	res, err := engine.NewEngine().Evaluate(t.Context(), plateScript)
	require.NoError(t, err)
	require.True(t, res.OK(), "%v", res.Err())
	shape, err := tessellate.Topologize(res.Graph)
	require.NoError(t, err)
	doc, err := json.Marshal(shape)
	require.NoError(t, err)

	fromScript, err := newAnalyzer().AnalyzeScript(t.Context(), "plate.lisp", []byte(plateScript))
	require.NoError(t, err)
	rec, err := newAnalyzer().Analyze(t.Context(), Input{Name: "plate.json", Format: FormatShape, Content: doc})
	require.NoError(t, err)

	assert.Equal(t, LoaderShape, rec.Source.Loader)
	assert.Equal(t, Capabilities{Topology: true, Raycast: false}, rec.Capabilities)
	assert.Equal(t, fromScript.Holes, rec.Holes)
	assert.Equal(t, fromScript.Pockets, rec.Pockets)
	assert.Equal(t, minwall.Data{GlobalMinMM: 0, Samples: []minwall.Sample{}}, rec.MinWall)
	assert.Zero(t, rec.MassProps.VolumeMM3)
	assert.Positive(t, rec.MassProps.AreaMM2)
	assert.Equal(t, Stock{}, rec.Stock, "no bounds, no stock estimate")
}

func TestAnalyzeInputErrors(t *testing.T) {
	a := newAnalyzer()
	block := asciiSTL(kernel.BoxMesh("b", v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1}))

	tests := []struct {
		name   string
		in     Input
		target error
	}{
		{"unknown format", Input{Name: "x.step", Format: "step", Content: block}, ErrUnsupportedFormat},
		{"unknown units", Input{Name: "x.stl", Format: FormatSTL, Content: block, Units: "furlong"}, ErrUnknownUnits},
		{"malformed stl", Input{Name: "x.stl", Format: FormatSTL, Content: []byte("not a mesh")}, stl.ErrMalformed},
		{"malformed shape", Input{Name: "x.json", Format: FormatShape, Content: []byte(`{"faces": [{"id": 2}]}`)}, ErrShape},
		{"shape not json", Input{Name: "x.json", Format: FormatShape, Content: []byte("faces")}, ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(t.Context(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, IsInputError(err))
		})
	}
	assert.False(t, IsInputError(context.Canceled))
}

func TestScaleToMM(t *testing.T) {
	tests := []struct {
		hint string
		want float64
	}{
		{"", 1}, {"mm", 1}, {" MM ", 1}, {"cm", 10}, {"m", 1000}, {"in", 25.4}, {"Inches", 25.4}, {"ft", 304.8},
	}
	for _, tt := range tests {
		got, err := ScaleToMM(tt.hint)
		require.NoError(t, err, tt.hint)
		assert.Equal(t, tt.want, got, tt.hint)
	}
	_, err := ScaleToMM("parsec")
	assert.ErrorIs(t, err, ErrUnknownUnits)
}

func TestEstimateStock(t *testing.T) {
	b := BBox{Min: Point{X: -5, Y: 0, Z: 0}, Max: Point{X: 45.04, Y: 30, Z: 12}}
	assert.Equal(t, Stock{LengthMM: 70, WidthMM: 50, HeightMM: 27}, EstimateStock(b, 0))
	assert.Equal(t, Stock{LengthMM: 60, WidthMM: 40, ThicknessMM: 1.5}, EstimateStock(b, 1.52))
}

func TestGeometryData(t *testing.T) {
	through := features.HoleFeature{Kind: features.HoleThrough, DiameterMM: 6}
	blind := features.HoleFeature{Kind: features.HoleBlind, DiameterMM: 4}
	rec := &Record{
		BBox:      BBox{Max: Point{X: 100, Y: 60, Z: 20}},
		MassProps: MassProps{VolumeMM3: 110000, AreaMM2: 19000},
		Holes:     []features.HoleFeature{through, blind},
		Pockets:   []features.PocketFeature{{DepthMM: 8}},
		MinWall:   minwall.Data{GlobalMinMM: 0.8, Samples: []minwall.Sample{}},
	}

	g := GeometryData(rec)
	assert.Equal(t, 110.0, g.VolumeCM3)
	assert.Equal(t, 190.0, g.SurfaceAreaCM2)
	assert.Equal(t, map[string]float64{"x": 100, "y": 60, "z": 20}, g.BoundingBoxMM)
	assert.Equal(t, scoring.FeatureCounts{Holes: 2, Pockets: 1, ThinWalls: 1}, g.Features)
	assert.Equal(t, 5.0, g.AspectRatio)
	require.NotNil(t, g.WallThicknessMinMM)
	assert.Equal(t, 0.8, *g.WallThicknessMinMM)
	require.NotNil(t, g.SmallestFeatureMM)
	assert.Equal(t, 4.0, *g.SmallestFeatureMM)

	t.Run("nothing measured", func(t *testing.T) {
		g := GeometryData(&Record{})
		assert.Nil(t, g.WallThicknessMinMM)
		assert.Nil(t, g.SmallestFeatureMM)
		assert.Zero(t, g.AspectRatio)
		assert.Zero(t, g.Features.ThinWalls)
	})
}

func TestScriptToScore(t *testing.T) {
	rec, err := newAnalyzer().AnalyzeScript(t.Context(), "plate.lisp", []byte(plateScript))
	require.NoError(t, err)

	req := ScoreRequest(rec, scoring.ProcessCNCMilling,
		scoring.ToleranceData{GeneralTolerance: scoring.Tolerance100},
		scoring.MaterialData{MachinabilityIndex: 90, AvailabilityScore: 95},
		scoring.FinishData{FinishComplexity: scoring.FinishSimple},
		10,
	)
	require.NoError(t, req.Validate())
	assert.Equal(t, "6061-T6", req.Material.MaterialID)
	assert.Equal(t, 2, req.Geometry.Features.Holes)
	assert.Equal(t, 1, req.Geometry.Features.Pockets)
	assert.Equal(t, 5.0, req.Geometry.AspectRatio)
	require.NotNil(t, req.Geometry.SmallestFeatureMM)
	assert.InDelta(t, 6, *req.Geometry.SmallestFeatureMM, 1e-9)

	resp := scoring.New(scoring.DefaultPolicy()).Score(req)
	assert.Equal(t, scoring.GradeA, resp.Grade)
}

func TestRecordJSON(t *testing.T) {
	rec := &Record{
		Version: RecordVersion,
		Units:   "mm",
		Holes:   []features.HoleFeature{},
		Pockets: []features.PocketFeature{},
		MinWall: minwall.Data{Samples: []minwall.Sample{}},
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(b, &wire))
	for _, key := range []string{"version", "units", "bbox", "mass_props", "holes", "pockets", "min_wall", "stock", "source", "capabilities"} {
		assert.Contains(t, wire, key)
	}
	assert.NotContains(t, wire, "warnings")
	assert.NotContains(t, wire, "material")
	assert.Equal(t, map[string]any{"global_min_mm": 0.0, "samples": []any{}}, wire["min_wall"])
	assert.Equal(t, map[string]any{"topology": false, "raycast": false}, wire["capabilities"])
}
