// Package analysis runs the feature pipeline for one part. A part script is
// evaluated into a design graph, meshed and given an analytic boundary
// representation; an STL file only yields a mesh, and a B-rep shape
// document only yields topology. Every path ends in a Record carrying
// holes, pockets, minimum wall thickness and mass properties. Capabilities
// a source cannot supply are reported as unavailable rather than failing
// the analysis.
package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/dfm/pkg/engine"
	"github.com/chazu/dfm/pkg/features"
	"github.com/chazu/dfm/pkg/kernel"
	"github.com/chazu/dfm/pkg/kernel/brep"
	"github.com/chazu/dfm/pkg/kernel/raycast"
	"github.com/chazu/dfm/pkg/kernel/sdfx"
	"github.com/chazu/dfm/pkg/kernel/stl"
	"github.com/chazu/dfm/pkg/minwall"
	"github.com/chazu/dfm/pkg/tessellate"
)

// Format names an input encoding.
type Format string

const (
	FormatScript Format = "lisp"
	FormatSTL    Format = "stl"
	FormatShape  Format = "brep"
)

// Loader names recorded in Source.Loader.
const (
	LoaderScript = "part-script"
	LoaderSTL    = "stl"
	LoaderShape  = "brep-json"
)

var (
	// ErrUnsupportedFormat is returned for an unknown Input.Format.
	ErrUnsupportedFormat = errors.New("analysis: unsupported format")
	// ErrScript is returned when a part script fails to evaluate.
	ErrScript = errors.New("analysis: script rejected")
	// ErrShape is returned when a shape document cannot be decoded.
	ErrShape = errors.New("analysis: malformed shape document")
)

// IsInputError reports whether err was caused by the submitted part rather
// than by the service.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrUnsupportedFormat,
		ErrScript,
		ErrShape,
		ErrUnknownUnits,
		stl.ErrMalformed,
		engine.ErrTimeout,
		engine.ErrPanic,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Input is one part to analyze. Units applies to STL content only; part
// scripts are always in millimetres and shape documents carry their own
// unit scale.
type Input struct {
	Name    string
	Format  Format
	Content []byte
	Units   string
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Analyzer runs analyses. It holds no per-part state and is safe for
// concurrent use.
type Analyzer struct {
	engine     *engine.Engine
	kernel     kernel.Kernel
	thresholds features.Thresholds
	minWall    minwall.Options
	logger     *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithEngine sets the part-script engine.
func WithEngine(e *engine.Engine) Option {
	return func(a *Analyzer) { a.engine = e }
}

// WithKernel sets the solid-modeling kernel used to mesh part scripts.
func WithKernel(k kernel.Kernel) Option {
	return func(a *Analyzer) { a.kernel = k }
}

// WithThresholds sets the feature classification cut-offs.
func WithThresholds(th features.Thresholds) Option {
	return func(a *Analyzer) { a.thresholds = th }
}

// WithMinWall sets the wall-thickness sampling options.
func WithMinWall(o minwall.Options) Option {
	return func(a *Analyzer) { a.minWall = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New returns an Analyzer with default thresholds, sampling and an sdfx
// kernel.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		engine:     engine.NewEngine(),
		kernel:     sdfx.New(),
		thresholds: features.DefaultThresholds(),
		minWall:    minwall.DefaultOptions(),
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze dispatches on in.Format.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Record, error) {
	switch in.Format {
	case FormatScript:
		return a.AnalyzeScript(ctx, in.Name, in.Content)
	case FormatSTL:
		return a.AnalyzeMesh(ctx, in.Name, in.Content, in.Units)
	case FormatShape:
		return a.AnalyzeShape(ctx, in.Name, in.Content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, in.Format)
	}
}

// AnalyzeScript evaluates a part script and analyzes the resulting part
// with full topology and ray-cast capabilities.
func (a *Analyzer) AnalyzeScript(ctx context.Context, name string, src []byte) (*Record, error) {
	start := time.Now()

	res, err := a.engine.Evaluate(ctx, string(src))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", name, err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: %s: %v", ErrScript, name, res.Err())
	}
	g := res.Graph

	mesh, err := tessellate.Tessellate(g, a.kernel)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	shape, err := tessellate.Topologize(g)
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", name, err)
	}

	rec := &Record{
		Source: Source{Loader: LoaderScript, Name: name, ContentHash: ContentHash(src)},
	}
	if _, sd, ok := g.Stock(); ok {
		d := sd.Dimensions
		rec.BBox = BBox{Max: Point{X: d.X, Y: d.Y, Z: d.Z}}
		rec.Material = sd.Material
	}
	for _, w := range res.Warnings {
		rec.Warnings = append(rec.Warnings, w.Message)
	}

	if err := a.fill(ctx, rec, shape, mesh); err != nil {
		return nil, err
	}
	a.logDone(ctx, rec, start)
	return rec, nil
}

// AnalyzeMesh reads an STL document and analyzes it. Meshes carry no
// topology, so holes and pockets are reported unavailable. units is the
// length unit of the file; vertices are converted to millimetres.
func (a *Analyzer) AnalyzeMesh(ctx context.Context, name string, data []byte, units string) (*Record, error) {
	start := time.Now()

	scale, err := ScaleToMM(units)
	if err != nil {
		return nil, err
	}
	mesh, err := stl.Parse(data, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if scale != 1 {
		mesh = mesh.Scaled(scale)
	}

	rec := &Record{
		Source: Source{Loader: LoaderSTL, Name: name, ContentHash: ContentHash(data)},
	}
	lo, hi := mesh.Bounds()
	rec.BBox = BBox{Min: pointOf(lo), Max: pointOf(hi)}

	if err := a.fill(ctx, rec, nil, mesh); err != nil {
		return nil, err
	}
	a.logDone(ctx, rec, start)
	return rec, nil
}

// AnalyzeShape reads a B-rep shape document (see brep.Document) exported
// by an external kernel. Shapes carry no triangles, so the wall estimate and
// the volume are unavailable.
func (a *Analyzer) AnalyzeShape(ctx context.Context, name string, data []byte) (*Record, error) {
	start := time.Now()

	shape, err := brep.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrShape, name, err)
	}

	rec := &Record{
		Source: Source{Loader: LoaderShape, Name: name, ContentHash: ContentHash(data)},
	}
	if err := a.fill(ctx, rec, shape, nil); err != nil {
		return nil, err
	}
	a.logDone(ctx, rec, start)
	return rec, nil
}

// fill runs the extractors and the wall estimator. A nil topo leaves holes
// and pockets unavailable.
func (a *Analyzer) fill(ctx context.Context, rec *Record, topo kernel.Topology, mesh *kernel.Mesh) error {
	rec.Version = RecordVersion
	rec.Units = "mm"
	switch {
	case !mesh.IsEmpty():
		rec.MassProps = MassProps{VolumeMM3: mesh.Volume(), AreaMM2: mesh.SurfaceArea()}
	case topo != nil:
		rec.MassProps = MassProps{AreaMM2: faceArea(topo)}
	}
	if s := rec.BBox.Size(); s.X > 0 || s.Y > 0 || s.Z > 0 {
		rec.Stock = EstimateStock(rec.BBox, 0)
	}

	var holes features.Result[features.HoleFeature]
	var pockets features.Result[features.PocketFeature]
	if topo != nil {
		idx := features.NewAdjacencyIndex(topo)
		holes = features.ExtractHoles(topo, idx, a.thresholds)
		pockets = features.ExtractPockets(topo, idx, a.thresholds)
	}
	rec.Holes = nonNil(holes.Items)
	rec.Pockets = nonNil(pockets.Items)

	var rc kernel.RayCaster
	if !mesh.IsEmpty() {
		rc = raycast.New(mesh)
	}
	mw, err := minwall.Estimate(ctx, mesh, rc, a.minWall)
	if err != nil {
		return fmt.Errorf("min wall %s: %w", rec.Source.Name, err)
	}
	rec.MinWall = mw.Data

	rec.Capabilities = Capabilities{
		Topology: holes.Available && pockets.Available,
		Raycast:  mw.Available,
	}
	return nil
}

func (a *Analyzer) logDone(ctx context.Context, rec *Record, start time.Time) {
	status := "complete"
	if rec.Partial() {
		status = "partial"
	}
	a.logger.InfoContext(ctx, "part analyzed",
		"name", rec.Source.Name,
		"loader", rec.Source.Loader,
		"status", status,
		"holes", len(rec.Holes),
		"pockets", len(rec.Pockets),
		"min_wall_mm", rec.MinWall.GlobalMinMM,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// faceArea sums the face areas of topo in mm².
func faceArea(topo kernel.Topology) float64 {
	scale := topo.UnitScale()
	if !(scale > 0) {
		scale = 1
	}
	var area float64
	for _, f := range topo.Faces() {
		if a, err := topo.SurfaceArea(f); err == nil && a > 0 {
			area += a
		}
	}
	return area * scale * scale
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
