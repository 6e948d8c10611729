// Package minwall estimates the minimum wall thickness of a triangle mesh
// by casting ray pairs from points sampled over its surface.
//
// Each sample casts one ray along the triangle normal and one against it,
// both from points nudged off the surface by Epsilon, and records the sum
// of the two first-hit distances. Samples where either ray escapes are
// discarded. The estimate is the smallest finite sum.
package minwall

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// chunkSize is the number of samples one worker task evaluates.
const chunkSize = 256

// Options controls sampling.
type Options struct {
	Samples     int     `yaml:"samples" json:"samples"`
	Epsilon     float64 `yaml:"epsilon" json:"epsilon"`
	ThresholdMM float64 `yaml:"threshold_mm" json:"threshold_mm"`
	MaxSamples  int     `yaml:"max_samples" json:"max_samples"`
	Seed        uint64  `yaml:"seed" json:"seed"`
	// Workers bounds concurrent ray casting. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
}

// DefaultOptions returns the standard sampling parameters.
func DefaultOptions() Options {
	return Options{
		Samples:     5000,
		Epsilon:     1e-6,
		ThresholdMM: 1.0,
		MaxSamples:  50,
		Seed:        1,
	}
}

// Sample is one thin-spot measurement.
type Sample struct {
	Position    [3]float64 `json:"position"`
	ThicknessMM float64    `json:"thickness_mm"`
}

// Data is the wire form of an estimate. GlobalMinMM is 0 with no samples
// when nothing could be measured, which is not the same as zero thickness.
type Data struct {
	GlobalMinMM float64  `json:"global_min_mm"`
	Samples     []Sample `json:"samples"`
}

// Result is an estimate plus bookkeeping. Available is false when the mesh
// or the ray caster was missing.
type Result struct {
	Data
	Available bool
	Drawn     int // samples drawn from the surface
	Valid     int // samples with a finite thickness
}

// surfacePoint is a sampled point with the normal of its triangle.
type surfacePoint struct {
	p, n v3.Vec
}

// Estimate measures mesh with rc. Results are identical for any worker
// count. The only error is ctx's.
func Estimate(ctx context.Context, mesh *kernel.Mesh, rc kernel.RayCaster, opts Options) (Result, error) {
	empty := Data{Samples: []Sample{}}
	if mesh.IsEmpty() || rc == nil {
		return Result{Data: empty}, nil
	}

	points := sampleSurface(mesh, opts.Samples, opts.Seed)
	res := Result{Data: empty, Available: true, Drawn: len(points)}
	if len(points) == 0 {
		return res, nil
	}

	thickness := make([]float64, len(points))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(points); start += chunkSize {
		end := min(start+chunkSize, len(points))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				thickness[i] = measure(rc, points[i], opts.Epsilon)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	// Reduce in sample order.
	globalMin := math.Inf(1)
	for _, t := range thickness {
		if valid(t) {
			res.Valid++
			globalMin = math.Min(globalMin, t)
		}
	}
	if res.Valid == 0 {
		return res, nil
	}
	res.GlobalMinMM = globalMin

	limit := math.Max(opts.ThresholdMM, globalMin)
	for i, t := range thickness {
		if len(res.Samples) >= opts.MaxSamples {
			break
		}
		if valid(t) && t <= limit {
			p := points[i].p
			res.Samples = append(res.Samples, Sample{Position: [3]float64{p.X, p.Y, p.Z}, ThicknessMM: t})
		}
	}
	return res, nil
}

// measure returns the forward plus backward hit distance at sp, or NaN.
func measure(rc kernel.RayCaster, sp surfacePoint, eps float64) float64 {
	off := sp.n.MulScalar(eps)
	fwd, ok := rc.FirstHit(sp.p.Add(off), sp.n)
	if !ok {
		return math.NaN()
	}
	back, ok := rc.FirstHit(sp.p.Sub(off), sp.n.Neg())
	if !ok {
		return math.NaN()
	}
	return fwd + back
}

func valid(t float64) bool {
	return t >= 0 && !math.IsInf(t, 0)
}

// sampleSurface draws n points uniformly by area. Degenerate triangles have
// zero weight. The draw depends only on the mesh, n and seed.
func sampleSurface(mesh *kernel.Mesh, n int, seed uint64) []surfacePoint {
	if n <= 0 {
		return nil
	}
	tris := mesh.TriangleCount()
	cum := make([]float64, tris)
	normals := make([]v3.Vec, tris)
	total := 0.0
	for t := 0; t < tris; t++ {
		nrm, area := mesh.FaceNormal(t)
		if !(area > 0) || math.IsInf(area, 0) {
			area = 0
		}
		total += area
		cum[t] = total
		normals[t] = nrm
	}
	if !(total > 0) {
		return nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]surfacePoint, n)
	for i := range out {
		r := rng.Float64() * total
		t := sort.SearchFloat64s(cum, r)
		// r == 0 can select a leading degenerate triangle.
		for t < tris-1 && normals[t] == (v3.Vec{}) {
			t++
		}
		u, v := rng.Float64(), rng.Float64()
		if u+v > 1 {
			u, v = 1-u, 1-v
		}
		tri := mesh.Triangle(t)
		p := tri[0].Add(tri[1].Sub(tri[0]).MulScalar(u)).Add(tri[2].Sub(tri[0]).MulScalar(v))
		out[i] = surfacePoint{p: p, n: normals[t]}
	}
	return out
}
