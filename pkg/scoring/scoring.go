// Package scoring turns part, tolerance, material and finish data into a
// 0 to 100 manufacturability score with ranked recommendations.
//
// Scoring is pure rule evaluation: no I/O, and the same request always
// yields the same scores. Each category starts at its maximum and loses
// fixed deductions; the result is clamped to [0, max]. Requests are not
// validated here; callers at the boundary use ScoringRequest.Validate.
package scoring

import (
	"fmt"
	"time"
)

// CategoryPolicy sets a category's weight and the score at or below which
// its recommendations fire.
type CategoryPolicy struct {
	MaxPoints   int `yaml:"max_points" json:"max_points"`
	RecommendAt int `yaml:"recommend_at" json:"recommend_at"`
}

// Policy holds the per-category constants.
type Policy struct {
	Geometry   CategoryPolicy `yaml:"geometry" json:"geometry"`
	Tolerances CategoryPolicy `yaml:"tolerances" json:"tolerances"`
	Material   CategoryPolicy `yaml:"material" json:"material"`
	Finish     CategoryPolicy `yaml:"finish" json:"finish"`
	Complexity CategoryPolicy `yaml:"complexity" json:"complexity"`
	// MaxRecommendations caps the ranked list.
	MaxRecommendations int `yaml:"max_recommendations" json:"max_recommendations"`
}

// DefaultPolicy returns the standard 30/25/20/15/10 weighting.
func DefaultPolicy() Policy {
	return Policy{
		Geometry:           CategoryPolicy{MaxPoints: 30, RecommendAt: 20},
		Tolerances:         CategoryPolicy{MaxPoints: 25, RecommendAt: 15},
		Material:           CategoryPolicy{MaxPoints: 20, RecommendAt: 12},
		Finish:             CategoryPolicy{MaxPoints: 15, RecommendAt: 10},
		Complexity:         CategoryPolicy{MaxPoints: 10, RecommendAt: 7},
		MaxRecommendations: 5,
	}
}

// For returns the policy of category c.
func (p Policy) For(c Category) CategoryPolicy {
	switch c {
	case CategoryGeometry:
		return p.Geometry
	case CategoryTolerances:
		return p.Tolerances
	case CategoryMaterial:
		return p.Material
	case CategoryFinish:
		return p.Finish
	case CategoryComplexity:
		return p.Complexity
	}
	return CategoryPolicy{}
}

// Validate checks that weights are positive and sum to 100.
func (p Policy) Validate() error {
	total := 0
	for _, c := range Categories {
		cp := p.For(c)
		if cp.MaxPoints <= 0 {
			return fmt.Errorf("scoring: %s max_points must be positive", c)
		}
		if cp.RecommendAt < 0 || cp.RecommendAt > cp.MaxPoints {
			return fmt.Errorf("scoring: %s recommend_at must be within [0, %d]", c, cp.MaxPoints)
		}
		total += cp.MaxPoints
	}
	if total != 100 {
		return fmt.Errorf("scoring: category max_points sum to %d, want 100", total)
	}
	if p.MaxRecommendations < 0 {
		return fmt.Errorf("scoring: max_recommendations must not be negative")
	}
	return nil
}

// Scorer evaluates requests under a Policy.
type Scorer struct {
	policy Policy
	now    func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock sets the clock used to time calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// New returns a Scorer for policy.
func New(policy Policy, opts ...Option) *Scorer {
	s := &Scorer{policy: policy, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Policy returns the scorer's policy.
func (s *Scorer) Policy() Policy { return s.policy }

// Score evaluates req.
func (s *Scorer) Score(req ScoringRequest) ScoringResponse {
	start := s.now()

	cats := []CategoryScore{
		s.category(CategoryGeometry, scoreGeometry(req.Geometry)),
		s.category(CategoryTolerances, scoreTolerances(req.Tolerances)),
		s.category(CategoryMaterial, scoreMaterial(req.Material)),
		s.category(CategoryFinish, scoreFinish(req.Finish)),
		s.category(CategoryComplexity, scoreComplexity(req.Geometry, req.Quantity)),
	}
	total := 0
	for _, c := range cats {
		total += c.Score
	}

	return ScoringResponse{
		TotalScore:      total,
		Grade:           AssignGrade(total),
		CategoryScores:  cats,
		Recommendations: s.recommend(cats, req),
		Metadata: Metadata{
			ProcessType:       req.ProcessType,
			Quantity:          req.Quantity,
			CalculationTimeMS: float64(s.now().Sub(start).Microseconds()) / 1000,
		},
	}
}

// AssignGrade maps a total score onto the letter ladder.
func AssignGrade(total int) Grade {
	switch {
	case total >= 90:
		return GradeA
	case total >= 80:
		return GradeB
	case total >= 70:
		return GradeC
	case total >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// assessment is a category's raw deductions and findings.
type assessment struct {
	deduction int
	issues    []string
	strengths []string
}

func (a *assessment) deduct(points int, issue string) {
	a.deduction += points
	if issue != "" {
		a.issues = append(a.issues, issue)
	}
}

func (a *assessment) strength(s string) {
	a.strengths = append(a.strengths, s)
}

// category clamps an assessment against the policy maximum.
func (s *Scorer) category(c Category, a assessment) CategoryScore {
	maxPoints := s.policy.For(c).MaxPoints
	score := min(max(maxPoints-a.deduction, 0), maxPoints)
	cs := CategoryScore{
		Category:  c,
		Score:     score,
		MaxPoints: maxPoints,
		Issues:    a.issues,
		Strengths: a.strengths,
	}
	if cs.Issues == nil {
		cs.Issues = []string{}
	}
	if cs.Strengths == nil {
		cs.Strengths = []string{}
	}
	if maxPoints > 0 {
		cs.Percentage = float64(score) / float64(maxPoints) * 100
	}
	return cs
}

func scoreGeometry(g GeometryData) assessment {
	var a assessment

	switch total := g.Features.Total(); {
	case total > 20:
		a.deduct(5, "High feature count (>20) increases cycle time")
	case total < 10:
		a.strength("Moderate feature count for efficient machining")
	}
	if n := g.Features.Undercuts; n > 0 {
		a.deduct(3, fmt.Sprintf("%d undercut(s) require special tooling", n))
	}
	if n := g.Features.ThinWalls; n > 0 {
		a.deduct(4, fmt.Sprintf("%d thin wall(s) risk vibration/deflection", n))
	}

	switch {
	case g.AspectRatio > 5:
		a.deduct(3, "High aspect ratio may require special fixturing")
	case g.AspectRatio < 3:
		a.strength("Low aspect ratio for stable machining")
	}

	if w, ok := given(g.WallThicknessMinMM); ok && w < 1.0 {
		a.deduct(4, fmt.Sprintf("Thin wall (%.1fmm) difficult to machine", w))
	}
	if f, ok := given(g.SmallestFeatureMM); ok && f < 0.5 {
		a.deduct(3, fmt.Sprintf("Very small feature (%.1fmm) requires micro tooling", f))
	}
	if g.Features.Threads > 10 {
		a.deduct(2, "High thread count increases cycle time")
	}
	return a
}

// tolerancePenalty is the deduction per general tolerance band.
var tolerancePenalty = map[GeneralTolerance]int{
	Tolerance100: 0,
	Tolerance050: 2,
	Tolerance025: 5,
	Tolerance010: 8,
}

func scoreTolerances(t ToleranceData) assessment {
	var a assessment

	switch penalty := tolerancePenalty[t.GeneralTolerance]; {
	case penalty > 3:
		a.deduct(penalty, fmt.Sprintf("Tight general tolerance (%s) increases cost", t.GeneralTolerance))
	case penalty == 0:
		a.strength("Standard tolerance for cost-effective manufacturing")
	default:
		a.deduct(penalty, "")
	}

	switch n := t.TightToleranceCount; {
	case n > 5:
		a.deduct(5, fmt.Sprintf("%d tight tolerances require precise setup", n))
	case n > 0:
		a.deduct(2, fmt.Sprintf("%d tight tolerance(s)", n))
	}

	switch n := len(t.GeometricTolerances); {
	case n > 3:
		a.deduct(4, fmt.Sprintf("%d geometric tolerances require CMM inspection", n))
	case n > 0:
		a.deduct(1, "")
	}

	if ra, ok := given(t.SurfaceFinishRa); ok {
		switch {
		case ra < 0.4:
			a.deduct(6, fmt.Sprintf("Very fine surface finish (Ra %gμm) requires grinding", ra))
		case ra < 1.6:
			a.deduct(2, fmt.Sprintf("Fine surface finish (Ra %gμm) requires multiple passes", ra))
		default:
			a.strength("Standard surface finish achievable with normal machining")
		}
	}
	return a
}

func scoreMaterial(m MaterialData) assessment {
	var a assessment

	switch mi := m.MachinabilityIndex; {
	case mi < 30:
		a.deduct(8, "Very difficult to machine (low machinability)")
	case mi < 50:
		a.deduct(4, "Moderately difficult to machine")
	case mi > 80:
		a.strength("Excellent machinability for fast cycle times")
	}

	if hb, ok := given(m.HardnessHB); ok {
		switch {
		case hb > 400:
			a.deduct(6, fmt.Sprintf("Very hard material (HB %g) requires carbide tooling", hb))
		case hb > 250:
			a.deduct(2, fmt.Sprintf("Hard material (HB %g) increases tool wear", hb))
		}
	}

	switch {
	case m.AvailabilityScore < 50:
		a.deduct(3, "Limited material availability may increase lead time")
	case m.AvailabilityScore > 90:
		a.strength("Excellent material availability")
	}
	return a
}

func scoreFinish(f FinishData) assessment {
	var a assessment

	switch n := len(f.FinishIDs); {
	case n > 2:
		a.deduct(5, fmt.Sprintf("%d finishes increase complexity and lead time", n))
	case n == 0:
		a.strength("No additional finish operations required")
	}

	switch f.FinishComplexity {
	case FinishComplex:
		a.deduct(4, "Complex finish operations increase cost")
	case FinishModerate:
		a.deduct(2, "")
	}

	if f.MaskingRequired {
		a.deduct(3, "Masking required adds labor time")
	}
	return a
}

// defaultAxisMM stands in for a bounding box axis that was not supplied.
const defaultAxisMM = 100.0

func scoreComplexity(g GeometryData, quantity int) assessment {
	var a assessment

	if g.VolumeCM3 > 0 && g.SurfaceAreaCM2 > 0 && g.SurfaceAreaCM2/g.VolumeCM3 > 10 {
		a.deduct(3, "High surface-to-volume ratio indicates complexity")
	}

	bboxCM3 := axis(g.BoundingBoxMM, "x") * axis(g.BoundingBoxMM, "y") * axis(g.BoundingBoxMM, "z") / 1000
	switch {
	case bboxCM3 > 10000:
		a.deduct(2, "Large part size requires larger machines")
	case bboxCM3 < 1:
		a.deduct(2, "Very small part requires precise handling")
	}

	switch {
	case quantity < 5:
		a.deduct(2, "Low quantity (no economies of scale)")
	case quantity > 100:
		a.strength("High quantity benefits from economies of scale")
	}
	return a
}

func axis(bbox map[string]float64, k string) float64 {
	if v, ok := bbox[k]; ok {
		return v
	}
	return defaultAxisMM
}

// given reports an optional measurement that was supplied and positive.
func given(v *float64) (float64, bool) {
	if v == nil || !(*v > 0) {
		return 0, false
	}
	return *v, true
}
