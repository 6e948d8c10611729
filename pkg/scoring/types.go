package scoring

import "encoding/json"

// ProcessType is the manufacturing process a part is quoted for.
type ProcessType string

const (
	ProcessCNCMilling       ProcessType = "cnc_milling"
	ProcessCNCTurning       ProcessType = "cnc_turning"
	ProcessSheetMetal       ProcessType = "sheet_metal"
	ProcessInjectionMolding ProcessType = "injection_molding"
	ProcessAdditive         ProcessType = "additive"
)

func (p ProcessType) IsValid() bool {
	switch p {
	case ProcessCNCMilling, ProcessCNCTurning, ProcessSheetMetal, ProcessInjectionMolding, ProcessAdditive:
		return true
	}
	return false
}

// GeneralTolerance is the title-block tolerance band.
type GeneralTolerance string

const (
	Tolerance100 GeneralTolerance = "±0.1mm"
	Tolerance050 GeneralTolerance = "±0.05mm"
	Tolerance025 GeneralTolerance = "±0.025mm"
	Tolerance010 GeneralTolerance = "±0.01mm"
)

func (t GeneralTolerance) IsValid() bool {
	switch t {
	case Tolerance100, Tolerance050, Tolerance025, Tolerance010:
		return true
	}
	return false
}

// FinishComplexity grades how involved the finishing operations are.
type FinishComplexity string

const (
	FinishSimple   FinishComplexity = "simple"
	FinishModerate FinishComplexity = "moderate"
	FinishComplex  FinishComplexity = "complex"
)

func (c FinishComplexity) IsValid() bool {
	switch c {
	case FinishSimple, FinishModerate, FinishComplex:
		return true
	}
	return false
}

// FeatureCounts tallies recognised features by type.
type FeatureCounts struct {
	Holes     int `json:"holes"`
	Pockets   int `json:"pockets"`
	Slots     int `json:"slots"`
	Threads   int `json:"threads"`
	Undercuts int `json:"undercuts"`
	ThinWalls int `json:"thin_walls"`
}

// Total is the sum of all counts.
func (c FeatureCounts) Total() int {
	return c.Holes + c.Pockets + c.Slots + c.Threads + c.Undercuts + c.ThinWalls
}

// GeometryData describes the part's shape. BoundingBoxMM is keyed by
// "x", "y" and "z"; a missing axis counts as 100 mm.
type GeometryData struct {
	VolumeCM3          float64            `json:"volume_cm3"`
	SurfaceAreaCM2     float64            `json:"surface_area_cm2"`
	BoundingBoxMM      map[string]float64 `json:"bounding_box_mm"`
	Features           FeatureCounts      `json:"features"`
	AspectRatio        float64            `json:"aspect_ratio"`
	WallThicknessMinMM *float64           `json:"wall_thickness_min_mm,omitempty"`
	SmallestFeatureMM  *float64           `json:"smallest_feature_mm,omitempty"`
}

// ToleranceData describes the drawing's tolerancing.
type ToleranceData struct {
	GeneralTolerance    GeneralTolerance `json:"general_tolerance"`
	TightToleranceCount int              `json:"tight_tolerance_count"`
	GeometricTolerances []string         `json:"geometric_tolerances"`
	// SurfaceFinishRa is in micrometres.
	SurfaceFinishRa *float64 `json:"surface_finish_ra,omitempty"`
}

// MaterialData describes the stock material. Indices run 0 to 100.
type MaterialData struct {
	MaterialID         string   `json:"material_id"`
	MachinabilityIndex float64  `json:"machinability_index"`
	HardnessHB         *float64 `json:"hardness_hb,omitempty"`
	AvailabilityScore  float64  `json:"availability_score"`
}

// UnmarshalJSON defaults an absent availability score to 100.
func (m *MaterialData) UnmarshalJSON(b []byte) error {
	type plain MaterialData
	v := plain{AvailabilityScore: 100}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = MaterialData(v)
	return nil
}

// FinishData describes post-machining finishes.
type FinishData struct {
	FinishIDs        []string         `json:"finish_ids"`
	FinishComplexity FinishComplexity `json:"finish_complexity"`
	MaskingRequired  bool             `json:"masking_required"`
}

// UnmarshalJSON defaults an absent complexity to simple.
func (f *FinishData) UnmarshalJSON(b []byte) error {
	type plain FinishData
	v := plain{FinishComplexity: FinishSimple}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FinishData(v)
	return nil
}

// ScoringRequest is everything the scorer looks at.
type ScoringRequest struct {
	ProcessType ProcessType   `json:"process_type"`
	Geometry    GeometryData  `json:"geometry"`
	Tolerances  ToleranceData `json:"tolerances"`
	Material    MaterialData  `json:"material"`
	Finish      FinishData    `json:"finish"`
	Quantity    int           `json:"quantity"`
}

// UnmarshalJSON defaults an absent quantity to 1.
func (r *ScoringRequest) UnmarshalJSON(b []byte) error {
	type plain ScoringRequest
	v := plain{
		Quantity: 1,
		Material: MaterialData{AvailabilityScore: 100},
		Finish:   FinishData{FinishComplexity: FinishSimple},
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = ScoringRequest(v)
	return nil
}

// Category names a scoring category.
type Category string

const (
	CategoryGeometry   Category = "Geometry"
	CategoryTolerances Category = "Tolerances"
	CategoryMaterial   Category = "Material"
	CategoryFinish     Category = "Finish"
	CategoryComplexity Category = "Complexity"
)

// Categories lists the categories in response order.
var Categories = []Category{
	CategoryGeometry,
	CategoryTolerances,
	CategoryMaterial,
	CategoryFinish,
	CategoryComplexity,
}

// CategoryScore is one category's share of the total.
type CategoryScore struct {
	Category   Category `json:"category"`
	Score      int      `json:"score"`
	MaxPoints  int      `json:"max_points"`
	Percentage float64  `json:"percentage"`
	Issues     []string `json:"issues"`
	Strengths  []string `json:"strengths"`
}

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// rank orders impacts for sorting; unknown impacts sort last.
func (i Impact) rank() int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	}
	return 0
}

type Effort string

const (
	EffortEasy      Effort = "easy"
	EffortModerate  Effort = "moderate"
	EffortDifficult Effort = "difficult"
)

// Recommendation is one suggested design change.
type Recommendation struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Impact              Impact   `json:"impact"`
	Category            Category `json:"category"`
	SavingsPotentialPct float64  `json:"savings_potential_pct"`
	Effort              Effort   `json:"effort"`
	Action              string   `json:"action"`
}

// Metadata echoes request context alongside the result.
type Metadata struct {
	ProcessType       ProcessType `json:"process_type"`
	Quantity          int         `json:"quantity"`
	CalculationTimeMS float64     `json:"calculation_time_ms"`
}

// ScoringResponse is the scorer's output.
type ScoringResponse struct {
	TotalScore      int              `json:"total_score"`
	Grade           Grade            `json:"grade"`
	CategoryScores  []CategoryScore  `json:"category_scores"`
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        Metadata         `json:"metadata"`
}
