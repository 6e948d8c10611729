package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid scoring request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Normalize trims identifiers and lower-cases enumerations.
func (r *ScoringRequest) Normalize() {
	if r == nil {
		return
	}
	r.ProcessType = ProcessType(strings.ToLower(strings.TrimSpace(string(r.ProcessType))))
	r.Tolerances.GeneralTolerance = GeneralTolerance(strings.TrimSpace(string(r.Tolerances.GeneralTolerance)))
	r.Material.MaterialID = strings.TrimSpace(r.Material.MaterialID)
	r.Finish.FinishComplexity = FinishComplexity(strings.ToLower(strings.TrimSpace(string(r.Finish.FinishComplexity))))
}

// Validate checks enumerations and ranges. It fails on the first problem.
func (r *ScoringRequest) Validate() error {
	if r == nil {
		return invalid("request is required")
	}

	// Enumerations
	if !r.ProcessType.IsValid() {
		return invalid("process_type %q is not supported", r.ProcessType)
	}
	if !r.Tolerances.GeneralTolerance.IsValid() {
		return invalid("general_tolerance %q is not supported", r.Tolerances.GeneralTolerance)
	}
	if !r.Finish.FinishComplexity.IsValid() {
		return invalid("finish_complexity %q is not supported", r.Finish.FinishComplexity)
	}

	// Counts
	f := r.Geometry.Features
	for _, c := range []struct {
		name string
		n    int
	}{
		{"features.holes", f.Holes},
		{"features.pockets", f.Pockets},
		{"features.slots", f.Slots},
		{"features.threads", f.Threads},
		{"features.undercuts", f.Undercuts},
		{"features.thin_walls", f.ThinWalls},
		{"tight_tolerance_count", r.Tolerances.TightToleranceCount},
	} {
		if c.n < 0 {
			return invalid("%s must not be negative", c.name)
		}
	}
	if r.Quantity < 1 {
		return invalid("quantity must be at least 1")
	}

	// Measurements
	for _, m := range []struct {
		name string
		v    float64
	}{
		{"volume_cm3", r.Geometry.VolumeCM3},
		{"surface_area_cm2", r.Geometry.SurfaceAreaCM2},
		{"aspect_ratio", r.Geometry.AspectRatio},
	} {
		if math.IsNaN(m.v) || math.IsInf(m.v, 0) || m.v < 0 {
			return invalid("%s must be a non-negative number", m.name)
		}
	}
	for k, v := range r.Geometry.BoundingBoxMM {
		if k != "x" && k != "y" && k != "z" {
			return invalid("bounding_box_mm has unknown axis %q", k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return invalid("bounding_box_mm.%s must be a non-negative number", k)
		}
	}

	// Indices
	if mi := r.Material.MachinabilityIndex; !(mi >= 0 && mi <= 100) {
		return invalid("machinability_index must be within [0, 100]")
	}
	if av := r.Material.AvailabilityScore; !(av >= 0 && av <= 100) {
		return invalid("availability_score must be within [0, 100]")
	}
	return nil
}
