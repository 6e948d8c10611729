package scoring

import (
	"cmp"
	"fmt"
	"slices"
)

// rule is one row of the recommendation table. It fires when its category
// scored at or below the policy threshold and applies holds for the request.
type rule struct {
	category Category
	title    string
	impact   Impact
	savings  float64
	effort   Effort
	action   string
	applies  func(ScoringRequest) bool
	describe func(ScoringRequest) string
}

var rules = []rule{
	{
		category: CategoryGeometry,
		title:    "Eliminate Undercuts",
		impact:   ImpactHigh,
		savings:  15,
		effort:   EffortModerate,
		action:   "Redesign to avoid undercuts or use insert/assembly",
		applies:  func(r ScoringRequest) bool { return r.Geometry.Features.Undercuts > 0 },
		describe: func(r ScoringRequest) string {
			return fmt.Sprintf("Remove %d undercut(s) to simplify machining and reduce cost", r.Geometry.Features.Undercuts)
		},
	},
	{
		category: CategoryGeometry,
		title:    "Increase Wall Thickness",
		impact:   ImpactHigh,
		savings:  10,
		effort:   EffortEasy,
		action:   "Increase wall thickness to ≥2mm",
		applies:  func(r ScoringRequest) bool { return r.Geometry.Features.ThinWalls > 0 },
		describe: func(r ScoringRequest) string {
			return fmt.Sprintf("Thicken %d thin wall(s) to improve stability", r.Geometry.Features.ThinWalls)
		},
	},
	{
		category: CategoryTolerances,
		title:    "Relax General Tolerance",
		impact:   ImpactHigh,
		savings:  20,
		effort:   EffortEasy,
		action:   "Update drawing tolerance block",
		applies: func(r ScoringRequest) bool {
			t := r.Tolerances.GeneralTolerance
			return t == Tolerance025 || t == Tolerance010
		},
		describe: func(r ScoringRequest) string {
			return fmt.Sprintf("Change general tolerance from %s to %s", r.Tolerances.GeneralTolerance, Tolerance100)
		},
	},
	{
		category: CategoryTolerances,
		title:    "Reduce Tight Tolerances",
		impact:   ImpactMedium,
		savings:  12,
		effort:   EffortModerate,
		action:   "Relax non-critical tolerances",
		applies:  func(r ScoringRequest) bool { return r.Tolerances.TightToleranceCount > 5 },
		describe: func(r ScoringRequest) string {
			return fmt.Sprintf("Review %d tight tolerances - apply only where functionally required", r.Tolerances.TightToleranceCount)
		},
	},
	{
		category: CategoryMaterial,
		title:    "Switch to More Machinable Material",
		impact:   ImpactHigh,
		savings:  25,
		effort:   EffortModerate,
		action:   "Evaluate 6061-T6 Aluminum or 1018 Steel alternatives",
		applies:  func(r ScoringRequest) bool { return r.Material.MachinabilityIndex < 50 },
		describe: func(ScoringRequest) string {
			return "Consider alternative materials with higher machinability"
		},
	},
	{
		category: CategoryFinish,
		title:    "Simplify Finish Operations",
		impact:   ImpactMedium,
		savings:  15,
		effort:   EffortEasy,
		action:   "Consolidate to single finish type",
		applies:  func(r ScoringRequest) bool { return len(r.Finish.FinishIDs) > 2 },
		describe: func(r ScoringRequest) string {
			return fmt.Sprintf("Reduce from %d finishes to 1-2 standard finishes", len(r.Finish.FinishIDs))
		},
	},
	{
		category: CategoryFinish,
		title:    "Eliminate Masking",
		impact:   ImpactLow,
		savings:  5,
		effort:   EffortEasy,
		action:   "Allow finish on all surfaces or move critical surfaces to post-finish machining",
		applies:  func(r ScoringRequest) bool { return r.Finish.MaskingRequired },
		describe: func(ScoringRequest) string {
			return "Remove masking requirements to cut manual finishing labor"
		},
	},
	{
		category: CategoryComplexity,
		title:    "Consolidate Order Quantity",
		impact:   ImpactLow,
		savings:  8,
		effort:   EffortEasy,
		action:   "Combine orders or quote a larger batch",
		applies:  func(r ScoringRequest) bool { return r.Quantity < 5 },
		describe: func(r ScoringRequest) string {
			return fmt.Sprintf("Order quantity of %d spreads setup cost over few parts", r.Quantity)
		},
	},
}

// recommend evaluates the rule table against the scored categories and
// returns the highest-ranked recommendations.
func (s *Scorer) recommend(cats []CategoryScore, req ScoringRequest) []Recommendation {
	score := make(map[Category]int, len(cats))
	for _, c := range cats {
		score[c.Category] = c.Score
	}

	recs := []Recommendation{}
	for _, r := range rules {
		if score[r.category] > s.policy.For(r.category).RecommendAt || !r.applies(req) {
			continue
		}
		recs = append(recs, Recommendation{
			ID:                  fmt.Sprintf("rec-%d", len(recs)+1),
			Title:               r.title,
			Description:         r.describe(req),
			Impact:              r.impact,
			Category:            r.category,
			SavingsPotentialPct: r.savings,
			Effort:              r.effort,
			Action:              r.action,
		})
	}

	rank(recs)
	if len(recs) > s.policy.MaxRecommendations {
		recs = recs[:s.policy.MaxRecommendations]
	}
	return recs
}

// rank orders recommendations by impact, then savings, both descending.
// Ties keep generation order.
func rank(recs []Recommendation) {
	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		if c := cmp.Compare(b.Impact.rank(), a.Impact.rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.SavingsPotentialPct, a.SavingsPotentialPct)
	})
}
