package proximity

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// RadiusStep records the coverage at one rung of the search ladder.
type RadiusStep struct {
	RadiusKM    float64                `json:"radius_km"`
	Counts      map[model.Category]int `json:"counts"`
	TargetsMet  int                    `json:"targets_met"`
	CoveragePct float64                `json:"coverage_pct"`
}

// RadiusSearch is the result of an optimal-radius ladder search.
type RadiusSearch struct {
	Location        geo.Point              `json:"location"`
	Targets         map[model.Category]int `json:"targets"`
	BestRadiusKM    float64                `json:"best_radius_km"`
	BestTargetsMet  int                    `json:"best_targets_met"`
	BestCoveragePct float64                `json:"best_coverage_pct"`
	Steps           []RadiusStep           `json:"steps"`
	Recommendations []string               `json:"recommendations"`
}

// OptimalRadius walks an ascending radius ladder and reports the smallest
// radius meeting the most category targets. Ties go to the smaller radius.
func (s *Service) OptimalRadius(ctx context.Context, origin geo.Point, targets map[model.Category]int, maxRadiusKM float64) (*RadiusSearch, error) {
	if !origin.Valid() {
		return nil, eris.Wrapf(model.ErrValidation, "proximity: origin out of range: %+v", origin)
	}
	if len(targets) == 0 {
		return nil, eris.Wrap(model.ErrInsufficientInput, "proximity: no radius targets given")
	}
	for cat, want := range targets {
		if !cat.Valid() {
			return nil, eris.Wrapf(model.ErrValidation, "proximity: unknown target category %q", cat)
		}
		if want <= 0 {
			return nil, eris.Wrapf(model.ErrValidation, "proximity: target for %s must be positive", cat)
		}
	}

	result := &RadiusSearch{Location: origin, Targets: targets}
	for _, radius := range s.cfg.RadiusLadderKM {
		if maxRadiusKM > 0 && radius > maxRadiusKM {
			break
		}

		counts := make(map[model.Category]int, len(targets))
		met := 0
		for cat, want := range targets {
			pois, err := s.store.FindWithinRadius(ctx, origin, radius, cat)
			if err != nil {
				return nil, eris.Wrapf(err, "proximity: count %s at %.1fkm", cat, radius)
			}
			counts[cat] = len(pois)
			if len(pois) >= want {
				met++
			}
		}

		step := RadiusStep{
			RadiusKM:    radius,
			Counts:      counts,
			TargetsMet:  met,
			CoveragePct: round1(float64(met) / float64(len(targets)) * 100),
		}
		result.Steps = append(result.Steps, step)

		// Strict improvement only: equal coverage keeps the smaller radius.
		if met > result.BestTargetsMet {
			result.BestTargetsMet = met
			result.BestRadiusKM = radius
			result.BestCoveragePct = step.CoveragePct
		}

		if met == len(targets) {
			break
		}
	}

	result.Recommendations = radiusRecommendations(result)
	return result, nil
}

func radiusRecommendations(r *RadiusSearch) []string {
	switch {
	case r.BestTargetsMet == 0:
		return []string{"Poor accessibility: no amenity targets met within the maximum search radius"}
	case r.BestCoveragePct >= 80:
		return []string{fmt.Sprintf("Excellent location: %.0f%% of amenity targets met within %.1f km", r.BestCoveragePct, r.BestRadiusKM)}
	case r.BestCoveragePct >= 60:
		return []string{fmt.Sprintf("Good location: %.0f%% of amenity targets met within %.1f km", r.BestCoveragePct, r.BestRadiusKM)}
	default:
		missing := missingCategories(r)
		rec := []string{fmt.Sprintf("Limited accessibility: only %.0f%% of amenity targets met within %.1f km", r.BestCoveragePct, r.BestRadiusKM)}
		if missing != "" {
			rec = append(rec, "Unmet targets: "+missing)
		}
		return rec
	}
}

func missingCategories(r *RadiusSearch) string {
	if len(r.Steps) == 0 {
		return ""
	}
	last := r.Steps[len(r.Steps)-1]
	out := ""
	for _, cat := range model.Categories() {
		want, ok := r.Targets[cat]
		if !ok {
			continue
		}
		if last.Counts[cat] < want {
			if out != "" {
				out += ", "
			}
			out += string(cat)
		}
	}
	return out
}
