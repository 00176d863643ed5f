package intel

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// Candidate is one recommended development location.
type Candidate struct {
	AnchorUniversity string                `json:"anchor_university"`
	Center           geo.Point             `json:"center"`
	Score            float64               `json:"score"`
	Potential        string                `json:"potential"`
	TotalStudents    int                   `json:"total_students"`
	KeyFactors       []string              `json:"key_factors"`
	TopNeighborhoods []NeighborhoodSummary `json:"top_neighborhoods,omitempty"`
}

const (
	maxCandidates       = 10
	topNeighborhoodsPer = 3
)

// FindOptimalLocations analyzes the area around every sizeable university
// in a city and returns candidate locations ranked by blended score.
// Non-positive maxResults, minStudents, and maxDistanceKM fall back to
// the configured defaults. A city with no qualifying university yields an
// empty list, not an error.
func (a *Analyzer) FindOptimalLocations(ctx context.Context, city string, maxResults, minStudents int, maxDistanceKM float64) ([]Candidate, error) {
	if city == "" {
		return nil, eris.Wrap(model.ErrValidation, "intel: empty city")
	}
	if maxResults <= 0 {
		maxResults = maxCandidates
	}
	if minStudents <= 0 {
		minStudents = a.cfg.MinStudents
	}
	if maxDistanceKM <= 0 {
		maxDistanceKM = a.cfg.MaxDistanceKM
	}

	unis, err := a.store.UniversitiesInCity(ctx, city)
	if err != nil {
		return nil, eris.Wrapf(err, "intel: universities in %s", city)
	}

	candidates := make([]Candidate, 0, len(unis))
	for _, u := range unis {
		if u.TotalStudents < minStudents {
			continue
		}
		report, err := a.AnalyzeLocation(ctx, u.Location, maxDistanceKM)
		if err != nil {
			return nil, eris.Wrapf(err, "intel: analyze around %s", u.Name)
		}

		hoods := append([]NeighborhoodSummary(nil), report.Neighborhoods...)
		sort.Slice(hoods, func(i, j int) bool { return hoods[i].OverallScore > hoods[j].OverallScore })
		if len(hoods) > topNeighborhoodsPer {
			hoods = hoods[:topNeighborhoodsPer]
		}

		candidates = append(candidates, Candidate{
			AnchorUniversity: u.Name,
			Center:           u.Location,
			Score:            report.AccessibilityScore,
			Potential:        report.InvestmentPotential,
			TotalStudents:    report.TotalStudents,
			KeyFactors:       keyFactors(report),
			TopNeighborhoods: hoods,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	zap.L().Info("optimal locations ranked",
		zap.String("city", city),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// keyFactors turns the strongest signals of a report into short
// human-readable strings for the CLI and API output.
func keyFactors(r *Report) []string {
	var out []string

	if n := len(r.Universities); n > 1 {
		out = append(out, fmt.Sprintf("%d universities within %.0fkm", n, r.RadiusKM))
	}
	if r.TotalStudents > 0 {
		out = append(out, fmt.Sprintf("%d students in catchment", r.TotalStudents))
	}

	shortage := 0
	for _, u := range r.Universities {
		shortage += u.AccommodationShortage
	}
	if shortage > 0 {
		out = append(out, fmt.Sprintf("%d-bed accommodation shortfall", shortage))
	}

	for _, cat := range sortedCategories(r.POIGroups) {
		g := r.POIGroups[cat]
		switch cat {
		case model.CategoryMetro, model.CategoryTrain:
			if g.ClosestKM <= 1 {
				out = append(out, fmt.Sprintf("%s stop %.1fkm away", cat, g.ClosestKM))
			}
		case model.CategoryDormitory:
			out = append(out, fmt.Sprintf("%d competing residences nearby", g.Count))
		}
	}

	if r.ConvenienceScore >= 70 {
		out = append(out, "strong everyday amenity coverage")
	}
	return out
}
