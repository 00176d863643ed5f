// Package intel orchestrates the full location analysis: universities in
// range, POI coverage, neighborhood quality, and a blended accessibility
// score rolled into an investment-potential verdict.
package intel

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/config"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// Analyzer runs location intelligence reports over the catalog.
type Analyzer struct {
	store catalog.Store
	cfg   config.IntelConfig
}

// New builds an Analyzer, filling zero config values with defaults.
func New(store catalog.Store, cfg config.IntelConfig) *Analyzer {
	if cfg.DefaultRadiusKM <= 0 {
		cfg.DefaultRadiusKM = 2
	}
	if cfg.MinStudents <= 0 {
		cfg.MinStudents = 5000
	}
	if cfg.MaxDistanceKM <= 0 {
		cfg.MaxDistanceKM = 5
	}
	return &Analyzer{store: store, cfg: cfg}
}

// UniversityInsight summarizes one university near the analyzed point.
type UniversityInsight struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	DistanceKM            float64 `json:"distance_km"`
	TotalStudents         int     `json:"total_students"`
	InternationalPct      float64 `json:"international_pct"`
	AccommodationShortage int     `json:"accommodation_shortage"`
}

// POIGroup aggregates the POIs of one category around the point.
type POIGroup struct {
	Count     int         `json:"count"`
	ClosestKM float64     `json:"closest_km"`
	AverageKM float64     `json:"average_km"`
	Nearest   []model.POI `json:"nearest,omitempty"`
}

// NeighborhoodSummary is a scored neighborhood near the analyzed point.
type NeighborhoodSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	DistanceKM   float64 `json:"distance_km"`
	OverallScore float64 `json:"overall_score"`
}

// Report is a full location intelligence analysis.
type Report struct {
	Center               geo.Point                   `json:"center"`
	RadiusKM             float64                     `json:"radius_km"`
	Universities         []UniversityInsight         `json:"universities"`
	TotalStudents        int                         `json:"total_students"`
	POIGroups            map[model.Category]POIGroup `json:"poi_groups"`
	Neighborhoods        []NeighborhoodSummary       `json:"neighborhoods,omitempty"`
	BestNeighborhood     float64                     `json:"best_neighborhood_score,omitempty"`
	AvgNeighborhoodScore float64                     `json:"avg_neighborhood_score,omitempty"`
	ConvenienceScore     float64                     `json:"convenience_score"`
	AccessibilityScore   float64                     `json:"accessibility_score"`
	InvestmentPotential  string                      `json:"investment_potential"`
	AnalyzedAt           time.Time                   `json:"analyzed_at"`
}

const nearestDetail = 10

// AnalyzeLocation builds a full report for the area around a point. A
// non-positive radius falls back to the configured default.
func (a *Analyzer) AnalyzeLocation(ctx context.Context, center geo.Point, radiusKM float64) (*Report, error) {
	if !center.Valid() {
		return nil, eris.Wrapf(model.ErrValidation, "intel: center out of range: %+v", center)
	}
	if radiusKM <= 0 {
		radiusKM = a.cfg.DefaultRadiusKM
	}

	report := &Report{
		Center:     center,
		RadiusKM:   radiusKM,
		POIGroups:  make(map[model.Category]POIGroup),
		AnalyzedAt: time.Now().UTC(),
	}

	unis, err := a.store.UniversitiesWithinRadius(ctx, center, radiusKM)
	if err != nil {
		return nil, eris.Wrap(err, "intel: universities")
	}
	for _, u := range unis {
		report.Universities = append(report.Universities, UniversityInsight{
			ID:                    u.ID,
			Name:                  u.Name,
			DistanceKM:            round2(geo.DistanceKM(center, u.Location)),
			TotalStudents:         u.TotalStudents,
			InternationalPct:      u.InternationalPercentage(),
			AccommodationShortage: u.AccommodationShortage(),
		})
		report.TotalStudents += u.TotalStudents
	}

	pois, err := a.store.FindWithinRadius(ctx, center, radiusKM)
	if err != nil {
		return nil, eris.Wrap(err, "intel: nearby pois")
	}
	report.POIGroups = groupPOIs(center, pois)

	neighborhoods, err := a.store.NeighborhoodsWithinRadius(ctx, center, radiusKM)
	if err != nil {
		return nil, eris.Wrap(err, "intel: neighborhoods")
	}
	for _, n := range neighborhoods {
		if n.Metrics.CalculatedAt.IsZero() {
			continue
		}
		d := 0.0
		if n.Boundary != nil {
			d = round2(n.Boundary.DistanceKM(center))
		}
		report.Neighborhoods = append(report.Neighborhoods, NeighborhoodSummary{
			ID:           n.ID,
			Name:         n.Name,
			DistanceKM:   d,
			OverallScore: n.Metrics.Overall,
		})
	}

	sort.Slice(report.Neighborhoods, func(i, j int) bool {
		return report.Neighborhoods[i].OverallScore > report.Neighborhoods[j].OverallScore
	})
	if len(report.Neighborhoods) > 0 {
		sum := 0.0
		for _, h := range report.Neighborhoods {
			sum += h.OverallScore
		}
		report.BestNeighborhood = report.Neighborhoods[0].OverallScore
		report.AvgNeighborhoodScore = round1(sum / float64(len(report.Neighborhoods)))
	}

	report.ConvenienceScore = convenienceScore(report.POIGroups)
	report.AccessibilityScore = a.blendedAccessibility(center, unis, report.POIGroups, report.Neighborhoods)
	report.InvestmentPotential = potential(report.AccessibilityScore, len(unis), report.TotalStudents)

	zap.L().Debug("location analyzed",
		zap.Int("universities", len(unis)),
		zap.Int("pois", len(pois)),
		zap.Float64("accessibility", report.AccessibilityScore))
	return report, nil
}

func groupPOIs(center geo.Point, pois []model.POI) map[model.Category]POIGroup {
	byCat := make(map[model.Category][]model.POI)
	for _, p := range pois {
		byCat[p.Category] = append(byCat[p.Category], p)
	}

	groups := make(map[model.Category]POIGroup, len(byCat))
	for cat, list := range byCat {
		g := POIGroup{Count: len(list), ClosestKM: math.MaxFloat64}
		sum := 0.0
		for _, p := range list {
			d := geo.DistanceKM(center, p.Location)
			sum += d
			if d < g.ClosestKM {
				g.ClosestKM = d
			}
		}
		g.ClosestKM = round2(g.ClosestKM)
		g.AverageKM = round2(sum / float64(len(list)))
		// The catalog returns ascending distance, so the head is the detail.
		if len(list) > nearestDetail {
			list = list[:nearestDetail]
		}
		g.Nearest = list
		groups[cat] = g
	}
	return groups
}

// convenienceScore rewards essential coverage (14 points per category)
// over lifestyle coverage (7.5 points per category).
func convenienceScore(groups map[model.Category]POIGroup) float64 {
	score := 0.0
	for _, cat := range model.EssentialCategories() {
		if groups[cat].Count > 0 {
			score += 14
		}
	}
	for _, cat := range model.LifestyleCategories() {
		if groups[cat].Count > 0 {
			score += 7.5
		}
	}
	return round1(math.Min(score, 100))
}

// blendedAccessibility combines four signals with fixed weights: 40
// university reach, 30 transit, 20 essential amenities, 10 neighborhood
// quality.
func (a *Analyzer) blendedAccessibility(center geo.Point, unis []model.University, groups map[model.Category]POIGroup, hoods []NeighborhoodSummary) float64 {
	score := 0.0

	if len(unis) > 0 {
		var distSum float64
		students := 0
		for _, u := range unis {
			distSum += geo.DistanceKM(center, u.Location)
			students += u.TotalStudents
		}
		avg := distSum / float64(len(unis))
		factor := 0.7 + 0.3*math.Min(float64(students)/10000, 1)
		score += math.Max(0, (a.cfg.MaxDistanceKM-avg)/a.cfg.MaxDistanceKM) * 40 * factor
	}

	transit := 0.0
	for _, cat := range model.TransitCategories() {
		g, ok := groups[cat]
		if !ok || g.Count == 0 {
			continue
		}
		transit += math.Max(0, (2-g.ClosestKM)/2) * 10
	}
	score += math.Min(transit, 30)

	amenities := 0.0
	for _, cat := range model.AmenityCategories() {
		if groups[cat].Count > 0 {
			amenities += 3.33
		}
	}
	score += math.Min(amenities, 20)

	if len(hoods) > 0 {
		sum := 0.0
		for _, h := range hoods {
			sum += h.OverallScore
		}
		score += sum / float64(len(hoods)) / 100 * 10
	}

	return round1(math.Min(score, 100))
}

func potential(score float64, uniCount, students int) string {
	switch {
	case score >= 80 && uniCount >= 2 && students >= 15000:
		return "high"
	case score >= 65 && uniCount >= 1 && students >= 8000:
		return "moderate"
	case score >= 50 && uniCount >= 1:
		return "low"
	default:
		return "minimal"
	}
}

func sortedCategories(groups map[model.Category]POIGroup) []model.Category {
	out := make([]model.Category, 0, len(groups))
	for c := range groups {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
