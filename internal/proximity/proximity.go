// Package proximity answers distance questions around a point: nearest
// POIs of a type, weighted accessibility scoring, optimal search radius,
// and university catchment areas.
//
// Straight-line distances are haversine; walking and cycling estimates
// apply a route inefficiency factor before converting to travel time.
package proximity

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/config"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// Service runs proximity analysis over the catalog.
type Service struct {
	store catalog.Store
	cfg   config.ProximityConfig
}

// New builds a Service, filling zero config values with defaults.
func New(store catalog.Store, cfg config.ProximityConfig) *Service {
	if cfg.WalkingSpeedKMH <= 0 {
		cfg.WalkingSpeedKMH = 5
	}
	if cfg.CyclingSpeedKMH <= 0 {
		cfg.CyclingSpeedKMH = 15
	}
	if cfg.RouteFactor <= 0 {
		cfg.RouteFactor = 1.3
	}
	if cfg.SearchWindowKM <= 0 {
		cfg.SearchWindowKM = 3
	}
	if cfg.NearestLimit <= 0 {
		cfg.NearestLimit = 5
	}
	if len(cfg.RadiusLadderKM) == 0 {
		cfg.RadiusLadderKM = []float64{0.5, 1, 1.5, 2, 3, 5, 7.5, 10}
	}
	if len(cfg.CategoryWeights) == 0 {
		cfg.CategoryWeights = map[string]float64{
			"university": 0.30,
			"transport":  0.25,
			"metro":      0.25,
			"bus":        0.15,
			"grocery":    0.15,
			"restaurant": 0.10,
			"shopping":   0.10,
			"library":    0.05,
			"sports":     0.05,
			"healthcare": 0.10,
		}
	}
	return &Service{store: store, cfg: cfg}
}

// NearbyPOI is a POI annotated with distance and walking estimates.
type NearbyPOI struct {
	POI         model.POI `json:"poi"`
	DistanceKM  float64   `json:"distance_km"`
	RouteKM     float64   `json:"route_km"`
	WalkMinutes int       `json:"walk_minutes"`
}

// NearestOfType returns up to limit POIs of the given category within
// maxKM of the origin, closest first.
func (s *Service) NearestOfType(ctx context.Context, origin geo.Point, category model.Category, maxKM float64, limit int) ([]NearbyPOI, error) {
	if !origin.Valid() {
		return nil, eris.Wrapf(model.ErrValidation, "proximity: origin out of range: %+v", origin)
	}
	if !category.Valid() {
		return nil, eris.Wrapf(model.ErrValidation, "proximity: unknown category %q", category)
	}
	if maxKM <= 0 {
		maxKM = s.cfg.SearchWindowKM
	}
	if limit <= 0 {
		limit = s.cfg.NearestLimit
	}

	pois, err := s.store.FindWithinRadius(ctx, origin, maxKM, category)
	if err != nil {
		return nil, eris.Wrap(err, "proximity: find nearest")
	}
	if len(pois) > limit {
		pois = pois[:limit]
	}

	out := make([]NearbyPOI, len(pois))
	for i, p := range pois {
		out[i] = s.annotate(origin, p)
	}
	return out, nil
}

func (s *Service) annotate(origin geo.Point, p model.POI) NearbyPOI {
	d := geo.DistanceKM(origin, p.Location)
	route := d * s.cfg.RouteFactor
	return NearbyPOI{
		POI:         p,
		DistanceKM:  round2(d),
		RouteKM:     round2(route),
		WalkMinutes: int(math.Round(route / s.cfg.WalkingSpeedKMH * 60)),
	}
}

// CategoryAccess is the per-category slice of an accessibility analysis.
type CategoryAccess struct {
	Count     int         `json:"count"`
	ClosestKM *float64    `json:"closest_km,omitempty"`
	Score     float64     `json:"score"`
	Nearest   []NearbyPOI `json:"nearest,omitempty"`
}

// Accessibility is a weighted accessibility report for a point.
type Accessibility struct {
	Location    geo.Point                         `json:"location"`
	Overall     float64                           `json:"overall"`
	Transport   float64                           `json:"transport"`
	Amenities   float64                           `json:"amenities"`
	Academic    float64                           `json:"academic"`
	PerCategory map[model.Category]CategoryAccess `json:"per_category"`
	AnalyzedAt  time.Time                         `json:"analyzed_at"`
}

var (
	transportSet = []model.Category{model.CategoryTransport, model.CategoryMetro, model.CategoryBus}
	amenitySet   = []model.Category{
		model.CategoryGrocery, model.CategoryRestaurant, model.CategoryShopping,
		model.CategorySports, model.CategoryHealthcare,
	}
	academicSet = []model.Category{model.CategoryUniversity, model.CategoryLibrary}
)

// AccessibilityScore computes the weighted accessibility of a point across
// the configured category weights. Categories with no POI in the search
// window score zero but stay in the weighted denominator, so a site
// missing a whole category is penalized rather than ignored.
func (s *Service) AccessibilityScore(ctx context.Context, origin geo.Point) (*Accessibility, error) {
	if !origin.Valid() {
		return nil, eris.Wrapf(model.ErrValidation, "proximity: origin out of range: %+v", origin)
	}
	log := zap.L().With(zap.Float64("lat", origin.Lat), zap.Float64("lng", origin.Lng))

	window := s.cfg.SearchWindowKM
	perCategory := make(map[model.Category]CategoryAccess, len(s.cfg.CategoryWeights))
	var weighted, totalWeight float64

	for name, weight := range s.cfg.CategoryWeights {
		cat := model.Category(name)
		if !cat.Valid() {
			return nil, eris.Wrapf(model.ErrValidation, "proximity: unknown weighted category %q", name)
		}
		nearest, err := s.NearestOfType(ctx, origin, cat, window, s.cfg.NearestLimit)
		if err != nil {
			return nil, err
		}

		access := CategoryAccess{Count: len(nearest), Nearest: nearest}
		if len(nearest) > 0 {
			closest := nearest[0].RouteKM
			access.ClosestKM = &closest

			score := math.Max(0, (window-closest)/window*100)
			score += math.Min(float64(len(nearest))*10, 30)
			access.Score = round1(math.Min(score, 100))
		}
		perCategory[cat] = access

		weighted += access.Score * weight
		totalWeight += weight
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = round1(weighted / totalWeight)
	}

	result := &Accessibility{
		Location:    origin,
		Overall:     overall,
		Transport:   componentAverage(perCategory, transportSet),
		Amenities:   componentAverage(perCategory, amenitySet),
		Academic:    componentAverage(perCategory, academicSet),
		PerCategory: perCategory,
		AnalyzedAt:  time.Now().UTC(),
	}
	log.Debug("accessibility computed", zap.Float64("overall", overall))
	return result, nil
}

// componentAverage averages the scores of the given categories, counting
// only those present in the analysis.
func componentAverage(perCategory map[model.Category]CategoryAccess, cats []model.Category) float64 {
	var sum float64
	n := 0
	for _, c := range cats {
		if access, ok := perCategory[c]; ok {
			sum += access.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round1(sum / float64(n))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
