// Package scoring computes development-suitability metrics for
// neighborhoods: eight component scores on a 0-100 scale combined into a
// weighted overall. Components are derived from the spatial catalog
// (transit, universities, amenities, competing accommodation) and from
// the neighborhood's own planning attributes.
package scoring

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

// Engine scores neighborhoods against the catalog.
type Engine struct {
	store catalog.Store
	cfg   config.ScoringConfig
}

// New builds an Engine, filling zero config values with defaults.
func New(store catalog.Store, cfg config.ScoringConfig) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TransitRadiusKM <= 0 {
		cfg.TransitRadiusKM = 2
	}
	if cfg.UniversityRadiusKM <= 0 {
		cfg.UniversityRadiusKM = 10
	}
	if cfg.AmenityRadiusKM <= 0 {
		cfg.AmenityRadiusKM = 1.5
	}
	if cfg.LeisureRadiusKM <= 0 {
		cfg.LeisureRadiusKM = 2
	}
	if cfg.CompetitionRadius <= 0 {
		cfg.CompetitionRadius = 2
	}
	if cfg.Weights.Validate() != nil {
		cfg.Weights = model.DefaultScoreWeights()
	}
	return &Engine{store: store, cfg: cfg}
}

// ScoreNeighborhood computes all component scores for the neighborhood,
// persists the resulting metrics, and returns them. Nothing is written
// if any component fails. A neighborhood without a boundary cannot be
// scored.
func (e *Engine) ScoreNeighborhood(ctx context.Context, id string) (*model.NeighborhoodMetrics, error) {
	n, err := e.store.GetNeighborhood(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load neighborhood %s", id)
	}
	if n.Boundary == nil {
		return nil, eris.Wrapf(model.ErrInvalidGeometry, "scoring: neighborhood %s has no boundary", id)
	}
	center := n.Boundary.Centroid()

	m := model.NeighborhoodMetrics{
		Affordability:       e.affordabilityScore(n),
		PlanningFeasibility: e.planningScore(n),
		CalculatedAt:        time.Now().UTC(),
		DataSources:         []string{"catalog", "planning"},
	}

	if m.Accessibility, err = e.accessibilityScore(ctx, center); err != nil {
		return nil, err
	}
	if m.UniversityProximity, err = e.universityScore(ctx, center); err != nil {
		return nil, err
	}
	if m.Amenities, err = e.amenityScore(ctx, center); err != nil {
		return nil, err
	}
	if m.Safety, err = e.safetyScore(ctx, center, n.CrimePercentile); err != nil {
		return nil, err
	}
	if m.Cultural, err = e.culturalScore(ctx, center); err != nil {
		return nil, err
	}
	if m.Competition, err = e.competitionScore(ctx, center); err != nil {
		return nil, err
	}
	if m.TransportLinks, err = e.countWithin(ctx, center, 1.5, model.TransitCategories()); err != nil {
		return nil, err
	}
	if m.AmenityCount, err = e.countWithin(ctx, center, 1.0, model.AmenityCategories()); err != nil {
		return nil, err
	}

	m.ComputeOverall(e.cfg.Weights)

	if err := e.store.SaveMetrics(ctx, id, m); err != nil {
		return nil, eris.Wrapf(err, "scoring: save metrics for %s", id)
	}
	zap.L().Debug("neighborhood scored",
		zap.String("neighborhood", n.Name),
		zap.Float64("overall", m.Overall))
	return &m, nil
}

// accessibilityScore rates public transit coverage. Metro stops dominate,
// trains matter, bus stops barely move the needle, and a stop right on
// the doorstep earns a proximity bonus.
func (e *Engine) accessibilityScore(ctx context.Context, center geo.Point) (float64, error) {
	pois, err := e.store.FindWithinRadius(ctx, center, e.cfg.TransitRadiusKM, model.TransitCategories()...)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: transit lookup")
	}
	if len(pois) == 0 {
		return 0, nil
	}

	var metro, train, bus int
	closest := math.MaxFloat64
	for _, p := range pois {
		switch p.Category {
		case model.CategoryMetro:
			metro++
		case model.CategoryTrain:
			train++
		default:
			bus++
		}
		if d := geo.DistanceKM(center, p.Location); d < closest {
			closest = d
		}
	}

	score := math.Min(float64(metro)*40, 60)
	score += math.Min(float64(train)*20, 40)
	score += math.Min(float64(bus)*2, 20)
	if closest < 1 {
		score += (1 - closest) * 30
	}
	return round1(math.Min(score, 100)), nil
}

// universityScore rates proximity to student populations. Each university
// contributes by distance bracket, scaled by its enrollment, with bonuses
// for multi-university areas and large total enrollment.
func (e *Engine) universityScore(ctx context.Context, center geo.Point) (float64, error) {
	unis, err := e.store.UniversitiesWithinRadius(ctx, center, e.cfg.UniversityRadiusKM)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: university lookup")
	}
	if len(unis) == 0 {
		return 0, nil
	}

	score := 0.0
	totalStudents := 0
	for _, u := range unis {
		d := geo.DistanceKM(center, u.Location)
		base := 5.0
		switch {
		case d <= 1:
			base = 40
		case d <= 2:
			base = 35
		case d <= 3:
			base = 25
		case d <= 5:
			base = 15
		}
		factor := 0.7 + 0.3*math.Min(float64(u.TotalStudents)/10000, 1)
		score += base * factor
		totalStudents += u.TotalStudents
	}
	if len(unis) >= 2 {
		score *= 1.2
	}
	if totalStudents > 20000 {
		score *= 1.1
	}
	return round1(math.Min(score, 100)), nil
}

var amenityWeights = map[model.Category]float64{
	model.CategoryGrocery:    15,
	model.CategoryRestaurant: 15,
	model.CategoryShopping:   12,
	model.CategoryLibrary:    10,
	model.CategorySports:     10,
	model.CategoryHealthcare: 8,
	model.CategoryNightlife:  8,
	model.CategoryPark:       7,
}

// amenityScore rewards each amenity category by presence (60% of its
// weight), depth up to four venues (30%), and doorstep proximity (10%).
func (e *Engine) amenityScore(ctx context.Context, center geo.Point) (float64, error) {
	cats := make([]model.Category, 0, len(amenityWeights))
	for c := range amenityWeights {
		cats = append(cats, c)
	}
	pois, err := e.store.FindWithinRadius(ctx, center, e.cfg.AmenityRadiusKM, cats...)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: amenity lookup")
	}

	counts := make(map[model.Category]int)
	closest := make(map[model.Category]float64)
	for _, p := range pois {
		counts[p.Category]++
		d := geo.DistanceKM(center, p.Location)
		if cur, ok := closest[p.Category]; !ok || d < cur {
			closest[p.Category] = d
		}
	}

	score := 0.0
	for cat, w := range amenityWeights {
		n := counts[cat]
		if n == 0 {
			continue
		}
		score += 0.6 * w
		score += 0.3 * w * math.Min(float64(n-1), 3) / 3
		if closest[cat] <= 0.5 {
			score += 0.1 * w
		}
	}
	return round1(math.Min(score, 100)), nil
}

// affordabilityScore rates land cost from the neighborhood's own
// attributes. No catalog lookup is needed.
func (e *Engine) affordabilityScore(n *model.Neighborhood) float64 {
	score := 50.0
	switch n.LocationType {
	case model.LocationCityCentre:
		score -= 20
	case model.LocationSuburban:
		score += 15
	case model.LocationEdgeOfTown:
		score += 25
	}
	if n.HistoricDistrict {
		score -= 15
	}
	if n.AvgLandPricePSF > 100 {
		score -= 20
	} else if n.AvgLandPricePSF > 0 && n.AvgLandPricePSF < 50 {
		score += 20
	}
	return clamp(score)
}

// safetyScore blends an activity heuristic (healthcare and busy street
// life nearby) with recorded crime data when available. Crime data
// dominates the blend at 70%.
func (e *Engine) safetyScore(ctx context.Context, center geo.Point, crimePercentile *float64) (float64, error) {
	heuristic := 50.0

	healthcare, err := e.store.FindWithinRadius(ctx, center, 2, model.CategoryHealthcare)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: healthcare lookup")
	}
	heuristic += math.Min(float64(len(healthcare))*10, 20)

	active, err := e.store.FindWithinRadius(ctx, center, 1,
		model.CategoryShopping, model.CategoryRestaurant, model.CategorySports)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: street activity lookup")
	}
	heuristic += math.Min(float64(len(active))*3, 15)

	score := heuristic
	if crimePercentile != nil {
		score = 0.3*heuristic + 0.7*(100-*crimePercentile)
	}
	return round1(math.Min(score, 100)), nil
}

// culturalScore rates leisure variety: distinct categories count far more
// than raw venue count.
func (e *Engine) culturalScore(ctx context.Context, center geo.Point) (float64, error) {
	pois, err := e.store.FindWithinRadius(ctx, center, e.cfg.LeisureRadiusKM, model.LeisureCategories()...)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: leisure lookup")
	}

	distinct := make(map[model.Category]struct{})
	for _, p := range pois {
		distinct[p.Category] = struct{}{}
	}
	score := 15*float64(len(distinct)) + math.Min(2*float64(len(pois)), 25)
	return round1(math.Min(score, 100)), nil
}

// planningScore rates how hard it would be to get a scheme consented on
// this site, from the neighborhood's planning attributes.
func (e *Engine) planningScore(n *model.Neighborhood) float64 {
	score := 70.0
	if n.HistoricDistrict {
		score -= 30
	}
	score -= math.Min(10*float64(len(n.PlanningConstraints)), 30)
	switch {
	case n.MaxBuildingHeightM >= 50:
		score += 15
	case n.MaxBuildingHeightM >= 30:
		score += 10
	case n.MaxBuildingHeightM > 0 && n.MaxBuildingHeightM < 15:
		score -= 20
	}
	switch n.Zoning {
	case "residential", "mixed":
		score += 10
	case "commercial":
		score -= 5
	}
	return clamp(score)
}

// competitionScore rates the existing accommodation supply pressure.
// Fewer nearby beds means more headroom.
func (e *Engine) competitionScore(ctx context.Context, center geo.Point) (float64, error) {
	dorms, err := e.store.FindWithinRadius(ctx, center, e.cfg.CompetitionRadius, model.CategoryDormitory)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: dormitory lookup")
	}

	score := 60.0
	score -= math.Min(15*float64(len(dorms)), 45)

	beds := 0
	recorded := false
	for _, d := range dorms {
		if d.Capacity > 0 {
			beds += d.Capacity
			recorded = true
		}
	}
	if recorded {
		switch {
		case beds > 2000:
			score -= 20
		case beds > 1000:
			score -= 10
		case beds < 300:
			score += 15
		}
	}
	return clamp(score), nil
}

func (e *Engine) countWithin(ctx context.Context, center geo.Point, radiusKM float64, cats []model.Category) (int, error) {
	pois, err := e.store.FindWithinRadius(ctx, center, radiusKM, cats...)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: supporting count")
	}
	return len(pois), nil
}

func clamp(v float64) float64 {
	return round1(math.Max(0, math.Min(v, 100)))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
