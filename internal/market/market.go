// Package market builds city-level supply and demand analyses: student
// population, accommodation stock, demand ratios, neighborhood rankings,
// multi-city comparisons, and expansion scouting.
package market

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/config"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// Service builds and maintains market analyses.
type Service struct {
	store catalog.Store
	cfg   config.MarketConfig
}

// New builds a Service, filling zero config values with defaults.
func New(store catalog.Store, cfg config.MarketConfig) *Service {
	if cfg.DemandRatio <= 0 {
		cfg.DemandRatio = 0.3
	}
	if cfg.BaselineRentPerWeek <= 0 {
		cfg.BaselineRentPerWeek = 150
	}
	if cfg.NeighborhoodRadiusKM <= 0 {
		cfg.NeighborhoodRadiusKM = 10
	}
	if cfg.TopNeighborhoods <= 0 {
		cfg.TopNeighborhoods = 20
	}
	if cfg.ExpansionRadiusKM <= 0 {
		cfg.ExpansionRadiusKM = 100
	}
	if cfg.OpportunityThreshold <= 0 {
		cfg.OpportunityThreshold = 60
	}
	if cfg.MaxOpportunities <= 0 {
		cfg.MaxOpportunities = 10
	}
	return &Service{store: store, cfg: cfg}
}

// BuildAnalysis computes a fresh market analysis for a city and persists
// it. A city that already has an analysis is rejected unless refresh is
// set, in which case the version is bumped. A city with no universities
// in the catalog cannot be analyzed.
func (s *Service) BuildAnalysis(ctx context.Context, city, country string, refresh bool) (*model.MarketAnalysis, error) {
	if city == "" || country == "" {
		return nil, eris.Wrap(model.ErrValidation, "market: city and country required")
	}

	version := 1
	existing, err := s.store.FindAnalysisByCity(ctx, city)
	switch {
	case err == nil:
		if !refresh {
			return nil, eris.Wrapf(model.ErrValidation,
				"market: analysis for %s v%d already exists, use refresh to rebuild", city, existing.Version)
		}
		version = existing.Version + 1
	case !eris.Is(err, model.ErrNotFound):
		return nil, eris.Wrapf(err, "market: check existing analysis for %s", city)
	}

	analysis := &model.MarketAnalysis{
		ID:           uuid.NewString(),
		City:         city,
		Country:      country,
		Version:      version,
		AnalysisDate: time.Now().UTC(),
	}
	if err := s.compute(ctx, analysis); err != nil {
		return nil, err
	}
	if err := s.store.SaveAnalysis(ctx, analysis); err != nil {
		return nil, eris.Wrapf(err, "market: save analysis for %s", city)
	}

	zap.L().Info("market analysis built",
		zap.String("city", city),
		zap.Int("version", version),
		zap.Int("students", analysis.TotalStudentPopulation))
	return analysis, nil
}

// UpdateAnalysis recomputes an existing analysis in place, keeping its
// identity and version.
func (s *Service) UpdateAnalysis(ctx context.Context, id string) (*model.MarketAnalysis, error) {
	analysis, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "market: load analysis %s", id)
	}

	analysis.AnalysisDate = time.Now().UTC()
	if err := s.compute(ctx, analysis); err != nil {
		return nil, err
	}
	if err := s.store.SaveAnalysis(ctx, analysis); err != nil {
		return nil, eris.Wrapf(err, "market: save analysis %s", id)
	}
	return analysis, nil
}

// compute fills every derived field of the analysis from the catalog.
func (s *Service) compute(ctx context.Context, analysis *model.MarketAnalysis) error {
	unis, err := s.store.UniversitiesInCity(ctx, analysis.City)
	if err != nil {
		return eris.Wrapf(err, "market: universities in %s", analysis.City)
	}
	if len(unis) == 0 {
		return eris.Wrapf(model.ErrNotFound, "market: no universities known in %s", analysis.City)
	}

	analysis.UniversityIDs = analysis.UniversityIDs[:0]
	analysis.TotalStudentPopulation = 0
	international := 0
	var growthSum float64
	for _, u := range unis {
		analysis.UniversityIDs = append(analysis.UniversityIDs, u.ID)
		analysis.TotalStudentPopulation += u.TotalStudents
		international += u.InternationalStudents
		growthSum += u.GrowthRate
	}
	if analysis.TotalStudentPopulation > 0 {
		analysis.InternationalPercentage = round1(
			float64(international) / float64(analysis.TotalStudentPopulation) * 100)
	}

	analysis.ExistingBeds, err = s.existingBeds(ctx, unis)
	if err != nil {
		return err
	}

	analysis.EstimatedDemand = int(math.Round(s.cfg.DemandRatio * float64(analysis.TotalStudentPopulation)))
	analysis.SupplyDemandRatio = 0
	if analysis.EstimatedDemand > 0 {
		analysis.SupplyDemandRatio = round2(
			float64(analysis.ExistingBeds+analysis.PipelineBeds) / float64(analysis.EstimatedDemand))
	}
	if analysis.AverageRentPerWeek == 0 {
		analysis.AverageRentPerWeek = s.cfg.BaselineRentPerWeek
	}

	analysis.TopNeighborhoods, err = s.rankNeighborhoods(ctx, unis)
	if err != nil {
		return err
	}

	avgGrowth := growthSum / float64(len(unis))
	s.writeNarrative(analysis, avgGrowth)
	return nil
}

// existingBeds sums dormitory capacity near any of the city's campuses,
// deduplicated by POI so overlapping catchments do not double count.
func (s *Service) existingBeds(ctx context.Context, unis []model.University) (int, error) {
	seen := make(map[string]struct{})
	beds := 0
	for _, u := range unis {
		dorms, err := s.store.FindWithinRadius(ctx, u.Location, s.cfg.NeighborhoodRadiusKM, model.CategoryDormitory)
		if err != nil {
			return 0, eris.Wrapf(err, "market: dormitories near %s", u.Name)
		}
		for _, d := range dorms {
			if _, ok := seen[d.ID]; ok {
				continue
			}
			seen[d.ID] = struct{}{}
			beds += d.Capacity
		}
	}
	return beds, nil
}

// rankNeighborhoods collects every scored neighborhood within reach of a
// city campus and ranks them by overall score.
func (s *Service) rankNeighborhoods(ctx context.Context, unis []model.University) ([]model.RankedNeighborhood, error) {
	seen := make(map[string]model.Neighborhood)
	for _, u := range unis {
		hoods, err := s.store.NeighborhoodsWithinRadius(ctx, u.Location, s.cfg.NeighborhoodRadiusKM)
		if err != nil {
			return nil, eris.Wrapf(err, "market: neighborhoods near %s", u.Name)
		}
		for _, n := range hoods {
			if n.Metrics.CalculatedAt.IsZero() {
				continue
			}
			seen[n.ID] = n
		}
	}

	all := make([]model.Neighborhood, 0, len(seen))
	for _, n := range seen {
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Metrics.Overall != all[j].Metrics.Overall {
			return all[i].Metrics.Overall > all[j].Metrics.Overall
		}
		return all[i].Name < all[j].Name
	})
	if len(all) > s.cfg.TopNeighborhoods {
		all = all[:s.cfg.TopNeighborhoods]
	}

	ranked := make([]model.RankedNeighborhood, len(all))
	for i, n := range all {
		ranked[i] = model.RankedNeighborhood{
			NeighborhoodID: n.ID,
			Name:           n.Name,
			Rank:           i + 1,
			OverallScore:   n.Metrics.Overall,
		}
	}
	return ranked, nil
}

// centerOf returns the anchor point for a city analysis: its first
// university's campus.
func (s *Service) centerOf(ctx context.Context, analysis *model.MarketAnalysis) (geo.Point, error) {
	if len(analysis.UniversityIDs) == 0 {
		return geo.Point{}, eris.Wrapf(model.ErrNotFound, "market: analysis %s has no universities", analysis.ID)
	}
	u, err := s.store.GetUniversity(ctx, analysis.UniversityIDs[0])
	if err != nil {
		return geo.Point{}, eris.Wrapf(err, "market: anchor university for %s", analysis.City)
	}
	return u.Location, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
