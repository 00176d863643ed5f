// Package catalog is the spatial store behind the engines. Three backends
// implement the same interface: in-memory (tests and small datasets),
// SQLite (local analysis), and PostGIS (production).
package catalog

import (
	"context"
	"sort"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// Store is the catalog interface. Radius queries return results ordered by
// ascending distance from the query point; empty results are empty slices,
// never errors.
type Store interface {
	PutPOI(ctx context.Context, p *model.POI) error
	GetPOI(ctx context.Context, id string) (*model.POI, error)
	FindWithinRadius(ctx context.Context, center geo.Point, radiusKM float64, categories ...model.Category) ([]model.POI, error)
	FindWithinPolygon(ctx context.Context, boundary *geo.Polygon, categories ...model.Category) ([]model.POI, error)
	FindWithinBounds(ctx context.Context, bounds geo.BBox, categories ...model.Category) ([]model.POI, error)

	PutUniversity(ctx context.Context, u *model.University) error
	GetUniversity(ctx context.Context, id string) (*model.University, error)
	UniversitiesWithinRadius(ctx context.Context, center geo.Point, radiusKM float64) ([]model.University, error)
	UniversitiesInCity(ctx context.Context, city string) ([]model.University, error)

	PutNeighborhood(ctx context.Context, n *model.Neighborhood) error
	GetNeighborhood(ctx context.Context, id string) (*model.Neighborhood, error)
	ListNeighborhoods(ctx context.Context) ([]model.Neighborhood, error)
	NeighborhoodsWithinRadius(ctx context.Context, center geo.Point, radiusKM float64) ([]model.Neighborhood, error)
	SaveMetrics(ctx context.Context, neighborhoodID string, m model.NeighborhoodMetrics) error

	SaveAnalysis(ctx context.Context, a *model.MarketAnalysis) error
	GetAnalysis(ctx context.Context, id string) (*model.MarketAnalysis, error)
	GetAnalysisByKey(ctx context.Context, city, country string, version int) (*model.MarketAnalysis, error)
	FindAnalysisByCity(ctx context.Context, city string) (*model.MarketAnalysis, error)
	ListAnalyses(ctx context.Context) ([]model.MarketAnalysis, error)

	Migrate(ctx context.Context) error
	Close() error
}

// categorySet builds a lookup set; empty input means "all categories".
func categorySet(categories []model.Category) map[model.Category]bool {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[model.Category]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return set
}

func matchesCategory(set map[model.Category]bool, c model.Category) bool {
	return set == nil || set[c]
}

type poiWithDistance struct {
	poi  model.POI
	dist float64
}

func sortByDistance(items []poiWithDistance) []model.POI {
	sort.Slice(items, func(i, j int) bool { return items[i].dist < items[j].dist })
	out := make([]model.POI, len(items))
	for i, it := range items {
		out[i] = it.poi
	}
	return out
}
