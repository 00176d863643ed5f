package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	pois          map[string]model.POI
	universities  map[string]model.University
	neighborhoods map[string]model.Neighborhood
	analyses      map[string]model.MarketAnalysis
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		pois:          make(map[string]model.POI),
		universities:  make(map[string]model.University),
		neighborhoods: make(map[string]model.Neighborhood),
		analyses:      make(map[string]model.MarketAnalysis),
	}
}

func (s *MemoryStore) PutPOI(_ context.Context, p *model.POI) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.pois[p.ID] = *p
	return nil
}

func (s *MemoryStore) GetPOI(_ context.Context, id string) (*model.POI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pois[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "catalog: poi %s", id)
	}
	return &p, nil
}

func (s *MemoryStore) FindWithinRadius(_ context.Context, center geo.Point, radiusKM float64, categories ...model.Category) ([]model.POI, error) {
	set := categorySet(categories)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []poiWithDistance
	for _, p := range s.pois {
		if !matchesCategory(set, p.Category) {
			continue
		}
		d := geo.DistanceKM(center, p.Location)
		if d <= radiusKM {
			hits = append(hits, poiWithDistance{poi: p, dist: d})
		}
	}
	return sortByDistance(hits), nil
}

func (s *MemoryStore) FindWithinPolygon(_ context.Context, boundary *geo.Polygon, categories ...model.Category) ([]model.POI, error) {
	if boundary == nil {
		return nil, eris.Wrap(model.ErrInvalidGeometry, "catalog: nil boundary")
	}
	set := categorySet(categories)
	centroid := boundary.Centroid()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []poiWithDistance
	for _, p := range s.pois {
		if !matchesCategory(set, p.Category) {
			continue
		}
		if boundary.Contains(p.Location) {
			hits = append(hits, poiWithDistance{poi: p, dist: geo.DistanceKM(centroid, p.Location)})
		}
	}
	return sortByDistance(hits), nil
}

func (s *MemoryStore) FindWithinBounds(_ context.Context, bounds geo.BBox, categories ...model.Category) ([]model.POI, error) {
	if err := bounds.Validate(); err != nil {
		return nil, eris.Wrap(model.ErrInvalidBounds, err.Error())
	}
	set := categorySet(categories)
	center := bounds.Center()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []poiWithDistance
	for _, p := range s.pois {
		if !matchesCategory(set, p.Category) {
			continue
		}
		if bounds.Contains(p.Location) {
			hits = append(hits, poiWithDistance{poi: p, dist: geo.DistanceKM(center, p.Location)})
		}
	}
	return sortByDistance(hits), nil
}

func (s *MemoryStore) PutUniversity(_ context.Context, u *model.University) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.New().String()
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.universities[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUniversity(_ context.Context, id string) (*model.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.universities[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "catalog: university %s", id)
	}
	return &u, nil
}

func (s *MemoryStore) UniversitiesWithinRadius(_ context.Context, center geo.Point, radiusKM float64) ([]model.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		u model.University
		d float64
	}
	var hits []hit
	for _, u := range s.universities {
		d := geo.DistanceKM(center, u.Location)
		if d <= radiusKM {
			hits = append(hits, hit{u: u, d: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]model.University, len(hits))
	for i, h := range hits {
		out[i] = h.u
	}
	return out, nil
}

func (s *MemoryStore) UniversitiesInCity(_ context.Context, city string) ([]model.University, error) {
	needle := strings.ToLower(city)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.University
	for _, u := range s.universities {
		if strings.Contains(strings.ToLower(u.MainCampusAddress), needle) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalStudents > out[j].TotalStudents })
	return out, nil
}

func (s *MemoryStore) PutNeighborhood(_ context.Context, n *model.Neighborhood) error {
	if n.Name == "" {
		return eris.Wrap(model.ErrValidation, "catalog: neighborhood name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if n.ID == "" {
		n.ID = uuid.New().String()
		n.CreatedAt = now
	}
	if n.Boundary != nil && n.AreaSqKM == 0 {
		n.AreaSqKM = n.Boundary.AreaSqKM()
	}
	n.UpdatedAt = now
	s.neighborhoods[n.ID] = *n
	return nil
}

func (s *MemoryStore) GetNeighborhood(_ context.Context, id string) (*model.Neighborhood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.neighborhoods[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "catalog: neighborhood %s", id)
	}
	return &n, nil
}

func (s *MemoryStore) ListNeighborhoods(_ context.Context) ([]model.Neighborhood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Neighborhood, 0, len(s.neighborhoods))
	for _, n := range s.neighborhoods {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) NeighborhoodsWithinRadius(_ context.Context, center geo.Point, radiusKM float64) ([]model.Neighborhood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		n model.Neighborhood
		d float64
	}
	var hits []hit
	for _, n := range s.neighborhoods {
		if n.Boundary == nil {
			continue
		}
		d := n.Boundary.DistanceKM(center)
		if d <= radiusKM {
			hits = append(hits, hit{n: n, d: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]model.Neighborhood, len(hits))
	for i, h := range hits {
		out[i] = h.n
	}
	return out, nil
}

func (s *MemoryStore) SaveMetrics(_ context.Context, neighborhoodID string, m model.NeighborhoodMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.neighborhoods[neighborhoodID]
	if !ok {
		return eris.Wrapf(model.ErrNotFound, "catalog: neighborhood %s", neighborhoodID)
	}
	n.Metrics = m
	n.UpdatedAt = time.Now().UTC()
	s.neighborhoods[neighborhoodID] = n
	return nil
}

func (s *MemoryStore) SaveAnalysis(_ context.Context, a *model.MarketAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.New().String()
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.analyses[a.ID] = *a
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, id string) (*model.MarketAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "catalog: analysis %s", id)
	}
	return &a, nil
}

func (s *MemoryStore) GetAnalysisByKey(_ context.Context, city, country string, version int) (*model.MarketAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.analyses {
		if strings.EqualFold(a.City, city) && strings.EqualFold(a.Country, country) && a.Version == version {
			return &a, nil
		}
	}
	return nil, eris.Wrapf(model.ErrNotFound, "catalog: analysis %s/%s v%d", city, country, version)
}

func (s *MemoryStore) FindAnalysisByCity(_ context.Context, city string) (*model.MarketAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.MarketAnalysis
	for _, a := range s.analyses {
		if !strings.EqualFold(a.City, city) {
			continue
		}
		a := a
		if best == nil || a.Version > best.Version {
			best = &a
		}
	}
	if best == nil {
		return nil, eris.Wrapf(model.ErrNotFound, "catalog: no analysis for city %s", city)
	}
	return best, nil
}

func (s *MemoryStore) ListAnalyses(_ context.Context) ([]model.MarketAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MarketAnalysis, 0, len(s.analyses))
	for _, a := range s.analyses {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
