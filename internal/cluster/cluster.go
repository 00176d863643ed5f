// Package cluster groups catalog POIs into map clusters for a given
// viewport and zoom level. Clustering is grid based: the viewport is cut
// into cells whose size halves with each zoom step, and POIs sharing a
// cell merge into one cluster at its mean position.
package cluster

import (
	"context"
	"fmt"
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

// Request describes one clustering query.
type Request struct {
	Bounds         geo.BBox         `json:"bounds"`
	Zoom           int              `json:"zoom"`
	Categories     []model.Category `json:"categories,omitempty"`
	MinClusterSize int              `json:"min_cluster_size,omitempty"`
}

// Member is a POI included in a cluster's detail listing.
type Member struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category model.Category `json:"category"`
	Location geo.Point      `json:"location"`
}

// Cluster is one rendered map marker: either a merged group or, at high
// zoom, a single POI.
type Cluster struct {
	Location  geo.Point              `json:"location"`
	Count     int                    `json:"count"`
	Breakdown map[model.Category]int `json:"breakdown"`
	Members   []Member               `json:"members,omitempty"`
}

// Result is the full clustering response for a viewport. Total counts
// every POI considered in the viewport; below the full-detail zoom,
// cells smaller than the minimum cluster size are omitted from Clusters,
// so the cluster counts can sum to less than Total.
type Result struct {
	Clusters   []Cluster `json:"clusters"`
	Total      int       `json:"total"`
	Zoom       int       `json:"zoom"`
	CellSizeKM float64   `json:"cell_size_km"`
	Cached     bool      `json:"cached"`
	ComputedAt time.Time `json:"computed_at"`
}

// Engine answers clustering queries, caching recent viewports.
type Engine struct {
	store catalog.Store
	cfg   config.ClusterConfig
	cache *resultCache
}

// New builds an Engine, filling zero config values with defaults.
func New(store catalog.Store, cfg config.ClusterConfig) *Engine {
	if cfg.BaseCellSizeDeg <= 0 {
		cfg.BaseCellSizeDeg = 0.5
	}
	if cfg.MinCellSizeDeg <= 0 {
		cfg.MinCellSizeDeg = 0.001
	}
	if cfg.BaseZoom <= 0 {
		cfg.BaseZoom = 10
	}
	if cfg.FullDetailZoom <= 0 {
		cfg.FullDetailZoom = 15
	}
	if cfg.SingletonZoom <= 0 {
		cfg.SingletonZoom = 17
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = 3
	}
	if cfg.MaxSingletons <= 0 {
		cfg.MaxSingletons = 1000
	}
	if cfg.CacheTTLSecs <= 0 {
		cfg.CacheTTLSecs = 300
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 256
	}
	if cfg.MemberDetailLimit <= 0 {
		cfg.MemberDetailLimit = 10
	}
	return &Engine{
		store: store,
		cfg:   cfg,
		cache: newResultCache(cfg.CacheMaxEntries, time.Duration(cfg.CacheTTLSecs)*time.Second),
	}
}

// cellSize returns the grid cell edge in degrees for a zoom level. The
// cell halves with each zoom step past the base zoom and never shrinks
// below the configured minimum.
func (e *Engine) cellSize(zoom int) float64 {
	size := e.cfg.BaseCellSizeDeg / math.Pow(2, float64(zoom-e.cfg.BaseZoom))
	return math.Max(e.cfg.MinCellSizeDeg, size)
}

// Map clusters the POIs in the requested viewport. Results are cached per
// viewport fingerprint; mutate the catalog and call Invalidate to force
// recomputation.
func (e *Engine) Map(ctx context.Context, req Request) (*Result, error) {
	if err := req.Bounds.Validate(); err != nil {
		return nil, eris.Wrap(model.ErrInvalidBounds, err.Error())
	}
	if req.Zoom < 1 || req.Zoom > 20 {
		return nil, eris.Wrapf(model.ErrValidation, "cluster: zoom %d out of range [1,20]", req.Zoom)
	}
	for _, c := range req.Categories {
		if !c.Valid() {
			return nil, eris.Wrapf(model.ErrValidation, "cluster: unknown category %q", c)
		}
	}
	minSize := req.MinClusterSize
	if minSize <= 0 {
		minSize = e.cfg.MinClusterSize
	}

	key := cacheKey(req, minSize)
	if cached, ok := e.cache.get(key); ok {
		out := *cached
		out.Cached = true
		return &out, nil
	}

	pois, err := e.store.FindWithinBounds(ctx, req.Bounds, req.Categories...)
	if err != nil {
		return nil, eris.Wrap(err, "cluster: viewport query")
	}

	result := e.build(pois, req.Zoom, minSize)
	e.cache.put(key, result)

	zap.L().Debug("viewport clustered",
		zap.Int("zoom", req.Zoom),
		zap.Int("pois", len(pois)),
		zap.Int("clusters", len(result.Clusters)))
	return result, nil
}

type gridCell struct {
	sumLat, sumLng float64
	pois           []model.POI
}

func (e *Engine) build(pois []model.POI, zoom, minSize int) *Result {
	size := e.cellSize(zoom)

	// At street-level zoom the grid no longer merges anything: every POI
	// renders as its own marker, capped to keep payloads bounded.
	if zoom >= e.cfg.SingletonZoom {
		return e.buildSingletons(pois, zoom, size)
	}

	cells := make(map[string]*gridCell)
	for _, p := range pois {
		key := fmt.Sprintf("%d:%d",
			int(math.Floor(p.Location.Lat/size)),
			int(math.Floor(p.Location.Lng/size)))
		cell, ok := cells[key]
		if !ok {
			cell = &gridCell{}
			cells[key] = cell
		}
		cell.sumLat += p.Location.Lat
		cell.sumLng += p.Location.Lng
		cell.pois = append(cell.pois, p)
	}

	keys := make([]string, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := &Result{
		Total:      len(pois),
		Zoom:       zoom,
		CellSizeKM: round2(size * 111.32),
		ComputedAt: time.Now().UTC(),
	}

	for _, k := range keys {
		cell := cells[k]
		n := len(cell.pois)
		if n < minSize && zoom < e.cfg.FullDetailZoom {
			continue
		}

		c := Cluster{
			Location: geo.Point{
				Lat: cell.sumLat / float64(n),
				Lng: cell.sumLng / float64(n),
			},
			Count:     n,
			Breakdown: make(map[model.Category]int, 4),
		}
		for _, p := range cell.pois {
			c.Breakdown[p.Category]++
		}
		if n <= e.cfg.MemberDetailLimit || zoom >= e.cfg.FullDetailZoom {
			c.Members = members(cell.pois)
		}
		result.Clusters = append(result.Clusters, c)
	}
	return result
}

func (e *Engine) buildSingletons(pois []model.POI, zoom int, size float64) *Result {
	result := &Result{
		Total:      len(pois),
		Zoom:       zoom,
		CellSizeKM: round2(size * 111.32),
		ComputedAt: time.Now().UTC(),
	}

	sorted := append([]model.POI(nil), pois...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	if len(sorted) > e.cfg.MaxSingletons {
		sorted = sorted[:e.cfg.MaxSingletons]
	}

	for _, p := range sorted {
		result.Clusters = append(result.Clusters, Cluster{
			Location:  p.Location,
			Count:     1,
			Breakdown: map[model.Category]int{p.Category: 1},
			Members:   []Member{{ID: p.ID, Name: p.Name, Category: p.Category, Location: p.Location}},
		})
	}
	return result
}

func members(pois []model.POI) []Member {
	out := make([]Member, len(pois))
	for i, p := range pois {
		out[i] = Member{ID: p.ID, Name: p.Name, Category: p.Category, Location: p.Location}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Invalidate drops every cached viewport. Call after catalog writes.
func (e *Engine) Invalidate() {
	e.cache.invalidate()
}

// CacheStats reports cache hit counters for the status command.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.stats()
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
