package cluster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/config"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

var viewport = geo.BBox{West: -0.20, South: 51.40, East: 0.00, North: 51.60}

func seedCluster(t *testing.T, pois ...model.POI) catalog.Store {
	t.Helper()
	store := catalog.NewMemory()
	ctx := context.Background()
	for i := range pois {
		require.NoError(t, store.PutPOI(ctx, &pois[i]))
	}
	return store
}

// tightGroup places n POIs of a category within a few meters of each
// other so they always share a grid cell.
func tightGroup(n int, cat model.Category, lat, lng float64) []model.POI {
	out := make([]model.POI, n)
	for i := range out {
		out[i] = model.POI{
			Name:     fmt.Sprintf("%s %d", cat, i),
			Category: cat,
			Location: geo.Point{Lat: lat + float64(i)*0.00001, Lng: lng},
		}
	}
	return out
}

func TestCellSize(t *testing.T) {
	e := New(catalog.NewMemory(), config.ClusterConfig{})

	assert.InDelta(t, 0.5, e.cellSize(10), 1e-9)
	assert.InDelta(t, 0.125, e.cellSize(12), 1e-9)
	// Floors at the configured minimum at street-level zooms.
	assert.InDelta(t, 0.001, e.cellSize(20), 1e-9)
}

func TestMapClusters(t *testing.T) {
	pois := tightGroup(3, model.CategoryGrocery, 51.505, -0.095)
	pois = append(pois, model.POI{
		Name: "Lone Cafe", Category: model.CategoryRestaurant,
		Location: geo.Point{Lat: 51.45, Lng: -0.18},
	})
	e := New(seedCluster(t, pois...), config.ClusterConfig{})

	got, err := e.Map(context.Background(), Request{Bounds: viewport, Zoom: 12})
	require.NoError(t, err)

	// The lone cafe falls below the minimum cluster size at mid zoom.
	require.Len(t, got.Clusters, 1)
	assert.Equal(t, 4, got.Total)
	c := got.Clusters[0]
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, 3, c.Breakdown[model.CategoryGrocery])
	assert.Len(t, c.Members, 3)
	assert.InDelta(t, 51.505, c.Location.Lat, 0.001)
	assert.False(t, got.Cached)
}

func TestMapFullDetailZoom(t *testing.T) {
	pois := tightGroup(3, model.CategoryGrocery, 51.505, -0.095)
	pois = append(pois, model.POI{
		Name: "Lone Cafe", Category: model.CategoryRestaurant,
		Location: geo.Point{Lat: 51.45, Lng: -0.18},
	})
	e := New(seedCluster(t, pois...), config.ClusterConfig{})

	got, err := e.Map(context.Background(), Request{Bounds: viewport, Zoom: 15})
	require.NoError(t, err)
	// Past the full-detail zoom every POI surfaces, singles included.
	assert.Len(t, got.Clusters, 2)
}

func TestMapStreetZoomUnmergesNeighbors(t *testing.T) {
	// Two restaurants about 30m apart share a grid cell at every zoom,
	// but street-level zoom must render each as its own marker.
	pois := []model.POI{
		{Name: "Osteria", Category: model.CategoryRestaurant,
			Location: geo.Point{Lat: 51.5050, Lng: -0.0950}},
		{Name: "Trattoria", Category: model.CategoryRestaurant,
			Location: geo.Point{Lat: 51.5053, Lng: -0.0950}},
	}
	e := New(seedCluster(t, pois...), config.ClusterConfig{})

	merged, err := e.Map(context.Background(), Request{Bounds: viewport, Zoom: 15})
	require.NoError(t, err)
	require.Len(t, merged.Clusters, 1)
	assert.Equal(t, 2, merged.Clusters[0].Count)

	street, err := e.Map(context.Background(), Request{Bounds: viewport, Zoom: 18})
	require.NoError(t, err)
	require.Len(t, street.Clusters, 2)
	for _, c := range street.Clusters {
		assert.Equal(t, 1, c.Count)
		assert.Len(t, c.Members, 1)
	}
}

func TestMapSingletonCap(t *testing.T) {
	pois := []model.POI{
		{Name: "A", Category: model.CategoryGrocery, Location: geo.Point{Lat: 51.45, Lng: -0.18}},
		{Name: "B", Category: model.CategoryGrocery, Location: geo.Point{Lat: 51.55, Lng: -0.02}},
	}
	e := New(seedCluster(t, pois...), config.ClusterConfig{MaxSingletons: 1})

	got, err := e.Map(context.Background(), Request{Bounds: viewport, Zoom: 17})
	require.NoError(t, err)
	assert.Len(t, got.Clusters, 1)
	assert.Equal(t, 2, got.Total)
}

func TestMapCategoryFilter(t *testing.T) {
	pois := tightGroup(3, model.CategoryGrocery, 51.505, -0.095)
	pois = append(pois, tightGroup(3, model.CategoryMetro, 51.455, -0.045)...)
	e := New(seedCluster(t, pois...), config.ClusterConfig{})

	got, err := e.Map(context.Background(), Request{
		Bounds: viewport, Zoom: 12, Categories: []model.Category{model.CategoryMetro},
	})
	require.NoError(t, err)
	require.Len(t, got.Clusters, 1)
	assert.Equal(t, 3, got.Clusters[0].Breakdown[model.CategoryMetro])
}

func TestMapCaching(t *testing.T) {
	e := New(seedCluster(t, tightGroup(3, model.CategoryGrocery, 51.505, -0.095)...),
		config.ClusterConfig{})
	req := Request{Bounds: viewport, Zoom: 12}

	first, err := e.Map(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.Map(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Total, second.Total)

	e.Invalidate()
	third, err := e.Map(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Cached)

	stats := e.CacheStats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 2, stats.Misses)
}

func TestMapValidation(t *testing.T) {
	e := New(catalog.NewMemory(), config.ClusterConfig{})
	ctx := context.Background()

	_, err := e.Map(ctx, Request{
		Bounds: geo.BBox{West: 0, South: 51.6, East: -0.2, North: 51.4}, Zoom: 12,
	})
	assert.True(t, eris.Is(err, model.ErrInvalidBounds))

	_, err = e.Map(ctx, Request{Bounds: viewport, Zoom: 0})
	assert.True(t, eris.Is(err, model.ErrValidation))

	_, err = e.Map(ctx, Request{Bounds: viewport, Zoom: 12,
		Categories: []model.Category{"casino"}})
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestCacheKeyIgnoresCategoryOrder(t *testing.T) {
	a := cacheKey(Request{Bounds: viewport, Zoom: 12,
		Categories: []model.Category{model.CategoryMetro, model.CategoryBus}}, 3)
	b := cacheKey(Request{Bounds: viewport, Zoom: 12,
		Categories: []model.Category{model.CategoryBus, model.CategoryMetro}}, 3)
	assert.Equal(t, a, b)

	c := cacheKey(Request{Bounds: viewport, Zoom: 13,
		Categories: []model.Category{model.CategoryBus, model.CategoryMetro}}, 3)
	assert.NotEqual(t, a, c)
}

func TestCacheEvictionAndTTL(t *testing.T) {
	c := newResultCache(2, 50*time.Millisecond)
	c.put("a", &Result{Total: 1})
	c.put("b", &Result{Total: 2})
	c.put("c", &Result{Total: 3}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok)
	got, ok := c.get("b")
	require.True(t, ok)
	assert.Equal(t, 2, got.Total)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.get("b")
	assert.False(t, ok)

	stats := c.stats()
	assert.Equal(t, 1, stats.Evictions)
}
