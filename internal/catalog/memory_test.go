package catalog

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// Central London fixtures used across store tests.
var (
	centerPoint = geo.Point{Lat: 51.5074, Lng: -0.1278}

	testPOIs = []model.POI{
		{Name: "Kings Cross Metro", Category: model.CategoryMetro, Location: geo.Point{Lat: 51.5308, Lng: -0.1238}},
		{Name: "Tesco Express", Category: model.CategoryGrocery, Location: geo.Point{Lat: 51.5090, Lng: -0.1260}},
		{Name: "Riverside Hall", Category: model.CategoryDormitory, Location: geo.Point{Lat: 51.5100, Lng: -0.1200}, Capacity: 420},
		{Name: "Far Away Cafe", Category: model.CategoryRestaurant, Location: geo.Point{Lat: 52.2000, Lng: 0.1200}},
	}
)

func seedStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for i := range testPOIs {
		p := testPOIs[i]
		require.NoError(t, s.PutPOI(ctx, &p))
	}
}

func TestMemoryFindWithinRadius(t *testing.T) {
	s := NewMemory()
	seedStore(t, s)
	ctx := context.Background()

	got, err := s.FindWithinRadius(ctx, centerPoint, 3.0)
	require.NoError(t, err)
	require.Len(t, got, 3, "far away cafe is outside the radius")

	// Ascending distance from the center.
	for i := 1; i < len(got); i++ {
		di := geo.DistanceKM(centerPoint, got[i-1].Location)
		dj := geo.DistanceKM(centerPoint, got[i].Location)
		assert.LessOrEqual(t, di, dj)
	}

	// Category filter.
	grocers, err := s.FindWithinRadius(ctx, centerPoint, 3.0, model.CategoryGrocery)
	require.NoError(t, err)
	require.Len(t, grocers, 1)
	assert.Equal(t, "Tesco Express", grocers[0].Name)

	// Empty result is an empty slice, not an error.
	none, err := s.FindWithinRadius(ctx, centerPoint, 3.0, model.CategoryPark)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryFindWithinPolygon(t *testing.T) {
	s := NewMemory()
	seedStore(t, s)
	ctx := context.Background()

	poly, err := geo.NewPolygon([]geo.Point{
		{Lat: 51.50, Lng: -0.14},
		{Lat: 51.50, Lng: -0.11},
		{Lat: 51.52, Lng: -0.11},
		{Lat: 51.52, Lng: -0.14},
	})
	require.NoError(t, err)

	got, err := s.FindWithinPolygon(ctx, poly)
	require.NoError(t, err)
	assert.Len(t, got, 2) // grocery + dormitory; metro is north of the box

	_, err = s.FindWithinPolygon(ctx, nil)
	assert.True(t, eris.Is(err, model.ErrInvalidGeometry))
}

func TestMemoryFindWithinBounds(t *testing.T) {
	s := NewMemory()
	seedStore(t, s)
	ctx := context.Background()

	got, err := s.FindWithinBounds(ctx, geo.BBox{West: -0.14, South: 51.50, East: -0.11, North: 51.54})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = s.FindWithinBounds(ctx, geo.BBox{West: 1, South: 1, East: -1, North: -1})
	assert.True(t, eris.Is(err, model.ErrInvalidBounds))
}

func TestMemoryUniversities(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	u1 := model.University{
		Name:              "Central University",
		MainCampusAddress: "1 Strand, London, UK",
		Location:          geo.Point{Lat: 51.511, Lng: -0.116},
		TotalStudents:     30000,
	}
	u2 := model.University{
		Name:              "North College",
		MainCampusAddress: "5 High Road, Manchester, UK",
		Location:          geo.Point{Lat: 53.48, Lng: -2.24},
		TotalStudents:     12000,
	}
	require.NoError(t, s.PutUniversity(ctx, &u1))
	require.NoError(t, s.PutUniversity(ctx, &u2))

	near, err := s.UniversitiesWithinRadius(ctx, centerPoint, 10)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "Central University", near[0].Name)

	london, err := s.UniversitiesInCity(ctx, "london")
	require.NoError(t, err)
	require.Len(t, london, 1)
	assert.Equal(t, "Central University", london[0].Name)

	got, err := s.GetUniversity(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, u1.Name, got.Name)

	_, err = s.GetUniversity(ctx, "missing")
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestMemoryNeighborhoods(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	poly, err := geo.NewPolygon([]geo.Point{
		{Lat: 51.50, Lng: -0.14},
		{Lat: 51.50, Lng: -0.11},
		{Lat: 51.52, Lng: -0.11},
		{Lat: 51.52, Lng: -0.14},
	})
	require.NoError(t, err)

	n := model.Neighborhood{Name: "Covent Garden", Boundary: poly}
	require.NoError(t, s.PutNeighborhood(ctx, &n))
	assert.NotEmpty(t, n.ID)
	assert.Greater(t, n.AreaSqKM, 0.0, "area derived from boundary")

	near, err := s.NeighborhoodsWithinRadius(ctx, centerPoint, 5)
	require.NoError(t, err)
	assert.Len(t, near, 1)

	m := model.NeighborhoodMetrics{Accessibility: 80}
	m.ComputeOverall(model.DefaultScoreWeights())
	require.NoError(t, s.SaveMetrics(ctx, n.ID, m))

	got, err := s.GetNeighborhood(ctx, n.ID)
	require.NoError(t, err)
	assert.InDelta(t, 80, got.Metrics.Accessibility, 1e-9)

	err = s.SaveMetrics(ctx, "missing", m)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestMemoryAnalyses(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	a1 := model.MarketAnalysis{City: "London", Country: "UK", Version: 1, EstimatedDemand: 9000}
	a2 := model.MarketAnalysis{City: "London", Country: "UK", Version: 2, EstimatedDemand: 9500}
	require.NoError(t, s.SaveAnalysis(ctx, &a1))
	require.NoError(t, s.SaveAnalysis(ctx, &a2))

	latest, err := s.FindAnalysisByCity(ctx, "london")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	byKey, err := s.GetAnalysisByKey(ctx, "LONDON", "uk", 1)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, byKey.ID)

	_, err = s.GetAnalysisByKey(ctx, "London", "UK", 9)
	assert.True(t, eris.Is(err, model.ErrNotFound))

	all, err := s.ListAnalyses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.FindAnalysisByCity(ctx, "Paris")
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestMemoryPutPOIValidates(t *testing.T) {
	s := NewMemory()
	p := model.POI{Name: "Bad", Category: "unknown", Location: centerPoint}
	err := s.PutPOI(context.Background(), &p)
	assert.True(t, eris.Is(err, model.ErrValidation))
}
