package market

import (
	"context"
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

var londonCenter = geo.Point{Lat: 51.5074, Lng: -0.1278}

func seedMarketStore(t *testing.T) catalog.Store {
	t.Helper()
	store := catalog.NewMemory()
	ctx := context.Background()

	unis := []model.University{
		{
			Name:                  "Central University",
			MainCampusAddress:     "1 Strand, London, UK",
			Location:              londonCenter,
			TotalStudents:         20000,
			InternationalStudents: 5000,
			GrowthRate:            3.0,
		},
		{
			Name:                  "Riverside College",
			MainCampusAddress:     "50 Bankside, London, UK",
			Location:              geo.Point{Lat: 51.51, Lng: -0.12},
			TotalStudents:         10000,
			InternationalStudents: 2000,
			GrowthRate:            1.0,
		},
	}
	for i := range unis {
		require.NoError(t, store.PutUniversity(ctx, &unis[i]))
	}

	dorms := []model.POI{
		{Name: "Union Hall", Category: model.CategoryDormitory,
			Location: geo.Point{Lat: 51.509, Lng: -0.125}, Capacity: 2000},
		{Name: "Bankside Rooms", Category: model.CategoryDormitory,
			Location: geo.Point{Lat: 51.512, Lng: -0.121}, Capacity: 1000},
	}
	for i := range dorms {
		require.NoError(t, store.PutPOI(ctx, &dorms[i]))
	}

	boundary, err := geo.NewPolygon([]geo.Point{
		{Lat: 51.50, Lng: -0.13},
		{Lat: 51.50, Lng: -0.12},
		{Lat: 51.51, Lng: -0.12},
		{Lat: 51.51, Lng: -0.13},
	})
	require.NoError(t, err)
	hood := model.Neighborhood{
		Name:     "Embankment",
		Boundary: boundary,
		Metrics:  model.NeighborhoodMetrics{Overall: 80, CalculatedAt: time.Now().UTC()},
	}
	require.NoError(t, store.PutNeighborhood(ctx, &hood))
	return store
}

func TestBuildAnalysis(t *testing.T) {
	svc := New(seedMarketStore(t), config.MarketConfig{})

	got, err := svc.BuildAnalysis(context.Background(), "London", "UK", false)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Version)
	assert.Equal(t, 30000, got.TotalStudentPopulation)
	assert.InDelta(t, 23.3, got.InternationalPercentage, 0.1)
	assert.Equal(t, 3000, got.ExistingBeds)
	assert.Equal(t, 9000, got.EstimatedDemand)
	assert.InDelta(t, 0.33, got.SupplyDemandRatio, 0.01)
	assert.Equal(t, 6000, got.SupplyShortage())
	assert.Equal(t, "Emerging", got.MarketMaturity())
	assert.InDelta(t, 150.0, got.AverageRentPerWeek, 1e-9)
	assert.Len(t, got.UniversityIDs, 2)

	require.Len(t, got.TopNeighborhoods, 1)
	assert.Equal(t, 1, got.TopNeighborhoods[0].Rank)
	assert.Equal(t, "Embankment", got.TopNeighborhoods[0].Name)

	assert.Contains(t, got.MarketSummary, "London")
	assert.Contains(t, got.MarketSummary, "Emerging")
	require.NotEmpty(t, got.KeyTrends)
	assert.Contains(t, got.KeyTrends[0], "international share")
	require.NotEmpty(t, got.Opportunities)
	assert.Contains(t, got.Opportunities[0], "Severe undersupply")
	assert.NotEmpty(t, got.Methodology)
}

func TestBuildAnalysisVersionGuard(t *testing.T) {
	svc := New(seedMarketStore(t), config.MarketConfig{})
	ctx := context.Background()

	first, err := svc.BuildAnalysis(ctx, "London", "UK", false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	_, err = svc.BuildAnalysis(ctx, "London", "UK", false)
	assert.True(t, eris.Is(err, model.ErrValidation))

	second, err := svc.BuildAnalysis(ctx, "London", "UK", true)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBuildAnalysisUnknownCity(t *testing.T) {
	svc := New(catalog.NewMemory(), config.MarketConfig{})
	_, err := svc.BuildAnalysis(context.Background(), "Atlantis", "Nowhere", false)
	assert.True(t, eris.Is(err, model.ErrNotFound))

	_, err = svc.BuildAnalysis(context.Background(), "", "UK", false)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestUpdateAnalysis(t *testing.T) {
	store := seedMarketStore(t)
	svc := New(store, config.MarketConfig{})
	ctx := context.Background()

	built, err := svc.BuildAnalysis(ctx, "London", "UK", false)
	require.NoError(t, err)

	// New stock arrives after the initial build.
	extra := model.POI{Name: "New Block", Category: model.CategoryDormitory,
		Location: geo.Point{Lat: 51.508, Lng: -0.124}, Capacity: 1500}
	require.NoError(t, store.PutPOI(ctx, &extra))

	updated, err := svc.UpdateAnalysis(ctx, built.ID)
	require.NoError(t, err)
	assert.Equal(t, built.ID, updated.ID)
	assert.Equal(t, built.Version, updated.Version)
	assert.Equal(t, 4500, updated.ExistingBeds)

	_, err = svc.UpdateAnalysis(ctx, "missing")
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func saveSnapshot(t *testing.T, store catalog.Store, a model.MarketAnalysis) string {
	t.Helper()
	require.NoError(t, store.SaveAnalysis(context.Background(), &a))
	return a.ID
}

func TestCompareMarkets(t *testing.T) {
	store := catalog.NewMemory()
	svc := New(store, config.MarketConfig{})
	ctx := context.Background()

	london := saveSnapshot(t, store, model.MarketAnalysis{
		City: "London", Country: "UK", Version: 1,
		TotalStudentPopulation: 30000, InternationalPercentage: 23.3,
		ExistingBeds: 3000, EstimatedDemand: 9000, SupplyDemandRatio: 0.33,
		AverageRentPerWeek: 250,
		TopNeighborhoods: []model.RankedNeighborhood{
			{Name: "Embankment", Rank: 1, OverallScore: 80},
		},
	})
	cambridge := saveSnapshot(t, store, model.MarketAnalysis{
		City: "Cambridge", Country: "UK", Version: 1,
		TotalStudentPopulation: 12000, InternationalPercentage: 30,
		ExistingBeds: 3000, EstimatedDemand: 3600, SupplyDemandRatio: 0.83,
		AverageRentPerWeek: 180,
	})

	got, err := svc.CompareMarkets(ctx, []string{london, cambridge})
	require.NoError(t, err)

	require.Len(t, got.Cities, 2)
	assert.Equal(t, []string{"London", "Cambridge"}, got.Rankings["by_demand"])
	assert.Equal(t, []string{"London", "Cambridge"}, got.Rankings["by_student_population"])
	assert.Equal(t, []string{"London", "Cambridge"}, got.Rankings["by_rent_potential"])
	assert.Equal(t, []string{"London", "Cambridge"}, got.Rankings["by_neighborhood_quality"])

	students := got.Stats["total_students"]
	assert.InDelta(t, 12000, students.Min, 1e-9)
	assert.InDelta(t, 30000, students.Max, 1e-9)
	assert.InDelta(t, 21000, students.Avg, 1e-9)

	require.NotEmpty(t, got.Recommendations)
	assert.Contains(t, got.Recommendations[0], "London")
}

func TestCompareMarketsErrors(t *testing.T) {
	store := catalog.NewMemory()
	svc := New(store, config.MarketConfig{})
	ctx := context.Background()

	_, err := svc.CompareMarkets(ctx, []string{"only-one"})
	assert.True(t, eris.Is(err, model.ErrInsufficientInput))

	_, err = svc.CompareMarkets(ctx, []string{"missing-a", "missing-b"})
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestExpansionOpportunities(t *testing.T) {
	store := seedMarketStore(t)
	svc := New(store, config.MarketConfig{})
	ctx := context.Background()

	reading := model.University{
		Name:              "Reading University",
		MainCampusAddress: "Whiteknights, Reading, UK",
		Location:          geo.Point{Lat: 51.4543, Lng: -0.9781},
		TotalStudents:     15000,
	}
	require.NoError(t, store.PutUniversity(ctx, &reading))
	// Too far to reach from London.
	edinburgh := model.University{
		Name:              "Edinburgh University",
		MainCampusAddress: "South Bridge, Edinburgh, UK",
		Location:          geo.Point{Lat: 55.9533, Lng: -3.1883},
		TotalStudents:     35000,
	}
	require.NoError(t, store.PutUniversity(ctx, &edinburgh))

	_, err := svc.BuildAnalysis(ctx, "London", "UK", false)
	require.NoError(t, err)

	got, err := svc.ExpansionOpportunities(ctx, "London", 0)
	require.NoError(t, err)

	require.Len(t, got, 1)
	opp := got[0]
	assert.Equal(t, "Reading", opp.City)
	assert.Equal(t, 1, opp.Universities)
	assert.Equal(t, 15000, opp.TotalStudents)
	assert.False(t, opp.Analyzed)
	// 30 student mass + 10 universities + 25 reach + 25 unanalyzed.
	assert.InDelta(t, 90.0, opp.Score, 1e-9)

	// Reading is about 59km out, so a tighter search misses it.
	got, err = svc.ExpansionOpportunities(ctx, "London", 30)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpansionOpportunitiesRequiresAnalysis(t *testing.T) {
	svc := New(catalog.NewMemory(), config.MarketConfig{})
	_, err := svc.ExpansionOpportunities(context.Background(), "London", 0)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestCityFromAddress(t *testing.T) {
	assert.Equal(t, "Reading", cityFromAddress("Whiteknights, Reading, UK"))
	assert.Equal(t, "New York", cityFromAddress("5th Ave, NEW YORK, USA"))
	// No city segment: the whole address stands in.
	assert.Equal(t, "Cambridge", cityFromAddress("cambridge"))
	assert.Empty(t, cityFromAddress(""))
}
