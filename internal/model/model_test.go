package model

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/quadrant-invest/geointel/internal/geo"
)

func TestUniversityDemand(t *testing.T) {
	u := University{TotalStudents: 25000, InternationalStudents: 6000, OnCampusBeds: 4000}

	assert.Equal(t, 7500, u.EstimatedDemand())
	assert.Equal(t, 3500, u.AccommodationShortage())
	assert.InDelta(t, 24.0, u.InternationalPercentage(), 1e-9)

	u.OnCampusBeds = 9000
	assert.Equal(t, 0, u.AccommodationShortage(), "shortage floors at zero")

	empty := University{}
	assert.Zero(t, empty.InternationalPercentage())
}

func TestUniversityValidate(t *testing.T) {
	base := University{
		Name:          "Metro University",
		Location:      geo.Point{Lat: 51.5, Lng: -0.1},
		TotalStudents: 10000,
	}
	assert.NoError(t, base.Validate())

	bad := base
	bad.InternationalStudents = 12000
	err := bad.Validate()
	assert.True(t, eris.Is(err, ErrValidation))

	bad = base
	bad.PostgraduateStudents = 10001
	assert.True(t, eris.Is(bad.Validate(), ErrValidation))
}

func TestPOIValidate(t *testing.T) {
	p := POI{Name: "Central Station", Category: CategoryTrain, Location: geo.Point{Lat: 51.53, Lng: -0.12}}
	assert.NoError(t, p.Validate())

	p.Category = "casino"
	assert.True(t, eris.Is(p.Validate(), ErrValidation))

	p.Category = CategoryTrain
	p.Location.Lat = 120
	assert.True(t, eris.Is(p.Validate(), ErrValidation))
}

func TestScoreWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultScoreWeights().Validate())

	w := DefaultScoreWeights()
	w.Accessibility = 0.5
	assert.True(t, eris.Is(w.Validate(), ErrValidation))

	w = ScoreWeights{Accessibility: 1.5, UniversityProximity: -0.5}
	assert.True(t, eris.Is(w.Validate(), ErrValidation))
}

func TestComputeOverall(t *testing.T) {
	m := NeighborhoodMetrics{
		Accessibility:       80,
		UniversityProximity: 90,
		Amenities:           70,
		Affordability:       60,
		Safety:              75,
		Cultural:            50,
		PlanningFeasibility: 65,
		Competition:         55,
	}
	m.ComputeOverall(DefaultScoreWeights())

	// .2*80 + .25*90 + .15*70 + .1*60 + .15*75 + .05*50 + .05*65 + .05*55 = 74.75
	assert.InDelta(t, 74.8, m.Overall, 1e-9)
	assert.Equal(t, DefaultScoreWeights(), m.Weights)
}

func TestMarketMaturity(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0.3, "Emerging"},
		{0.6, "Growing"},
		{1.0, "Mature"},
		{1.5, "Oversupplied"},
	}
	for _, tt := range tests {
		a := MarketAnalysis{SupplyDemandRatio: tt.ratio}
		assert.Equal(t, tt.want, a.MarketMaturity())
	}
}

func TestSupplyShortage(t *testing.T) {
	a := MarketAnalysis{EstimatedDemand: 10000, ExistingBeds: 6000, PipelineBeds: 1000}
	assert.Equal(t, 3000, a.SupplyShortage())

	a.ExistingBeds = 12000
	assert.Equal(t, -3000, a.SupplyShortage())
}

func TestCategorySets(t *testing.T) {
	assert.True(t, CategoryMetro.Valid())
	assert.False(t, Category("arcade").Valid())
	assert.Len(t, TransitCategories(), 4)
	assert.Len(t, AmenityCategories(), 6)
	assert.Contains(t, LeisureCategories(), CategoryNightlife)
}
