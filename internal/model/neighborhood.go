package model

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/quadrant-invest/geointel/internal/geo"
)

// LocationType positions a neighborhood relative to the urban core.
type LocationType string

const (
	LocationCityCentre LocationType = "city_centre"
	LocationSuburban   LocationType = "suburban"
	LocationEdgeOfTown LocationType = "edge_of_town"
)

// Neighborhood is a candidate development area.
type Neighborhood struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description,omitempty"`
	Boundary            *geo.Polygon        `json:"boundary,omitempty"`
	AreaSqKM            float64             `json:"area_sqkm,omitempty"`
	LocationType        LocationType        `json:"location_type,omitempty"`
	HistoricDistrict    bool                `json:"historic_district"`
	PlanningConstraints []string            `json:"planning_constraints,omitempty"`
	Zoning              string              `json:"zoning,omitempty"`
	MaxBuildingHeightM  float64             `json:"max_building_height_m,omitempty"`
	AvgLandPricePSF     float64             `json:"avg_land_price_psf,omitempty"`
	PrimaryUniversityID string              `json:"primary_university_id,omitempty"`
	CrimePercentile     *float64            `json:"crime_percentile,omitempty"` // 0 safest, 100 worst
	Metrics             NeighborhoodMetrics `json:"metrics"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// NeighborhoodMetrics holds the eight component scores plus the weighted
// overall. All scores are on a 0-100 scale. A zero CalculatedAt means the
// neighborhood has never been scored.
type NeighborhoodMetrics struct {
	Accessibility       float64 `json:"accessibility"`
	UniversityProximity float64 `json:"university_proximity"`
	Amenities           float64 `json:"amenities"`
	Affordability       float64 `json:"affordability"`
	Safety              float64 `json:"safety"`
	Cultural            float64 `json:"cultural"`
	PlanningFeasibility float64 `json:"planning_feasibility"`
	Competition         float64 `json:"competition"`
	Overall             float64 `json:"overall"`

	Weights        ScoreWeights `json:"weights"`
	TransportLinks int          `json:"transport_links"`
	AmenityCount   int          `json:"amenity_count"`
	DataSources    []string     `json:"data_sources,omitempty"`
	CalculatedAt   time.Time    `json:"calculated_at"`
}

// ComputeOverall sets Weights and the weighted overall score, rounded to
// one decimal place.
func (m *NeighborhoodMetrics) ComputeOverall(w ScoreWeights) {
	m.Weights = w
	sum := m.Accessibility*w.Accessibility +
		m.UniversityProximity*w.UniversityProximity +
		m.Amenities*w.Amenities +
		m.Affordability*w.Affordability +
		m.Safety*w.Safety +
		m.Cultural*w.Cultural +
		m.PlanningFeasibility*w.PlanningFeasibility +
		m.Competition*w.Competition
	m.Overall = math.Round(sum*10) / 10
}

// ScoreWeights weight the component scores into the overall. They must sum
// to 1.0.
type ScoreWeights struct {
	Accessibility       float64 `json:"accessibility" mapstructure:"accessibility"`
	UniversityProximity float64 `json:"university_proximity" mapstructure:"university_proximity"`
	Amenities           float64 `json:"amenities" mapstructure:"amenities"`
	Affordability       float64 `json:"affordability" mapstructure:"affordability"`
	Safety              float64 `json:"safety" mapstructure:"safety"`
	Cultural            float64 `json:"cultural" mapstructure:"cultural"`
	PlanningFeasibility float64 `json:"planning_feasibility" mapstructure:"planning_feasibility"`
	Competition         float64 `json:"competition" mapstructure:"competition"`
}

// DefaultScoreWeights weight university proximity and accessibility
// heaviest, matching how students actually pick accommodation.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Accessibility:       0.20,
		UniversityProximity: 0.25,
		Amenities:           0.15,
		Affordability:       0.10,
		Safety:              0.15,
		Cultural:            0.05,
		PlanningFeasibility: 0.05,
		Competition:         0.05,
	}
}

// Validate checks every weight lies in [0, 1] and the set sums to 1.0
// within a small tolerance.
func (w ScoreWeights) Validate() error {
	all := []float64{
		w.Accessibility, w.UniversityProximity, w.Amenities, w.Affordability,
		w.Safety, w.Cultural, w.PlanningFeasibility, w.Competition,
	}
	sum := 0.0
	for _, v := range all {
		if v < 0 || v > 1 {
			return eris.Wrapf(ErrValidation, "model: weight %v out of [0,1]", v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return eris.Wrapf(ErrValidation, "model: weights sum to %v, want 1.0", sum)
	}
	return nil
}
