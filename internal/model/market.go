package model

import "time"

// RankedNeighborhood is a scored neighborhood inside a market analysis.
type RankedNeighborhood struct {
	NeighborhoodID string  `json:"neighborhood_id"`
	Name           string  `json:"name"`
	Rank           int     `json:"rank"`
	OverallScore   float64 `json:"overall_score"`
}

// MarketAnalysis is a versioned snapshot of a city's student accommodation
// market. (City, Country, Version) is unique.
type MarketAnalysis struct {
	ID           string    `json:"id"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	Version      int       `json:"version"`
	AnalysisDate time.Time `json:"analysis_date"`

	TotalStudentPopulation  int     `json:"total_student_population"`
	InternationalPercentage float64 `json:"international_percentage"`
	ExistingBeds            int     `json:"existing_beds"`
	PipelineBeds            int     `json:"pipeline_beds"`
	EstimatedDemand         int     `json:"estimated_demand"`
	SupplyDemandRatio       float64 `json:"supply_demand_ratio"`
	AverageRentPerWeek      float64 `json:"average_rent_per_week"`
	RentGrowthRate          float64 `json:"rent_growth_rate"`

	MarketSummary    string               `json:"market_summary"`
	KeyTrends        []string             `json:"key_trends,omitempty"`
	Opportunities    []string             `json:"opportunities,omitempty"`
	Risks            []string             `json:"risks,omitempty"`
	TopNeighborhoods []RankedNeighborhood `json:"top_neighborhoods,omitempty"`
	UniversityIDs    []string             `json:"university_ids,omitempty"`
	Methodology      string               `json:"methodology,omitempty"`
	DataSources      []string             `json:"data_sources,omitempty"`

	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SupplyShortage is estimated demand minus existing and pipeline beds.
// Negative means oversupply.
func (a *MarketAnalysis) SupplyShortage() int {
	return a.EstimatedDemand - (a.ExistingBeds + a.PipelineBeds)
}

// MarketMaturity classifies the market by its supply/demand ratio.
func (a *MarketAnalysis) MarketMaturity() string {
	switch {
	case a.SupplyDemandRatio < 0.5:
		return "Emerging"
	case a.SupplyDemandRatio < 0.8:
		return "Growing"
	case a.SupplyDemandRatio < 1.2:
		return "Mature"
	default:
		return "Oversupplied"
	}
}
