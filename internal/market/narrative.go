package market

import (
	"fmt"

	"github.com/quadrant-invest/geointel/internal/model"
)

// writeNarrative fills the prose fields of an analysis from its computed
// numbers. Thresholds follow standard PBSA underwriting heuristics.
func (s *Service) writeNarrative(a *model.MarketAnalysis, avgGrowth float64) {
	shortage := a.SupplyShortage()

	a.MarketSummary = fmt.Sprintf(
		"%s hosts %d students across %d universities with %d purpose-built beds against an estimated demand of %d (%s market, supply ratio %.2f).",
		a.City, a.TotalStudentPopulation, len(a.UniversityIDs),
		a.ExistingBeds+a.PipelineBeds, a.EstimatedDemand, a.MarketMaturity(), a.SupplyDemandRatio)

	a.KeyTrends = a.KeyTrends[:0]
	if a.InternationalPercentage > 25 {
		a.KeyTrends = append(a.KeyTrends,
			fmt.Sprintf("Very high international share (%.1f%%) supports premium rents", a.InternationalPercentage))
	} else if a.InternationalPercentage > 20 {
		a.KeyTrends = append(a.KeyTrends,
			fmt.Sprintf("Strong international share (%.1f%%) underpins demand", a.InternationalPercentage))
	}
	if avgGrowth > 2 {
		a.KeyTrends = append(a.KeyTrends,
			fmt.Sprintf("Enrollment growing at %.1f%% per year", avgGrowth))
	} else if avgGrowth < -2 {
		a.KeyTrends = append(a.KeyTrends,
			fmt.Sprintf("Enrollment shrinking at %.1f%% per year", avgGrowth))
	}
	if a.TotalStudentPopulation > 50000 {
		a.KeyTrends = append(a.KeyTrends, "Major student city with deep, liquid demand")
	}

	a.Opportunities = a.Opportunities[:0]
	if a.SupplyDemandRatio < 0.7 {
		a.Opportunities = append(a.Opportunities,
			fmt.Sprintf("Severe undersupply: %d-bed shortfall", shortage))
	} else if a.SupplyDemandRatio < 0.8 {
		a.Opportunities = append(a.Opportunities,
			fmt.Sprintf("Meaningful undersupply: %d-bed shortfall", shortage))
	}
	if len(a.TopNeighborhoods) > 0 && a.TopNeighborhoods[0].OverallScore >= 70 {
		a.Opportunities = append(a.Opportunities,
			fmt.Sprintf("%s scores %.1f and is development-ready", a.TopNeighborhoods[0].Name, a.TopNeighborhoods[0].OverallScore))
	}

	a.Risks = a.Risks[:0]
	if a.SupplyDemandRatio > 1.2 {
		a.Risks = append(a.Risks, "Oversupplied market: rent compression likely")
	}
	if avgGrowth < -2 {
		a.Risks = append(a.Risks, "Shrinking enrollment erodes the demand base")
	}
	if len(a.TopNeighborhoods) == 0 {
		a.Risks = append(a.Risks, "No scored neighborhoods yet: site quality unverified")
	}

	a.Methodology = fmt.Sprintf(
		"Demand estimated at %.0f%% of enrollment seeking purpose-built accommodation; supply counted from catalogued residences within %.0fkm of a campus.",
		s.cfg.DemandRatio*100, s.cfg.NeighborhoodRadiusKM)
	a.DataSources = []string{"university enrollment records", "accommodation catalog", "neighborhood metrics"}
}
