package market

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/quadrant-invest/geointel/internal/model"
)

// CitySnapshot is one market reduced to its comparable numbers.
type CitySnapshot struct {
	AnalysisID           string  `json:"analysis_id"`
	City                 string  `json:"city"`
	TotalStudents        int     `json:"total_students"`
	InternationalPct     float64 `json:"international_pct"`
	SupplyDemandRatio    float64 `json:"supply_demand_ratio"`
	AverageRent          float64 `json:"average_rent"`
	SupplyShortage       int     `json:"supply_shortage"`
	TopNeighborhoodScore float64 `json:"top_neighborhood_score"`
}

// MetricStats holds the spread of one metric across compared markets.
type MetricStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Comparison is a side-by-side view of several markets.
type Comparison struct {
	Cities          []CitySnapshot         `json:"cities"`
	Stats           map[string]MetricStats `json:"stats"`
	Rankings        map[string][]string    `json:"rankings"`
	Recommendations []string               `json:"recommendations"`
	ComparedAt      time.Time              `json:"compared_at"`
}

// CompareMarkets loads the named analyses and compares them. At least two
// are needed for a comparison to mean anything.
func (s *Service) CompareMarkets(ctx context.Context, ids []string) (*Comparison, error) {
	if len(ids) < 2 {
		return nil, eris.Wrapf(model.ErrInsufficientInput, "market: need at least 2 analyses, got %d", len(ids))
	}

	snapshots := make([]CitySnapshot, 0, len(ids))
	for _, id := range ids {
		a, err := s.store.GetAnalysis(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "market: load analysis %s", id)
		}
		snap := CitySnapshot{
			AnalysisID:        a.ID,
			City:              a.City,
			TotalStudents:     a.TotalStudentPopulation,
			InternationalPct:  a.InternationalPercentage,
			SupplyDemandRatio: a.SupplyDemandRatio,
			AverageRent:       a.AverageRentPerWeek,
			SupplyShortage:    a.SupplyShortage(),
		}
		if len(a.TopNeighborhoods) > 0 {
			snap.TopNeighborhoodScore = a.TopNeighborhoods[0].OverallScore
		}
		snapshots = append(snapshots, snap)
	}

	result := &Comparison{
		Cities:     snapshots,
		Stats:      stats(snapshots),
		Rankings:   rankings(snapshots),
		ComparedAt: time.Now().UTC(),
	}
	result.Recommendations = recommendations(result)
	return result, nil
}

func stats(cities []CitySnapshot) map[string]MetricStats {
	metrics := map[string]func(CitySnapshot) float64{
		"total_students":           func(c CitySnapshot) float64 { return float64(c.TotalStudents) },
		"international_percentage": func(c CitySnapshot) float64 { return c.InternationalPct },
		"supply_demand_ratio":      func(c CitySnapshot) float64 { return c.SupplyDemandRatio },
		"average_rent":             func(c CitySnapshot) float64 { return c.AverageRent },
		"supply_shortage":          func(c CitySnapshot) float64 { return float64(c.SupplyShortage) },
		"top_neighborhood_score":   func(c CitySnapshot) float64 { return c.TopNeighborhoodScore },
	}

	out := make(map[string]MetricStats, len(metrics))
	for name, get := range metrics {
		st := MetricStats{Min: math.MaxFloat64, Max: -math.MaxFloat64}
		sum := 0.0
		for _, c := range cities {
			v := get(c)
			st.Min = math.Min(st.Min, v)
			st.Max = math.Max(st.Max, v)
			sum += v
		}
		st.Avg = round2(sum / float64(len(cities)))
		out[name] = st
	}
	return out
}

func rankings(cities []CitySnapshot) map[string][]string {
	byMetric := map[string]func(a, b CitySnapshot) bool{
		"by_demand":               func(a, b CitySnapshot) bool { return a.SupplyShortage > b.SupplyShortage },
		"by_student_population":   func(a, b CitySnapshot) bool { return a.TotalStudents > b.TotalStudents },
		"by_neighborhood_quality": func(a, b CitySnapshot) bool { return a.TopNeighborhoodScore > b.TopNeighborhoodScore },
		"by_rent_potential":       func(a, b CitySnapshot) bool { return a.AverageRent > b.AverageRent },
	}

	out := make(map[string][]string, len(byMetric))
	for name, less := range byMetric {
		ranked := append([]CitySnapshot(nil), cities...)
		sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
		names := make([]string, len(ranked))
		for i, c := range ranked {
			names[i] = c.City
		}
		out[name] = names
	}
	return out
}

func recommendations(c *Comparison) []string {
	var out []string

	byDemand := c.Rankings["by_demand"]
	if len(byDemand) > 0 {
		for _, city := range c.Cities {
			if city.City == byDemand[0] && city.SupplyShortage > 0 {
				out = append(out, fmt.Sprintf(
					"Prioritize %s: largest supply shortfall at %d beds", city.City, city.SupplyShortage))
				break
			}
		}
	}

	oversupplied := 0
	for _, city := range c.Cities {
		if city.SupplyDemandRatio > 1.2 {
			oversupplied++
		}
	}
	if oversupplied == len(c.Cities) {
		out = append(out, "Every compared market is oversupplied: consider widening the search")
	}

	if len(out) == 0 {
		out = append(out, "Markets are closely matched: weigh neighborhood quality and rent potential")
	}
	return out
}
