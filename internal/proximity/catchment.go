package proximity

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// CatchmentRing describes the POI coverage within one travel ring.
type CatchmentRing struct {
	RadiusKM        float64                `json:"radius_km"`
	TotalPOIs       int                    `json:"total_pois"`
	Breakdown       map[model.Category]int `json:"breakdown"`
	EssentialCount  int                    `json:"essential_count"`
	LifestyleCount  int                    `json:"lifestyle_count"`
	DensityPerSqKM  float64                `json:"density_per_sqkm"`
	EssentialRating string                 `json:"essential_rating"`
}

// CompetitiveAnalysis summarizes nearby universities competing for the
// same accommodation demand.
type CompetitiveAnalysis struct {
	CompetingUniversities int      `json:"competing_universities"`
	CompetingStudents     int      `json:"competing_students"`
	MarketSharePct        float64  `json:"market_share_pct"`
	Competitors           []string `json:"competitors,omitempty"`
}

// Catchment is the travel-time catchment analysis for a university.
type Catchment struct {
	UniversityID    string              `json:"university_id"`
	UniversityName  string              `json:"university_name"`
	TravelMinutes   int                 `json:"travel_minutes"`
	WalkingRadiusKM float64             `json:"walking_radius_km"`
	CyclingRadiusKM float64             `json:"cycling_radius_km"`
	Walking         CatchmentRing       `json:"walking"`
	Cycling         CatchmentRing       `json:"cycling"`
	Competition     CompetitiveAnalysis `json:"competition"`
}

// CatchmentArea analyzes what students at the university can reach within
// the given travel time on foot and by bicycle, plus the competitive
// landscape within cycling range.
func (s *Service) CatchmentArea(ctx context.Context, uni *model.University, travelMinutes int) (*Catchment, error) {
	if uni == nil {
		return nil, eris.Wrap(model.ErrValidation, "proximity: nil university")
	}
	if travelMinutes <= 0 {
		return nil, eris.Wrap(model.ErrValidation, "proximity: travel minutes must be positive")
	}

	walkingRadius := round2(float64(travelMinutes) / 60 * s.cfg.WalkingSpeedKMH)
	cyclingRadius := round2(float64(travelMinutes) / 60 * s.cfg.CyclingSpeedKMH)

	walking, err := s.catchmentRing(ctx, uni.Location, walkingRadius)
	if err != nil {
		return nil, err
	}
	cycling, err := s.catchmentRing(ctx, uni.Location, cyclingRadius)
	if err != nil {
		return nil, err
	}
	competition, err := s.competitiveAnalysis(ctx, uni, cyclingRadius)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("catchment computed",
		zap.String("university", uni.Name),
		zap.Int("walking_pois", walking.TotalPOIs),
		zap.Int("cycling_pois", cycling.TotalPOIs))

	return &Catchment{
		UniversityID:    uni.ID,
		UniversityName:  uni.Name,
		TravelMinutes:   travelMinutes,
		WalkingRadiusKM: walkingRadius,
		CyclingRadiusKM: cyclingRadius,
		Walking:         walking,
		Cycling:         cycling,
		Competition:     competition,
	}, nil
}

func (s *Service) catchmentRing(ctx context.Context, center geo.Point, radiusKM float64) (CatchmentRing, error) {
	pois, err := s.store.FindWithinRadius(ctx, center, radiusKM)
	if err != nil {
		return CatchmentRing{}, eris.Wrap(err, "proximity: catchment ring")
	}

	breakdown := make(map[model.Category]int)
	for _, p := range pois {
		breakdown[p.Category]++
	}

	essential := breakdown[model.CategoryGrocery] +
		breakdown[model.CategoryTransport] +
		breakdown[model.CategoryMetro] +
		breakdown[model.CategoryBus]

	density := 0.0
	if radiusKM > 0 {
		density = round2(float64(len(pois)) / (math.Pi * radiusKM * radiusKM))
	}

	return CatchmentRing{
		RadiusKM:        radiusKM,
		TotalPOIs:       len(pois),
		Breakdown:       breakdown,
		EssentialCount:  essential,
		LifestyleCount:  len(pois) - essential,
		DensityPerSqKM:  density,
		EssentialRating: essentialRating(essential),
	}, nil
}

func essentialRating(n int) string {
	switch {
	case n >= 10:
		return "High"
	case n >= 5:
		return "Medium"
	default:
		return "Low"
	}
}

func (s *Service) competitiveAnalysis(ctx context.Context, uni *model.University, radiusKM float64) (CompetitiveAnalysis, error) {
	nearby, err := s.store.UniversitiesWithinRadius(ctx, uni.Location, radiusKM)
	if err != nil {
		return CompetitiveAnalysis{}, eris.Wrap(err, "proximity: competing universities")
	}

	var result CompetitiveAnalysis
	for _, other := range nearby {
		if other.ID == uni.ID {
			continue
		}
		result.CompetingUniversities++
		result.CompetingStudents += other.TotalStudents
		result.Competitors = append(result.Competitors, other.Name)
	}

	if result.CompetingStudents == 0 {
		result.MarketSharePct = 100
	} else {
		total := uni.TotalStudents + result.CompetingStudents
		result.MarketSharePct = round1(float64(uni.TotalStudents) / float64(total) * 100)
	}
	return result, nil
}
