package market

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/quadrant-invest/geointel/internal/model"
)

// Opportunity is a nearby city worth analyzing next.
type Opportunity struct {
	City          string  `json:"city"`
	Universities  int     `json:"universities"`
	TotalStudents int     `json:"total_students"`
	Analyzed      bool    `json:"analyzed"`
	Score         float64 `json:"score"`
}

var titleCaser = cases.Title(language.English)

// ExpansionOpportunities scouts cities within radiusKM of an analyzed
// market, scoring them by student mass, university count, and whether
// they are still unanalyzed. A non-positive radius falls back to the
// configured default. The current city needs an analysis first: its
// first campus anchors the search.
func (s *Service) ExpansionOpportunities(ctx context.Context, city string, radiusKM float64) ([]Opportunity, error) {
	if radiusKM <= 0 {
		radiusKM = s.cfg.ExpansionRadiusKM
	}
	analysis, err := s.store.FindAnalysisByCity(ctx, city)
	if err != nil {
		return nil, eris.Wrapf(err, "market: expansion from %s", city)
	}
	center, err := s.centerOf(ctx, analysis)
	if err != nil {
		return nil, err
	}

	nearby, err := s.store.UniversitiesWithinRadius(ctx, center, radiusKM)
	if err != nil {
		return nil, eris.Wrap(err, "market: scout universities")
	}

	known := make(map[string]struct{}, len(analysis.UniversityIDs))
	for _, id := range analysis.UniversityIDs {
		known[id] = struct{}{}
	}

	type group struct {
		unis     int
		students int
	}
	groups := make(map[string]*group)
	for _, u := range nearby {
		if _, ok := known[u.ID]; ok {
			continue
		}
		candidate := cityFromAddress(u.MainCampusAddress)
		if candidate == "" || strings.EqualFold(candidate, analysis.City) {
			continue
		}
		g, ok := groups[candidate]
		if !ok {
			g = &group{}
			groups[candidate] = g
		}
		g.unis++
		g.students += u.TotalStudents
	}

	var out []Opportunity
	for name, g := range groups {
		analyzed := false
		if _, err := s.store.FindAnalysisByCity(ctx, name); err == nil {
			analyzed = true
		} else if !eris.Is(err, model.ErrNotFound) {
			return nil, eris.Wrapf(err, "market: check analysis for %s", name)
		}

		score := math.Min(float64(g.students)/10000*30, 30)
		score += math.Min(10*float64(g.unis), 20)
		score += 25 // within reach of an established market
		if analyzed {
			score += 10
		} else {
			score += 25
		}
		if score <= s.cfg.OpportunityThreshold {
			continue
		}
		out = append(out, Opportunity{
			City:          name,
			Universities:  g.unis,
			TotalStudents: g.students,
			Analyzed:      analyzed,
			Score:         round1(score),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].City < out[j].City
	})
	if len(out) > s.cfg.MaxOpportunities {
		out = out[:s.cfg.MaxOpportunities]
	}

	zap.L().Debug("expansion scouted",
		zap.String("from", city),
		zap.Int("opportunities", len(out)))
	return out, nil
}

// cityFromAddress pulls the city out of a "street, city, country" campus
// address and normalizes its casing. An address with no comma-separated
// city segment is used whole.
func cityFromAddress(address string) string {
	parts := strings.Split(address, ",")
	city := strings.TrimSpace(address)
	if len(parts) >= 2 {
		city = strings.TrimSpace(parts[len(parts)-2])
	}
	if city == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(city))
}
