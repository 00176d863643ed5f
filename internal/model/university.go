package model

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/quadrant-invest/geointel/internal/geo"
)

// UniversityType classifies an institution.
type UniversityType string

const (
	UniversityPublic        UniversityType = "public"
	UniversityPrivate       UniversityType = "private"
	UniversityTechnical     UniversityType = "technical"
	UniversityCommunity     UniversityType = "community"
	UniversityInternational UniversityType = "international"
)

// Campus is a secondary university site.
type Campus struct {
	Name         string    `json:"name"`
	Address      string    `json:"address,omitempty"`
	Location     geo.Point `json:"location"`
	StudentCount int       `json:"student_count,omitempty"`
}

// University is an institution with enrollment data. MainCampus carries the
// address used for city matching and the location used for all distance work.
type University struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	Type                  UniversityType `json:"type"`
	MainCampusAddress     string         `json:"main_campus_address"`
	Location              geo.Point      `json:"location"`
	Campuses              []Campus       `json:"campuses,omitempty"`
	TotalStudents         int            `json:"total_students"`
	InternationalStudents int            `json:"international_students"`
	PostgraduateStudents  int            `json:"postgraduate_students"`
	OnCampusBeds          int            `json:"on_campus_beds"`
	GrowthRate            float64        `json:"growth_rate"` // annual enrollment growth, percent
	RankingNational       int            `json:"ranking_national,omitempty"`
	RankingGlobal         int            `json:"ranking_global,omitempty"`
	Website               string         `json:"website,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// demandRatio is the share of enrollment assumed to need accommodation.
const demandRatio = 0.3

// InternationalPercentage returns international enrollment as a percentage
// of total, zero when enrollment is unrecorded.
func (u *University) InternationalPercentage() float64 {
	if u.TotalStudents <= 0 {
		return 0
	}
	return float64(u.InternationalStudents) / float64(u.TotalStudents) * 100
}

// EstimatedDemand is the bed demand implied by enrollment.
func (u *University) EstimatedDemand() int {
	return int(math.Round(float64(u.TotalStudents) * demandRatio))
}

// AccommodationShortage is estimated demand minus on-campus beds, floored
// at zero.
func (u *University) AccommodationShortage() int {
	shortage := u.EstimatedDemand() - u.OnCampusBeds
	if shortage < 0 {
		return 0
	}
	return shortage
}

// Validate enforces enrollment consistency.
func (u *University) Validate() error {
	if u.Name == "" {
		return eris.Wrap(ErrValidation, "model: university name is required")
	}
	if !u.Location.Valid() {
		return eris.Wrapf(ErrValidation, "model: university %q location out of range", u.Name)
	}
	if u.TotalStudents < 0 {
		return eris.Wrapf(ErrValidation, "model: university %q has negative enrollment", u.Name)
	}
	if u.InternationalStudents > u.TotalStudents {
		return eris.Wrapf(ErrValidation, "model: university %q international enrollment exceeds total", u.Name)
	}
	if u.PostgraduateStudents > u.TotalStudents {
		return eris.Wrapf(ErrValidation, "model: university %q postgraduate enrollment exceeds total", u.Name)
	}
	return nil
}
