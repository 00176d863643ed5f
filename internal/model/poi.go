package model

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/quadrant-invest/geointel/internal/geo"
)

// POI is a catalogued point of interest.
type POI struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Category  Category  `json:"category"`
	Location  geo.Point `json:"location"`
	Capacity  int       `json:"capacity,omitempty"` // bed count for dormitories
	Verified  bool      `json:"verified"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks category and coordinates.
func (p *POI) Validate() error {
	if p.Name == "" {
		return eris.Wrap(ErrValidation, "model: poi name is required")
	}
	if !p.Category.Valid() {
		return eris.Wrapf(ErrValidation, "model: unknown category %q", p.Category)
	}
	if !p.Location.Valid() {
		return eris.Wrapf(ErrValidation, "model: poi %q location out of range", p.Name)
	}
	return nil
}
