package model

import "github.com/rotisserie/eris"

// Error kinds shared across the engines. Callers match with eris.Is and
// the HTTP layer maps each kind to a status code.
var (
	ErrNotFound          = eris.New("not found")
	ErrInvalidGeometry   = eris.New("invalid geometry")
	ErrInvalidBounds     = eris.New("invalid bounds")
	ErrInsufficientInput = eris.New("insufficient input")
	ErrValidation        = eris.New("validation failed")
)
