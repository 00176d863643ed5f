// Package geo provides geographic primitives: points, bounding boxes,
// geodesic distance, and polygon operations over go-geom geometries.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// earthRadiusKM is the mean Earth radius used for haversine distance.
const earthRadiusKM = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within WGS84 coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// DistanceKM returns the great-circle distance between two points in kilometers.
func DistanceKM(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox returns a box that fully contains the circle of the given
// radius around the point, clamped to coordinate ranges. Used as a cheap
// prefilter before exact haversine checks.
func (p Point) BoundingBox(radiusKM float64) BBox {
	dLat := radiusKM / 111.32
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	dLng := 180.0
	if cosLat > 1e-6 {
		dLng = radiusKM / (111.32 * cosLat)
	}
	return BBox{
		West:  math.Max(p.Lng-dLng, -180),
		South: math.Max(p.Lat-dLat, -90),
		East:  math.Min(p.Lng+dLng, 180),
		North: math.Min(p.Lat+dLat, 90),
	}
}

// BBox is a geographic bounding box (min/max lng and lat).
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Validate rejects degenerate or reversed viewports. Antimeridian-crossing
// boxes are not supported.
func (b BBox) Validate() error {
	if math.IsNaN(b.West) || math.IsNaN(b.South) || math.IsNaN(b.East) || math.IsNaN(b.North) {
		return eris.New("geo: bounds contain NaN")
	}
	if b.South < -90 || b.North > 90 || b.West < -180 || b.East > 180 {
		return eris.Errorf("geo: bounds out of range: %+v", b)
	}
	if b.East <= b.West || b.North <= b.South {
		return eris.Errorf("geo: degenerate bounds: %+v", b)
	}
	return nil
}

// Contains reports whether the point lies inside or on the box.
func (b BBox) Contains(p Point) bool {
	return p.Lng >= b.West && p.Lng <= b.East && p.Lat >= b.South && p.Lat <= b.North
}

// Center returns the midpoint of the box.
func (b BBox) Center() Point {
	return Point{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}
