package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKM(t *testing.T) {
	austin := Point{Lat: 30.2672, Lng: -97.7431}
	dallas := Point{Lat: 32.7767, Lng: -96.7970}

	d := DistanceKM(austin, dallas)
	assert.InDelta(t, 290.0, d, 10.0)

	assert.Zero(t, DistanceKM(austin, austin))
	assert.InDelta(t, DistanceKM(austin, dallas), DistanceKM(dallas, austin), 1e-9)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 51.5, Lng: -0.12}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 181}.Valid())
}

func TestBBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		box     BBox
		wantErr bool
	}{
		{"valid", BBox{West: -0.2, South: 51.4, East: 0.1, North: 51.6}, false},
		{"reversed lng", BBox{West: 0.1, South: 51.4, East: -0.2, North: 51.6}, true},
		{"reversed lat", BBox{West: -0.2, South: 51.6, East: 0.1, North: 51.4}, true},
		{"zero area", BBox{West: 0, South: 0, East: 0, North: 0}, true},
		{"out of range", BBox{West: -200, South: 51.4, East: 0.1, North: 51.6}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBBoxContains(t *testing.T) {
	box := BBox{West: -0.2, South: 51.4, East: 0.1, North: 51.6}
	assert.True(t, box.Contains(Point{Lat: 51.5, Lng: -0.1}))
	assert.True(t, box.Contains(Point{Lat: 51.4, Lng: -0.2})) // edge counts
	assert.False(t, box.Contains(Point{Lat: 51.3, Lng: -0.1}))
	assert.False(t, box.Contains(Point{Lat: 51.5, Lng: 0.2}))
}

// unitSquare is roughly 1.11km x 0.69km at 51.5N.
func unitSquare(t *testing.T) *Polygon {
	t.Helper()
	poly, err := NewPolygon([]Point{
		{Lat: 51.50, Lng: -0.10},
		{Lat: 51.50, Lng: -0.09},
		{Lat: 51.51, Lng: -0.09},
		{Lat: 51.51, Lng: -0.10},
	})
	require.NoError(t, err)
	return poly
}

func TestNewPolygonRejectsDegenerate(t *testing.T) {
	_, err := NewPolygon([]Point{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}})
	assert.Error(t, err)

	_, err = NewPolygon([]Point{{Lat: 95, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 0}})
	assert.Error(t, err)
}

func TestPolygonCentroid(t *testing.T) {
	c := unitSquare(t).Centroid()
	assert.InDelta(t, 51.505, c.Lat, 1e-9)
	assert.InDelta(t, -0.095, c.Lng, 1e-9)
}

func TestPolygonContains(t *testing.T) {
	poly := unitSquare(t)
	assert.True(t, poly.Contains(Point{Lat: 51.505, Lng: -0.095}))
	assert.False(t, poly.Contains(Point{Lat: 51.52, Lng: -0.095}))
	assert.False(t, poly.Contains(Point{Lat: 51.505, Lng: -0.11}))
}

func TestPolygonAreaSqKM(t *testing.T) {
	// 0.01 deg lat x 0.01 deg lng at 51.5N: ~1.112km x ~0.692km.
	area := unitSquare(t).AreaSqKM()
	assert.InDelta(t, 0.77, area, 0.05)
}

func TestPolygonDistanceKM(t *testing.T) {
	poly := unitSquare(t)
	assert.Zero(t, poly.DistanceKM(Point{Lat: 51.505, Lng: -0.095}))

	// ~1.1km north of the top edge.
	d := poly.DistanceKM(Point{Lat: 51.52, Lng: -0.10})
	assert.InDelta(t, 1.1, d, 0.2)
}

func TestPolygonBounds(t *testing.T) {
	b := unitSquare(t).Bounds()
	assert.Equal(t, BBox{West: -0.10, South: 51.50, East: -0.09, North: 51.51}, b)
}

func TestPolygonJSONRoundTrip(t *testing.T) {
	poly := unitSquare(t)

	data, err := json.Marshal(poly)
	require.NoError(t, err)

	var back Polygon
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, poly.Bounds(), back.Bounds())
	assert.InDelta(t, poly.AreaSqKM(), back.AreaSqKM(), 1e-9)
	assert.True(t, back.Contains(Point{Lat: 51.505, Lng: -0.095}))
}
