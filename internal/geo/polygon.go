package geo

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Polygon is a WGS84 polygon. The first ring is the outer boundary, any
// further rings are holes. Coordinates are stored lng-first to match the
// underlying go-geom layout.
type Polygon struct {
	g *geom.Polygon
}

// NewPolygon builds a polygon from an outer ring of points. The ring is
// closed automatically if the last vertex does not repeat the first.
func NewPolygon(ring []Point) (*Polygon, error) {
	if len(ring) < 3 {
		return nil, eris.Errorf("geo: polygon ring needs at least 3 vertices, got %d", len(ring))
	}
	for _, p := range ring {
		if !p.Valid() {
			return nil, eris.Errorf("geo: polygon vertex out of range: %+v", p)
		}
	}

	flat := make([]float64, 0, (len(ring)+1)*2)
	for _, p := range ring {
		flat = append(flat, p.Lng, p.Lat)
	}
	if ring[0] != ring[len(ring)-1] {
		flat = append(flat, ring[0].Lng, ring[0].Lat)
	}

	g := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
	return &Polygon{g: g}, nil
}

// FromGeom wraps an existing go-geom polygon (e.g. decoded from a shapefile
// or EWKB). The polygon must have a non-degenerate outer ring.
func FromGeom(g *geom.Polygon) (*Polygon, error) {
	if g == nil || g.NumLinearRings() == 0 {
		return nil, eris.New("geo: nil or empty polygon")
	}
	if g.LinearRing(0).NumCoords() < 4 {
		return nil, eris.New("geo: outer ring has fewer than 3 distinct vertices")
	}
	return &Polygon{g: g}, nil
}

// Geom exposes the underlying go-geom polygon for wire encoding.
func (p *Polygon) Geom() *geom.Polygon { return p.g }

// ring returns the flat coordinates of ring i as (lng, lat) pairs.
func (p *Polygon) ring(i int) []float64 {
	flat := p.g.FlatCoords()
	ends := p.g.Ends()
	start := 0
	if i > 0 {
		start = ends[i-1]
	}
	return flat[start:ends[i]]
}

// Centroid returns the area-weighted centroid of the outer ring.
func (p *Polygon) Centroid() Point {
	flat := p.ring(0)
	var cx, cy, a float64
	for i := 0; i+3 < len(flat); i += 2 {
		x0, y0 := flat[i], flat[i+1]
		x1, y1 := flat[i+2], flat[i+3]
		cross := x0*y1 - x1*y0
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
		a += cross
	}
	if a == 0 {
		// Degenerate ring: fall back to the vertex mean.
		var sx, sy float64
		n := 0
		for i := 0; i+1 < len(flat); i += 2 {
			sx += flat[i]
			sy += flat[i+1]
			n++
		}
		return Point{Lat: sy / float64(n), Lng: sx / float64(n)}
	}
	return Point{Lat: cy / (3 * a), Lng: cx / (3 * a)}
}

// AreaSqKM returns the polygon area in square kilometers. The ring is
// projected to a local tangent plane at the centroid before the shoelace
// sum, which is accurate for neighborhood-scale polygons.
func (p *Polygon) AreaSqKM() float64 {
	c := p.Centroid()
	kmPerDegLat := earthRadiusKM * math.Pi / 180
	kmPerDegLng := kmPerDegLat * math.Cos(c.Lat*math.Pi/180)

	total := 0.0
	for r := 0; r < p.g.NumLinearRings(); r++ {
		flat := p.ring(r)
		var a float64
		for i := 0; i+3 < len(flat); i += 2 {
			x0 := flat[i] * kmPerDegLng
			y0 := flat[i+1] * kmPerDegLat
			x1 := flat[i+2] * kmPerDegLng
			y1 := flat[i+3] * kmPerDegLat
			a += x0*y1 - x1*y0
		}
		ringArea := math.Abs(a) / 2
		if r == 0 {
			total += ringArea
		} else {
			total -= ringArea
		}
	}
	if total < 0 {
		total = 0
	}
	return total
}

// Contains reports whether the point is inside the polygon (outer ring
// minus holes) using ray casting.
func (p *Polygon) Contains(pt Point) bool {
	if !ringContains(p.ring(0), pt) {
		return false
	}
	for r := 1; r < p.g.NumLinearRings(); r++ {
		if ringContains(p.ring(r), pt) {
			return false
		}
	}
	return true
}

// DistanceKM returns the distance from a point to the polygon: zero when
// inside, otherwise the distance to the nearest outer-ring vertex.
func (p *Polygon) DistanceKM(pt Point) float64 {
	if p.Contains(pt) {
		return 0
	}
	flat := p.ring(0)
	min := math.Inf(1)
	for i := 0; i+1 < len(flat); i += 2 {
		d := DistanceKM(pt, Point{Lat: flat[i+1], Lng: flat[i]})
		if d < min {
			min = d
		}
	}
	return min
}

// Bounds returns the polygon's bounding box.
func (p *Polygon) Bounds() BBox {
	b := p.g.Bounds()
	return BBox{West: b.Min(0), South: b.Min(1), East: b.Max(0), North: b.Max(1)}
}

func ringContains(flat []float64, pt Point) bool {
	inside := false
	n := len(flat) / 2
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := flat[i*2], flat[i*2+1]
		xj, yj := flat[j*2], flat[j*2+1]
		if (yi > pt.Lat) != (yj > pt.Lat) &&
			pt.Lng < (xj-xi)*(pt.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// MarshalJSON encodes the polygon as rings of [lng, lat] pairs.
func (p *Polygon) MarshalJSON() ([]byte, error) {
	rings := make([][][2]float64, p.g.NumLinearRings())
	for r := range rings {
		flat := p.ring(r)
		ring := make([][2]float64, 0, len(flat)/2)
		for i := 0; i+1 < len(flat); i += 2 {
			ring = append(ring, [2]float64{flat[i], flat[i+1]})
		}
		rings[r] = ring
	}
	return json.Marshal(rings)
}

// UnmarshalJSON decodes rings of [lng, lat] pairs.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var rings [][][2]float64
	if err := json.Unmarshal(data, &rings); err != nil {
		return eris.Wrap(err, "geo: decode polygon")
	}
	if len(rings) == 0 || len(rings[0]) < 3 {
		return eris.New("geo: decoded polygon has no usable outer ring")
	}

	var flat []float64
	ends := make([]int, 0, len(rings))
	for _, ring := range rings {
		for _, c := range ring {
			flat = append(flat, c[0], c[1])
		}
		// Close unclosed rings.
		first := ring[0]
		last := ring[len(ring)-1]
		if first != last {
			flat = append(flat, first[0], first[1])
		}
		ends = append(ends, len(flat))
	}

	p.g = geom.NewPolygonFlat(geom.XY, flat, ends).SetSRID(4326)
	return nil
}
