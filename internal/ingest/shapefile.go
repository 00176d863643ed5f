package ingest

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// ShapefileOptions configures a neighborhood boundary import.
type ShapefileOptions struct {
	NameField string // attribute holding the neighborhood name, default "name"
	DescField string // optional attribute holding a description
}

// ImportNeighborhoods loads polygon records from a shapefile into the
// catalog. The first ring of each polygon becomes the boundary; records
// without a usable polygon or name are skipped.
func ImportNeighborhoods(ctx context.Context, store catalog.Store, path string, opts ShapefileOptions) (*Report, error) {
	if opts.NameField == "" {
		opts.NameField = "name"
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	nameIdx, ok := fieldIdx[strings.ToLower(opts.NameField)]
	if !ok {
		return nil, eris.Errorf("ingest: shapefile has no %q attribute", opts.NameField)
	}

	report := &Report{}
	for reader.Next() {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: shapefile import cancelled")
		}
		report.Processed++

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			report.skip("record without a name")
			continue
		}

		_, shape := reader.Shape()
		boundary, err := shapeBoundary(shape)
		if err != nil {
			report.skip(name + ": " + err.Error())
			continue
		}

		n := model.Neighborhood{Name: name, Boundary: boundary}
		if opts.DescField != "" {
			if i, ok := fieldIdx[strings.ToLower(opts.DescField)]; ok {
				n.Description = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			}
		}
		if err := store.PutNeighborhood(ctx, &n); err != nil {
			report.skip(name + ": " + err.Error())
			continue
		}
		report.Imported++
	}

	if report.Skipped > 0 {
		zap.L().Debug("skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", report.Skipped))
	}
	return report, nil
}

// shapeBoundary converts a shapefile polygon's outer ring to a boundary.
func shapeBoundary(shape shp.Shape) (*geo.Polygon, error) {
	poly, ok := shape.(*shp.Polygon)
	if !ok || poly == nil {
		return nil, eris.New("ingest: not a polygon record")
	}
	if poly.NumParts == 0 || len(poly.Points) == 0 {
		return nil, eris.New("ingest: empty polygon")
	}

	end := int32(len(poly.Points))
	if poly.NumParts > 1 {
		end = poly.Parts[1]
	}
	ring := make([]geo.Point, 0, end-poly.Parts[0])
	for i := poly.Parts[0]; i < end; i++ {
		// Shapefiles store X=lng, Y=lat.
		ring = append(ring, geo.Point{Lat: poly.Points[i].Y, Lng: poly.Points[i].X})
	}

	boundary, err := geo.NewPolygon(ring)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: boundary ring")
	}
	return boundary, nil
}
