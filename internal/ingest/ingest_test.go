package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

func TestImportPOIs(t *testing.T) {
	input := strings.Join([]string{
		"name,category,lat,lng,address,capacity,verified",
		"Kings Cross Metro,metro,51.5308,-0.1238,Euston Rd,,true",
		"Riverside Hall,dormitory,51.5100,-0.1200,,420,false",
		"Bad Row,casino,51.5,-0.1,,,false",
		"No Coords,grocery,,,,,false",
	}, "\n")

	store := catalog.NewMemory()
	report, err := ImportPOIs(context.Background(), store, strings.NewReader(input), CSVOptions{Source: "osm"})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Errors, 2)

	got, err := store.FindWithinRadius(context.Background(),
		geo.Point{Lat: 51.52, Lng: -0.12}, 5, model.CategoryDormitory)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Riverside Hall", got[0].Name)
	assert.Equal(t, 420, got[0].Capacity)
	assert.Equal(t, "osm", got[0].Source)
}

func TestImportPOIsBadHeader(t *testing.T) {
	_, err := ImportPOIs(context.Background(), catalog.NewMemory(), strings.NewReader(""), CSVOptions{})
	assert.Error(t, err)
}

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Universities")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "universities.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestImportUniversities(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"name", "address", "lat", "lng", "type", "total_students", "international_students", "on_campus_beds"},
		{"Central University", "1 Strand, London, UK", "51.5074", "-0.1278", "public", "20000", "5000", "2000"},
		{"Riverside College", "50 Bankside, London, UK", "51.51", "-0.12", "public", "10000.0", "2000", ""},
		{"", "missing name", "51.5", "-0.1", "public", "100", "0", "0"},
	})

	store := catalog.NewMemory()
	report, err := ImportUniversities(context.Background(), store, path, XLSXOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Skipped)

	unis, err := store.UniversitiesInCity(context.Background(), "London")
	require.NoError(t, err)
	require.Len(t, unis, 2)
	assert.Equal(t, "Central University", unis[0].Name)
	assert.Equal(t, 20000, unis[0].TotalStudents)
	// Float-formatted enrollment still parses.
	assert.Equal(t, 10000, unis[1].TotalStudents)
}

func TestImportUniversitiesSheetSelection(t *testing.T) {
	path := writeWorkbook(t, [][]string{{"name", "lat", "lng"}})

	_, err := ImportUniversities(context.Background(), catalog.NewMemory(), path,
		XLSXOptions{SheetName: "NoSuchSheet"})
	assert.Error(t, err)

	_, err = ImportUniversities(context.Background(), catalog.NewMemory(), path,
		XLSXOptions{SheetIndex: 5})
	assert.Error(t, err)
}

func TestShapeBoundary(t *testing.T) {
	poly := &shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: -0.10, Y: 51.50},
			{X: -0.09, Y: 51.50},
			{X: -0.09, Y: 51.51},
			{X: -0.10, Y: 51.51},
			{X: -0.10, Y: 51.50},
		},
	}

	boundary, err := shapeBoundary(poly)
	require.NoError(t, err)
	assert.True(t, boundary.Contains(geo.Point{Lat: 51.505, Lng: -0.095}))

	c := boundary.Centroid()
	assert.InDelta(t, 51.505, c.Lat, 1e-6)
	assert.InDelta(t, -0.095, c.Lng, 1e-6)
}

func TestShapeBoundaryOuterRingOnly(t *testing.T) {
	// Two parts: the outer ring and a hole. Only the outer ring is kept.
	poly := &shp.Polygon{
		NumParts:  2,
		NumPoints: 9,
		Parts:     []int32{0, 5},
		Points: []shp.Point{
			{X: -0.10, Y: 51.50},
			{X: -0.09, Y: 51.50},
			{X: -0.09, Y: 51.51},
			{X: -0.10, Y: 51.51},
			{X: -0.10, Y: 51.50},
			{X: -0.096, Y: 51.504},
			{X: -0.094, Y: 51.504},
			{X: -0.094, Y: 51.506},
			{X: -0.096, Y: 51.506},
		},
	}

	boundary, err := shapeBoundary(poly)
	require.NoError(t, err)
	assert.True(t, boundary.Contains(geo.Point{Lat: 51.505, Lng: -0.095}))
}

func TestShapeBoundaryRejectsBadShapes(t *testing.T) {
	_, err := shapeBoundary(nil)
	assert.Error(t, err)

	_, err = shapeBoundary(&shp.Point{X: -0.1, Y: 51.5})
	assert.Error(t, err)

	_, err = shapeBoundary(&shp.Polygon{})
	assert.Error(t, err)
}

func TestImportNeighborhoodsMissingFile(t *testing.T) {
	_, err := ImportNeighborhoods(context.Background(), catalog.NewMemory(),
		filepath.Join(t.TempDir(), "missing.shp"), ShapefileOptions{})
	assert.Error(t, err)
}
