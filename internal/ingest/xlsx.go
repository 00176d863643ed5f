package ingest

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// XLSXOptions configures a university register import.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ImportUniversities loads a university register from an XLSX workbook.
// The first row must be a header; recognized columns are name, address,
// lat, lng, type, total_students, international_students,
// postgraduate_students, on_campus_beds, growth_rate, and website.
func ImportUniversities(ctx context.Context, store catalog.Store, path string, opts XLSXOptions) (*Report, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open workbook %s", path)
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: workbook sheet is empty")
	}

	idx := headerIndex(rowToStrings(sheet.Rows[0]))
	report := &Report{}

	for _, row := range sheet.Rows[1:] {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: workbook import cancelled")
		}
		report.Processed++
		cells := rowToStrings(row)

		latStr, lngStr := field(cells, idx, "lat"), field(cells, idx, "lng")
		if latStr == "" || lngStr == "" {
			report.skip(fmt.Sprintf("row %d: missing coordinates", report.Processed))
			continue
		}

		u := model.University{
			Name:              field(cells, idx, "name"),
			MainCampusAddress: field(cells, idx, "address"),
			Location: geo.Point{
				Lat: parseFloat(latStr),
				Lng: parseFloat(lngStr),
			},
			Type:                  model.UniversityType(field(cells, idx, "type")),
			TotalStudents:         parseInt(field(cells, idx, "total_students")),
			InternationalStudents: parseInt(field(cells, idx, "international_students")),
			PostgraduateStudents:  parseInt(field(cells, idx, "postgraduate_students")),
			OnCampusBeds:          parseInt(field(cells, idx, "on_campus_beds")),
			GrowthRate:            parseFloat(field(cells, idx, "growth_rate")),
			Website:               field(cells, idx, "website"),
		}
		if err := u.Validate(); err != nil {
			report.skip(fmt.Sprintf("row %d: %s", report.Processed, eris.ToString(err, false)))
			continue
		}
		if err := store.PutUniversity(ctx, &u); err != nil {
			report.skip(fmt.Sprintf("row %d: %s", report.Processed, eris.ToString(err, false)))
			continue
		}
		report.Imported++
	}

	zap.L().Info("university register imported",
		zap.String("path", path),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
