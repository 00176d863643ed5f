package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// CSVOptions configures a POI extract import.
type CSVOptions struct {
	Delimiter rune   // default ','
	Source    string // recorded on every imported POI, default "csv"
}

// ImportPOIs loads a POI extract from CSV. The first row must be a
// header; recognized columns are name, category, lat, lng, address,
// capacity, and verified. Rows that fail validation are skipped.
func ImportPOIs(ctx context.Context, store catalog.Store, r io.Reader, opts CSVOptions) (*Report, error) {
	if opts.Source == "" {
		opts.Source = "csv"
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	idx := headerIndex(header)

	report := &Report{}
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: csv import cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		report.Processed++

		latStr, lngStr := field(row, idx, "lat"), field(row, idx, "lng")
		if latStr == "" || lngStr == "" {
			report.skip(fmt.Sprintf("row %d: missing coordinates", report.Processed))
			continue
		}

		p := model.POI{
			Name:     field(row, idx, "name"),
			Address:  field(row, idx, "address"),
			Category: model.Category(field(row, idx, "category")),
			Location: geo.Point{
				Lat: parseFloat(latStr),
				Lng: parseFloat(lngStr),
			},
			Capacity: parseInt(field(row, idx, "capacity")),
			Verified: field(row, idx, "verified") == "true",
			Source:   opts.Source,
		}
		if err := p.Validate(); err != nil {
			report.skip(fmt.Sprintf("row %d: %s", report.Processed, eris.ToString(err, false)))
			continue
		}
		if err := store.PutPOI(ctx, &p); err != nil {
			report.skip(fmt.Sprintf("row %d: %s", report.Processed, eris.ToString(err, false)))
			continue
		}
		report.Imported++
	}

	zap.L().Info("poi extract imported",
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
