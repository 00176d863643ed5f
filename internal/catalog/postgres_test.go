package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS geo").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutPOI(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO geo.pois").
		WithArgs(pgxmock.AnyArg(), "Kings Cross Metro", "Euston Rd", "metro",
			51.5308, -0.1238, 0, false, "osm", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p := model.POI{
		Name:     "Kings Cross Metro",
		Address:  "Euston Rd",
		Category: model.CategoryMetro,
		Location: geo.Point{Lat: 51.5308, Lng: -0.1238},
		Source:   "osm",
	}
	require.NoError(t, s.PutPOI(context.Background(), &p))
	assert.NotEmpty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindWithinRadius(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "name", "address", "category", "lat", "lng",
		"capacity", "verified", "source", "created_at", "updated_at",
	}).AddRow("poi-1", "Tesco Express", "", "grocery", 51.509, -0.126, 0, true, "osm", now, now)

	mock.ExpectQuery("ST_DWithin").
		WithArgs(-0.1278, 51.5074, 2000.0, []string{"grocery"}).
		WillReturnRows(rows)

	got, err := s.FindWithinRadius(context.Background(),
		geo.Point{Lat: 51.5074, Lng: -0.1278}, 2.0, model.CategoryGrocery)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.CategoryGrocery, got[0].Category)
	assert.True(t, got[0].Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUniversity(t *testing.T) {
	s, mock := newMockStore(t)

	u := model.University{ID: "uni-1", Name: "Central University", TotalStudents: 30000,
		Location: geo.Point{Lat: 51.511, Lng: -0.116}}
	doc, err := json.Marshal(u)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT doc FROM geo.universities WHERE id").
		WithArgs("uni-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	got, err := s.GetUniversity(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.Equal(t, "Central University", got.Name)
	assert.Equal(t, 30000, got.TotalStudents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUniversityNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT doc FROM geo.universities WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}))

	_, err := s.GetUniversity(context.Background(), "missing")
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveMetricsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE geo.neighborhoods").
		WithArgs(pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SaveMetrics(context.Background(), "missing", model.NeighborhoodMetrics{})
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindAnalysisByCity(t *testing.T) {
	s, mock := newMockStore(t)

	a := model.MarketAnalysis{ID: "ma-1", City: "London", Country: "UK", Version: 3}
	doc, err := json.Marshal(a)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT doc FROM geo.market_analyses").
		WithArgs("London").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	got, err := s.FindAnalysisByCity(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
