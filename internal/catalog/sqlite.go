package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Spatial queries
// prefilter with a degree bounding box on indexed lat/lng columns, then
// refine with exact haversine distance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pois (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	capacity   INTEGER NOT NULL DEFAULT 0,
	verified   INTEGER NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS universities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	doc        TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	students   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS neighborhoods (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	doc        TEXT NOT NULL,
	metrics    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS market_analyses (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL DEFAULT 1,
	doc        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(city, country, version)
);

CREATE INDEX IF NOT EXISTS idx_pois_category ON pois(category);
CREATE INDEX IF NOT EXISTS idx_pois_lat_lng ON pois(lat, lng);
CREATE INDEX IF NOT EXISTS idx_universities_lat_lng ON universities(lat, lng);
CREATE INDEX IF NOT EXISTS idx_market_analyses_city ON market_analyses(city);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutPOI(ctx context.Context, p *model.POI) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pois (id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, address = excluded.address, category = excluded.category,
			lat = excluded.lat, lng = excluded.lng, capacity = excluded.capacity,
			verified = excluded.verified, source = excluded.source, updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Address, string(p.Category), p.Location.Lat, p.Location.Lng,
		p.Capacity, boolToInt(p.Verified), p.Source, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: put poi")
}

func (s *SQLiteStore) GetPOI(ctx context.Context, id string) (*model.POI, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
		 FROM pois WHERE id = ?`, id)
	p, err := scanPOI(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: poi %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get poi")
	}
	return p, nil
}

func (s *SQLiteStore) FindWithinRadius(ctx context.Context, center geo.Point, radiusKM float64, categories ...model.Category) ([]model.POI, error) {
	box := center.BoundingBox(radiusKM)
	query := `SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
		 FROM pois WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`
	args := []any{box.South, box.North, box.West, box.East}
	query, args = appendCategoryFilter(query, args, categories)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find within radius")
	}
	defer rows.Close()

	var hits []poiWithDistance
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan poi")
		}
		d := geo.DistanceKM(center, p.Location)
		if d <= radiusKM {
			hits = append(hits, poiWithDistance{poi: *p, dist: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate pois")
	}
	return sortByDistance(hits), nil
}

func (s *SQLiteStore) FindWithinPolygon(ctx context.Context, boundary *geo.Polygon, categories ...model.Category) ([]model.POI, error) {
	if boundary == nil {
		return nil, eris.Wrap(model.ErrInvalidGeometry, "sqlite: nil boundary")
	}
	box := boundary.Bounds()
	candidates, err := s.FindWithinBounds(ctx, box, categories...)
	if err != nil {
		return nil, err
	}

	centroid := boundary.Centroid()
	var hits []poiWithDistance
	for _, p := range candidates {
		if boundary.Contains(p.Location) {
			hits = append(hits, poiWithDistance{poi: p, dist: geo.DistanceKM(centroid, p.Location)})
		}
	}
	return sortByDistance(hits), nil
}

func (s *SQLiteStore) FindWithinBounds(ctx context.Context, bounds geo.BBox, categories ...model.Category) ([]model.POI, error) {
	if err := bounds.Validate(); err != nil {
		return nil, eris.Wrap(model.ErrInvalidBounds, err.Error())
	}
	query := `SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
		 FROM pois WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`
	args := []any{bounds.South, bounds.North, bounds.West, bounds.East}
	query, args = appendCategoryFilter(query, args, categories)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find within bounds")
	}
	defer rows.Close()

	center := bounds.Center()
	var hits []poiWithDistance
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan poi")
		}
		hits = append(hits, poiWithDistance{poi: *p, dist: geo.DistanceKM(center, p.Location)})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate pois")
	}
	return sortByDistance(hits), nil
}

func (s *SQLiteStore) PutUniversity(ctx context.Context, u *model.University) error {
	if err := u.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.New().String()
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	doc, err := json.Marshal(u)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal university")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO universities (id, name, doc, address, lat, lng, students, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, doc = excluded.doc, address = excluded.address,
			lat = excluded.lat, lng = excluded.lng, students = excluded.students,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, string(doc), u.MainCampusAddress, u.Location.Lat, u.Location.Lng,
		u.TotalStudents, u.CreatedAt, u.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: put university")
}

func (s *SQLiteStore) GetUniversity(ctx context.Context, id string) (*model.University, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM universities WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: university %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get university")
	}
	var u model.University
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal university")
	}
	return &u, nil
}

func (s *SQLiteStore) UniversitiesWithinRadius(ctx context.Context, center geo.Point, radiusKM float64) ([]model.University, error) {
	box := center.BoundingBox(radiusKM)
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc, lat, lng FROM universities WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`,
		box.South, box.North, box.West, box.East)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: universities within radius")
	}
	defer rows.Close()

	type hit struct {
		u model.University
		d float64
	}
	var hits []hit
	for rows.Next() {
		var doc string
		var lat, lng float64
		if err := rows.Scan(&doc, &lat, &lng); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan university")
		}
		d := geo.DistanceKM(center, geo.Point{Lat: lat, Lng: lng})
		if d > radiusKM {
			continue
		}
		var u model.University
		if err := json.Unmarshal([]byte(doc), &u); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal university")
		}
		hits = append(hits, hit{u: u, d: d})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate universities")
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]model.University, len(hits))
	for i, h := range hits {
		out[i] = h.u
	}
	return out, nil
}

func (s *SQLiteStore) UniversitiesInCity(ctx context.Context, city string) ([]model.University, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM universities WHERE lower(address) LIKE '%' || lower(?) || '%' ORDER BY students DESC`,
		city)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: universities in city")
	}
	defer rows.Close()

	var out []model.University
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan university")
		}
		var u model.University
		if err := json.Unmarshal([]byte(doc), &u); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal university")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate universities")
}

func (s *SQLiteStore) PutNeighborhood(ctx context.Context, n *model.Neighborhood) error {
	if n.Name == "" {
		return eris.Wrap(model.ErrValidation, "sqlite: neighborhood name is required")
	}
	now := time.Now().UTC()
	if n.ID == "" {
		n.ID = uuid.New().String()
		n.CreatedAt = now
	}
	if n.Boundary != nil && n.AreaSqKM == 0 {
		n.AreaSqKM = n.Boundary.AreaSqKM()
	}
	n.UpdatedAt = now

	doc, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal neighborhood")
	}
	metrics, err := json.Marshal(n.Metrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metrics")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO neighborhoods (id, name, doc, metrics, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, doc = excluded.doc, metrics = excluded.metrics,
			updated_at = excluded.updated_at`,
		n.ID, n.Name, string(doc), string(metrics), n.CreatedAt, n.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: put neighborhood")
}

func (s *SQLiteStore) GetNeighborhood(ctx context.Context, id string) (*model.Neighborhood, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc, metrics FROM neighborhoods WHERE id = ?`, id)
	n, err := scanNeighborhood(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: neighborhood %s", id)
	}
	return n, err
}

func (s *SQLiteStore) ListNeighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc, metrics FROM neighborhoods ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list neighborhoods")
	}
	defer rows.Close()

	var out []model.Neighborhood
	for rows.Next() {
		n, err := scanNeighborhood(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate neighborhoods")
}

func (s *SQLiteStore) NeighborhoodsWithinRadius(ctx context.Context, center geo.Point, radiusKM float64) ([]model.Neighborhood, error) {
	// Boundaries live in the JSON doc, so the filter runs in Go. Neighborhood
	// counts are small (hundreds per city).
	all, err := s.ListNeighborhoods(ctx)
	if err != nil {
		return nil, err
	}

	type hit struct {
		n model.Neighborhood
		d float64
	}
	var hits []hit
	for _, n := range all {
		if n.Boundary == nil {
			continue
		}
		d := n.Boundary.DistanceKM(center)
		if d <= radiusKM {
			hits = append(hits, hit{n: n, d: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]model.Neighborhood, len(hits))
	for i, h := range hits {
		out[i] = h.n
	}
	return out, nil
}

func (s *SQLiteStore) SaveMetrics(ctx context.Context, neighborhoodID string, m model.NeighborhoodMetrics) error {
	n, err := s.GetNeighborhood(ctx, neighborhoodID)
	if err != nil {
		return err
	}
	n.Metrics = m
	return s.PutNeighborhood(ctx, n)
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.MarketAnalysis) error {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.New().String()
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	doc, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO market_analyses (id, city, country, version, doc, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			city = excluded.city, country = excluded.country, version = excluded.version,
			doc = excluded.doc, updated_at = excluded.updated_at`,
		a.ID, a.City, a.Country, a.Version, string(doc), a.CreatedAt, a.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.MarketAnalysis, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM market_analyses WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: analysis %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get analysis")
	}
	return unmarshalAnalysis(doc)
}

func (s *SQLiteStore) GetAnalysisByKey(ctx context.Context, city, country string, version int) (*model.MarketAnalysis, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM market_analyses WHERE lower(city) = lower(?) AND lower(country) = lower(?) AND version = ?`,
		city, country, version).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: analysis %s/%s v%d", city, country, version)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get analysis by key")
	}
	return unmarshalAnalysis(doc)
}

func (s *SQLiteStore) FindAnalysisByCity(ctx context.Context, city string) (*model.MarketAnalysis, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM market_analyses WHERE lower(city) = lower(?) ORDER BY version DESC LIMIT 1`,
		city).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: no analysis for city %s", city)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find analysis by city")
	}
	return unmarshalAnalysis(doc)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context) ([]model.MarketAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM market_analyses ORDER BY city, version`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var out []model.MarketAnalysis
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		a, err := unmarshalAnalysis(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}

// helpers

func appendCategoryFilter(query string, args []any, categories []model.Category) (string, []any) {
	if len(categories) == 0 {
		return query, args
	}
	query += ` AND category IN (?` + strings.Repeat(", ?", len(categories)-1) + `)`
	for _, c := range categories {
		args = append(args, string(c))
	}
	return query, args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPOI(row scannable) (*model.POI, error) {
	var p model.POI
	var category string
	var verified int
	err := row.Scan(&p.ID, &p.Name, &p.Address, &category, &p.Location.Lat, &p.Location.Lng,
		&p.Capacity, &verified, &p.Source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = model.Category(category)
	p.Verified = verified != 0
	return &p, nil
}

func scanNeighborhood(row scannable) (*model.Neighborhood, error) {
	var doc string
	var metrics sql.NullString
	err := row.Scan(&doc, &metrics)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan neighborhood")
	}
	var n model.Neighborhood
	if err := json.Unmarshal([]byte(doc), &n); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal neighborhood")
	}
	if metrics.Valid && metrics.String != "" {
		if err := json.Unmarshal([]byte(metrics.String), &n.Metrics); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metrics")
		}
	}
	return &n, nil
}

func unmarshalAnalysis(doc string) (*model.MarketAnalysis, error) {
	var a model.MarketAnalysis
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &a, nil
}
