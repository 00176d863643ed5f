package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements Store on PostGIS. Geometry columns carry a GiST
// index; radius queries go through ST_DWithin on geography casts so
// distances are meters on the spheroid.
type PostgresStore struct {
	pool Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS geo;

CREATE TABLE IF NOT EXISTS geo.pois (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	geom       geometry(Point, 4326) NOT NULL,
	capacity   INTEGER NOT NULL DEFAULT 0,
	verified   BOOLEAN NOT NULL DEFAULT FALSE,
	source     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geo.universities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	students   INTEGER NOT NULL DEFAULT 0,
	geom       geometry(Point, 4326) NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geo.neighborhoods (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	boundary   geometry(Polygon, 4326),
	doc        JSONB NOT NULL,
	metrics    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geo.market_analyses (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL DEFAULT 1,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (city, country, version)
);

CREATE INDEX IF NOT EXISTS idx_geo_pois_geom ON geo.pois USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_geo_pois_category ON geo.pois (category);
CREATE INDEX IF NOT EXISTS idx_geo_universities_geom ON geo.universities USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_geo_neighborhoods_boundary ON geo.neighborhoods USING GIST (boundary);
CREATE INDEX IF NOT EXISTS idx_geo_market_analyses_city ON geo.market_analyses (lower(city));
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close is a no-op; the pool's lifecycle belongs to the caller.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) PutPOI(ctx context.Context, p *model.POI) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO geo.pois (id, name, address, category, lat, lng, geom, capacity, verified, source, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_MakePoint($6, $5), 4326), $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, category = EXCLUDED.category,
			lat = EXCLUDED.lat, lng = EXCLUDED.lng, geom = EXCLUDED.geom,
			capacity = EXCLUDED.capacity, verified = EXCLUDED.verified,
			source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Address, string(p.Category), p.Location.Lat, p.Location.Lng,
		p.Capacity, p.Verified, p.Source, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: put poi")
}

func (s *PostgresStore) GetPOI(ctx context.Context, id string) (*model.POI, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
		 FROM geo.pois WHERE id = $1`, id)
	p, err := scanPgPOI(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: poi %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get poi")
	}
	return p, nil
}

func (s *PostgresStore) FindWithinRadius(ctx context.Context, center geo.Point, radiusKM float64, categories ...model.Category) ([]model.POI, error) {
	query := `SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
		 FROM geo.pois
		 WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)`
	args := []any{center.Lng, center.Lat, radiusKM * 1000}
	if len(categories) > 0 {
		query += ` AND category = ANY($4)`
		args = append(args, categoryStrings(categories))
	}
	query += ` ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)`

	return s.queryPOIs(ctx, query, args...)
}

func (s *PostgresStore) FindWithinPolygon(ctx context.Context, boundary *geo.Polygon, categories ...model.Category) ([]model.POI, error) {
	if boundary == nil {
		return nil, eris.Wrap(model.ErrInvalidGeometry, "postgres: nil boundary")
	}
	wkb, err := ewkb.Marshal(boundary.Geom(), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode boundary")
	}
	centroid := boundary.Centroid()

	if len(categories) > 0 {
		return s.queryPOIs(ctx,
			`SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
			 FROM geo.pois
			 WHERE ST_Contains(ST_GeomFromEWKB($1), geom) AND category = ANY($2)
			 ORDER BY geom <-> ST_SetSRID(ST_MakePoint($3, $4), 4326)`,
			wkb, categoryStrings(categories), centroid.Lng, centroid.Lat)
	}
	return s.queryPOIs(ctx,
		`SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
		 FROM geo.pois
		 WHERE ST_Contains(ST_GeomFromEWKB($1), geom)
		 ORDER BY geom <-> ST_SetSRID(ST_MakePoint($2, $3), 4326)`,
		wkb, centroid.Lng, centroid.Lat)
}

func (s *PostgresStore) FindWithinBounds(ctx context.Context, bounds geo.BBox, categories ...model.Category) ([]model.POI, error) {
	if err := bounds.Validate(); err != nil {
		return nil, eris.Wrap(model.ErrInvalidBounds, err.Error())
	}
	query := `SELECT id, name, address, category, lat, lng, capacity, verified, source, created_at, updated_at
		 FROM geo.pois
		 WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)`
	args := []any{bounds.West, bounds.South, bounds.East, bounds.North}
	if len(categories) > 0 {
		query += ` AND category = ANY($5)`
		args = append(args, categoryStrings(categories))
	}
	query += ` ORDER BY id`
	return s.queryPOIs(ctx, query, args...)
}

func (s *PostgresStore) PutUniversity(ctx context.Context, u *model.University) error {
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
		return eris.Wrap(err, "postgres: marshal university")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO geo.universities (id, name, address, students, geom, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, students = EXCLUDED.students,
			geom = EXCLUDED.geom, doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		u.ID, u.Name, u.MainCampusAddress, u.TotalStudents, u.Location.Lng, u.Location.Lat,
		doc, u.CreatedAt, u.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: put university")
}

func (s *PostgresStore) GetUniversity(ctx context.Context, id string) (*model.University, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM geo.universities WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: university %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get university")
	}
	var u model.University
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal university")
	}
	return &u, nil
}

func (s *PostgresStore) UniversitiesWithinRadius(ctx context.Context, center geo.Point, radiusKM float64) ([]model.University, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM geo.universities
		 WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		 ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)`,
		center.Lng, center.Lat, radiusKM*1000)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: universities within radius")
	}
	return scanUniversityDocs(rows)
}

func (s *PostgresStore) UniversitiesInCity(ctx context.Context, city string) ([]model.University, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM geo.universities
		 WHERE address ILIKE '%' || $1 || '%'
		 ORDER BY students DESC`,
		city)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: universities in city")
	}
	return scanUniversityDocs(rows)
}

func (s *PostgresStore) PutNeighborhood(ctx context.Context, n *model.Neighborhood) error {
	if n.Name == "" {
		return eris.Wrap(model.ErrValidation, "postgres: neighborhood name is required")
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

	var wkb []byte
	if n.Boundary != nil {
		var err error
		wkb, err = ewkb.Marshal(n.Boundary.Geom(), ewkb.NDR)
		if err != nil {
			return eris.Wrap(err, "postgres: encode boundary")
		}
	}
	doc, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal neighborhood")
	}
	metrics, err := json.Marshal(n.Metrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metrics")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO geo.neighborhoods (id, name, boundary, doc, metrics, created_at, updated_at)
		 VALUES ($1, $2, ST_GeomFromEWKB($3), $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, boundary = EXCLUDED.boundary, doc = EXCLUDED.doc,
			metrics = EXCLUDED.metrics, updated_at = EXCLUDED.updated_at`,
		n.ID, n.Name, wkb, doc, metrics, n.CreatedAt, n.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: put neighborhood")
}

func (s *PostgresStore) GetNeighborhood(ctx context.Context, id string) (*model.Neighborhood, error) {
	var doc, metrics []byte
	err := s.pool.QueryRow(ctx, `SELECT doc, metrics FROM geo.neighborhoods WHERE id = $1`, id).Scan(&doc, &metrics)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: neighborhood %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get neighborhood")
	}
	return decodeNeighborhood(doc, metrics)
}

func (s *PostgresStore) ListNeighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc, metrics FROM geo.neighborhoods ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list neighborhoods")
	}
	return scanNeighborhoodDocs(rows)
}

func (s *PostgresStore) NeighborhoodsWithinRadius(ctx context.Context, center geo.Point, radiusKM float64) ([]model.Neighborhood, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc, metrics FROM geo.neighborhoods
		 WHERE boundary IS NOT NULL
		   AND ST_DWithin(boundary::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		 ORDER BY boundary <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)`,
		center.Lng, center.Lat, radiusKM*1000)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: neighborhoods within radius")
	}
	return scanNeighborhoodDocs(rows)
}

func (s *PostgresStore) SaveMetrics(ctx context.Context, neighborhoodID string, m model.NeighborhoodMetrics) error {
	metrics, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metrics")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE geo.neighborhoods
		 SET metrics = $1, doc = jsonb_set(doc, '{metrics}', $1::jsonb), updated_at = now()
		 WHERE id = $2`,
		metrics, neighborhoodID)
	if err != nil {
		return eris.Wrapf(err, "postgres: save metrics %s", neighborhoodID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: neighborhood %s", neighborhoodID)
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.MarketAnalysis) error {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.New().String()
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	doc, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO geo.market_analyses (id, city, country, version, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			city = EXCLUDED.city, country = EXCLUDED.country, version = EXCLUDED.version,
			doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		a.ID, a.City, a.Country, a.Version, doc, a.CreatedAt, a.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.MarketAnalysis, error) {
	return s.queryAnalysis(ctx, `SELECT doc FROM geo.market_analyses WHERE id = $1`, id)
}

func (s *PostgresStore) GetAnalysisByKey(ctx context.Context, city, country string, version int) (*model.MarketAnalysis, error) {
	return s.queryAnalysis(ctx,
		`SELECT doc FROM geo.market_analyses
		 WHERE lower(city) = lower($1) AND lower(country) = lower($2) AND version = $3`,
		city, country, version)
}

func (s *PostgresStore) FindAnalysisByCity(ctx context.Context, city string) (*model.MarketAnalysis, error) {
	return s.queryAnalysis(ctx,
		`SELECT doc FROM geo.market_analyses
		 WHERE lower(city) = lower($1)
		 ORDER BY version DESC LIMIT 1`,
		city)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context) ([]model.MarketAnalysis, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM geo.market_analyses ORDER BY city, version`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []model.MarketAnalysis
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		var a model.MarketAnalysis
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}

// helpers

func (s *PostgresStore) queryPOIs(ctx context.Context, query string, args ...any) ([]model.POI, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query pois")
	}
	defer rows.Close()

	var out []model.POI
	for rows.Next() {
		p, err := scanPgPOI(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan poi")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate pois")
}

func (s *PostgresStore) queryAnalysis(ctx context.Context, query string, args ...any) (*model.MarketAnalysis, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&doc)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(model.ErrNotFound, "postgres: analysis")
		}
		return nil, eris.Wrap(err, "postgres: get analysis")
	}
	var a model.MarketAnalysis
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &a, nil
}

func scanPgPOI(row pgx.Row) (*model.POI, error) {
	var p model.POI
	var category string
	err := row.Scan(&p.ID, &p.Name, &p.Address, &category, &p.Location.Lat, &p.Location.Lng,
		&p.Capacity, &p.Verified, &p.Source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = model.Category(category)
	return &p, nil
}

func scanUniversityDocs(rows pgx.Rows) ([]model.University, error) {
	defer rows.Close()
	var out []model.University
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan university")
		}
		var u model.University
		if err := json.Unmarshal(doc, &u); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal university")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate universities")
}

func scanNeighborhoodDocs(rows pgx.Rows) ([]model.Neighborhood, error) {
	defer rows.Close()
	var out []model.Neighborhood
	for rows.Next() {
		var doc, metrics []byte
		if err := rows.Scan(&doc, &metrics); err != nil {
			return nil, eris.Wrap(err, "postgres: scan neighborhood")
		}
		n, err := decodeNeighborhood(doc, metrics)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate neighborhoods")
}

func decodeNeighborhood(doc, metrics []byte) (*model.Neighborhood, error) {
	var n model.Neighborhood
	if err := json.Unmarshal(doc, &n); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal neighborhood")
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &n.Metrics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metrics")
		}
	}
	return &n, nil
}

func categoryStrings(categories []model.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}
