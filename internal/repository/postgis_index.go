package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jengzang/visits-backend-go/internal/models"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgxPool is the subset of *pgxpool.Pool used by the PostGIS index
type PgxPool interface {
	execer
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostGISIndex mirrors located places into a PostGIS table and answers
// nearest-place queries from its GiST index. SQLite stays the source of
// truth; the index only holds id, owner and location.
type PostGISIndex struct {
	pool PgxPool
}

// NewPostGISIndex creates an index over an existing pool
func NewPostGISIndex(pool PgxPool) *PostGISIndex {
	return &PostGISIndex{pool: pool}
}

// ConnectPostGIS opens a pgx pool for the index
func ConnectPostGIS(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgis: ping")
	}
	return pool, nil
}

const postgisSchema = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE TABLE IF NOT EXISTS place_index (
	place_id BIGINT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	location geography(Point, 4326) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_place_index_location ON place_index USING GIST (location);
CREATE INDEX IF NOT EXISTS idx_place_index_owner ON place_index (owner_id);
`

// EnsureSchema creates the index table and its GiST index
func (x *PostGISIndex) EnsureSchema(ctx context.Context) error {
	_, err := x.pool.Exec(ctx, postgisSchema)
	return eris.Wrap(err, "postgis: ensure schema")
}

// IndexPlace upserts a located place for ownerID. Places without a
// location are removed from the index.
func (x *PostGISIndex) IndexPlace(ctx context.Context, ownerID string, p models.Place) error {
	return indexPlace(ctx, x.pool, ownerID, p)
}

func indexPlace(ctx context.Context, db execer, ownerID string, p models.Place) error {
	if !p.HasLocation() {
		_, err := db.Exec(ctx, `DELETE FROM place_index WHERE place_id = $1`, p.ID)
		return eris.Wrap(err, "postgis: unindex place")
	}
	_, err := db.Exec(ctx, `
		INSERT INTO place_index (place_id, owner_id, location)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography)
		ON CONFLICT (place_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			location = EXCLUDED.location`,
		p.ID, ownerID, *p.Longitude, *p.Latitude,
	)
	return eris.Wrap(err, "postgis: index place")
}

const nearestPlaceSQL = `
SELECT place_id, ST_Distance(location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography) AS distance
FROM place_index
WHERE owner_id = $1
  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
ORDER BY distance, place_id
LIMIT 1`

// FindNearest implements visits.Resolver. Ordering is on the exact
// geography distance, not the bounding-box KNN operator, so the result is
// the true nearest place.
func (x *PostGISIndex) FindNearest(ctx context.Context, userID string, point models.Point, radiusMeters float64) (*models.PlaceMatch, error) {
	var m models.PlaceMatch
	err := x.pool.QueryRow(ctx, nearestPlaceSQL, userID, point.Longitude, point.Latitude, radiusMeters).
		Scan(&m.PlaceID, &m.DistanceMeters)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgis: find nearest")
	}
	return &m, nil
}

// PlaceSource enumerates located places with their owners
type PlaceSource interface {
	EachLocatedPlace(ctx context.Context, fn func(ownerID string, p models.Place) error) error
}

// Rebuild replaces the index contents with the places from src in one
// transaction, returning the number of places indexed. Concurrent lookups
// keep seeing the previous contents until the commit.
func (x *PostGISIndex) Rebuild(ctx context.Context, src PlaceSource) (int, error) {
	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: begin rebuild")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM place_index`); err != nil {
		return 0, eris.Wrap(err, "postgis: clear index")
	}
	n := 0
	err = src.EachLocatedPlace(ctx, func(ownerID string, p models.Place) error {
		if err := indexPlace(ctx, tx, ownerID, p); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgis: commit rebuild")
	}
	return n, nil
}
