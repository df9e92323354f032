package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/spatial"
)

// PlaceRepository handles database operations for trips, regions and places
type PlaceRepository struct {
	db *sql.DB
}

// NewPlaceRepository creates a new place repository
func NewPlaceRepository(db *sql.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// ownedPlaces scopes a places query to rows owned by the user directly or
// through the region's trip. It expects the user id twice.
const ownedPlaces = `FROM places p
		LEFT JOIN regions r ON r.id = p.region_id
		LEFT JOIN trips t ON t.id = r.trip_id
		WHERE (p.user_id = ? OR t.user_id = ?)`

const placeColumns = `p.id, p.user_id, p.region_id, p.name, p.notes, p.icon, p.color,
		p.latitude, p.longitude, p.created_at, p.updated_at`

// CreateTrip inserts a trip owned by userID
func (r *PlaceRepository) CreateTrip(ctx context.Context, userID, name string) (*models.Trip, error) {
	now := time.Now().UnixMilli()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO trips (user_id, name, created_at) VALUES (?, ?, ?)`,
		userID, name, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "places: insert trip")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "places: trip id")
	}
	return &models.Trip{ID: id, UserID: userID, Name: name, CreatedAt: now}, nil
}

// CreateRegion inserts a region under a trip owned by userID
func (r *PlaceRepository) CreateRegion(ctx context.Context, userID string, tripID int64, name string) (*models.Region, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM trips WHERE id = ?`, tripID).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != userID) {
		return nil, eris.Wrapf(ErrNotFound, "places: trip %d", tripID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "places: load trip")
	}

	now := time.Now().UnixMilli()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO regions (trip_id, name, created_at) VALUES (?, ?, ?)`,
		tripID, name, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "places: insert region")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "places: region id")
	}
	return &models.Region{ID: id, TripID: tripID, Name: name, CreatedAt: now}, nil
}

// CreatePlace inserts a place. Places under a region are owned through the
// region's trip; other places are owned directly by userID.
func (r *PlaceRepository) CreatePlace(ctx context.Context, userID string, req models.CreatePlaceRequest) (*models.Place, error) {
	p := models.Place{
		RegionID:  req.RegionID,
		Name:      req.Name,
		Notes:     req.Notes,
		Icon:      req.Icon,
		Color:     req.Color,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}

	if req.RegionID != nil {
		var owner string
		err := r.db.QueryRowContext(ctx,
			`SELECT t.user_id FROM regions r JOIN trips t ON t.id = r.trip_id WHERE r.id = ?`,
			*req.RegionID,
		).Scan(&owner)
		if err == sql.ErrNoRows || (err == nil && owner != userID) {
			return nil, eris.Wrapf(ErrNotFound, "places: region %d", *req.RegionID)
		}
		if err != nil {
			return nil, eris.Wrap(err, "places: load region")
		}
	} else {
		p.UserID = &userID
	}

	var cellID sql.NullInt64
	if p.HasLocation() {
		cellID = sql.NullInt64{Int64: spatial.CellID(*p.Latitude, *p.Longitude), Valid: true}
	}

	now := time.Now().UnixMilli()
	p.CreatedAt, p.UpdatedAt = now, now

	var owner sql.NullString
	if p.UserID != nil {
		owner = sql.NullString{String: *p.UserID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO places (user_id, region_id, name, notes, icon, color, latitude, longitude, cell_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		owner, nullInt(p.RegionID), p.Name, p.Notes, p.Icon, p.Color,
		nullFloat(p.Latitude), nullFloat(p.Longitude), cellID, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "places: insert place")
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, eris.Wrap(err, "places: place id")
	}
	return &p, nil
}

// GetPlaceByID retrieves a place owned by userID, or nil
func (r *PlaceRepository) GetPlaceByID(ctx context.Context, userID string, id int64) (*models.Place, error) {
	query := `SELECT ` + placeColumns + ` ` + ownedPlaces + ` AND p.id = ?`
	p, err := scanPlace(r.db.QueryRowContext(ctx, query, userID, userID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "places: get place")
	}
	return p, nil
}

// GetPlaces retrieves the user's places with filtering and pagination
func (r *PlaceRepository) GetPlaces(ctx context.Context, userID string, filter models.PlaceFilter) ([]models.Place, int64, error) {
	filter.Normalize()

	var conditions []string
	args := []any{userID, userID}

	if filter.TripID > 0 {
		conditions = append(conditions, "t.id = ?")
		args = append(args, filter.TripID)
	}
	if filter.RegionID > 0 {
		conditions = append(conditions, "p.region_id = ?")
		args = append(args, filter.RegionID)
	}
	if filter.HasLocation != nil {
		if *filter.HasLocation {
			conditions = append(conditions, "p.latitude IS NOT NULL AND p.longitude IS NOT NULL")
		} else {
			conditions = append(conditions, "(p.latitude IS NULL OR p.longitude IS NULL)")
		}
	}

	where := ownedPlaces
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) "+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "places: count places")
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := "SELECT " + placeColumns + " " + where + " ORDER BY p.id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "places: query places")
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "places: scan place")
		}
		places = append(places, *p)
	}
	return places, total, rows.Err()
}

// FindNearest returns the closest located place owned by userID within
// radiusMeters. Candidate rows come from the s2 cell index; the exact
// great-circle distance decides the winner, ties going to the lower id.
func (r *PlaceRepository) FindNearest(ctx context.Context, userID string, point models.Point, radiusMeters float64) (*models.PlaceMatch, error) {
	ranges := spatial.CoverRadius(point.Latitude, point.Longitude, radiusMeters)
	if len(ranges) == 0 {
		return nil, nil
	}

	cellConds := make([]string, 0, len(ranges))
	args := []any{userID, userID}
	for _, cr := range ranges {
		cellConds = append(cellConds, "p.cell_id BETWEEN ? AND ?")
		args = append(args, cr.Min, cr.Max)
	}

	query := `SELECT p.id, p.latitude, p.longitude ` + ownedPlaces + `
		AND p.latitude IS NOT NULL AND p.longitude IS NOT NULL
		AND (` + strings.Join(cellConds, " OR ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "places: query nearest")
	}
	defer rows.Close()

	var best *models.PlaceMatch
	for rows.Next() {
		var (
			id       int64
			lat, lon float64
		)
		if err := rows.Scan(&id, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "places: scan nearest")
		}
		d := spatial.HaversineDistance(point.Latitude, point.Longitude, lat, lon)
		if d > radiusMeters {
			continue
		}
		if best == nil || d < best.DistanceMeters || (d == best.DistanceMeters && id < best.PlaceID) {
			best = &models.PlaceMatch{PlaceID: id, DistanceMeters: d}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "places: iterate nearest")
	}
	return best, nil
}

// EachLocatedPlace calls fn for every place with a location, across all
// users, together with the id of the user that owns it.
func (r *PlaceRepository) EachLocatedPlace(ctx context.Context, fn func(ownerID string, p models.Place) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT COALESCE(p.user_id, t.user_id), `+placeColumns+`
		FROM places p
		LEFT JOIN regions r ON r.id = p.region_id
		LEFT JOIN trips t ON t.id = r.trip_id
		WHERE p.latitude IS NOT NULL AND p.longitude IS NOT NULL
		ORDER BY p.id`)
	if err != nil {
		return eris.Wrap(err, "places: query located")
	}
	defer rows.Close()

	var (
		owners []string
		places []models.Place
	)
	for rows.Next() {
		var owner sql.NullString
		p, err := scanPlace(prefixScanner{rows, &owner})
		if err != nil {
			return eris.Wrap(err, "places: scan located")
		}
		if !owner.Valid {
			continue
		}
		owners = append(owners, owner.String)
		places = append(places, *p)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "places: iterate located")
	}
	rows.Close()

	for i := range places {
		if err := fn(owners[i], places[i]); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (*models.Place, error) {
	var (
		p        models.Place
		userID   sql.NullString
		regionID sql.NullInt64
		lat, lon sql.NullFloat64
	)
	err := row.Scan(
		&p.ID, &userID, &regionID, &p.Name, &p.Notes, &p.Icon, &p.Color,
		&lat, &lon, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		p.UserID = &userID.String
	}
	p.RegionID = intPtr(regionID)
	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lon)
	return &p, nil
}

// prefixScanner scans one leading column into head before the columns
// scanPlace expects.
type prefixScanner struct {
	row  rowScanner
	head any
}

func (s prefixScanner) Scan(dest ...any) error {
	return s.row.Scan(append([]any{s.head}, dest...)...)
}
