package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jengzang/visits-backend-go/internal/database"
	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/visits"
)

// VisitRepository persists visit candidates and visit events. It implements
// visits.Store; the copy handed to InTx callbacks is bound to the transaction.
type VisitRepository struct {
	db *sql.DB
	q  querier
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db, q: db}
}

var _ visits.Store = (*VisitRepository)(nil)

// InTx runs fn inside a single SQLite transaction
func (r *VisitRepository) InTx(ctx context.Context, fn func(tx visits.Tx) error) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&VisitRepository{db: r.db, q: tx})
	})
}

const visitColumns = `id, user_id, place_id, arrived_at, last_seen_at, ended_at,
		place_name, trip_id, trip_name, region_name, notes, icon, color, latitude, longitude`

// OpenVisit returns the open visit for (user, place), or nil
func (r *VisitRepository) OpenVisit(ctx context.Context, userID string, placeID int64) (*models.VisitEvent, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visit_events
		WHERE user_id = ? AND place_id = ? AND ended_at IS NULL LIMIT 1`,
		userID, placeID,
	)
	v, err := scanVisit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, eris.Wrap(err, "visits: get open visit")
}

// TouchVisit moves an open visit's last sighting forward to seenAt
func (r *VisitRepository) TouchVisit(ctx context.Context, visitID int64, seenAt time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE visit_events SET last_seen_at = MAX(last_seen_at, ?)
		WHERE id = ? AND ended_at IS NULL`,
		toMillis(seenAt), visitID,
	)
	return eris.Wrap(err, "visits: touch visit")
}

// InsertVisit stores a new open visit and sets its ID
func (r *VisitRepository) InsertVisit(ctx context.Context, v *models.VisitEvent) error {
	var ended sql.NullInt64
	if v.EndedAt != nil {
		ended = sql.NullInt64{Int64: toMillis(*v.EndedAt), Valid: true}
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO visit_events (user_id, place_id, arrived_at, last_seen_at, ended_at,
			place_name, trip_id, trip_name, region_name, notes, icon, color, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.UserID, v.PlaceID, toMillis(v.ArrivedAt), toMillis(v.LastSeenAt), ended,
		v.PlaceName, nullInt(v.TripID), v.TripName, v.RegionName, v.Notes, v.Icon, v.Color,
		nullFloat(v.Latitude), nullFloat(v.Longitude),
	)
	if err != nil {
		return eris.Wrap(err, "visits: insert visit")
	}
	v.ID, err = res.LastInsertId()
	return eris.Wrap(err, "visits: visit id")
}

// Candidate returns the pending candidate for (user, place), or nil
func (r *VisitRepository) Candidate(ctx context.Context, userID string, placeID int64) (*models.VisitCandidate, error) {
	var (
		c           models.VisitCandidate
		first, last int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT user_id, place_id, first_hit_at, last_hit_at, consecutive_hits
		FROM visit_candidates WHERE user_id = ? AND place_id = ?`,
		userID, placeID,
	).Scan(&c.UserID, &c.PlaceID, &first, &last, &c.ConsecutiveHits)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "visits: get candidate")
	}
	c.FirstHitAt = fromMillis(first)
	c.LastHitAt = fromMillis(last)
	return &c, nil
}

// SaveCandidate inserts or replaces the candidate for its (user, place)
func (r *VisitRepository) SaveCandidate(ctx context.Context, c models.VisitCandidate) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO visit_candidates (user_id, place_id, first_hit_at, last_hit_at, consecutive_hits)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, place_id) DO UPDATE SET
			first_hit_at = excluded.first_hit_at,
			last_hit_at = excluded.last_hit_at,
			consecutive_hits = excluded.consecutive_hits`,
		c.UserID, c.PlaceID, toMillis(c.FirstHitAt), toMillis(c.LastHitAt), c.ConsecutiveHits,
	)
	return eris.Wrap(err, "visits: save candidate")
}

// DeleteCandidate removes the candidate for (user, place) if present
func (r *VisitRepository) DeleteCandidate(ctx context.Context, userID string, placeID int64) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM visit_candidates WHERE user_id = ? AND place_id = ?`,
		userID, placeID,
	)
	return eris.Wrap(err, "visits: delete candidate")
}

// PlaceSnapshot joins a place with its region and trip, or returns nil
func (r *VisitRepository) PlaceSnapshot(ctx context.Context, placeID int64) (*models.PlaceSnapshot, error) {
	var (
		s          models.PlaceSnapshot
		lat, lon   sql.NullFloat64
		regionID   sql.NullInt64
		tripID     sql.NullInt64
		regionName sql.NullString
		tripName   sql.NullString
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT p.id, p.name, p.notes, p.icon, p.color, p.latitude, p.longitude,
			r.id, r.name, t.id, t.name
		FROM places p
		LEFT JOIN regions r ON r.id = p.region_id
		LEFT JOIN trips t ON t.id = r.trip_id
		WHERE p.id = ?`,
		placeID,
	).Scan(
		&s.PlaceID, &s.PlaceName, &s.Notes, &s.Icon, &s.Color, &lat, &lon,
		&regionID, &regionName, &tripID, &tripName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "visits: load place snapshot")
	}
	s.Latitude = floatPtr(lat)
	s.Longitude = floatPtr(lon)
	s.RegionID = intPtr(regionID)
	s.TripID = intPtr(tripID)
	s.RegionName = regionName.String
	s.TripName = tripName.String
	return &s, nil
}

// CloseStaleVisits ends every open visit of the user last seen before
// cutoff. The end time is the visit's own last sighting.
func (r *VisitRepository) CloseStaleVisits(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE visit_events SET ended_at = last_seen_at
		WHERE user_id = ? AND ended_at IS NULL AND last_seen_at < ?`,
		userID, toMillis(cutoff),
	)
	if err != nil {
		return 0, eris.Wrap(err, "visits: close stale visits")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "visits: closed rows")
}

// PurgeStaleCandidates deletes the user's candidates last hit before cutoff
func (r *VisitRepository) PurgeStaleCandidates(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM visit_candidates WHERE user_id = ? AND last_hit_at < ?`,
		userID, toMillis(cutoff),
	)
	if err != nil {
		return 0, eris.Wrap(err, "visits: purge stale candidates")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "visits: purged rows")
}

// HasRecentVisit implements visits.Tx
func (r *VisitRepository) HasRecentVisit(ctx context.Context, userID string, placeID, excludeID int64, since time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM visit_events
			WHERE user_id = ? AND place_id = ? AND id <> ? AND last_seen_at >= ?
		)`,
		userID, placeID, excludeID, toMillis(since),
	).Scan(&exists)
	return exists, eris.Wrap(err, "visits: check recent visit")
}

// GetVisits retrieves the user's visits with filtering and pagination
func (r *VisitRepository) GetVisits(ctx context.Context, userID string, filter models.VisitFilter) ([]models.VisitEvent, int64, error) {
	filter.Normalize()

	conditions := []string{"user_id = ?"}
	args := []any{userID}

	if filter.PlaceID > 0 {
		conditions = append(conditions, "place_id = ?")
		args = append(args, filter.PlaceID)
	}
	if filter.Open != nil {
		if *filter.Open {
			conditions = append(conditions, "ended_at IS NULL")
		} else {
			conditions = append(conditions, "ended_at IS NOT NULL")
		}
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "arrived_at >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "arrived_at <= ?")
		args = append(args, filter.EndTime)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM visit_events"+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "visits: count visits")
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := "SELECT " + visitColumns + " FROM visit_events" + where + " ORDER BY arrived_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "visits: query visits")
	}
	defer rows.Close()

	result := []models.VisitEvent{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "visits: scan visit")
		}
		result = append(result, *v)
	}
	return result, total, rows.Err()
}

// GetVisitByID retrieves one of the user's visits, or nil
func (r *VisitRepository) GetVisitByID(ctx context.Context, userID string, id int64) (*models.VisitEvent, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visit_events WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	v, err := scanVisit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, eris.Wrap(err, "visits: get visit")
}

func scanVisit(row rowScanner) (*models.VisitEvent, error) {
	var (
		v                 models.VisitEvent
		arrived, lastSeen int64
		ended, tripID     sql.NullInt64
		lat, lon          sql.NullFloat64
	)
	err := row.Scan(
		&v.ID, &v.UserID, &v.PlaceID, &arrived, &lastSeen, &ended,
		&v.PlaceName, &tripID, &v.TripName, &v.RegionName, &v.Notes, &v.Icon, &v.Color,
		&lat, &lon,
	)
	if err != nil {
		return nil, err
	}
	v.ArrivedAt = fromMillis(arrived)
	v.LastSeenAt = fromMillis(lastSeen)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		v.EndedAt = &t
	}
	v.TripID = intPtr(tripID)
	v.Latitude = floatPtr(lat)
	v.Longitude = floatPtr(lon)
	return &v, nil
}
