package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// SettingsRepository stores the single row of visit detection thresholds.
// Until a row is saved, the configured defaults apply.
type SettingsRepository struct {
	db       *sql.DB
	defaults models.VisitSettings
}

// NewSettingsRepository creates a settings repository falling back to defaults
func NewSettingsRepository(db *sql.DB, defaults models.VisitSettings) *SettingsRepository {
	return &SettingsRepository{db: db, defaults: defaults}
}

// Load returns the current thresholds. It implements visits.SettingsSource.
func (r *SettingsRepository) Load(ctx context.Context) (models.VisitSettings, error) {
	var s models.VisitSettings
	err := r.db.QueryRowContext(ctx,
		`SELECT accuracy_reject_meters, min_radius_meters, max_radius_meters, accuracy_multiplier,
			search_radius_meters, hit_window_minutes, required_hits, candidate_stale_minutes,
			open_visit_stale_minutes, notification_cooldown_hours, notes_snapshot_max_length
		FROM visit_settings WHERE id = 1`,
	).Scan(
		&s.AccuracyRejectMeters, &s.MinRadiusMeters, &s.MaxRadiusMeters, &s.AccuracyMultiplier,
		&s.SearchRadiusMeters, &s.HitWindowMinutes, &s.RequiredHits, &s.CandidateStaleMinutes,
		&s.OpenVisitStaleMinutes, &s.NotificationCooldownHours, &s.NotesSnapshotMaxLength,
	)
	if err == sql.ErrNoRows {
		s = r.defaults
	} else if err != nil {
		return models.VisitSettings{}, eris.Wrap(err, "settings: load")
	}

	if err := s.Validate(); err != nil {
		return models.VisitSettings{}, err
	}
	return s, nil
}

// Save validates and stores new thresholds
func (r *SettingsRepository) Save(ctx context.Context, s models.VisitSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO visit_settings (id, accuracy_reject_meters, min_radius_meters, max_radius_meters,
			accuracy_multiplier, search_radius_meters, hit_window_minutes, required_hits,
			candidate_stale_minutes, open_visit_stale_minutes, notification_cooldown_hours,
			notes_snapshot_max_length, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			accuracy_reject_meters = excluded.accuracy_reject_meters,
			min_radius_meters = excluded.min_radius_meters,
			max_radius_meters = excluded.max_radius_meters,
			accuracy_multiplier = excluded.accuracy_multiplier,
			search_radius_meters = excluded.search_radius_meters,
			hit_window_minutes = excluded.hit_window_minutes,
			required_hits = excluded.required_hits,
			candidate_stale_minutes = excluded.candidate_stale_minutes,
			open_visit_stale_minutes = excluded.open_visit_stale_minutes,
			notification_cooldown_hours = excluded.notification_cooldown_hours,
			notes_snapshot_max_length = excluded.notes_snapshot_max_length,
			updated_at = excluded.updated_at`,
		s.AccuracyRejectMeters, s.MinRadiusMeters, s.MaxRadiusMeters, s.AccuracyMultiplier,
		s.SearchRadiusMeters, s.HitWindowMinutes, s.RequiredHits, s.CandidateStaleMinutes,
		s.OpenVisitStaleMinutes, s.NotificationCooldownHours, s.NotesSnapshotMaxLength,
		time.Now().UnixMilli(),
	)
	return eris.Wrap(err, "settings: save")
}
