package models

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidSettings is returned when detection thresholds are unusable
var ErrInvalidSettings = eris.New("invalid visit settings")

// VisitSettings holds the visit detection thresholds. A snapshot is read for
// every ping so changes apply without a restart.
type VisitSettings struct {
	AccuracyRejectMeters      float64 `json:"accuracyRejectMeters" mapstructure:"accuracy_reject_meters"` // 0 disables rejection
	MinRadiusMeters           float64 `json:"minRadiusMeters" mapstructure:"min_radius_meters"`
	MaxRadiusMeters           float64 `json:"maxRadiusMeters" mapstructure:"max_radius_meters"`
	AccuracyMultiplier        float64 `json:"accuracyMultiplier" mapstructure:"accuracy_multiplier"`
	SearchRadiusMeters        float64 `json:"searchRadiusMeters" mapstructure:"search_radius_meters"`
	HitWindowMinutes          int     `json:"hitWindowMinutes" mapstructure:"hit_window_minutes"`
	RequiredHits              int     `json:"requiredHits" mapstructure:"required_hits"`
	CandidateStaleMinutes     int     `json:"candidateStaleMinutes" mapstructure:"candidate_stale_minutes"`
	OpenVisitStaleMinutes     int     `json:"openVisitStaleMinutes" mapstructure:"open_visit_stale_minutes"`
	NotificationCooldownHours int     `json:"notificationCooldownHours" mapstructure:"notification_cooldown_hours"` // <0 disables, 0 always notifies
	NotesSnapshotMaxLength    int     `json:"notesSnapshotMaxLength" mapstructure:"notes_snapshot_max_length"`
}

// DefaultVisitSettings returns the thresholds used when nothing is configured
func DefaultVisitSettings() VisitSettings {
	return VisitSettings{
		AccuracyRejectMeters:      200,
		MinRadiusMeters:           35,
		MaxRadiusMeters:           100,
		AccuracyMultiplier:        2,
		SearchRadiusMeters:        150,
		HitWindowMinutes:          5,
		RequiredHits:              2,
		CandidateStaleMinutes:     60,
		OpenVisitStaleMinutes:     45,
		NotificationCooldownHours: 24,
		NotesSnapshotMaxLength:    20000,
	}
}

// Validate checks the thresholds. It runs when settings are loaded or
// updated so a bad configuration never reaches ping processing.
func (s VisitSettings) Validate() error {
	switch {
	case s.AccuracyRejectMeters < 0:
		return eris.Wrap(ErrInvalidSettings, "accuracyRejectMeters must not be negative")
	case s.MinRadiusMeters < 0:
		return eris.Wrap(ErrInvalidSettings, "minRadiusMeters must not be negative")
	case s.MaxRadiusMeters < s.MinRadiusMeters:
		return eris.Wrap(ErrInvalidSettings, "maxRadiusMeters must be >= minRadiusMeters")
	case s.AccuracyMultiplier < 0:
		return eris.Wrap(ErrInvalidSettings, "accuracyMultiplier must not be negative")
	case s.SearchRadiusMeters <= 0:
		return eris.Wrap(ErrInvalidSettings, "searchRadiusMeters must be positive")
	case s.HitWindowMinutes <= 0:
		return eris.Wrap(ErrInvalidSettings, "hitWindowMinutes must be positive")
	case s.RequiredHits < 1:
		return eris.Wrap(ErrInvalidSettings, "requiredHits must be at least 1")
	case s.CandidateStaleMinutes <= 0:
		return eris.Wrap(ErrInvalidSettings, "candidateStaleMinutes must be positive")
	case s.OpenVisitStaleMinutes <= 0:
		return eris.Wrap(ErrInvalidSettings, "openVisitStaleMinutes must be positive")
	case s.NotesSnapshotMaxLength < 0:
		return eris.Wrap(ErrInvalidSettings, "notesSnapshotMaxLength must not be negative")
	}
	return nil
}

// HitWindow is the maximum gap between consecutive candidate hits
func (s VisitSettings) HitWindow() time.Duration {
	return time.Duration(s.HitWindowMinutes) * time.Minute
}

// CandidateStaleAfter is how long an untouched candidate survives
func (s VisitSettings) CandidateStaleAfter() time.Duration {
	return time.Duration(s.CandidateStaleMinutes) * time.Minute
}

// OpenVisitStaleAfter is how long an open visit survives without a sighting
func (s VisitSettings) OpenVisitStaleAfter() time.Duration {
	return time.Duration(s.OpenVisitStaleMinutes) * time.Minute
}
