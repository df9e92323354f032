package models

import "time"

// VisitCandidate is the unconfirmed hit counter for one (user, place)
type VisitCandidate struct {
	UserID          string    `json:"userId" db:"user_id"`
	PlaceID         int64     `json:"placeId" db:"place_id"`
	FirstHitAt      time.Time `json:"firstHitAt" db:"first_hit_at"`
	LastHitAt       time.Time `json:"lastHitAt" db:"last_hit_at"`
	ConsecutiveHits int       `json:"consecutiveHits" db:"consecutive_hits"`
}

// VisitEvent is a confirmed visit. It is open while EndedAt is nil; once
// closed it is never modified again. Snapshot fields are copied from the
// place, region and trip when the visit is confirmed.
type VisitEvent struct {
	ID         int64      `json:"id" db:"id"`
	UserID     string     `json:"userId" db:"user_id"`
	PlaceID    int64      `json:"placeId" db:"place_id"`
	ArrivedAt  time.Time  `json:"arrivedAt" db:"arrived_at"`
	LastSeenAt time.Time  `json:"lastSeenAt" db:"last_seen_at"`
	EndedAt    *time.Time `json:"endedAt,omitempty" db:"ended_at"`

	PlaceName  string   `json:"placeName" db:"place_name"`
	TripID     *int64   `json:"tripId,omitempty" db:"trip_id"`
	TripName   string   `json:"tripName,omitempty" db:"trip_name"`
	RegionName string   `json:"regionName,omitempty" db:"region_name"`
	Notes      string   `json:"notes,omitempty" db:"notes"`
	Icon       string   `json:"icon,omitempty" db:"icon"`
	Color      string   `json:"color,omitempty" db:"color"`
	Latitude   *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude  *float64 `json:"longitude,omitempty" db:"longitude"`
}

// IsOpen reports whether the visit is still ongoing
func (v VisitEvent) IsOpen() bool {
	return v.EndedAt == nil
}

// Summary builds the broadcast payload for a confirmed visit
func (v VisitEvent) Summary() VisitEventSummary {
	return VisitEventSummary{
		VisitID:    v.ID,
		PlaceID:    v.PlaceID,
		PlaceName:  v.PlaceName,
		TripID:     v.TripID,
		TripName:   v.TripName,
		RegionName: v.RegionName,
		Icon:       v.Icon,
		Color:      v.Color,
		Latitude:   v.Latitude,
		Longitude:  v.Longitude,
		ArrivedAt:  v.ArrivedAt,
	}
}

// VisitEventSummary is pushed to subscribers of user-visits-{userId}
type VisitEventSummary struct {
	VisitID    int64     `json:"visitId"`
	PlaceID    int64     `json:"placeId"`
	PlaceName  string    `json:"placeName"`
	TripID     *int64    `json:"tripId,omitempty"`
	TripName   string    `json:"tripName,omitempty"`
	RegionName string    `json:"regionName,omitempty"`
	Icon       string    `json:"icon,omitempty"`
	Color      string    `json:"color,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	ArrivedAt  time.Time `json:"arrivedAt"`
}

// VisitFilter represents filter parameters for querying visits
type VisitFilter struct {
	PlaceID   int64 `form:"placeId"`
	Open      *bool `form:"open"`
	StartTime int64 `form:"startTime"` // Unix milliseconds, compared with arrived_at
	EndTime   int64 `form:"endTime"`   // Unix milliseconds, compared with arrived_at
	Page      int   `form:"page"`
	PageSize  int   `form:"pageSize"`
}

// VisitsResponse represents a paginated response of visits
type VisitsResponse struct {
	Data       []VisitEvent `json:"data"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}
