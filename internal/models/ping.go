package models

import "time"

// Ping is a single location report from a user's device
type Ping struct {
	UserID    string
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters, nil when the device did not report it
	Timestamp time.Time
}

// PingRequest is the body of POST /api/v1/pings
type PingRequest struct {
	Latitude  float64  `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64  `json:"longitude" binding:"min=-180,max=180"`
	Accuracy  *float64 `json:"accuracy" binding:"omitempty,min=0"`
	Timestamp int64    `json:"timestamp"` // Unix milliseconds, optional
}

// PingOutcome describes what a ping did to the visit state
type PingOutcome string

const (
	OutcomeRejected             PingOutcome = "rejected"
	OutcomeNoPlace              PingOutcome = "no_place"
	OutcomeOutOfRadius          PingOutcome = "out_of_radius"
	OutcomeVisitRefreshed       PingOutcome = "visit_refreshed"
	OutcomeCandidateCreated     PingOutcome = "candidate_created"
	OutcomeCandidateReset       PingOutcome = "candidate_reset"
	OutcomeCandidateIncremented PingOutcome = "candidate_incremented"
	OutcomeVisitConfirmed       PingOutcome = "visit_confirmed"
)

// PingResult reports the decision taken for one ping
type PingResult struct {
	Outcome               PingOutcome `json:"outcome"`
	PlaceID               *int64      `json:"placeId,omitempty"`
	DistanceMeters        *float64    `json:"distanceMeters,omitempty"`
	EffectiveRadiusMeters float64     `json:"effectiveRadiusMeters"`
	ConsecutiveHits       int         `json:"consecutiveHits,omitempty"`
	Visit                 *VisitEvent `json:"visit,omitempty"`
	Notified              bool        `json:"notified"`
	ClosedVisits          int64       `json:"closedVisits"`
	PurgedCandidates      int64       `json:"purgedCandidates"`
}
