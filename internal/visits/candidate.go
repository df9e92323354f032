package visits

import (
	"time"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// HitOutcome is the result of feeding a qualifying ping to a candidate
type HitOutcome int

const (
	HitCreated HitOutcome = iota
	HitReset
	HitIncremented
	HitConfirmed
)

func (o HitOutcome) String() string {
	switch o {
	case HitCreated:
		return "created"
	case HitReset:
		return "reset"
	case HitIncremented:
		return "incremented"
	case HitConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// PingOutcome maps the hit outcome onto the ping result vocabulary
func (o HitOutcome) PingOutcome() models.PingOutcome {
	switch o {
	case HitCreated:
		return models.OutcomeCandidateCreated
	case HitReset:
		return models.OutcomeCandidateReset
	case HitConfirmed:
		return models.OutcomeVisitConfirmed
	}
	return models.OutcomeCandidateIncremented
}

// Hit advances the candidate for (userID, placeID) by one qualifying ping and
// returns its new state. existing is nil when no candidate is stored.
//
// A gap longer than the hit window discards all progress; there is no
// partial credit. now is never allowed to move the candidate backwards in time.
func Hit(existing *models.VisitCandidate, userID string, placeID int64, now time.Time, s models.VisitSettings) (models.VisitCandidate, HitOutcome) {
	if existing == nil {
		c := models.VisitCandidate{
			UserID:          userID,
			PlaceID:         placeID,
			FirstHitAt:      now,
			LastHitAt:       now,
			ConsecutiveHits: 1,
		}
		if c.ConsecutiveHits >= s.RequiredHits {
			return c, HitConfirmed
		}
		return c, HitCreated
	}

	c := *existing
	if now.Before(c.LastHitAt) {
		now = c.LastHitAt
	}

	if now.Sub(c.LastHitAt) > s.HitWindow() {
		c.FirstHitAt = now
		c.LastHitAt = now
		c.ConsecutiveHits = 1
		if c.ConsecutiveHits >= s.RequiredHits {
			return c, HitConfirmed
		}
		return c, HitReset
	}

	c.ConsecutiveHits++
	c.LastHitAt = now
	if c.ConsecutiveHits >= s.RequiredHits {
		return c, HitConfirmed
	}
	return c, HitIncremented
}
