package visits

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// NotificationGate throttles visit notifications per (user, place)
type NotificationGate struct {
	tx Tx
}

// NewNotificationGate creates a gate reading visit history from tx
func NewNotificationGate(tx Tx) *NotificationGate {
	return &NotificationGate{tx: tx}
}

// ShouldNotify decides whether the visit newVisitID deserves a notification.
// A negative cooldown disables notifications and zero always notifies.
// Otherwise any other visit to the same place last seen within the cooldown
// suppresses it; last-seen is used so a long stay keeps suppressing repeats.
func (g *NotificationGate) ShouldNotify(ctx context.Context, userID string, placeID, newVisitID int64, now time.Time, cooldownHours int) (bool, error) {
	if cooldownHours < 0 {
		return false, nil
	}
	if cooldownHours == 0 {
		return true, nil
	}

	since := now.Add(-time.Duration(cooldownHours) * time.Hour)
	recent, err := g.tx.HasRecentVisit(ctx, userID, placeID, newVisitID, since)
	if err != nil {
		return false, eris.Wrap(err, "visits: check notification cooldown")
	}
	return !recent, nil
}
