// Package visits decides, ping by ping, when a user has durably visited one
// of their places. It owns the candidate hysteresis, the open/closed visit
// lifecycle, stale-state reaping and notification gating. Storage, spatial
// lookup, settings and broadcast are collaborators supplied by the caller.
package visits

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// ErrPersistence marks storage failures while reading or mutating visit
// state. These are returned to the caller, never swallowed.
var ErrPersistence = eris.New("visit persistence failure")

// Resolver finds the nearest eligible place for a user within radiusMeters.
// A nil match with a nil error means nothing qualifies.
type Resolver interface {
	FindNearest(ctx context.Context, userID string, point models.Point, radiusMeters float64) (*models.PlaceMatch, error)
}

// SettingsSource returns the current detection thresholds
type SettingsSource interface {
	Load(ctx context.Context) (models.VisitSettings, error)
}

// Broadcaster delivers a payload to everyone subscribed to topic
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, payload any) error
}

// Tx is the set of reads and writes the engine issues against visit state.
// All operations are scoped to a single user.
type Tx interface {
	OpenVisit(ctx context.Context, userID string, placeID int64) (*models.VisitEvent, error)
	TouchVisit(ctx context.Context, visitID int64, seenAt time.Time) error
	InsertVisit(ctx context.Context, visit *models.VisitEvent) error

	Candidate(ctx context.Context, userID string, placeID int64) (*models.VisitCandidate, error)
	SaveCandidate(ctx context.Context, candidate models.VisitCandidate) error
	DeleteCandidate(ctx context.Context, userID string, placeID int64) error

	PlaceSnapshot(ctx context.Context, placeID int64) (*models.PlaceSnapshot, error)

	CloseStaleVisits(ctx context.Context, userID string, cutoff time.Time) (int64, error)
	PurgeStaleCandidates(ctx context.Context, userID string, cutoff time.Time) (int64, error)

	// HasRecentVisit reports whether any visit for (user, place) other than
	// excludeID was last seen at or after since.
	HasRecentVisit(ctx context.Context, userID string, placeID, excludeID int64, since time.Time) (bool, error)
}

// Store is the persistence capability. InTx runs fn atomically: either every
// write fn issues commits or none does.
type Store interface {
	Tx
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserTopic is the broadcast topic carrying a user's confirmed visits
func UserTopic(userID string) string {
	return fmt.Sprintf("user-visits-%s", userID)
}
