package visits

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// ReapResult counts the rows touched by one reaper run
type ReapResult struct {
	ClosedVisits     int64
	PurgedCandidates int64
}

// Reap closes the user's open visits that have not been seen within the
// open-visit staleness window and deletes candidates whose last hit is older
// than the candidate staleness window. A closed visit ends at its last
// sighting, not at now. Running it again without new pings changes nothing.
func Reap(ctx context.Context, tx Tx, userID string, now time.Time, s models.VisitSettings) (ReapResult, error) {
	var res ReapResult

	closed, err := tx.CloseStaleVisits(ctx, userID, now.Add(-s.OpenVisitStaleAfter()))
	if err != nil {
		return res, eris.Wrap(err, "visits: close stale visits")
	}
	res.ClosedVisits = closed

	purged, err := tx.PurgeStaleCandidates(ctx, userID, now.Add(-s.CandidateStaleAfter()))
	if err != nil {
		return res, eris.Wrap(err, "visits: purge stale candidates")
	}
	res.PurgedCandidates = purged

	return res, nil
}
