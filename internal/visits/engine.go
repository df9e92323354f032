package visits

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// Engine turns pings into candidate, visit and notification state changes.
// Pings for the same user are processed one at a time; different users run
// in parallel and share nothing but the store.
type Engine struct {
	store       Store
	resolver    Resolver
	settings    SettingsSource
	broadcaster Broadcaster
	locks       *userLocks
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger overrides the global zap logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock sets the clock used for pings without a timestamp
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the engine to its collaborators. broadcaster may be nil,
// in which case confirmed visits are never announced.
func NewEngine(store Store, resolver Resolver, settings SettingsSource, broadcaster Broadcaster, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		resolver:    resolver,
		settings:    settings,
		broadcaster: broadcaster,
		locks:       newUserLocks(),
		logger:      zap.L(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessPing runs one ping through the detection pipeline:
// accuracy rejection, nearest place resolution, open-visit refresh or
// candidate advance (confirming a visit when enough hits accumulate),
// notification gating and finally the stale-state reaper, which runs
// whatever the earlier steps decided.
//
// Cancellation is honored until the first write. From then on the ping is
// carried through so a state transition is never left half applied.
func (e *Engine) ProcessPing(ctx context.Context, ping models.Ping) (*models.PingResult, error) {
	if ping.UserID == "" {
		return nil, eris.New("visits: ping has no user")
	}

	unlock := e.locks.Lock(ping.UserID)
	defer unlock()

	settings, err := e.settings.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "visits: load settings")
	}

	now := ping.Timestamp
	if now.IsZero() {
		now = e.now()
	}
	log := e.logger.With(zap.String("user_id", ping.UserID))

	res := &models.PingResult{EffectiveRadiusMeters: EffectiveRadius(ping.Accuracy, settings)}

	var match *models.PlaceMatch
	if ShouldReject(ping.Accuracy, settings) {
		res.Outcome = models.OutcomeRejected
		log.Debug("ping rejected on accuracy", zap.Float64p("accuracy", ping.Accuracy))
	} else {
		match = e.resolve(ctx, log, ping, settings)
		switch {
		case match == nil:
			res.Outcome = models.OutcomeNoPlace
		case match.DistanceMeters > res.EffectiveRadiusMeters:
			res.Outcome = models.OutcomeOutOfRadius
			res.PlaceID = &match.PlaceID
			res.DistanceMeters = &match.DistanceMeters
			match = nil
		default:
			res.PlaceID = &match.PlaceID
			res.DistanceMeters = &match.DistanceMeters
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "visits: ping cancelled")
	}
	wctx := context.WithoutCancel(ctx)

	if match != nil {
		confirmed, err := e.advance(wctx, ping.UserID, match.PlaceID, now, settings, res)
		if err != nil {
			return nil, err
		}
		if confirmed != nil {
			res.Notified = e.notify(wctx, log, confirmed, now, settings)
		}
	}

	var reaped ReapResult
	err = e.store.InTx(wctx, func(tx Tx) error {
		var err error
		reaped, err = Reap(wctx, tx, ping.UserID, now, settings)
		return err
	})
	if err != nil {
		return nil, persistenceErr("reap stale state", err)
	}
	res.ClosedVisits = reaped.ClosedVisits
	res.PurgedCandidates = reaped.PurgedCandidates

	if reaped.ClosedVisits > 0 || reaped.PurgedCandidates > 0 {
		log.Info("reaped stale visit state",
			zap.Int64("closed_visits", reaped.ClosedVisits),
			zap.Int64("purged_candidates", reaped.PurgedCandidates),
		)
	}

	return res, nil
}

// resolve asks the resolver for the nearest place. Lookup failures are
// logged and treated as "no place" so the ping still reaches the reaper.
func (e *Engine) resolve(ctx context.Context, log *zap.Logger, ping models.Ping, s models.VisitSettings) *models.PlaceMatch {
	point := models.Point{Latitude: ping.Latitude, Longitude: ping.Longitude}
	match, err := e.resolver.FindNearest(ctx, ping.UserID, point, s.SearchRadiusMeters)
	if err != nil {
		log.Warn("nearest place lookup failed, treating ping as placeless",
			zap.Float64("latitude", ping.Latitude),
			zap.Float64("longitude", ping.Longitude),
			zap.Error(err),
		)
		return nil
	}
	return match
}

// advance refreshes an open visit or moves the candidate forward, creating
// the visit when the candidate is confirmed. It returns the new visit, if any.
func (e *Engine) advance(ctx context.Context, userID string, placeID int64, now time.Time, s models.VisitSettings, res *models.PingResult) (*models.VisitEvent, error) {
	var confirmed *models.VisitEvent

	err := e.store.InTx(ctx, func(tx Tx) error {
		open, err := tx.OpenVisit(ctx, userID, placeID)
		if err != nil {
			return eris.Wrap(err, "load open visit")
		}
		if open != nil {
			seen := now
			if seen.Before(open.LastSeenAt) {
				seen = open.LastSeenAt
			}
			if err := tx.TouchVisit(ctx, open.ID, seen); err != nil {
				return eris.Wrap(err, "refresh open visit")
			}
			open.LastSeenAt = seen
			res.Outcome = models.OutcomeVisitRefreshed
			res.Visit = open
			return nil
		}

		existing, err := tx.Candidate(ctx, userID, placeID)
		if err != nil {
			return eris.Wrap(err, "load candidate")
		}
		candidate, outcome := Hit(existing, userID, placeID, now, s)
		res.Outcome = outcome.PingOutcome()
		res.ConsecutiveHits = candidate.ConsecutiveHits

		if outcome != HitConfirmed {
			return eris.Wrap(tx.SaveCandidate(ctx, candidate), "save candidate")
		}

		snap, err := tx.PlaceSnapshot(ctx, placeID)
		if err != nil {
			return eris.Wrap(err, "load place snapshot")
		}
		if snap == nil {
			// The place disappeared after it was resolved.
			res.Outcome = models.OutcomeNoPlace
			res.ConsecutiveHits = 0
			return eris.Wrap(tx.DeleteCandidate(ctx, userID, placeID), "drop orphan candidate")
		}

		visit := newVisitEvent(userID, candidate, snap, s.NotesSnapshotMaxLength)
		if err := tx.InsertVisit(ctx, visit); err != nil {
			return eris.Wrap(err, "insert visit")
		}
		if err := tx.DeleteCandidate(ctx, userID, placeID); err != nil {
			return eris.Wrap(err, "delete confirmed candidate")
		}

		res.Visit = visit
		confirmed = visit
		return nil
	})
	if err != nil {
		return nil, persistenceErr("advance visit state", err)
	}

	if confirmed != nil {
		e.logger.Info("visit confirmed",
			zap.String("user_id", userID),
			zap.Int64("place_id", placeID),
			zap.Int64("visit_id", confirmed.ID),
			zap.Time("arrived_at", confirmed.ArrivedAt),
		)
	}
	return confirmed, nil
}

// notify runs the notification gate for a freshly confirmed visit and
// broadcasts it when allowed. Failures here never undo the visit.
func (e *Engine) notify(ctx context.Context, log *zap.Logger, visit *models.VisitEvent, now time.Time, s models.VisitSettings) bool {
	if e.broadcaster == nil {
		return false
	}

	ok, err := NewNotificationGate(e.store).ShouldNotify(ctx, visit.UserID, visit.PlaceID, visit.ID, now, s.NotificationCooldownHours)
	if err != nil {
		log.Warn("notification gate failed, skipping notification", zap.Int64("visit_id", visit.ID), zap.Error(err))
		return false
	}
	if !ok {
		log.Debug("visit notification suppressed by cooldown", zap.Int64("visit_id", visit.ID))
		return false
	}

	if err := e.broadcaster.Broadcast(ctx, UserTopic(visit.UserID), visit.Summary()); err != nil {
		log.Warn("visit broadcast failed", zap.Int64("visit_id", visit.ID), zap.Error(err))
		return false
	}
	return true
}

// newVisitEvent builds an open visit from a confirmed candidate, freezing
// the place, region and trip fields as they are right now.
func newVisitEvent(userID string, c models.VisitCandidate, snap *models.PlaceSnapshot, notesMax int) *models.VisitEvent {
	return &models.VisitEvent{
		UserID:     userID,
		PlaceID:    snap.PlaceID,
		ArrivedAt:  c.FirstHitAt,
		LastSeenAt: c.LastHitAt,
		PlaceName:  snap.PlaceName,
		TripID:     snap.TripID,
		TripName:   snap.TripName,
		RegionName: snap.RegionName,
		Notes:      truncateRunes(snap.Notes, notesMax),
		Icon:       snap.Icon,
		Color:      snap.Color,
		Latitude:   snap.Latitude,
		Longitude:  snap.Longitude,
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
