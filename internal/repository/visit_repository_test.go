package repository

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/visits"
)

func newVisitFixture(t *testing.T) (*VisitRepository, *PlaceRepository) {
	t.Helper()
	db := newTestDB(t)
	return NewVisitRepository(db), NewPlaceRepository(db)
}

func openVisit(userID string, placeID int64, arrived, seen int) *models.VisitEvent {
	return &models.VisitEvent{
		UserID: userID, PlaceID: placeID, PlaceName: "Somewhere",
		ArrivedAt: minutes(arrived), LastSeenAt: minutes(seen),
	}
}

func TestVisitRepository_CandidateLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, places := newVisitFixture(t)
	p := createPlace(t, places, "alice", "Gym", 51.5, -0.12)

	c, err := repo.Candidate(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Nil(t, c)

	want := models.VisitCandidate{UserID: "alice", PlaceID: p.ID, FirstHitAt: minutes(0), LastHitAt: minutes(0), ConsecutiveHits: 1}
	require.NoError(t, repo.SaveCandidate(ctx, want))

	want.LastHitAt = minutes(3)
	want.ConsecutiveHits = 2
	require.NoError(t, repo.SaveCandidate(ctx, want))

	c, err = repo.Candidate(ctx, "alice", p.ID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, want, *c)

	require.NoError(t, repo.DeleteCandidate(ctx, "alice", p.ID))
	c, err = repo.Candidate(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestVisitRepository_OneOpenVisitPerPlace(t *testing.T) {
	ctx := context.Background()
	repo, _ := newVisitFixture(t)

	first := openVisit("alice", 1, 0, 5)
	require.NoError(t, repo.InsertVisit(ctx, first))
	assert.NotZero(t, first.ID)

	assert.Error(t, repo.InsertVisit(ctx, openVisit("alice", 1, 10, 10)))
	require.NoError(t, repo.InsertVisit(ctx, openVisit("alice", 2, 10, 10)))
	require.NoError(t, repo.InsertVisit(ctx, openVisit("bob", 1, 10, 10)))

	open, err := repo.OpenVisit(ctx, "alice", 1)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, first.ID, open.ID)
	assert.Equal(t, minutes(0), open.ArrivedAt)
	assert.True(t, open.IsOpen())
}

func TestVisitRepository_TouchNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	repo, _ := newVisitFixture(t)

	v := openVisit("alice", 1, 0, 10)
	require.NoError(t, repo.InsertVisit(ctx, v))

	require.NoError(t, repo.TouchVisit(ctx, v.ID, minutes(4)))
	got, err := repo.GetVisitByID(ctx, "alice", v.ID)
	require.NoError(t, err)
	assert.Equal(t, minutes(10), got.LastSeenAt)

	require.NoError(t, repo.TouchVisit(ctx, v.ID, minutes(20)))
	got, err = repo.GetVisitByID(ctx, "alice", v.ID)
	require.NoError(t, err)
	assert.Equal(t, minutes(20), got.LastSeenAt)
}

func TestVisitRepository_ReaperQueries(t *testing.T) {
	ctx := context.Background()
	repo, places := newVisitFixture(t)
	p := createPlace(t, places, "alice", "Gym", 51.5, -0.12)

	stale := openVisit("alice", 1, 0, 5)
	fresh := openVisit("alice", 2, 0, 35)
	require.NoError(t, repo.InsertVisit(ctx, stale))
	require.NoError(t, repo.InsertVisit(ctx, fresh))
	require.NoError(t, repo.SaveCandidate(ctx, models.VisitCandidate{UserID: "alice", PlaceID: p.ID, FirstHitAt: minutes(0), LastHitAt: minutes(1), ConsecutiveHits: 1}))

	closed, err := repo.CloseStaleVisits(ctx, "alice", minutes(10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	got, err := repo.GetVisitByID(ctx, "alice", stale.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, minutes(5), *got.EndedAt)

	closed, err = repo.CloseStaleVisits(ctx, "alice", minutes(10))
	require.NoError(t, err)
	assert.Zero(t, closed)

	purged, err := repo.PurgeStaleCandidates(ctx, "alice", minutes(1))
	require.NoError(t, err)
	assert.Zero(t, purged, "cutoff is exclusive")
	purged, err = repo.PurgeStaleCandidates(ctx, "alice", minutes(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestVisitRepository_HasRecentVisit(t *testing.T) {
	ctx := context.Background()
	repo, _ := newVisitFixture(t)

	v := openVisit("alice", 1, 0, 30)
	require.NoError(t, repo.InsertVisit(ctx, v))

	recent, err := repo.HasRecentVisit(ctx, "alice", 1, 0, minutes(30))
	require.NoError(t, err)
	assert.True(t, recent)

	recent, err = repo.HasRecentVisit(ctx, "alice", 1, v.ID, minutes(0))
	require.NoError(t, err)
	assert.False(t, recent, "the excluded visit does not count")

	recent, err = repo.HasRecentVisit(ctx, "alice", 1, 0, minutes(31))
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestVisitRepository_PlaceSnapshot(t *testing.T) {
	ctx := context.Background()
	repo, places := newVisitFixture(t)

	trip, err := places.CreateTrip(ctx, "alice", "Kyoto")
	require.NoError(t, err)
	region, err := places.CreateRegion(ctx, "alice", trip.ID, "Higashiyama")
	require.NoError(t, err)
	p, err := places.CreatePlace(ctx, "alice", models.CreatePlaceRequest{
		RegionID: &region.ID, Name: "Kiyomizu-dera", Notes: "go early", Icon: "temple", Color: "#c00",
		Latitude: f64(34.9949), Longitude: f64(135.785),
	})
	require.NoError(t, err)

	snap, err := repo.PlaceSnapshot(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Kiyomizu-dera", snap.PlaceName)
	assert.Equal(t, "go early", snap.Notes)
	assert.Equal(t, "Higashiyama", snap.RegionName)
	assert.Equal(t, "Kyoto", snap.TripName)
	require.NotNil(t, snap.TripID)
	assert.Equal(t, trip.ID, *snap.TripID)
	assert.InDelta(t, 34.9949, *snap.Latitude, 1e-9)

	missing, err := repo.PlaceSnapshot(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVisitRepository_InTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo, places := newVisitFixture(t)
	p := createPlace(t, places, "alice", "Gym", 51.5, -0.12)

	err := repo.InTx(ctx, func(tx visits.Tx) error {
		require.NoError(t, tx.InsertVisit(ctx, openVisit("alice", p.ID, 0, 0)))
		require.NoError(t, tx.DeleteCandidate(ctx, "alice", p.ID))
		return eris.New("boom")
	})
	require.Error(t, err)

	open, err := repo.OpenVisit(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestVisitRepository_GetVisits(t *testing.T) {
	ctx := context.Background()
	repo, _ := newVisitFixture(t)

	for i := 0; i < 5; i++ {
		v := openVisit("alice", int64(i%2+1), i*60, i*60+5)
		if i < 3 {
			ended := minutes(i*60 + 5)
			v.EndedAt = &ended
		}
		require.NoError(t, repo.InsertVisit(ctx, v))
	}
	require.NoError(t, repo.InsertVisit(ctx, openVisit("bob", 1, 0, 0)))

	all, total, err := repo.GetVisits(ctx, "alice", models.VisitFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, all, 2)
	assert.Equal(t, minutes(240), all[0].ArrivedAt, "newest first")

	open := true
	openOnly, total, err := repo.GetVisits(ctx, "alice", models.VisitFilter{Open: &open})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, v := range openOnly {
		assert.True(t, v.IsOpen())
	}

	placeOne, total, err := repo.GetVisits(ctx, "alice", models.VisitFilter{
		PlaceID: 1, StartTime: minutes(60).UnixMilli(), EndTime: minutes(240).UnixMilli(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, placeOne, 2)

	other, err := repo.GetVisitByID(ctx, "bob", all[0].ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}
