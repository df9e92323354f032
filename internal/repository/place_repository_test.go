package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// about 11 meters of latitude
const tenMeters = 0.0001

func TestPlaceRepository_Ownership(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaceRepository(newTestDB(t))

	trip, err := repo.CreateTrip(ctx, "alice", "Lisbon")
	require.NoError(t, err)
	region, err := repo.CreateRegion(ctx, "alice", trip.ID, "Alfama")
	require.NoError(t, err)

	_, err = repo.CreateRegion(ctx, "bob", trip.ID, "Baixa")
	assert.ErrorIs(t, err, ErrNotFound)

	viaTrip, err := repo.CreatePlace(ctx, "alice", models.CreatePlaceRequest{
		RegionID: &region.ID, Name: "Miradouro", Latitude: f64(38.711), Longitude: f64(-9.13),
	})
	require.NoError(t, err)
	assert.Nil(t, viaTrip.UserID)

	_, err = repo.CreatePlace(ctx, "bob", models.CreatePlaceRequest{RegionID: &region.ID, Name: "Sneaky"})
	assert.ErrorIs(t, err, ErrNotFound)

	direct := createPlace(t, repo, "alice", "Home", 38.72, -9.14)
	createPlace(t, repo, "bob", "Bob's", 38.72, -9.14)

	places, total, err := repo.GetPlaces(ctx, "alice", models.PlaceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, places, 2)
	assert.Equal(t, viaTrip.ID, places[0].ID)
	assert.Equal(t, direct.ID, places[1].ID)

	byTrip, _, err := repo.GetPlaces(ctx, "alice", models.PlaceFilter{TripID: trip.ID})
	require.NoError(t, err)
	require.Len(t, byTrip, 1)
	assert.Equal(t, "Miradouro", byTrip[0].Name)

	got, err := repo.GetPlaceByID(ctx, "bob", direct.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPlaceRepository_GetPlacesEmpty(t *testing.T) {
	places, total, err := NewPlaceRepository(newTestDB(t)).GetPlaces(context.Background(), "nobody", models.PlaceFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, places)
	assert.Empty(t, places)
}

func TestPlaceRepository_FindNearest(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaceRepository(newTestDB(t))
	lat, lon := 40.4168, -3.7038

	far := createPlace(t, repo, "alice", "Far", lat+5*tenMeters, lon)
	near := createPlace(t, repo, "alice", "Near", lat+tenMeters, lon)
	createPlace(t, repo, "bob", "Closest but not hers", lat, lon)
	_, err := repo.CreatePlace(ctx, "alice", models.CreatePlaceRequest{Name: "Nowhere"})
	require.NoError(t, err)

	m, err := repo.FindNearest(ctx, "alice", models.Point{Latitude: lat, Longitude: lon}, 150)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, near.ID, m.PlaceID)
	assert.InDelta(t, 11.1, m.DistanceMeters, 0.5)

	m, err = repo.FindNearest(ctx, "alice", models.Point{Latitude: lat, Longitude: lon}, 5)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = repo.FindNearest(ctx, "alice", models.Point{Latitude: lat + 6*tenMeters, Longitude: lon}, 150)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, far.ID, m.PlaceID)
}

func TestPlaceRepository_FindNearestTieGoesToLowerID(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaceRepository(newTestDB(t))

	first := createPlace(t, repo, "alice", "Twin A", 35.6762, 139.6503)
	createPlace(t, repo, "alice", "Twin B", 35.6762, 139.6503)

	m, err := repo.FindNearest(ctx, "alice", models.Point{Latitude: 35.6763, Longitude: 139.6503}, 100)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, first.ID, m.PlaceID)
}

func TestPlaceRepository_FindNearestSouthernHemisphere(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaceRepository(newTestDB(t))

	p := createPlace(t, repo, "alice", "Opera House", -33.8568, 151.2153)

	m, err := repo.FindNearest(ctx, "alice", models.Point{Latitude: -33.8569, Longitude: 151.2153}, 50)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, p.ID, m.PlaceID)
}

func TestPlaceRepository_EachLocatedPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaceRepository(newTestDB(t))

	trip, err := repo.CreateTrip(ctx, "alice", "Oslo")
	require.NoError(t, err)
	region, err := repo.CreateRegion(ctx, "alice", trip.ID, "Sentrum")
	require.NoError(t, err)
	_, err = repo.CreatePlace(ctx, "alice", models.CreatePlaceRequest{RegionID: &region.ID, Name: "Opera", Latitude: f64(59.907), Longitude: f64(10.753)})
	require.NoError(t, err)
	createPlace(t, repo, "bob", "Cabin", 60.1, 10.2)
	_, err = repo.CreatePlace(ctx, "bob", models.CreatePlaceRequest{Name: "Unplaced"})
	require.NoError(t, err)

	owners := map[string]string{}
	err = repo.EachLocatedPlace(ctx, func(ownerID string, p models.Place) error {
		owners[p.Name] = ownerID
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Opera": "alice", "Cabin": "bob"}, owners)
}
