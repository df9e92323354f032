package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jengzang/visits-backend-go/internal/database"
	"github.com/jengzang/visits-backend-go/internal/models"
)

// newTestDB opens a migrated SQLite database in a temp dir
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "visits.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

var base = time.UnixMilli(1_767_000_000_000).UTC()

func minutes(m int) time.Time {
	return base.Add(time.Duration(m) * time.Minute)
}

func f64(v float64) *float64 { return &v }

// createPlace inserts a directly owned place at (lat, lon)
func createPlace(t *testing.T, repo *PlaceRepository, userID, name string, lat, lon float64) *models.Place {
	t.Helper()
	p, err := repo.CreatePlace(context.Background(), userID, models.CreatePlaceRequest{
		Name: name, Latitude: f64(lat), Longitude: f64(lon),
	})
	require.NoError(t, err)
	return p
}
