package service

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/repository"
	"github.com/jengzang/visits-backend-go/internal/spatial"
)

// ErrInvalidInput marks requests that are well formed but semantically invalid
var ErrInvalidInput = eris.New("invalid input")

// PlaceIndexer keeps an external spatial index in step with place writes
type PlaceIndexer interface {
	IndexPlace(ctx context.Context, ownerID string, p models.Place) error
}

// PlaceService handles business logic for trips, regions and places
type PlaceService struct {
	repo    *repository.PlaceRepository
	indexer PlaceIndexer
}

// NewPlaceService creates a new place service. indexer may be nil.
func NewPlaceService(repo *repository.PlaceRepository, indexer PlaceIndexer) *PlaceService {
	return &PlaceService{repo: repo, indexer: indexer}
}

// CreateTrip creates a trip for userID
func (s *PlaceService) CreateTrip(ctx context.Context, userID string, req models.CreateTripRequest) (*models.Trip, error) {
	return s.repo.CreateTrip(ctx, userID, req.Name)
}

// CreateRegion creates a region in one of the user's trips
func (s *PlaceService) CreateRegion(ctx context.Context, userID string, tripID int64, req models.CreateRegionRequest) (*models.Region, error) {
	return s.repo.CreateRegion(ctx, userID, tripID, req.Name)
}

// CreatePlace creates a place and mirrors it into the spatial index
func (s *PlaceService) CreatePlace(ctx context.Context, userID string, req models.CreatePlaceRequest) (*models.Place, error) {
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, eris.Wrap(ErrInvalidInput, "latitude and longitude must be given together")
	}

	p, err := s.repo.CreatePlace(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	// The place is committed; a missed index write is repaired by the
	// rebuild at startup or by migrate --reindex.
	if s.indexer != nil {
		if err := s.indexer.IndexPlace(ctx, userID, *p); err != nil {
			zap.L().Error("failed to index place", zap.Int64("place_id", p.ID), zap.Error(err))
		}
	}
	return p, nil
}

// GetPlaces retrieves places with filtering and pagination
func (s *PlaceService) GetPlaces(ctx context.Context, userID string, filter models.PlaceFilter) (*models.PlacesResponse, error) {
	filter.Normalize()

	data, total, err := s.repo.GetPlaces(ctx, userID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "failed to get places")
	}

	return &models.PlacesResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: models.TotalPages(total, filter.PageSize),
	}, nil
}

// GetPlaceByID retrieves a single place
func (s *PlaceService) GetPlaceByID(ctx context.Context, userID string, id int64) (*models.Place, error) {
	p, err := s.repo.GetPlaceByID(ctx, userID, id)
	if err != nil {
		return nil, eris.Wrap(err, "failed to get place")
	}
	if p == nil {
		return nil, eris.Wrapf(repository.ErrNotFound, "place %d", id)
	}
	return p, nil
}

// GetPlacesGeoJSON renders a page of located places as GeoJSON
func (s *PlaceService) GetPlacesGeoJSON(ctx context.Context, userID string, filter models.PlaceFilter) (*geojson.FeatureCollection, error) {
	resp, err := s.GetPlaces(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return spatial.PlacesFeatureCollection(resp.Data), nil
}
