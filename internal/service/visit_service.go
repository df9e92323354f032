package service

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/repository"
	"github.com/jengzang/visits-backend-go/internal/spatial"
	"github.com/jengzang/visits-backend-go/internal/visits"
)

// maxClockSkew is how far ahead of the server clock a device timestamp may be
const maxClockSkew = 2 * time.Minute

// PingProcessor runs pings through visit detection
type PingProcessor interface {
	ProcessPing(ctx context.Context, ping models.Ping) (*models.PingResult, error)
}

// VisitService handles business logic for pings and visits
type VisitService struct {
	engine PingProcessor
	repo   *repository.VisitRepository
	now    func() time.Time
}

// NewVisitService creates a new visit service
func NewVisitService(engine PingProcessor, repo *repository.VisitRepository) *VisitService {
	return &VisitService{engine: engine, repo: repo, now: time.Now}
}

// RecordPing converts a ping request into a ping and processes it. Pings
// without a device timestamp, or with one more than maxClockSkew ahead of
// the server clock, are stamped with the server clock.
func (s *VisitService) RecordPing(ctx context.Context, userID string, req models.PingRequest) (*models.PingResult, error) {
	now := s.now().UTC()
	ping := models.Ping{
		UserID:    userID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: now,
	}
	if req.Timestamp > 0 {
		ts := time.UnixMilli(req.Timestamp).UTC()
		if ts.After(now.Add(maxClockSkew)) {
			zap.L().Warn("ping timestamp ahead of server clock, using server time",
				zap.String("user_id", userID),
				zap.Time("device_time", ts),
				zap.Time("server_time", now),
			)
		} else {
			ping.Timestamp = ts
		}
	}
	return s.engine.ProcessPing(ctx, ping)
}

// GetVisits retrieves visits with filtering and pagination
func (s *VisitService) GetVisits(ctx context.Context, userID string, filter models.VisitFilter) (*models.VisitsResponse, error) {
	filter.Normalize()

	data, total, err := s.repo.GetVisits(ctx, userID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "failed to get visits")
	}

	return &models.VisitsResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: models.TotalPages(total, filter.PageSize),
	}, nil
}

// GetVisitByID retrieves a single visit
func (s *VisitService) GetVisitByID(ctx context.Context, userID string, id int64) (*models.VisitEvent, error) {
	v, err := s.repo.GetVisitByID(ctx, userID, id)
	if err != nil {
		return nil, eris.Wrap(err, "failed to get visit")
	}
	if v == nil {
		return nil, eris.Wrapf(repository.ErrNotFound, "visit %d", id)
	}
	return v, nil
}

// GetVisitsGeoJSON renders a page of visits as a GeoJSON FeatureCollection
func (s *VisitService) GetVisitsGeoJSON(ctx context.Context, userID string, filter models.VisitFilter) (*geojson.FeatureCollection, error) {
	resp, err := s.GetVisits(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return spatial.VisitsFeatureCollection(resp.Data), nil
}

// Topic returns the broadcast topic for a user's confirmed visits
func (s *VisitService) Topic(userID string) string {
	return visits.UserTopic(userID)
}
