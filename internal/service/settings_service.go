package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/repository"
)

// SettingsService reads and updates visit detection thresholds
type SettingsService struct {
	repo *repository.SettingsRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// GetSettings returns the thresholds currently in force
func (s *SettingsService) GetSettings(ctx context.Context) (models.VisitSettings, error) {
	return s.repo.Load(ctx)
}

// UpdateSettings validates and stores new thresholds. They apply from the
// next processed ping.
func (s *SettingsService) UpdateSettings(ctx context.Context, settings models.VisitSettings) (models.VisitSettings, error) {
	if err := s.repo.Save(ctx, settings); err != nil {
		return models.VisitSettings{}, err
	}
	zap.L().Info("visit settings updated",
		zap.Int("required_hits", settings.RequiredHits),
		zap.Int("hit_window_minutes", settings.HitWindowMinutes),
		zap.Float64("min_radius_meters", settings.MinRadiusMeters),
		zap.Float64("max_radius_meters", settings.MaxRadiusMeters),
	)
	return settings, nil
}
