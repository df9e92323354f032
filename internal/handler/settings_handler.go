package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/service"
	"github.com/jengzang/visits-backend-go/pkg/response"
)

// SettingsHandler handles HTTP requests for visit detection settings
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(service *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get settings")
		return
	}

	response.Success(c, settings)
}

// UpdateSettings handles PUT /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req models.VisitSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid settings: "+err.Error())
		return
	}

	settings, err := h.service.UpdateSettings(c.Request.Context(), req)
	if errors.Is(err, models.ErrInvalidSettings) {
		response.BadRequest(c, "Invalid settings: "+err.Error())
		return
	}
	if err != nil {
		respondError(c, err, "Failed to update settings")
		return
	}

	response.Success(c, settings)
}
