package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/visits-backend-go/internal/middleware"
	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/service"
	"github.com/jengzang/visits-backend-go/pkg/response"
)

// PingHandler handles HTTP requests carrying location pings
type PingHandler struct {
	service *service.VisitService
}

// NewPingHandler creates a new ping handler
func NewPingHandler(service *service.VisitService) *PingHandler {
	return &PingHandler{service: service}
}

// RecordPing handles POST /api/v1/pings
func (h *PingHandler) RecordPing(c *gin.Context) {
	var req models.PingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid ping: "+err.Error())
		return
	}

	result, err := h.service.RecordPing(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err, "Failed to process ping")
		return
	}

	response.Success(c, result)
}
