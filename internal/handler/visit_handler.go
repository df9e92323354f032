package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/visits-backend-go/internal/broadcast"
	"github.com/jengzang/visits-backend-go/internal/middleware"
	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/service"
	"github.com/jengzang/visits-backend-go/pkg/response"
)

// Subscriber hands out topic subscriptions
type Subscriber interface {
	Subscribe(topic string) (<-chan broadcast.Message, func())
}

// VisitHandler handles HTTP requests for visits
type VisitHandler struct {
	service   *service.VisitService
	hub       Subscriber
	keepAlive time.Duration
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(service *service.VisitService, hub Subscriber) *VisitHandler {
	return &VisitHandler{service: service, hub: hub, keepAlive: 30 * time.Second}
}

// GetVisits handles GET /api/v1/visits
func (h *VisitHandler) GetVisits(c *gin.Context) {
	var filter models.VisitFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.service.GetVisits(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		respondError(c, err, "Failed to get visits")
		return
	}

	response.Success(c, result)
}

// GetVisitByID handles GET /api/v1/visits/:id
func (h *VisitHandler) GetVisitByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	visit, err := h.service.GetVisitByID(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err, "Failed to get visit")
		return
	}

	response.Success(c, visit)
}

// GetVisitsGeoJSON handles GET /api/v1/visits/geojson
func (h *VisitHandler) GetVisitsGeoJSON(c *gin.Context) {
	var filter models.VisitFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	fc, err := h.service.GetVisitsGeoJSON(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		respondError(c, err, "Failed to get visits")
		return
	}

	c.JSON(http.StatusOK, fc)
}

// StreamVisits handles GET /api/v1/visits/stream. Confirmed visits that
// pass the notification gate are pushed as "visit" server-sent events.
func (h *VisitHandler) StreamVisits(c *gin.Context) {
	msgs, cancel := h.hub.Subscribe(h.service.Topic(middleware.UserID(c)))
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			c.SSEvent("visit", msg.Payload)
			return true
		case <-ticker.C:
			c.SSEvent("keepalive", time.Now().UnixMilli())
			return true
		}
	})
}
